// cmd/order-service/main.go
package main

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/bootstrap"
	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/dislock"
	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/idempotency"
	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/logger"
	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/mq"
	pkgredis "github.com/edidiesky/marketplace-api-sub001/internal/pkg/redis"
	invapplication "github.com/edidiesky/marketplace-api-sub001/internal/service/inventory/application"
	invinfra "github.com/edidiesky/marketplace-api-sub001/internal/service/inventory/infrastructure"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/order/application"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/order/infrastructure"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/order/infrastructure/adapter"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/order/interfaces"
)

const serviceName = "order-service"

// Dead letters from every saga topic are tailed here: the order service
// owns the saga, so it owns the reconciliation trail too.
var deadLetterTopics = []string{
	mq.TopicReservationRequest,
	mq.TopicReleaseRequest,
	mq.TopicProductOnboarded,
	mq.TopicPaymentCompleted,
	mq.TopicPaymentFailed,
}

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8081,
		Setup: func(ctx context.Context, app *bootstrap.AppCtx) error {
			cfg := app.Config

			db, err := gorm.Open(mysql.Open(cfg.Infra.MysqlDSN), &gorm.Config{})
			if err != nil {
				return err
			}
			if err := db.WithContext(ctx).AutoMigrate(&infrastructure.OrderModel{}); err != nil {
				return err
			}

			redisClient, err := pkgredis.NewClient(cfg.Infra.RedisAddr, cfg.Infra.RedisDB)
			if err != nil {
				return err
			}
			app.OnShutdown(func(ctx context.Context) {
				if err := redisClient.Close(); err != nil {
					logger.Ctx(ctx).Error().Err(err).Msg("error closing redis client")
				}
			})

			tracer := otel.Tracer(serviceName)

			// The stock committer is the inventory application service
			// used in-process: commit has no bus leg, it happens inside
			// the payment.completed transaction boundary.
			locks, err := dislock.NewRedisManager(redisClient)
			if err != nil {
				return err
			}
			stockCache := invinfra.NewRedisStockCache(redisClient, time.Minute)
			stocks := invinfra.NewGormStockRepository(db)
			committer := invapplication.NewReservationService(stocks, locks, stockCache, tracer, cfg.Saga.LockTTL)

			orders := infrastructure.NewGormOrderRepository(db)
			markers := idempotency.NewRedisStore(redisClient)

			inventoryBus := adapter.NewInventoryKafkaAdapter(cfg.Infra.KafkaBrokers)
			app.OnShutdown(func(ctx context.Context) {
				if err := inventoryBus.Close(); err != nil {
					logger.Ctx(ctx).Error().Err(err).Msg("error closing inventory producers")
				}
			})

			orderEvents := adapter.NewOrderEventsKafkaAdapter(cfg.Infra.KafkaBrokers)
			app.OnShutdown(func(ctx context.Context) {
				if err := orderEvents.Close(); err != nil {
					logger.Ctx(ctx).Error().Err(err).Msg("error closing order events producer")
				}
			})

			svc := application.NewOrderApplicationService(orders, committer, inventoryBus, inventoryBus, orderEvents, tracer)

			failure := mq.NewFailureHandler(cfg.Infra.KafkaBrokers)
			app.OnShutdown(func(ctx context.Context) {
				if err := failure.Close(); err != nil {
					logger.Ctx(ctx).Error().Err(err).Msg("error closing dead letter producer")
				}
			})

			retry := mq.RetryPolicy{
				MaxAttempts: cfg.Saga.MaxAttempts,
				BaseBackoff: cfg.Saga.BaseBackoff,
				MaxBackoff:  cfg.Saga.MaxBackoff,
			}
			markerTTL := cfg.Saga.IdempotencyTTL

			startConsumer := func(topic string, handler mq.Handler) {
				reader := mq.NewReader(cfg.Infra.KafkaBrokers, topic, serviceName)
				consumer := mq.NewConsumer(reader, handler, failure, cfg.Saga.MaxInFlight)
				consumer.Start(ctx)
				app.OnShutdown(consumer.Stop)
			}

			startConsumer(mq.TopicPaymentCompleted,
				interfaces.NewPaymentCompletedHandler(svc, markers, markerTTL, retry))
			startConsumer(mq.TopicPaymentFailed,
				interfaces.NewPaymentFailedHandler(svc, markers, markerTTL, retry))

			for _, topic := range deadLetterTopics {
				reader := mq.NewReader(cfg.Infra.KafkaBrokers, mq.DeadLetterTopic(topic), serviceName+"-dlt")
				dlt := interfaces.NewDltConsumerAdapter(reader)
				dlt.Start(ctx)
				app.OnShutdown(dlt.Stop)
			}

			interfaces.NewOrderHandler(svc).RegisterRoutes(app.Mux)

			logger.Ctx(ctx).Info().Msg("order service wired")
			return nil
		},
	})
}
