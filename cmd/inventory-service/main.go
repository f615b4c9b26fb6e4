// cmd/inventory-service/main.go
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
	"github.com/edidiesky/marketplace-api-sub001/internal/service/inventory/application"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/inventory/infrastructure"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/inventory/infrastructure/adapter"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/inventory/interfaces"
)

const serviceName = "inventory-service"

// main is the composition root: it builds every dependency, wires the
// consumers, and hands lifecycle ownership to bootstrap.
func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8082,
		Setup: func(ctx context.Context, app *bootstrap.AppCtx) error {
			cfg := app.Config

			db, err := gorm.Open(mysql.Open(cfg.Infra.MysqlDSN), &gorm.Config{})
			if err != nil {
				return err
			}
			if err := db.WithContext(ctx).AutoMigrate(&infrastructure.StockModel{}); err != nil {
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

			locks, err := dislock.NewRedisManager(redisClient)
			if err != nil {
				return err
			}
			markers := idempotency.NewRedisStore(redisClient)
			cache := infrastructure.NewRedisStockCache(redisClient, time.Minute)

			stocks := infrastructure.NewGormStockRepository(db)
			tracer := otel.Tracer(serviceName)
			svc := application.NewReservationService(stocks, locks, cache, tracer, cfg.Saga.LockTTL)

			notifier := adapter.NewReservationEventsKafkaAdapter(cfg.Infra.KafkaBrokers)
			app.OnShutdown(func(ctx context.Context) {
				if err := notifier.Close(); err != nil {
					logger.Ctx(ctx).Error().Err(err).Msg("error closing reservation events producer")
				}
			})

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

			startConsumer(mq.TopicReservationRequest,
				interfaces.NewReservationRequestHandler(svc, notifier, markers, markerTTL, retry))
			startConsumer(mq.TopicReleaseRequest,
				interfaces.NewReleaseRequestHandler(svc, markers, markerTTL, retry))
			startConsumer(mq.TopicProductOnboarded,
				interfaces.NewProductOnboardedHandler(svc, markers, markerTTL, retry))

			interfaces.NewStockHandler(svc).RegisterRoutes(app.Mux)

			logger.Ctx(ctx).Info().Msg("inventory service wired")
			return nil
		},
	})
}
