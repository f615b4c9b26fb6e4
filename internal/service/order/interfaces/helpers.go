// internal/service/order/interfaces/helpers.go
package interfaces

import (
	"context"
	"time"

	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/idempotency"
	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/logger"
	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/metrics"
	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/mq"
)

func acquireMarker(ctx context.Context, store idempotency.Store, key string, ttl time.Duration, policy mq.RetryPolicy, topic string) (duplicate bool, err error) {
	err = mq.Retry(ctx, policy, func(ctx context.Context) error {
		ok, acqErr := store.Acquire(ctx, key, ttl)
		if acqErr != nil {
			return acqErr
		}
		duplicate = !ok
		return nil
	}, nil, retryLogger(ctx, topic))
	return duplicate, err
}

func retryLogger(ctx context.Context, topic string) func(attempt int, err error) {
	return func(attempt int, err error) {
		metrics.HandlerRetries.WithLabelValues(topic).Inc()
		logger.Ctx(ctx).Warn().Err(err).Int("attempt", attempt).Str("topic", topic).Msg("handler attempt failed, backing off")
	}
}
