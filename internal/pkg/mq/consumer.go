// internal/pkg/mq/consumer.go
package mq

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/semaphore"

	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/logger"
	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/metrics"
)

// Handler processes one decoded message. Returning nil acknowledges the
// message; returning an error hands it to the failure handler. Handlers
// own their idempotency markers and retry loops, so by the time an error
// reaches the consumer it is final.
type Handler interface {
	Handle(ctx context.Context, msg kafka.Message) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, msg kafka.Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg kafka.Message) error {
	return f(ctx, msg)
}

// Consumer owns the fetch/dispatch/commit loop for one topic. In-flight
// handler calls are capped by a semaphore so a burst cannot overwhelm
// the datastore.
type Consumer struct {
	reader  *kafka.Reader
	handler Handler
	failure *FailureHandler
	sem     *semaphore.Weighted

	wg      sync.WaitGroup
	stopped bool
}

func NewConsumer(reader *kafka.Reader, handler Handler, failure *FailureHandler, maxInFlight int64) *Consumer {
	if maxInFlight <= 0 {
		maxInFlight = 10
	}
	return &Consumer{
		reader:  reader,
		handler: handler,
		failure: failure,
		sem:     semaphore.NewWeighted(maxInFlight),
	}
}

// Start runs the consume loop in a goroutine. It is a long-running
// method; cancel ctx or call Stop to end it.
func (c *Consumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		topic := c.reader.Config().Topic
		logger.Ctx(ctx).Info().Str("topic", topic).Msg("✅ consumer started")
		for {
			if c.stopped {
				return
			}
			// FetchMessage instead of ReadMessage so the offset commit
			// stays under our control.
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					logger.Ctx(ctx).Info().Str("topic", topic).Msg("🛑 consumer shutting down")
					return
				}
				logger.Ctx(ctx).Error().Err(err).Str("topic", topic).Msg("could not fetch message, retrying")
				time.Sleep(time.Second)
				continue
			}
			metrics.EventsConsumed.WithLabelValues(topic).Inc()

			if err := c.sem.Acquire(ctx, 1); err != nil {
				return
			}

			propagator := otel.GetTextMapPropagator()
			carrier := KafkaHeaderCarrier(msg.Headers)
			msgCtx := propagator.Extract(ctx, &carrier)

			c.wg.Add(1)
			go func(msgCtx context.Context, msg kafka.Message) {
				defer c.wg.Done()
				defer c.sem.Release(1)

				if err := c.handler.Handle(msgCtx, msg); err != nil {
					c.failure.Handle(msgCtx, msg, err)
				}

				// The offset is committed whether the handler succeeded
				// or the message was moved to the DLT; either way it
				// must not be redelivered here. A crash before this
				// commit causes a replay, which the idempotency markers
				// absorb.
				if err := c.reader.CommitMessages(ctx, msg); err != nil {
					logger.Ctx(ctx).Error().Err(err).Str("topic", topic).Msg("failed to commit offset")
				}
			}(msgCtx, msg)
		}
	}()
}

// Stop closes the reader and waits for the loop to drain.
func (c *Consumer) Stop(ctx context.Context) {
	c.stopped = true
	c.reader.Close()
	c.wg.Wait()
	logger.Ctx(ctx).Info().Str("topic", c.reader.Config().Topic).Msg("✅ consumer stopped")
}
