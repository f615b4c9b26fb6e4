// internal/service/inventory/infrastructure/adapter/reservation_events_kafka_adapter.go
package adapter

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/mq"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/inventory/domain"
)

// ReservationEventsKafkaAdapter implements port.ReservationNotifier by
// publishing reservation outcomes, keyed by saga so one saga's events
// share a partition.
type ReservationEventsKafkaAdapter struct {
	completedWriter *kafka.Writer
	failedWriter    *kafka.Writer
}

func NewReservationEventsKafkaAdapter(brokers []string) *ReservationEventsKafkaAdapter {
	return &ReservationEventsKafkaAdapter{
		completedWriter: mq.NewWriter(brokers, mq.TopicReservationCompleted),
		failedWriter:    mq.NewWriter(brokers, mq.TopicReservationFailed),
	}
}

func (a *ReservationEventsKafkaAdapter) ReservationCompleted(ctx context.Context, event *domain.ReservationCompleted) error {
	return mq.PublishJSON(ctx, a.completedWriter, event.SagaID, event)
}

func (a *ReservationEventsKafkaAdapter) ReservationFailed(ctx context.Context, event *domain.ReservationFailed) error {
	return mq.PublishJSON(ctx, a.failedWriter, event.SagaID, event)
}

func (a *ReservationEventsKafkaAdapter) Close() error {
	if err := a.completedWriter.Close(); err != nil {
		return err
	}
	return a.failedWriter.Close()
}
