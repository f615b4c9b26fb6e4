// internal/service/order/infrastructure/adapter/order_events_kafka_adapter.go
package adapter

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/mq"
	"github.com/edidiesky/marketplace-api-sub001/internal/service/order/domain"
)

// OrderEventsKafkaAdapter implements port.OrderEventsPublisher.
type OrderEventsKafkaAdapter struct {
	completedWriter *kafka.Writer
}

func NewOrderEventsKafkaAdapter(brokers []string) *OrderEventsKafkaAdapter {
	return &OrderEventsKafkaAdapter{
		completedWriter: mq.NewWriter(brokers, mq.TopicOrderCompleted),
	}
}

func (a *OrderEventsKafkaAdapter) OrderCompleted(ctx context.Context, event *domain.OrderCompleted) error {
	return mq.PublishJSON(ctx, a.completedWriter, event.OrderID, event)
}

func (a *OrderEventsKafkaAdapter) Close() error {
	return a.completedWriter.Close()
}
