// internal/service/order/infrastructure/adapter/inventory_kafka_adapter.go
package adapter

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/mq"
	invdomain "github.com/edidiesky/marketplace-api-sub001/internal/service/inventory/domain"
)

// InventoryKafkaAdapter implements port.ReleasePublisher and
// port.ReservationRequester: the order side never touches the ledger
// directly for holds or compensation, it asks the inventory consumers
// over the bus.
type InventoryKafkaAdapter struct {
	reservationWriter *kafka.Writer
	releaseWriter     *kafka.Writer
}

func NewInventoryKafkaAdapter(brokers []string) *InventoryKafkaAdapter {
	return &InventoryKafkaAdapter{
		reservationWriter: mq.NewWriter(brokers, mq.TopicReservationRequest),
		releaseWriter:     mq.NewWriter(brokers, mq.TopicReleaseRequest),
	}
}

func (a *InventoryKafkaAdapter) RequestReservation(ctx context.Context, event *invdomain.ReservationRequested) error {
	return mq.PublishJSON(ctx, a.reservationWriter, event.SagaID, event)
}

func (a *InventoryKafkaAdapter) RequestRelease(ctx context.Context, event *invdomain.ReleaseRequested) error {
	return mq.PublishJSON(ctx, a.releaseWriter, event.SagaID, event)
}

func (a *InventoryKafkaAdapter) Close() error {
	if err := a.reservationWriter.Close(); err != nil {
		return err
	}
	return a.releaseWriter.Close()
}
