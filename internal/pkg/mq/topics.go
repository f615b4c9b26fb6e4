// internal/pkg/mq/topics.go
package mq

// Topic names shared by both sides of the fulfillment saga. Kept in one
// place so producers and consumers cannot drift.
const (
	TopicReservationRequest   = "inventory.reservation.request.topic"
	TopicReservationCompleted = "inventory.reservation.completed.topic"
	TopicReleaseRequest       = "inventory.release.request.topic"
	TopicReservationFailed    = "order.reservation.failed.topic"
	TopicPaymentCompleted     = "order.payment.completed.topic"
	TopicPaymentFailed        = "order.payment.failed.topic"
	TopicOrderCompleted       = "order.completed.topic"
	TopicProductOnboarded     = "product.onboarded.topic"
)
