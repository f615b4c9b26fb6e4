// internal/pkg/mq/failure.go
package mq

import (
	"context"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/logger"
	"github.com/edidiesky/marketplace-api-sub001/internal/pkg/metrics"
)

// Headers stamped onto dead-letter messages so the DLT consumer can
// point back at the original coordinates.
const (
	HeaderOriginalTopic     = "x-original-topic"
	HeaderOriginalPartition = "x-original-partition"
	HeaderOriginalOffset    = "x-original-offset"
	HeaderExceptionMessage  = "x-exception-message"
)

// DeadLetterTopic names the DLT for a topic.
func DeadLetterTopic(topic string) string {
	return topic + ".dlt"
}

// FailureHandler moves messages whose processing exhausted all retries to
// the dead-letter topic of their origin. The writer is topic-less; the
// destination is set per message.
type FailureHandler struct {
	writer *kafka.Writer
}

func NewFailureHandler(brokers []string) *FailureHandler {
	return &FailureHandler{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// Handle publishes the failed message to its dead-letter topic. A failure
// to dead-letter is itself logged at the highest severity; at that point
// the message is lost to automation and only the log line remains.
func (h *FailureHandler) Handle(ctx context.Context, msg kafka.Message, cause error) {
	dlt := DeadLetterTopic(msg.Topic)

	dead := kafka.Message{
		Topic: dlt,
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(msg.Headers,
			kafka.Header{Key: HeaderOriginalTopic, Value: []byte(msg.Topic)},
			kafka.Header{Key: HeaderOriginalPartition, Value: []byte(strconv.Itoa(msg.Partition))},
			kafka.Header{Key: HeaderOriginalOffset, Value: []byte(strconv.FormatInt(msg.Offset, 10))},
			kafka.Header{Key: HeaderExceptionMessage, Value: []byte(cause.Error())},
		),
	}

	if err := h.writer.WriteMessages(ctx, dead); err != nil {
		logger.Ctx(ctx).Error().
			Err(err).
			Str("severity", "CRITICAL").
			Str("topic", msg.Topic).
			Str("key", string(msg.Key)).
			AnErr("cause", cause).
			Msg("failed to publish dead letter, message is lost")
		return
	}

	metrics.DeadLetters.WithLabelValues(msg.Topic).Inc()
	logger.Ctx(ctx).Error().
		Str("severity", "CRITICAL").
		Str("topic", msg.Topic).
		Str("dlt", dlt).
		Str("key", string(msg.Key)).
		AnErr("cause", cause).
		Msg("message moved to dead-letter topic")
}

func (h *FailureHandler) Close() error {
	if h.writer == nil {
		return nil
	}
	return h.writer.Close()
}
