package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"jobmate/acceptance-service/internal/model"
)

//go:generate mockgen -destination=../mocks/mock_message_writer.go -package=mocks jobmate/acceptance-service/internal/events MessageWriter

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes accepted jobs to a topic, keyed by job ID.
type KafkaPublisher struct {
	writer MessageWriter
}

// NewKafkaPublisher creates a publisher for the given broker and topic.
func NewKafkaPublisher(broker, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(broker),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: false,
		},
	}
}

// NewKafkaPublisherWithWriter builds a publisher on a custom writer (tests).
func NewKafkaPublisherWithWriter(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// PublishAccepted writes one message.
func (p *KafkaPublisher) PublishAccepted(ctx context.Context, job model.AcceptedJob) error {
	payload, err := encode(job)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(job.JobID),
		Value: payload,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(TypeJobAccepted)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}
