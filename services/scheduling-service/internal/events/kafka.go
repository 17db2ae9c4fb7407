package events

import (
	"context"
	"errors"
	"log/slog"

	"github.com/md-rashed-zaman/clinicbook/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes each event to the topic named after its type, keyed by
// appointment id so one appointment's events stay ordered on a partition.
type KafkaPublisher struct {
	writer messageWriter
	logger *slog.Logger
}

func NewKafkaPublisher(brokers string, logger *slog.Logger) (*KafkaPublisher, error) {
	list := kafkax.SplitBrokers(brokers)
	if len(list) == 0 {
		return nil, errors.New("kafka brokers not configured")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(list...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: writer, logger: logger}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := evt.Payload()
	if err != nil {
		return err
	}
	msg := Message(ctx, evt, payload)
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("publish event failed", "event_type", evt.Type, "appointment_id", evt.Appointment.ID, "err", err)
		return err
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Message builds the kafka message for evt with id, type and trace headers.
func Message(ctx context.Context, evt Event, payload []byte) kafka.Message {
	msg := kafka.Message{
		Topic: evt.Type,
		Key:   []byte(evt.Appointment.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: kafkax.HeaderEventID, Value: []byte(evt.ID)},
			{Key: kafkax.HeaderEventType, Value: []byte(evt.Type)},
			{Key: kafkax.HeaderContentType, Value: []byte("application/json")},
		},
	}
	msg.Headers = kafkax.InjectTraceHeaders(ctx, msg.Headers)
	return msg
}
