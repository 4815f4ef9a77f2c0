package bus

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/SalemAitAmi/flask-chat-app/pkg/model"
	"github.com/SalemAitAmi/flask-chat-app/pkg/room"
)

// KafkaPublisher writes events keyed by room so every event of one chat lands
// on one partition. That keeps the relative order of a chat's events intact
// across partitions; unkeyed writes would not.
type KafkaPublisher struct {
	writer *kafka.Writer
}

var _ Publisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

// routingKey picks the partition key: the legacy room if set, the chat room
// otherwise.
func routingKey(ev model.Event) []byte {
	if ev.Room != "" {
		return []byte(ev.Room)
	}
	return []byte(room.ChatKey(ev.ChatID))
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev model.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   routingKey(ev),
		Value: payload,
		Time:  time.Now(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// KafkaConsumer reads events and hands them to a callback. GroupID selects
// the consumption mode: a shared group id load-balances (the projection
// service), a unique one sees every event (gateway fan-out).
type KafkaConsumer struct {
	reader *kafka.Reader
}

func NewKafkaConsumer(brokers []string, topic, groupID string) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			Topic:       topic,
			GroupID:     groupID,
			StartOffset: kafka.LastOffset,
			MinBytes:    10e3,
			MaxBytes:    10e6,
		}),
	}
}

// NewKafkaFanoutConsumer joins with a throwaway group id so this instance
// receives every event on the topic.
func NewKafkaFanoutConsumer(brokers []string, topic string) *KafkaConsumer {
	return NewKafkaConsumer(brokers, topic, "gateway-"+uuid.NewString())
}

// Run blocks, delivering events until ctx is cancelled or the reader fails.
func (c *KafkaConsumer) Run(ctx context.Context, handler func(model.Event)) error {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		var ev model.Event
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			log.Printf("bus: dropping undecodable event: %v", err)
			continue
		}
		handler(ev)
	}
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
