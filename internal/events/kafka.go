package events

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/MalikAqeelArshad/blog-crud/internal/logs"
)

type KafkaPublisher struct {
	writer *kafka.Writer
}

// BatchTimeout borne l'attente d'un WriteMessages synchrone, appelé dans le chemin de la requête
const BatchTimeout = 10 * time.Millisecond

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           BatchTimeout,
		AllowAutoTopicCreation: true,
	}

	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, message []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: message,
	})
	if err != nil {
		return err
	}

	logs.LogJSON("DEBUG", "Published message to Kafka", map[string]interface{}{
		"topic": p.writer.Topic,
		"key":   key,
	})
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
