package brokersvc

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/trezcool/matricula/core"
)

// KafkaPublisher writes events to one topic, keyed by event key.
type KafkaPublisher struct {
	app    string
	writer *kafka.Writer
}

var _ core.EventPublisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(brokers []string, topic, app string) *KafkaPublisher {
	return &KafkaPublisher{
		app: app,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			WriteTimeout:           10 * time.Second,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, payload interface{}) error {
	value, err := encode(p.app, key, payload)
	if err != nil {
		return err
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  core.NowFunc(),
	})
	return errors.Wrapf(err, "writing %s", key)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
