// Package brokersvc publishes domain events to RabbitMQ or Kafka.
package brokersvc

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/matricula/core"
)

// Envelope is the JSON body of every published event.
type Envelope struct {
	Key        string      `json:"key"`
	App        string      `json:"app"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

func encode(app, key string, payload interface{}) ([]byte, error) {
	b, err := json.Marshal(Envelope{Key: key, App: app, OccurredAt: core.NowFunc(), Payload: payload})
	if err != nil {
		return nil, errors.Wrapf(err, "encoding event %s", key)
	}
	return b, nil
}

// NewPublisher returns the EventPublisher selected by broker.kind, or nil when events are disabled.
func NewPublisher(conf *core.Config) (core.EventPublisher, error) {
	switch conf.Broker.Kind {
	case "", "none":
		return nil, nil
	case "rabbitmq":
		pub, err := NewRabbitMQPublisher(conf.Broker.URL, conf.Broker.Exchange, conf.AppName)
		if err != nil {
			return nil, err
		}
		return pub, nil
	case "kafka":
		return NewKafkaPublisher(conf.Broker.KafkaBrokers, conf.Broker.Topic, conf.AppName), nil
	}
	return nil, errors.Errorf("unknown broker kind %q", conf.Broker.Kind)
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Envelope
}

var _ core.EventPublisher = (*Recorder)(nil)

func (r *Recorder) Publish(_ context.Context, key string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Envelope{Key: key, OccurredAt: core.NowFunc(), Payload: payload})
	return nil
}

// Keys returns the keys of the recorded events, in publishing order.
func (r *Recorder) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.events))
	for _, e := range r.events {
		keys = append(keys, e.Key)
	}
	return keys
}

func (r *Recorder) Close() error { return nil }
