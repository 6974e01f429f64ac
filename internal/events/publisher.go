// Package events announces roster additions to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/hetulpatel/employees/internal/kafka"
	"github.com/hetulpatel/employees/internal/logging"
)

// Source tells consumers how a row entered the directory.
type Source string

const (
	SourceManual  Source = "manual"
	SourceCatalog Source = "catalog"
)

// EmployeeAdded is the payload placed on the employees topic.
type EmployeeAdded struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"full_name"`
	BirthDate string    `json:"birth_date"`
	Gender    string    `json:"gender"`
	Source    Source    `json:"source"`
	AddedAt   time.Time `json:"added_at"`
}

// Publisher delivers EmployeeAdded events.
type Publisher interface {
	Publish(ctx context.Context, events ...EmployeeAdded) error
	Close() error
}

type nopPublisher struct{}

// Nop discards every event.
func Nop() Publisher { return nopPublisher{} }

func (nopPublisher) Publish(context.Context, ...EmployeeAdded) error { return nil }
func (nopPublisher) Close() error                                     { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher writes events to topic. Topic creation problems are
// logged, not fatal: the broker may auto-create topics.
func NewKafkaPublisher(ctx context.Context, brokers []string, topic string) Publisher {
	if err := kafka.EnsureTopic(ctx, brokers, topic); err != nil {
		logging.Errorf("[events] ensure topic warning: %v", err)
	}
	return &kafkaPublisher{writer: kafka.NewWriter(brokers, topic)}
}

func (p *kafkaPublisher) Publish(ctx context.Context, events ...EmployeeAdded) error {
	if p == nil || p.writer == nil || len(events) == 0 {
		return nil
	}
	msgs, err := encode(events)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

func (p *kafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func encode(events []EmployeeAdded) ([]kafkago.Message, error) {
	msgs := make([]kafkago.Message, 0, len(events))
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("marshal employee %d: %w", ev.ID, err)
		}
		key := fmt.Sprintf("employee-%d", ev.ID)
		msgs = append(msgs, kafkago.Message{Key: []byte(key), Value: payload})
	}
	return msgs, nil
}
