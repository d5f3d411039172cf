// Package events publishes domain events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/BerndBr/taskana/pkg/lifecycle"
)

// Message is a single event ready for publication.
type Message struct {
	Type  string
	Key   string
	Value []byte
}

// NewMessage marshals payload as JSON into a Message.
func NewMessage(eventType, key string, payload any) (Message, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return Message{Type: eventType, Key: key, Value: b}, nil
}

// System publishes messages and participates in the application lifecycle.
type System interface {
	Start(lc *lifecycle.Coordinator) error
	Publish(ctx context.Context, msg Message) error
}

type kafka struct {
	client  *kgo.Client
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an event publisher from cfg. A disabled config yields a no-op publisher.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	if !cfg.Enabled {
		return Noop(), nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProduceRequestTimeout(cfg.ProduceTimeoutDuration()),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	return &kafka{
		client:  client,
		timeout: cfg.ProduceTimeoutDuration(),
		logger:  logger.With("system", "events", "topic", cfg.Topic),
	}, nil
}

func (k *kafka) Start(lc *lifecycle.Coordinator) error {
	k.logger.Info("starting event publisher")

	lc.OnStartup(func() {
		if err := k.client.Ping(lc.Context()); err != nil {
			k.logger.Error("kafka ping failed", "error", err)
			return
		}
		k.logger.Info("kafka connection established")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		k.client.Close()
		k.logger.Info("event publisher closed")
	})

	return nil
}

func (k *kafka) Publish(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	record := &kgo.Record{
		Key:   []byte(msg.Key),
		Value: msg.Value,
		Headers: []kgo.RecordHeader{
			{Key: "type", Value: []byte(msg.Type)},
		},
	}

	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Type, err)
	}
	return nil
}

type noop struct{}

// Noop returns a publisher that discards every message.
func Noop() System {
	return noop{}
}

func (noop) Start(*lifecycle.Coordinator) error { return nil }
func (noop) Publish(context.Context, Message) error { return nil }

// Memory records published messages in process. Used by tests and offline tooling.
type Memory struct {
	mu       sync.Mutex
	messages []Message
}

// NewMemory creates an empty in-memory publisher.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Start(*lifecycle.Coordinator) error { return nil }

func (m *Memory) Publish(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

// Messages returns a copy of everything published so far.
func (m *Memory) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}
