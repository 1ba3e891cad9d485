package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	core "github.com/kilianp07/roadside/core/notify"
)

// KafkaConfig configures KafkaNotifier.
type KafkaConfig struct {
	Brokers      []string      `json:"brokers"`
	Topic        string        `json:"topic"`
	BatchTimeout time.Duration `json:"batch_timeout"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier writes notifications to a topic keyed by requester, so one
// requester's messages stay ordered within a partition.
type KafkaNotifier struct {
	w messageWriter
}

// NewKafkaNotifier creates the writer. Brokers are contacted lazily on the
// first write.
func NewKafkaNotifier(cfg KafkaConfig) (*KafkaNotifier, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.Topic == "" {
		cfg.Topic = "roadside.notifications"
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 50 * time.Millisecond
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
	}
	return &KafkaNotifier{w: w}, nil
}

func (k *KafkaNotifier) Notify(ctx context.Context, n core.Notification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return k.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.RequesterID),
		Value: b,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(n.Type)},
			{Key: "request_id", Value: []byte(n.RequestID)},
		},
		Time: n.Time,
	})
}

// Close flushes pending messages.
func (k *KafkaNotifier) Close() error {
	if k.w == nil {
		return nil
	}
	return k.w.Close()
}
