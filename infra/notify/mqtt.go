package notify

import (
	"context"
	"errors"
	"strings"

	core "github.com/kilianp07/roadside/core/notify"
	"github.com/kilianp07/roadside/infra/mqtt"
)

// DefaultTopicTemplate routes notifications to one topic per requester.
const DefaultTopicTemplate = "roadside/requesters/{requester_id}/notifications"

// MQTTConfig embeds the broker settings and the topic template. The template
// may reference {requester_id}, {request_id} and {type}.
type MQTTConfig struct {
	mqtt.Config `json:",squash"`
	Topic       string `json:"topic"`
}

type jsonPublisher interface {
	PublishJSON(ctx context.Context, topic string, v any) error
	Disconnect()
}

// MQTTNotifier publishes notifications as JSON.
type MQTTNotifier struct {
	pub   jsonPublisher
	topic string
}

// NewMQTTNotifier connects to the broker described by cfg.
func NewMQTTNotifier(cfg MQTTConfig) (*MQTTNotifier, error) {
	pub, err := mqtt.NewPublisher(cfg.Config)
	if err != nil {
		return nil, err
	}
	return newMQTTNotifier(pub, cfg.Topic), nil
}

func newMQTTNotifier(pub jsonPublisher, topic string) *MQTTNotifier {
	if topic == "" {
		topic = DefaultTopicTemplate
	}
	return &MQTTNotifier{pub: pub, topic: topic}
}

func (m *MQTTNotifier) Notify(ctx context.Context, n core.Notification) error {
	if n.RequesterID == "" {
		return errors.New("notification without requester")
	}
	return m.pub.PublishJSON(ctx, m.topicFor(n), n)
}

func (m *MQTTNotifier) topicFor(n core.Notification) string {
	return strings.NewReplacer(
		"{requester_id}", n.RequesterID,
		"{request_id}", n.RequestID,
		"{type}", string(n.Type),
	).Replace(m.topic)
}

// Close disconnects from the broker.
func (m *MQTTNotifier) Close() error {
	m.pub.Disconnect()
	return nil
}
