// Package notify provides notifier backends: structured log lines, MQTT
// topics per requester and a Kafka topic.
package notify

import (
	"context"

	core "github.com/kilianp07/roadside/core/notify"
	"github.com/kilianp07/roadside/infra/logger"
)

// LogNotifier writes every notification as a log line.
type LogNotifier struct {
	log logger.Logger
}

// NewLogNotifier returns a LogNotifier. A nil logger uses the "notify" component.
func NewLogNotifier(log logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.New("notify")
	}
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(_ context.Context, n core.Notification) error {
	l.log.Debugw("notification", map[string]any{
		"type":         string(n.Type),
		"request_id":   n.RequestID,
		"requester_id": n.RequesterID,
		"title":        n.Title,
	})
	l.log.Infof("[%s] %s: %s", n.RequesterID, n.Title, n.Message)
	return nil
}
