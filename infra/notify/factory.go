package notify

import (
	"github.com/kilianp07/roadside/core/factory"
	core "github.com/kilianp07/roadside/core/notify"
)

func init() {
	_ = core.Register("log", func(map[string]any) (core.Notifier, error) {
		return NewLogNotifier(nil), nil
	})
	_ = core.Register("mqtt", func(conf map[string]any) (core.Notifier, error) {
		var c MQTTConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewMQTTNotifier(c)
	})
	_ = core.Register("kafka", func(conf map[string]any) (core.Notifier, error) {
		var c KafkaConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewKafkaNotifier(c)
	})
}
