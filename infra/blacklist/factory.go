package blacklist

import (
	"context"
	"time"

	core "github.com/kilianp07/roadside/core/blacklist"
	"github.com/kilianp07/roadside/core/factory"
)

const connectTimeout = 10 * time.Second

func init() {
	_ = core.Register("sqlite", func(conf map[string]any) (core.Store, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewSQLiteStore(c.Path)
	})
	_ = core.Register("postgres", func(conf map[string]any) (core.Store, error) {
		var c struct {
			DSN string `json:"dsn"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return NewPostgresStore(ctx, c.DSN)
	})
	_ = core.Register("redis", func(conf map[string]any) (core.Store, error) {
		var c RedisConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return NewRedisStore(ctx, c)
	})
}
