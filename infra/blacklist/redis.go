package blacklist

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures RedisStore.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	// Prefix namespaces the keys; defaults to "roadside:blacklist:".
	Prefix string `json:"prefix"`
	// TTL expires a request's entries after the last write. Zero keeps them.
	TTL time.Duration `json:"ttl"`
}

// RedisStore keeps one set per request plus a hash of actor ids.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to redis and checks the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "roadside:blacklist:"
	}
	c := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return &RedisStore{client: c, prefix: cfg.Prefix, ttl: cfg.TTL}, nil
}

func (r *RedisStore) setKey(requestID string) string   { return r.prefix + requestID }
func (r *RedisStore) actorKey(requestID string) string { return r.prefix + requestID + ":actors" }

func (r *RedisStore) Get(ctx context.Context, requestID string) (map[string]struct{}, error) {
	ids, err := r.client.SMembers(ctx, r.setKey(requestID)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

func (r *RedisStore) Add(ctx context.Context, requestID, technicianID, actorID string) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SAdd(ctx, r.setKey(requestID), technicianID)
		p.HSetNX(ctx, r.actorKey(requestID), technicianID, actorID)
		if r.ttl > 0 {
			p.Expire(ctx, r.setKey(requestID), r.ttl)
			p.Expire(ctx, r.actorKey(requestID), r.ttl)
		}
		return nil
	})
	return err
}

// Actor returns who excluded technicianID from requestID.
func (r *RedisStore) Actor(ctx context.Context, requestID, technicianID string) (string, error) {
	v, err := r.client.HGet(ctx, r.actorKey(requestID), technicianID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

// Close closes the client.
func (r *RedisStore) Close() error { return r.client.Close() }
