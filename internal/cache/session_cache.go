package cache

import (
	"collaboard/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionCache mirrors live-session metadata in Redis, keyed by access
// code. The in-memory store stays authoritative; this mirror keeps access
// codes unique across process restarts and lets REST handlers answer
// status queries without touching session locks.
// Mirror updates are whole-record SetMeta writes built from the
// authoritative in-memory session, so every update is a single atomic
// SET; there is deliberately no partial-update operation here.
type SessionCache interface {
	SetMeta(ctx context.Context, meta *model.SessionMeta) error
	GetMeta(ctx context.Context, accessCode string) (*model.SessionMeta, error)
	Exists(ctx context.Context, accessCode string) (bool, error)
	Delete(ctx context.Context, accessCode string) error
}

type sessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionCache creates a session cache with the given mirror TTL.
func NewSessionCache(client *redis.Client, ttl time.Duration) SessionCache {
	return &sessionCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *sessionCache) key(accessCode string) string {
	return fmt.Sprintf("session:%s", accessCode)
}

func (c *sessionCache) SetMeta(ctx context.Context, meta *model.SessionMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(meta.AccessCode), data, c.ttl).Err()
}

func (c *sessionCache) GetMeta(ctx context.Context, accessCode string) (*model.SessionMeta, error) {
	data, err := c.client.Get(ctx, c.key(accessCode)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var meta model.SessionMeta
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (c *sessionCache) Exists(ctx context.Context, accessCode string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(accessCode)).Result()
	return n > 0, err
}

func (c *sessionCache) Delete(ctx context.Context, accessCode string) error {
	return c.client.Del(ctx, c.key(accessCode)).Err()
}
