package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Pranjal-Rawat/Jackson-G-Store/cart-service/core"
)

// Persister stores each cart as one JSON value under "<namespace>:<key>".
// Every read or write pushes the expiry out by TTL.
type Persister struct {
	Client    redis.UniversalClient
	Namespace string
	TTL       time.Duration
}

// NewClient accepts either a redis:// URL or a bare host:port.
func NewClient(addr string) *redis.Client {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{
			Addr:         addr,
			MinIdleConns: 1,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
		}
	}
	return redis.NewClient(opts)
}

func NewPersister(client redis.UniversalClient, namespace string, ttl time.Duration) *Persister {
	return &Persister{Client: client, Namespace: namespace, TTL: ttl}
}

func (p *Persister) key(cartKey string) string {
	return p.Namespace + ":" + cartKey
}

func (p *Persister) Load(ctx context.Context, cartKey string) (core.CartState, bool, error) {
	key := p.key(cartKey)
	data, err := p.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.CartState{}, false, nil
	}
	if err != nil {
		return core.CartState{}, false, fmt.Errorf("get cart %s: %w", key, err)
	}

	var state core.CartState
	if err := json.Unmarshal(data, &state); err != nil {
		return core.CartState{}, false, fmt.Errorf("decode cart %s: %w", key, err)
	}
	if p.TTL > 0 {
		if err := p.Client.Expire(ctx, key, p.TTL).Err(); err != nil {
			return state, true, fmt.Errorf("refresh cart ttl %s: %w", key, err)
		}
	}
	return state, true, nil
}

func (p *Persister) Save(ctx context.Context, cartKey string, state core.CartState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	key := p.key(cartKey)
	if err := p.Client.Set(ctx, key, data, p.TTL).Err(); err != nil {
		return fmt.Errorf("set cart %s: %w", key, err)
	}
	return nil
}
