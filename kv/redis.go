package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis is a Store backed by a Redis server. Record bodies live at
// "bucket:key"; link edges live in a list at "bucket:key!tag", which keeps
// insertion order and makes link order deterministic on this backend.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed Store.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func recordsKey(bucket, key string) string {
	return fmt.Sprintf("%s:%s", bucket, key)
}

func linksKey(bucket, key, tag string) string {
	return fmt.Sprintf("%s:%s!%s", bucket, key, tag)
}

func (r *Redis) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	body, err := r.client.Get(ctx, recordsKey(bucket, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (r *Redis) Put(ctx context.Context, bucket, key string, body []byte) error {
	if bucket == "" {
		return ErrBadBucket
	}
	if key == "" {
		return ErrBadKey
	}
	return r.client.Set(ctx, recordsKey(bucket, key), body, 0).Err()
}

func (r *Redis) Delete(ctx context.Context, bucket, key string) error {
	return r.client.Del(ctx, recordsKey(bucket, key)).Err()
}

func (r *Redis) GenerateKey(ctx context.Context, bucket string) (string, error) {
	return uuid.NewString(), nil
}

func (r *Redis) SetLinks(ctx context.Context, bucket, key, tag string, targets []string) error {
	lk := linksKey(bucket, key, tag)

	// Rewrite the list atomically: clear then push in order.
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, lk)
		if len(targets) > 0 {
			args := make([]interface{}, len(targets))
			for i, t := range targets {
				args[i] = t
			}
			pipe.RPush(ctx, lk, args...)
		}
		return nil
	})
	return err
}

func (r *Redis) GetLinks(ctx context.Context, bucket, key, tag string) ([]string, error) {
	targets, err := r.client.LRange(ctx, linksKey(bucket, key, tag), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return targets, nil
}

// GetMany implements BatchStore via a single MGET.
func (r *Redis) GetMany(ctx context.Context, bucket string, keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}

	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = recordsKey(bucket, key)
	}

	values, err := r.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, err
	}

	result := make(map[string][]byte, len(keys))
	for i, v := range values {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			result[keys[i]] = []byte(s)
		}
	}
	return result, nil
}
