package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "scriptreview:review:"
	redisIndexKey  = "scriptreview:reviews"
)

// RedisStore keeps each record as a JSON string plus a sorted-set index on
// creation time. Updates use WATCH so concurrent patches retry instead of
// overwriting each other.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// OpenRedis connects to addr and pings it. ttl of zero keeps records forever.
func OpenRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func redisKey(id string) string { return redisKeyPrefix + id }

func (s *RedisStore) Close() error { return s.client.Close() }

func (s *RedisStore) Create(ctx context.Context, rec *Record) error {
	now := nowUTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode review %s: %w", rec.ID, err)
	}
	ok, err := s.client.SetNX(ctx, redisKey(rec.ID), payload, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("create %s: %w", rec.ID, err)
	}
	if !ok {
		return fmt.Errorf("create %s: already exists", rec.ID)
	}
	score := float64(rec.CreatedAt.UnixNano())
	if err := s.client.ZAdd(ctx, redisIndexKey, redis.Z{Score: score, Member: rec.ID}).Err(); err != nil {
		return fmt.Errorf("index %s: %w", rec.ID, err)
	}
	return nil
}

const maxWatchRetries = 5

func (s *RedisStore) Update(ctx context.Context, id string, p Patch) error {
	key := redisKey(id)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decode review: %w", err)
		}
		rec.Apply(p, nowUTC())
		payload, err := json.Marshal(&rec)
		if err != nil {
			return fmt.Errorf("encode review: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, redis.KeepTTL)
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("update %s: %w", id, err)
		}
		return nil
	}
	return fmt.Errorf("update %s: too much contention", id)
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	data, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode review %s: %w", id, err)
	}
	return &rec, nil
}

func (s *RedisStore) List(ctx context.Context, limit int) ([]*Record, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.client.ZRevRange(ctx, redisIndexKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	var out []*Record
	for _, id := range ids {
		rec, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Expired by TTL; drop the stale index entry.
			_ = s.client.ZRem(ctx, redisIndexKey, id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
