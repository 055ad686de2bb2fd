// Package statecache keeps the last payload relayed for each upstream room in
// Redis so late-joining consoles and /api/state can see current state.
package statecache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const roomsKey = "rmfconsole:rooms"

func roomKey(room string) string {
	return fmt.Sprintf("rmfconsole:room:%s", room)
}

type RedisStore struct {
	client    *redis.Client
	ttl       time.Duration
	available atomic.Bool
}

// NewRedisStore wraps a connected client. A nil client yields a store that
// ignores writes and misses on reads.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	r := &RedisStore{client: client, ttl: ttl}
	r.available.Store(client != nil)
	return r
}

// Available reports whether the last Redis round trip succeeded.
func (r *RedisStore) Available() bool {
	return r != nil && r.client != nil && r.available.Load()
}

// Ping refreshes the availability flag.
func (r *RedisStore) Ping(ctx context.Context) error {
	if r == nil || r.client == nil {
		return errors.New("statecache: no redis client")
	}
	err := r.client.Ping(ctx).Err()
	r.available.Store(err == nil)
	return err
}

// Put records the latest payload for a room.
func (r *RedisStore) Put(ctx context.Context, room string, payload []byte) error {
	if !r.Available() {
		return nil
	}
	pipe := r.client.Pipeline()
	pipe.Set(ctx, roomKey(room), payload, r.ttl)
	pipe.SAdd(ctx, roomsKey, room)
	if _, err := pipe.Exec(ctx); err != nil {
		r.available.Store(false)
		return fmt.Errorf("statecache put %s: %w", room, err)
	}
	return nil
}

// Get returns the cached payload for a room, or nil if nothing is cached.
func (r *RedisStore) Get(ctx context.Context, room string) ([]byte, error) {
	if !r.Available() {
		return nil, nil
	}
	data, err := r.client.Get(ctx, roomKey(room)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("statecache get %s: %w", room, err)
	}
	return data, nil
}

// Rooms lists rooms that have been cached, dropping entries whose payload
// has expired.
func (r *RedisStore) Rooms(ctx context.Context) ([]string, error) {
	if !r.Available() {
		return nil, nil
	}
	members, err := r.client.SMembers(ctx, roomsKey).Result()
	if err != nil {
		return nil, err
	}
	rooms := make([]string, 0, len(members))
	for _, m := range members {
		n, err := r.client.Exists(ctx, roomKey(m)).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			r.client.SRem(ctx, roomsKey, m)
			continue
		}
		rooms = append(rooms, m)
	}
	sort.Strings(rooms)
	return rooms, nil
}
