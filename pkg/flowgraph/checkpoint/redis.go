package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix  = "claudechat"
	defaultRedisTimeout = 5 * time.Second
)

// RedisStore keeps checkpoints in Redis. Each run is one hash keyed by
// node ID plus a counter key that hands out sequence numbers.
type RedisStore struct {
	client  *redis.Client
	owned   bool
	prefix  string
	ttl     time.Duration
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisPrefix sets the key prefix. Default is "claudechat".
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithRedisTTL expires a run's keys after ttl of inactivity.
// Zero (the default) keeps them forever.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithRedisTimeout bounds each store operation. Default is 5s.
func WithRedisTimeout(d time.Duration) RedisOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewRedisStore connects to the Redis server at addr.
// The store owns the client and closes it on Close.
func NewRedisStore(addr string, opts ...RedisOption) *RedisStore {
	s := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: addr}), opts...)
	s.owned = true
	return s
}

// NewRedisStoreFromClient wraps an existing client. Close leaves it open.
func NewRedisStoreFromClient(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client:  client,
		prefix:  defaultRedisPrefix,
		timeout: defaultRedisTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type redisEntry struct {
	Sequence  int       `json:"seq"`
	Timestamp time.Time `json:"ts"`
	Data      []byte    `json:"data"`
}

func (s *RedisStore) runKey(runID string) string {
	return fmt.Sprintf("%s:checkpoints:%s", s.prefix, runID)
}

func (s *RedisStore) seqKey(runID string) string {
	return fmt.Sprintf("%s:checkpoints:%s:seq", s.prefix, runID)
}

func (s *RedisStore) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// Save implements Store.
func (s *RedisStore) Save(runID, nodeID string, data []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}

	ctx, cancel := s.opContext()
	defer cancel()

	seq, err := s.client.Incr(ctx, s.seqKey(runID)).Result()
	if err != nil {
		return fmt.Errorf("redis incr: %w", err)
	}

	entry, err := json.Marshal(redisEntry{
		Sequence:  int(seq),
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.runKey(runID), nodeID, entry)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.runKey(runID), s.ttl)
		pipe.Expire(ctx, s.seqKey(runID), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *RedisStore) Load(runID, nodeID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	ctx, cancel := s.opContext()
	defer cancel()

	raw, err := s.client.HGet(ctx, s.runKey(runID), nodeID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	var e redisEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return e.Data, nil
}

// List implements Store.
func (s *RedisStore) List(runID string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	ctx, cancel := s.opContext()
	defer cancel()

	all, err := s.client.HGetAll(ctx, s.runKey(runID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}

	infos := make([]Info, 0, len(all))
	for nodeID, raw := range all {
		var e redisEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("%w: node %s: %v", ErrCorrupt, nodeID, err)
		}
		infos = append(infos, Info{
			RunID:     runID,
			NodeID:    nodeID,
			Sequence:  e.Sequence,
			Timestamp: e.Timestamp,
			Size:      int64(len(e.Data)),
		})
	}
	sortInfos(infos)
	return infos, nil
}

// Delete implements Store.
func (s *RedisStore) Delete(runID, nodeID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}

	ctx, cancel := s.opContext()
	defer cancel()

	if err := s.client.HDel(ctx, s.runKey(runID), nodeID).Err(); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

// DeleteRun implements Store.
func (s *RedisStore) DeleteRun(runID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}

	ctx, cancel := s.opContext()
	defer cancel()

	if err := s.client.Del(ctx, s.runKey(runID), s.seqKey(runID)).Err(); err != nil {
		return fmt.Errorf("delete run checkpoints: %w", err)
	}
	return nil
}

// Close implements Store. Safe to call more than once.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.owned {
		return s.client.Close()
	}
	return nil
}
