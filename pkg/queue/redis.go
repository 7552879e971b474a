package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"RegimeDash/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisQueue is a producer-side journal: every message type gets its own
// capped Redis list, newest first.
type RedisQueue struct {
	logger    *logger.Logger
	client    *redis.Client
	keyPrefix string
	maxLen    int64
	seq       atomic.Uint64

	mu        sync.RWMutex
	isRunning bool
}

var _ QueueService = (*RedisQueue)(nil)

// RedisQueueOption configures RedisQueue.
type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix sets custom key prefix.
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) {
		if prefix != "" {
			r.keyPrefix = prefix
		}
	}
}

// WithMaxLen caps each list. Older entries are trimmed on every push.
func WithMaxLen(n int64) RedisQueueOption {
	return func(r *RedisQueue) {
		if n > 0 {
			r.maxLen = n
		}
	}
}

// NewRedisQueue creates a new Redis queue.
func NewRedisQueue(lgr *logger.Logger, client *redis.Client, opts ...RedisQueueOption) *RedisQueue {
	if lgr == nil {
		lgr = logger.Nop()
	}
	rq := &RedisQueue{
		logger:    lgr,
		client:    client,
		keyPrefix: "regimedash:queue",
		maxLen:    500,
	}
	for _, opt := range opts {
		opt(rq)
	}
	return rq
}

// Start pings Redis and marks the queue ready.
func (r *RedisQueue) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isRunning {
		return fmt.Errorf("queue already running")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	r.isRunning = true
	r.logger.Info("redis publisher started",
		logger.String("addr", r.client.Options().Addr),
		logger.String("prefix", r.keyPrefix))
	return nil
}

// Stop marks the queue stopped. The client is owned by the caller.
func (r *RedisQueue) Stop() {
	r.mu.Lock()
	r.isRunning = false
	r.mu.Unlock()
}

// Enqueue pushes a message onto the list for msgType and trims it.
func (r *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) error {
	r.mu.RLock()
	running := r.isRunning
	r.mu.RUnlock()
	if !running {
		return fmt.Errorf("queue not running")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	now := time.Now()
	msg := Message{
		ID:        strconv.FormatInt(now.UnixNano(), 10) + "-" + strconv.FormatUint(r.seq.Add(1), 10),
		Type:      msgType,
		Payload:   body,
		Timestamp: now.UTC(),
	}
	msgData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	key := r.getQueueKey(msgType)
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, msgData)
	pipe.LTrim(ctx, key, 0, r.maxLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("lpush %s: %w", key, err)
	}
	return nil
}

// PublishMessage publishes a message (implements QueueService).
func (r *RedisQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	return r.Enqueue(ctx, msgType, payload)
}

// Recent returns up to n messages of msgType, newest first.
func (r *RedisQueue) Recent(ctx context.Context, msgType string, n int64) ([]Message, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := r.client.LRange(ctx, r.getQueueKey(msgType), 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange: %w", err)
	}
	out := make([]Message, 0, len(raw))
	for _, s := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(s), &msg); err != nil {
			r.logger.Warn("skip undecodable message", logger.String("type", msgType), logger.Error(err))
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (r *RedisQueue) getQueueKey(msgType string) string {
	return fmt.Sprintf("%s:%s", r.keyPrefix, msgType)
}
