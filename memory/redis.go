package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultArchiveTTL = 24 * time.Hour
	transcriptPrefix  = "transcript:"
)

// RedisArchive stores transcripts in Redis as JSON.
type RedisArchive struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisArchive wraps rdb. A non-positive ttl means DefaultArchiveTTL.
func NewRedisArchive(rdb *redis.Client, ttl time.Duration) *RedisArchive {
	if ttl <= 0 {
		ttl = DefaultArchiveTTL
	}
	return &RedisArchive{rdb: rdb, ttl: ttl}
}

func transcriptKey(sessionID string) string {
	return transcriptPrefix + sessionID
}

// Save stores t under its session ID, refreshing the TTL.
func (a *RedisArchive) Save(ctx context.Context, t Transcript) error {
	if t.SessionID == "" {
		return errors.New("transcript has no session id")
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}
	if err := a.rdb.Set(ctx, transcriptKey(t.SessionID), data, a.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

// Load returns the transcript for sessionID, or nil when none is stored.
func (a *RedisArchive) Load(ctx context.Context, sessionID string) (*Transcript, error) {
	data, err := a.rdb.Get(ctx, transcriptKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	return &t, nil
}
