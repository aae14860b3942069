package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goAuthClient/identity"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrRedisUnavailable wraps transport failures of the Redis backend.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrSessionCorrupt is returned when a stored blob cannot be decoded.
	ErrSessionCorrupt = errors.New("stored session corrupt")
)

const schemaVersion = 1

type record struct {
	Version int              `json:"v"`
	SavedAt int64            `json:"saved_at"`
	Session identity.Session `json:"session"`
}

// RedisStore stores one session under prefix:key.
type RedisStore struct {
	redis  redis.UniversalClient
	key    string
	maxAge time.Duration
	now    func() time.Time
}

// NewRedisStore returns a store writing to prefix + ":" + storageKey. maxAge
// bounds how long a saved session is kept; zero keeps it until removed.
func NewRedisStore(rdb redis.UniversalClient, prefix, storageKey string, maxAge time.Duration) *RedisStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "authflow"
	}
	storageKey = strings.TrimSpace(storageKey)
	if storageKey == "" {
		storageKey = "session"
	}
	return &RedisStore{
		redis:  rdb,
		key:    prefix + ":" + storageKey,
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Key returns the Redis key the session lives under.
func (s *RedisStore) Key() string {
	return s.key
}

func (s *RedisStore) Load(ctx context.Context) (*identity.Session, error) {
	raw, err := s.redis.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	if rec.Version != schemaVersion {
		return nil, fmt.Errorf("%w: schema version %d", ErrSessionCorrupt, rec.Version)
	}
	return &rec.Session, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *identity.Session) error {
	if sess == nil {
		return s.Remove(ctx)
	}
	data, err := json.Marshal(record{
		Version: schemaVersion,
		SavedAt: s.now().Unix(),
		Session: *sess,
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.redis.Set(ctx, s.key, data, s.maxAge).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
