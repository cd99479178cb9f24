package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// RedisConfig configures the Redis trade log.
type RedisConfig struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
	Key      string // list key holding the log
}

// RedisStore keeps the trade log as JSON values on a single Redis list.
// RPUSH preserves append order.
type RedisStore struct {
	client *goredis.Client
	key    string
}

var _ Store = (*RedisStore)(nil)

// NewRedis connects and pings the server.
func NewRedis(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Key == "" {
		return nil, fmt.Errorf("redis key is required")
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{client: client, key: cfg.Key}, nil
}

func (s *RedisStore) Append(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	vals := make([]any, 0, len(entries))
	for _, e := range entries {
		b, err := encodeEntry(e)
		if err != nil {
			return err
		}
		vals = append(vals, b)
	}
	return s.client.RPush(ctx, s.key, vals...).Err()
}

func (s *RedisStore) Entries(ctx context.Context) ([]Entry, error) {
	raw, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(raw))
	for i, r := range raw {
		e, err := decodeEntry([]byte(r))
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func encodeEntry(e Entry) ([]byte, error) {
	e.Time = e.Time.UTC()
	return json.Marshal(e)
}

func decodeEntry(b []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrMalformedEntry, err)
	}
	e.Time = e.Time.UTC()
	return e, nil
}
