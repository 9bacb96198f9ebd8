package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"hanzikit/core"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// KeyPrefix namespaces every key the store writes.
	KeyPrefix string
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		KeyPrefix:    "progress",
	}
}

// Store keeps progress records in Redis.
// Data structure:
// - {prefix}:user:{user_id} -> JSON progress record
// - {prefix}:leaderboard -> sorted set of user ids scored by total points
type Store struct {
	client *redis.Client
	prefix string
}

// New creates a new Redis-backed storage with the provided configuration
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client, prefix: prefixOrDefault(config.KeyPrefix)}, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefixOrDefault(prefix)}
}

func prefixOrDefault(p string) string {
	if p == "" {
		return DefaultConfig().KeyPrefix
	}
	return p
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) userKey(user core.UserID) string {
	return fmt.Sprintf("%s:user:%d", s.prefix, user)
}

func (s *Store) boardKey() string {
	return s.prefix + ":leaderboard"
}

// Lua script writing the record and its leaderboard score in one step
var saveScript = redis.NewScript(`
	redis.call('SET', KEYS[1], ARGV[1])
	redis.call('ZADD', KEYS[2], ARGV[2], ARGV[3])
	return 1
`)

func (s *Store) Load(ctx context.Context, user core.UserID) (core.Record, bool, error) {
	data, err := s.client.Get(ctx, s.userKey(user)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.Record{}, false, nil
	}
	if err != nil {
		return core.Record{}, false, fmt.Errorf("failed to load record: %w", err)
	}
	var rec core.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return core.Record{}, false, fmt.Errorf("%s: %w: %v", s.userKey(user), core.ErrMalformedRecord, err)
	}
	rec.UserID = user
	return rec, true, nil
}

func (s *Store) Save(ctx context.Context, rec core.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	keys := []string{s.userKey(rec.UserID), s.boardKey()}
	if err := saveScript.Run(ctx, s.client, keys, data, rec.TotalPoints, rec.UserID.String()).Err(); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// Users lists every user with a stored record, ordered by ascending score.
func (s *Store) Users(ctx context.Context) ([]core.UserID, error) {
	members, err := s.client.ZRange(ctx, s.boardKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	out := make([]core.UserID, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		out = append(out, core.UserID(id))
	}
	return out, nil
}
