package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskhub_miniapp/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

var ErrNoDialog = errors.New("no active dialog")

type Config struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
}

func Connect(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       0,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Logger().Info("Connected to redis successfully")
	return rdb, nil
}

// DialogState holds one admin's position inside a multi-step bot dialog.
// It lives in redis under a TTL, so an abandoned dialog expires on its own
// instead of lingering in process memory.
type DialogState struct {
	Action string            `json:"action"`
	Step   int               `json:"step"`
	Data   map[string]string `json:"data,omitempty"`
}

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{
		client: client,
		ttl:    ttl,
	}
}

func (s *Store) Get(ctx context.Context, adminID int64) (*DialogState, error) {
	raw, err := s.client.Get(ctx, dialogKey(adminID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoDialog
		}
		return nil, fmt.Errorf("failed to get dialog state: %w", err)
	}

	var state DialogState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to decode dialog state: %w", err)
	}

	return &state, nil
}

func (s *Store) Set(ctx context.Context, adminID int64, state *DialogState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode dialog state: %w", err)
	}

	err = s.client.Set(ctx, dialogKey(adminID), raw, s.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to store dialog state: %w", err)
	}

	return nil
}

func (s *Store) Clear(ctx context.Context, adminID int64) error {
	return s.client.Del(ctx, dialogKey(adminID)).Err()
}

func dialogKey(adminID int64) string {
	return fmt.Sprintf("dialog:admin:%d", adminID)
}
