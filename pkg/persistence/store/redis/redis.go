package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opinionlab/studyctl/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

const DEFAULT_OP_TIMEOUT = time.Second * 3

type storeOption func(s *options)

type options struct {
	ttl       time.Duration
	opTimeout time.Duration
}

// WithTTL expires every entry ttl after its last Save. Zero keeps entries forever.
func WithTTL(ttl time.Duration) storeOption {
	return func(s *options) {
		s.ttl = ttl
	}
}

func WithOperationTimeout(timeout time.Duration) storeOption {
	return func(s *options) {
		s.opTimeout = timeout
	}
}

// Store keeps JSON encoded values under prefix+key.
type Store[T any] struct {
	client goredis.UniversalClient
	prefix string
	opts   options
}

func NewStore[T any](client goredis.UniversalClient, prefix string, opts ...storeOption) *Store[T] {
	o := options{
		opTimeout: DEFAULT_OP_TIMEOUT,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Store[T]{
		client: client,
		prefix: prefix,
		opts:   o,
	}
}

func (s *Store[T]) Save(key string, data T) error {
	ctx, cancel := s.ctx()
	defer cancel()

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	if err := s.client.Set(ctx, s.prefix+key, raw, s.opts.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (s *Store[T]) Load(key string) (T, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	var val T
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return val, fmt.Errorf("%w: %s", persistence.ErrNotFound, key)
	}
	if err != nil {
		return val, fmt.Errorf("failed to load %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, &val); err != nil {
		return val, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return val, nil
}

func (s *Store[T]) LoadAll() ([]T, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	result := make([]T, 0)
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, goredis.Nil) { // expired between SCAN and GET
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", iter.Val(), err)
		}

		var val T
		if err := json.Unmarshal(raw, &val); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", iter.Val(), err)
		}
		result = append(result, val)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan keys: %w", err)
	}

	return result, nil
}

func (s *Store[T]) Delete(key string) error {
	ctx, cancel := s.ctx()
	defer cancel()

	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *Store[T]) Close() error {
	return s.client.Close()
}

func (s *Store[T]) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.opts.opTimeout)
}
