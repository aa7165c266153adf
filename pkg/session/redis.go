package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "mangwale:session:"

// redisStore persists sessions as JSON blobs in Redis. No TTL is set by
// the core; expiry is an external policy.
type redisStore struct {
	client *redis.Client
}

// NewRedisStore returns a Redis-backed session store.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key string) (*Session, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session get %s: %w", key, err)
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("session decode %s: %w", key, err)
	}
	return &sess, nil
}

func (s *redisStore) Save(ctx context.Context, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session encode %s: %w", sess.Key, err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+sess.Key, raw, 0).Err(); err != nil {
		return fmt.Errorf("session save %s: %w", sess.Key, err)
	}
	return nil
}

func (s *redisStore) SetStep(ctx context.Context, key string, step Step, mutate func(*Data)) error {
	sess, err := s.Get(ctx, key)
	if err == ErrNotFound {
		sess = New(key)
	} else if err != nil {
		return err
	}

	sess.CurrentStep = step
	if mutate != nil {
		mutate(&sess.Data)
	}
	return s.Save(ctx, sess)
}

func (s *redisStore) SetData(ctx context.Context, key string, mutate func(*Data)) error {
	sess, err := s.Get(ctx, key)
	if err == ErrNotFound {
		sess = New(key)
	} else if err != nil {
		return err
	}

	if mutate != nil {
		mutate(&sess.Data)
	}
	return s.Save(ctx, sess)
}

var _ Store = (*redisStore)(nil)
