package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"leadgate/internal/clarify/models"
	"leadgate/pkg/platform/sentinel"
)

const sessionKeyPrefix = "clarify:session:"

// RedisStore persists sessions as JSON values with a TTL equal to the
// inactivity window, so Redis itself reaps abandoned sessions. Turn-index
// CAS is enforced with WATCH.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedis constructs a Redis-backed session store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

var _ Store = (*RedisStore)(nil)

func sessionKey(id string) string { return sessionKeyPrefix + id }

// Create stores a new session with NX so an id collision surfaces as a
// conflict instead of silently overwriting.
func (s *RedisStore) Create(ctx context.Context, sess *models.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, sessionKey(sess.ID), payload, s.ttl(sess)).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}

// Get loads and decodes a session. A key evicted by TTL is indistinguishable
// from one that never existed, so the payload carries expires_at and Get
// reports ErrExpired for the window between logical and physical expiry.
func (s *RedisStore) Get(ctx context.Context, id string) (*models.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var sess models.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if sess.ExpiredAt(s.now()) {
		return nil, sentinel.ErrExpired
	}
	return &sess, nil
}

// Update is a WATCH-guarded compare-and-swap on the stored turn index.
func (s *RedisStore) Update(ctx context.Context, sess *models.Session, expectedTurn int) error {
	key := sessionKey(sess.ID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return err
		}
		var current models.Session
		if err := json.Unmarshal(raw, &current); err != nil {
			return fmt.Errorf("decode session: %w", err)
		}
		if current.ExpiredAt(s.now()) {
			return sentinel.ErrExpired
		}
		if current.TurnIndex != expectedTurn {
			return sentinel.ErrConflict
		}

		payload, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl(sess))
			return nil
		})
		return err
	}, key)

	// A concurrent write between WATCH and EXEC aborts the transaction; to
	// the caller that is the same lost race as a turn-index mismatch.
	if errors.Is(err, redis.TxFailedErr) {
		return sentinel.ErrConflict
	}
	return err
}

// Touch resets the inactivity window: updates expires_at in the payload and
// the key TTL together.
func (s *RedisStore) Touch(ctx context.Context, id string, expiresAt time.Time) error {
	key := sessionKey(id)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return err
		}
		var sess models.Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			return fmt.Errorf("decode session: %w", err)
		}
		if sess.ExpiredAt(s.now()) {
			return sentinel.ErrExpired
		}
		sess.ExpiresAt = expiresAt

		payload, err := json.Marshal(&sess)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl(&sess))
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return sentinel.ErrConflict
	}
	return err
}

// ttl converts the session's logical expiry into a key TTL, with a floor so
// a session on the edge is reaped by Get's expiry check rather than a
// vanishing key.
func (s *RedisStore) ttl(sess *models.Session) time.Duration {
	ttl := time.Until(sess.ExpiresAt)
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}
