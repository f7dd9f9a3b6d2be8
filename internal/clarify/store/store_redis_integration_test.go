//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	clarify "leadgate/internal/clarify/models"
	"leadgate/internal/clarify/store"
	"leadgate/pkg/platform/sentinel"
	"leadgate/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = store.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestCreateGetRoundTrip() {
	ctx := context.Background()
	sess := makeSession()

	s.Require().NoError(s.store.Create(ctx, sess))

	got, err := s.store.Get(ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(sess.ID, got.ID)
	s.Equal(sess.Snapshot.Email, got.Snapshot.Email)
	s.Equal(clarify.SessionActive, got.Status)
}

func (s *RedisStoreSuite) TestCreateDuplicateConflicts() {
	ctx := context.Background()
	sess := makeSession()

	s.Require().NoError(s.store.Create(ctx, sess))
	s.Require().ErrorIs(s.store.Create(ctx, sess), sentinel.ErrConflict)
}

func (s *RedisStoreSuite) TestGetUnknownNotFound() {
	_, err := s.store.Get(context.Background(), "missing")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestUpdateStaleTurnConflicts() {
	ctx := context.Background()
	sess := makeSession()
	s.Require().NoError(s.store.Create(ctx, sess))

	first := sess.Clone()
	first.TurnIndex = 1
	s.Require().NoError(s.store.Update(ctx, first, 0))

	second := sess.Clone()
	second.TurnIndex = 1
	s.Require().ErrorIs(s.store.Update(ctx, second, 0), sentinel.ErrConflict)
}

// TestConcurrentUpdateSingleWinner verifies the WATCH CAS: of N racing
// writers holding the same expected turn, exactly one may win.
func (s *RedisStoreSuite) TestConcurrentUpdateSingleWinner() {
	ctx := context.Background()
	sess := makeSession()
	s.Require().NoError(s.store.Create(ctx, sess))

	const goroutines = 20
	var wg sync.WaitGroup
	var wins, conflicts, others atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next := sess.Clone()
			next.TurnIndex = 1
			switch err := s.store.Update(ctx, next, 0); {
			case err == nil:
				wins.Add(1)
			case sentinel.IsConflict(err):
				conflicts.Add(1)
			default:
				others.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())
	s.Equal(int32(0), others.Load())

	got, err := s.store.Get(ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(1, got.TurnIndex)
}

func (s *RedisStoreSuite) TestTouchExtendsTTL() {
	ctx := context.Background()
	sess := makeSession()
	sess.ExpiresAt = time.Now().Add(2 * time.Second)
	s.Require().NoError(s.store.Create(ctx, sess))

	extended := time.Now().Add(time.Hour)
	s.Require().NoError(s.store.Touch(ctx, sess.ID, extended))

	got, err := s.store.Get(ctx, sess.ID)
	s.Require().NoError(err)
	s.WithinDuration(extended, got.ExpiresAt, time.Second)

	ttl, err := s.redis.Client.TTL(ctx, "clarify:session:"+sess.ID).Result()
	s.Require().NoError(err)
	s.Greater(ttl, 30*time.Minute)
}

func (s *RedisStoreSuite) TestLogicallyExpiredReportsExpired() {
	ctx := context.Background()
	sess := makeSession()
	sess.ExpiresAt = time.Now().Add(500 * time.Millisecond)
	s.Require().NoError(s.store.Create(ctx, sess))

	time.Sleep(600 * time.Millisecond)

	// The key may still exist (1s TTL floor) but the session is logically
	// expired.
	_, err := s.store.Get(ctx, sess.ID)
	if !sentinel.IsNotFound(err) {
		s.Require().ErrorIs(err, sentinel.ErrExpired)
	}
}
