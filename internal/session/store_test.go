package session

import (
	"context"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = strings.Repeat("k", 32)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, testSecret, time.Hour), mr
}

func TestCreateAndLookup(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	tok, err := s.Create(ctx, 7)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Exp, time.Minute)

	sess, err := s.Lookup(ctx, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), sess.UserID)
	assert.True(t, mr.Exists("sess:"+sess.ID))
	assert.Equal(t, time.Hour, mr.TTL("sess:"+sess.ID))
}

func TestRevokeEndsSession(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	tok, err := s.Create(ctx, 7)
	require.NoError(t, err)
	sess, err := s.Lookup(ctx, tok.Token)
	require.NoError(t, err)

	require.NoError(t, s.Revoke(ctx, sess))
	_, err = s.Lookup(ctx, tok.Token)
	assert.ErrorIs(t, err, ErrNoSession)

	// revoking twice is harmless
	assert.NoError(t, s.Revoke(ctx, sess))
}

func TestRevokeAll(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	a, err := s.Create(ctx, 7)
	require.NoError(t, err)
	b, err := s.Create(ctx, 7)
	require.NoError(t, err)
	other, err := s.Create(ctx, 8)
	require.NoError(t, err)

	require.NoError(t, s.RevokeAll(ctx, 7))
	for _, tok := range []string{a.Token, b.Token} {
		_, err := s.Lookup(ctx, tok)
		assert.ErrorIs(t, err, ErrNoSession)
	}
	_, err = s.Lookup(ctx, other.Token)
	assert.NoError(t, err)
	assert.False(t, mr.Exists("sess:user:7"))
}

func TestLookupRejectsForeignTokens(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	_, err := s.Lookup(ctx, "garbage")
	assert.ErrorIs(t, err, ErrNoSession)

	other := NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), strings.Repeat("x", 32), time.Hour)
	tok, err := other.Create(ctx, 7)
	require.NoError(t, err)
	_, err = s.Lookup(ctx, tok.Token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestLookupExpiredInRedis(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	tok, err := s.Create(ctx, 7)
	require.NoError(t, err)
	mr.FastForward(2 * time.Hour)

	_, err = s.Lookup(ctx, tok.Token)
	assert.ErrorIs(t, err, ErrNoSession)
}
