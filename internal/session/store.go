// Package session keeps browser login sessions.  The cookie carries a signed
// token naming the user and a session id; Redis holds the set of live
// session ids so a logout takes effect immediately on every server.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/studio-booking/internal/utils"
)

// ErrNoSession is returned when the cookie token is invalid, expired or
// refers to a session that has been revoked.
var ErrNoSession = errors.New("no active session")

const (
	sessionPrefix = "sess:"
	userPrefix    = "sess:user:"
)

// Store issues, resolves and revokes sessions.
type Store struct {
	rdb    redis.UniversalClient
	secret string
	ttl    time.Duration
}

func NewStore(rdb redis.UniversalClient, secret string, ttl time.Duration) *Store {
	return &Store{rdb: rdb, secret: secret, ttl: ttl}
}

// Session identifies a resolved login.
type Session struct {
	ID     string
	UserID uint64
}

// Create starts a session for userID and returns the signed cookie token.
func (s *Store) Create(ctx context.Context, userID uint64) (utils.SessionToken, error) {
	sid := uuid.NewString()
	tok, err := utils.NewSessionToken(s.secret, userID, sid, s.ttl)
	if err != nil {
		return utils.SessionToken{}, err
	}
	uk := userKey(userID)
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, sessionKey(sid), strconv.FormatUint(userID, 10), s.ttl)
		p.SAdd(ctx, uk, sid)
		p.Expire(ctx, uk, s.ttl)
		return nil
	})
	if err != nil {
		return utils.SessionToken{}, fmt.Errorf("store session: %w", err)
	}
	return tok, nil
}

// Lookup verifies raw and checks that its session is still live.
func (s *Store) Lookup(ctx context.Context, raw string) (Session, error) {
	claims, err := utils.ParseSessionToken(s.secret, raw)
	if err != nil {
		return Session{}, ErrNoSession
	}
	uid, err := claims.UserID()
	if err != nil {
		return Session{}, ErrNoSession
	}
	stored, err := s.rdb.Get(ctx, sessionKey(claims.ID)).Result()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	if stored != strconv.FormatUint(uid, 10) {
		return Session{}, ErrNoSession
	}
	return Session{ID: claims.ID, UserID: uid}, nil
}

// Revoke ends one session.  Revoking an unknown session is not an error.
func (s *Store) Revoke(ctx context.Context, sess Session) error {
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, sessionKey(sess.ID))
		p.SRem(ctx, userKey(sess.UserID), sess.ID)
		return nil
	})
	return err
}

// RevokeAll ends every session of userID, e.g. after a role change or when
// the account is deleted.
func (s *Store) RevokeAll(ctx context.Context, userID uint64) error {
	uk := userKey(userID)
	ids, err := s.rdb.SMembers(ctx, uk).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, uk)
	return s.rdb.Del(ctx, keys...).Err()
}

func sessionKey(sid string) string { return sessionPrefix + sid }

func userKey(userID uint64) string { return userPrefix + strconv.FormatUint(userID, 10) }
