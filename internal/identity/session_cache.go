package identity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/draftdeck/draftdeck/internal/cache"
)

const (
	sessionKeyPrefix  = "session:"
	sessionUserPrefix = "session:user:"

	// expiredGrace keeps an expired session readable for a while so a
	// late Get reports ErrSessionExpired rather than ErrSessionNotFound.
	expiredGrace = time.Hour

	// sessionIndexTTL bounds the per-user token index. It only needs to
	// outlive the sessions it points at; dangling tokens resolve to
	// nothing and are harmless.
	sessionIndexTTL = 30 * 24 * time.Hour
)

// CacheSessionRepo stores sessions in a TTL cache. With the valkey
// backend sessions survive restarts and are shared across nodes; with
// the memory backend it behaves like MemorySessionRepo, except that
// expired rows age out via the cache instead of a sweep.
type CacheSessionRepo struct {
	cache cache.Cache
}

// NewCacheSessionRepo creates a session repository over a cache backend.
func NewCacheSessionRepo(c cache.Cache) *CacheSessionRepo {
	return &CacheSessionRepo{cache: c}
}

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}

func userIndexKey(userID string) string {
	return sessionUserPrefix + userID
}

func (r *CacheSessionRepo) Create(ctx context.Context, userID string, ttl time.Duration) (*Session, error) {
	token, err := GenerateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	data, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, sessionKey(token), data, ttl+expiredGrace); err != nil {
		return nil, err
	}
	if err := r.addToIndex(ctx, userID, token); err != nil {
		return nil, err
	}

	return session, nil
}

func (r *CacheSessionRepo) Get(ctx context.Context, token string) (*Session, error) {
	data, err := r.cache.Get(ctx, sessionKey(token))
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	if session.IsExpired() {
		return nil, ErrSessionExpired
	}

	return &session, nil
}

func (r *CacheSessionRepo) Delete(ctx context.Context, token string) error {
	data, err := r.cache.Get(ctx, sessionKey(token))
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil
		}
		return err
	}

	if err := r.cache.Delete(ctx, sessionKey(token)); err != nil {
		return err
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil
	}
	return r.removeFromIndex(ctx, session.UserID, token)
}

func (r *CacheSessionRepo) DeleteByUser(ctx context.Context, userID string) error {
	tokens, err := r.readIndex(ctx, userID)
	if err != nil {
		return err
	}
	for _, token := range tokens {
		if err := r.cache.Delete(ctx, sessionKey(token)); err != nil {
			return err
		}
	}
	return r.cache.Delete(ctx, userIndexKey(userID))
}

// DeleteExpired is a no-op: the backend TTL evicts expired rows.
func (r *CacheSessionRepo) DeleteExpired(ctx context.Context) (int, error) {
	return 0, nil
}

func (r *CacheSessionRepo) addToIndex(ctx context.Context, userID, token string) error {
	tokens, err := r.readIndex(ctx, userID)
	if err != nil {
		return err
	}
	return r.writeIndex(ctx, userID, append(tokens, token))
}

func (r *CacheSessionRepo) removeFromIndex(ctx context.Context, userID, token string) error {
	tokens, err := r.readIndex(ctx, userID)
	if err != nil || len(tokens) == 0 {
		return err
	}

	kept := tokens[:0]
	for _, t := range tokens {
		if t != token {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		return r.cache.Delete(ctx, userIndexKey(userID))
	}
	return r.writeIndex(ctx, userID, kept)
}

func (r *CacheSessionRepo) readIndex(ctx context.Context, userID string) ([]string, error) {
	data, err := r.cache.Get(ctx, userIndexKey(userID))
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var tokens []string
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *CacheSessionRepo) writeIndex(ctx context.Context, userID string, tokens []string) error {
	data, err := json.Marshal(tokens)
	if err != nil {
		return err
	}
	return r.cache.Set(ctx, userIndexKey(userID), data, sessionIndexTTL)
}

var _ SessionRepo = (*CacheSessionRepo)(nil)
