package taiga

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/clintrovert/taskbridge/pkg/types"
)

// DefaultTokenTTL is how long an auth token is trusted after login
const DefaultTokenTTL = time.Hour

// AuthToken is a cached tracker credential
type AuthToken struct {
	Value  string
	Expiry time.Time
}

// Valid reports whether the token can still be used at now
func (t *AuthToken) Valid(now time.Time) bool {
	return t != nil && t.Value != "" && now.Before(t.Expiry)
}

// AuthFunc performs a login and returns a fresh token value
type AuthFunc func(ctx context.Context) (string, error)

// TokenCache holds one tracker token per process. Concurrent refreshes are
// collapsed into a single login.
type TokenCache struct {
	mu     sync.RWMutex
	token  *AuthToken
	group  singleflight.Group
	auth   AuthFunc
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewTokenCache creates a token cache around auth
func NewTokenCache(auth AuthFunc, ttl time.Duration, logger *zap.Logger) *TokenCache {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenCache{
		auth:   auth,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// Get returns the cached token, logging in again when it is missing or
// expired. A failed login clears the cache. Waiting on a login started by
// another caller is bounded by ctx.
func (c *TokenCache) Get(ctx context.Context) (string, error) {
	if token := c.cached(); token != nil {
		return token.Value, nil
	}

	ch := c.group.DoChan("token", func() (any, error) {
		// Another caller may have refreshed while we waited for the group.
		if token := c.cached(); token != nil {
			return token.Value, nil
		}

		value, err := c.auth(ctx)
		if err != nil {
			c.Clear()
			return "", &types.AuthError{Err: err}
		}

		c.mu.Lock()
		c.token = &AuthToken{Value: value, Expiry: c.now().Add(c.ttl)}
		c.mu.Unlock()

		c.logger.Info("refreshed tracker token", zap.Duration("ttl", c.ttl))
		return value, nil
	})

	select {
	case <-ctx.Done():
		return "", &types.AuthError{Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			c.logger.Debug("shared in-flight tracker token refresh")
		}
		return res.Val.(string), nil
	}
}

// Clear drops the cached token
func (c *TokenCache) Clear() {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
}

// Token returns the cached credential as a bearer token
func (c *TokenCache) Token(ctx context.Context) (*oauth2.Token, error) {
	value, err := c.Get(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	token := &oauth2.Token{AccessToken: value, TokenType: "Bearer"}
	if c.token != nil {
		token.Expiry = c.token.Expiry
	}
	return token, nil
}

func (c *TokenCache) cached() *AuthToken {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token.Valid(c.now()) {
		return c.token
	}
	return nil
}
