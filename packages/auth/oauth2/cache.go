package oauth2

import (
	"sync"
)

// TokenCache holds at most one token per Config. It is safe for concurrent
// use.
type TokenCache struct {
	tokens map[string]*Token
	mutex  sync.RWMutex
}

// NewTokenCache creates an empty token cache
func NewTokenCache() *TokenCache {
	return &TokenCache{
		tokens: make(map[string]*Token),
	}
}

// Valid returns the token cached for cfg, or nil when there is none or it
// has expired.
func (c *TokenCache) Valid(cfg Config) *Token {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	token := c.tokens[cfg.key()]
	if token == nil || token.IsExpired() {
		return nil
	}
	return token
}

// Store remembers token for cfg, replacing an older one
func (c *TokenCache) Store(cfg Config, token *Token) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.tokens[cfg.key()] = token
}

// Evict drops the token cached for cfg
func (c *TokenCache) Evict(cfg Config) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.tokens, cfg.key())
}

// Len is the number of cached tokens, expired ones included.
func (c *TokenCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.tokens)
}
