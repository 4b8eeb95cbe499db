package auth

import (
	"crypto/subtle"
	"sync"
)

// APIKeyAuth provides a simple API key authentication
type APIKeyAuth struct {
	mu        sync.RWMutex
	validKeys map[string]struct{}
}

// NewAPIKeyAuth creates a new API key authentication middleware. Empty keys
// are ignored.
func NewAPIKeyAuth(keys []string) *APIKeyAuth {
	a := &APIKeyAuth{
		validKeys: make(map[string]struct{}, len(keys)),
	}
	for _, key := range keys {
		a.AddKey(key)
	}

	return a
}

// AddKey adds a new valid API key
func (a *APIKeyAuth) AddKey(key string) {
	if key == "" {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.validKeys[key] = struct{}{}
}

// RemoveKey removes a valid API key
func (a *APIKeyAuth) RemoveKey(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.validKeys, key)
}

// IsValidKey checks if a key is valid
func (a *APIKeyAuth) IsValidKey(key string) bool {
	if key == "" {
		return false
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	for valid := range a.validKeys {
		if subtle.ConstantTimeCompare([]byte(valid), []byte(key)) == 1 {
			return true
		}
	}
	return false
}
