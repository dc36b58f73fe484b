package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// APIKeyHeader is the header carrying an API key.
const APIKeyHeader = "X-API-Key"

// APIKeyInfo describes a registered API key. The key itself is never stored.
type APIKeyInfo struct {
	ID          string
	KeyHash     string // SHA-256 hex
	Principal   string
	Permissions []string
	ExpiresAt   time.Time
}

// APIKeyStore looks up keys by hash. Lookup returns (nil, nil) when absent.
type APIKeyStore interface {
	Lookup(ctx context.Context, keyHash string) (*APIKeyInfo, error)
}

// APIKeyAuthenticator validates the X-API-Key header.
type APIKeyAuthenticator struct {
	store APIKeyStore
	now   func() time.Time
}

// NewAPIKeyAuthenticator creates a new API key authenticator.
func NewAPIKeyAuthenticator(store APIKeyStore) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{store: store, now: time.Now}
}

// Name returns "api_key".
func (a *APIKeyAuthenticator) Name() string { return "api_key" }

// Supports reports whether the request carries an API key.
func (a *APIKeyAuthenticator) Supports(r *http.Request) bool {
	return r.Header.Get(APIKeyHeader) != ""
}

// Authenticate looks up the hash of the presented key.
func (a *APIKeyAuthenticator) Authenticate(ctx context.Context, r *http.Request) (*Identity, error) {
	key := strings.TrimSpace(r.Header.Get(APIKeyHeader))
	if key == "" {
		return nil, ErrMissingCredentials
	}

	info, err := a.store.Lookup(ctx, HashAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("auth: lookup api key: %w", err)
	}
	if info == nil {
		return nil, ErrInvalidCredentials
	}
	if !info.ExpiresAt.IsZero() && a.now().After(info.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	principal := info.Principal
	if principal == "" {
		principal = info.ID
	}
	return &Identity{
		Principal:   principal,
		Permissions: info.Permissions,
		Method:      MethodAPIKey,
		KeyID:       info.ID,
		ExpiresAt:   info.ExpiresAt,
	}, nil
}

// HashAPIKey hashes an API key using SHA-256 for storage.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// MemoryAPIKeyStore is an in-memory API key store keyed by hash.
type MemoryAPIKeyStore struct {
	mu   sync.RWMutex
	keys map[string]*APIKeyInfo
}

// NewMemoryAPIKeyStore creates a store holding keys.
func NewMemoryAPIKeyStore(keys ...*APIKeyInfo) *MemoryAPIKeyStore {
	s := &MemoryAPIKeyStore{keys: make(map[string]*APIKeyInfo, len(keys))}
	for _, k := range keys {
		s.keys[strings.ToLower(k.KeyHash)] = k
	}
	return s
}

// Lookup retrieves an API key by its hash.
func (s *MemoryAPIKeyStore) Lookup(_ context.Context, keyHash string) (*APIKeyInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys[keyHash], nil
}

// Add inserts or replaces a key.
func (s *MemoryAPIKeyStore) Add(info *APIKeyInfo) {
	s.mu.Lock()
	s.keys[strings.ToLower(info.KeyHash)] = info
	s.mu.Unlock()
}

// Remove deletes the key with the given hash.
func (s *MemoryAPIKeyStore) Remove(keyHash string) {
	s.mu.Lock()
	delete(s.keys, strings.ToLower(keyHash))
	s.mu.Unlock()
}

// Len returns the number of keys.
func (s *MemoryAPIKeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// ParseAPIKeys parses comma-separated "id:sha256-hex:perm1|perm2" entries.
func ParseAPIKeys(list string) ([]*APIKeyInfo, error) {
	var keys []*APIKeyInfo
	var bad error
	err := parseEntries(list, func(id, hash string, perms []string) {
		if _, err := hex.DecodeString(hash); err != nil || len(hash) != sha256.Size*2 {
			if bad == nil {
				bad = fmt.Errorf("%w: key %s is not a sha256 hex digest", ErrInvalidEntry, id)
			}
			return
		}
		keys = append(keys, &APIKeyInfo{ID: id, KeyHash: strings.ToLower(hash), Principal: id, Permissions: perms})
	})
	if err != nil {
		return nil, err
	}
	if bad != nil {
		return nil, bad
	}
	return keys, nil
}

var (
	_ Authenticator = (*APIKeyAuthenticator)(nil)
	_ APIKeyStore   = (*MemoryAPIKeyStore)(nil)
)
