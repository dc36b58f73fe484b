package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// User is an entry of the Basic auth user store.
type User struct {
	Username     string
	PasswordHash string // bcrypt
	Permissions  []string
}

// UserStore looks up users by name. Lookup returns (nil, nil) for an
// unknown user.
type UserStore interface {
	Lookup(ctx context.Context, username string) (*User, error)
}

// MemoryUserStore is an in-memory UserStore.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewMemoryUserStore creates a store holding users.
func NewMemoryUserStore(users ...*User) *MemoryUserStore {
	s := &MemoryUserStore{users: make(map[string]*User, len(users))}
	for _, u := range users {
		s.users[u.Username] = u
	}
	return s
}

// Lookup returns the named user.
func (s *MemoryUserStore) Lookup(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[username], nil
}

// Add inserts or replaces a user.
func (s *MemoryUserStore) Add(u *User) {
	s.mu.Lock()
	s.users[u.Username] = u
	s.mu.Unlock()
}

// Len returns the number of users.
func (s *MemoryUserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// ParseUsers parses comma-separated "name:bcrypt-hash:perm1|perm2" entries.
func ParseUsers(list string) ([]*User, error) {
	var users []*User
	err := parseEntries(list, func(name, hash string, perms []string) {
		users = append(users, &User{Username: name, PasswordHash: hash, Permissions: perms})
	})
	return users, err
}

// parseEntries splits the shared "id:hash:perms" list format.
func parseEntries(list string, add func(id, hash string, perms []string)) error {
	for i, raw := range strings.Split(list, ",") {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("%w: entry %d", ErrInvalidEntry, i+1)
		}

		var perms []string
		if len(parts) == 3 {
			for _, p := range strings.Split(parts[2], "|") {
				if p = strings.TrimSpace(p); p != "" {
					perms = append(perms, p)
				}
			}
		}
		add(parts[0], parts[1], perms)
	}
	return nil
}

var _ UserStore = (*MemoryUserStore)(nil)
