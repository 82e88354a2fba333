package license

import (
	"slices"
	"sync"
	"time"
)

// Revoker reports whether an entitlement id has been revoked.
type Revoker interface {
	IsRevoked(entitlementID string) bool
}

// RevocationList is an in-memory [Revoker].
type RevocationList struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
}

// NewRevocationList returns a list seeded with ids.
func NewRevocationList(ids ...string) *RevocationList {
	l := &RevocationList{revoked: make(map[string]time.Time, len(ids))}
	l.Load(ids)
	return l
}

// Revoke adds id to the list.
func (l *RevocationList) Revoke(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.revoked[id]; !ok {
		l.revoked[id] = time.Now()
	}
}

// Load adds every id in ids, typically from persistent storage at startup.
func (l *RevocationList) Load(ids []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := l.revoked[id]; !ok {
			l.revoked[id] = now
		}
	}
}

func (l *RevocationList) IsRevoked(id string) bool {
	if l == nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.revoked[id]
	return ok
}

// IDs returns the revoked ids in sorted order.
func (l *RevocationList) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.revoked))
	for id := range l.revoked {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
