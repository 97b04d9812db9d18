package revocation

import (
	"context"
	"sync"
)

// MemoryLedger keeps revoked ids in process memory.
type MemoryLedger struct {
	mu      sync.RWMutex
	revoked Set
}

// NewMemoryLedger creates a ledger preloaded with ids.
func NewMemoryLedger(ids ...string) *MemoryLedger {
	return &MemoryLedger{revoked: NewSet(ids...)}
}

// CurrentRevokedIDs returns a copy of the revoked set.
func (l *MemoryLedger) CurrentRevokedIDs(ctx context.Context) (Set, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	snapshot := make(Set, len(l.revoked))
	for id := range l.revoked {
		snapshot[id] = struct{}{}
	}
	return snapshot, nil
}

// Revoke adds tokenID to the set.
func (l *MemoryLedger) Revoke(_ context.Context, tokenID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[tokenID] = struct{}{}
	return nil
}

// Ping always succeeds.
func (l *MemoryLedger) Ping(context.Context) error { return nil }

// Close is a no-op.
func (l *MemoryLedger) Close() error { return nil }
