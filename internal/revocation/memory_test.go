package revocation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLedger_RevokeVisibleOnNextRead(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := NewMemoryLedger("J0")

	ids, err := l.CurrentRevokedIDs(ctx)
	require.NoError(t, err)
	assert.True(t, ids.Contains("J0"))
	assert.False(t, ids.Contains("J1"))

	require.NoError(t, l.Revoke(ctx, "J1"))

	ids, err = l.CurrentRevokedIDs(ctx)
	require.NoError(t, err)
	assert.True(t, ids.Contains("J1"))
}

func TestMemoryLedger_SnapshotIsACopy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := NewMemoryLedger("J0")

	ids, err := l.CurrentRevokedIDs(ctx)
	require.NoError(t, err)
	ids["J9"] = struct{}{}

	fresh, err := l.CurrentRevokedIDs(ctx)
	require.NoError(t, err)
	assert.False(t, fresh.Contains("J9"))
}

func TestMemoryLedger_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryLedger().CurrentRevokedIDs(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryLedger_Concurrent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := NewMemoryLedger()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = l.Revoke(ctx, "J")
		}()
		go func() {
			defer wg.Done()
			_, _ = l.CurrentRevokedIDs(ctx)
		}()
	}
	wg.Wait()

	ids, err := l.CurrentRevokedIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
	assert.NoError(t, l.Ping(ctx))
	assert.NoError(t, l.Close())
}
