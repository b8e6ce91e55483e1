package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/letscook/internal/storage/models"
)

func TestMemoryActions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for _, sig := range []string{"a", "b", "c"} {
		require.NoError(t, m.SaveAction(ctx, &models.Action{
			Signature:     sig,
			WalletAddress: "w1",
			Action:        "buy_tickets",
			Status:        "submitted",
		}))
	}
	require.NoError(t, m.SaveAction(ctx, &models.Action{Signature: "d", WalletAddress: "w2"}))
	assert.Error(t, m.SaveAction(ctx, &models.Action{Signature: "a"}), "duplicate signature")

	list, err := m.ListActions(ctx, "w1", 2, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].Signature, "newest first")
	assert.Equal(t, "b", list[1].Signature)

	list, err = m.ListActions(ctx, "w1", 10, 5)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, m.UpdateActionStatus(ctx, "a", "failed", "boom", 1500*time.Millisecond))
	got, err := m.GetAction(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "failed", got.Status)
	assert.Equal(t, "boom", got.ErrorMessage)
	assert.InDelta(t, 1.5, got.ExecutionTime, 1e-9)

	_, err = m.GetAction(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.UpdateActionStatus(ctx, "missing", "x", "", 0), ErrNotFound)
}

func TestMemoryPoolSnapshots(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.LatestPoolSnapshot(ctx, "pool")
	assert.ErrorIs(t, err, ErrNotFound)

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, m.SavePoolSnapshot(ctx, &models.PoolSnapshot{PoolID: "pool", Price: 1, LastUpdate: base.Add(time.Hour)}))
	require.NoError(t, m.SavePoolSnapshot(ctx, &models.PoolSnapshot{PoolID: "pool", Price: 2, LastUpdate: base}))

	latest, err := m.LatestPoolSnapshot(ctx, "pool")
	require.NoError(t, err)
	assert.Equal(t, float64(1), latest.Price)
}
