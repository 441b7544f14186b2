package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bazaar/internal/errors"
)

func TestMemoryOrderRepository_CreateAndFind(t *testing.T) {
	repo := NewMemoryOrderRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, sampleOrder("u-1", time.Now()))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	created.Items[0].Quantity = 99

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, found.Items[0].Quantity)
	assert.Equal(t, 1, repo.Count())

	_, err = repo.FindByID(ctx, "missing")
	_, ok := errors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestMemoryOrderRepository_ListByUser(t *testing.T) {
	repo := NewMemoryOrderRepository()
	ctx := context.Background()
	base := time.Now()

	older, _ := repo.Create(ctx, sampleOrder("u-1", base.Add(-time.Minute)))
	newer, _ := repo.Create(ctx, sampleOrder("u-1", base))
	_, _ = repo.Create(ctx, sampleOrder("u-2", base))

	orders, err := repo.ListByUser(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, newer.ID, orders[0].ID)
	assert.Equal(t, older.ID, orders[1].ID)

	none, err := repo.ListByUser(ctx, "u-3")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
