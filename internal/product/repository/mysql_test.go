package repository

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bazaar/internal/domain"
	"bazaar/internal/errors"
	"bazaar/internal/testutil"
)

// Unit Tests

func TestNewMySQLRepository(t *testing.T) {
	db := &sql.DB{}
	repo := NewMySQLRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

// Integration Tests

func TestMySQLRepository_FindByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLRepository(db)
	ctx := context.Background()

	saved, err := repo.Save(ctx, domain.Product{Title: "Blue Mug", Price: decimal.RequireFromString("10.50"), Quantity: 3})
	require.NoError(t, err)

	p, err := repo.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Blue Mug", p.Title)
	assert.Equal(t, "10.5", p.Price.String())
	assert.Equal(t, 3, p.Quantity)

	_, err = repo.FindByID(ctx, "does-not-exist")
	_, ok := errors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestMySQLRepository_FindByIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLRepository(db)
	ctx := context.Background()

	a, err := repo.Save(ctx, domain.Product{ID: "a", Title: "A", Price: decimal.NewFromInt(1), Quantity: 1})
	require.NoError(t, err)
	b, err := repo.Save(ctx, domain.Product{ID: "b", Title: "B", Price: decimal.NewFromInt(2), Quantity: 2})
	require.NoError(t, err)

	products, err := repo.FindByIDs(ctx, []string{b.ID, "missing", a.ID})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "a", products[0].ID)

	empty, err := repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestMySQLRepository_DecrementStock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLRepository(db)
	ctx := context.Background()

	p, err := repo.Save(ctx, domain.Product{Title: "Blue Mug", Price: decimal.NewFromInt(10), Quantity: 3})
	require.NoError(t, err)

	require.NoError(t, repo.DecrementStock(ctx, p.ID, 2))

	err = repo.DecrementStock(ctx, p.ID, 2)
	ie, ok := errors.IsInsufficientStockError(err)
	require.True(t, ok)
	assert.Equal(t, 1, ie.Available)

	err = repo.DecrementStock(ctx, "missing", 1)
	_, ok = errors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestMySQLRepository_DecrementStock_Concurrent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLRepository(db)
	ctx := context.Background()

	p, err := repo.Save(ctx, domain.Product{Title: "Lamp", Price: decimal.NewFromInt(10), Quantity: 4})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.DecrementStock(ctx, p.ID, 1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	after, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, succeeded)
	assert.Equal(t, 0, after.Quantity)
}
