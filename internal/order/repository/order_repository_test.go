package repository

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bazaar/internal/domain"
	"bazaar/internal/errors"
	"bazaar/internal/testutil"
)

func sampleOrder(userID string, createdAt time.Time) domain.Order {
	items := []domain.LineItem{
		{ProductID: "p-1", ProductTitle: "Blue Mug", Quantity: 2, UnitPrice: decimal.NewFromInt(10)},
		{ProductID: "p-2", ProductTitle: "Lamp", Quantity: 1, UnitPrice: decimal.RequireFromString("25.50")},
	}
	return domain.NewOrder(userID, items, "123 Main St", domain.PaymentMethodCOD, domain.DefaultDeliveryCharge, createdAt)
}

// Unit Tests

func TestNewMySQLOrderRepository(t *testing.T) {
	db := &sql.DB{}
	repo := NewMySQLOrderRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
	assert.Equal(t, db, repo.items.db)
}

func TestWithStoredPrecision_DropsSubMillisecond(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 30, 45, 123456789, time.UTC)

	order := withStoredPrecision(sampleOrder("u-1", at))

	want := time.Date(2026, 3, 1, 12, 30, 45, 123000000, time.UTC)
	assert.Equal(t, want, order.CreatedAt)
	assert.Equal(t, want, order.UpdatedAt)
}

// Integration Tests

func TestOrderRepository_CreateAndFindByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLOrderRepository(db)
	ctx := context.Background()

	created, err := repo.Create(ctx, sampleOrder("u-1", time.Now().UTC().Truncate(time.Millisecond)))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	order, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "u-1", order.UserID)
	assert.Equal(t, "145.5", order.TotalAmount.String())
	assert.Equal(t, domain.PaymentMethodCOD, order.PaymentMethod)
	assert.False(t, order.IsPaid)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Blue Mug", order.Items[0].ProductTitle)
	assert.Equal(t, "25.5", order.Items[1].UnitPrice.String())
}

func TestOrderRepository_CreateReturnsStoredTimestamps(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLOrderRepository(db)
	ctx := context.Background()

	at := time.Date(2026, 3, 1, 12, 30, 45, 123456789, time.UTC)
	created, err := repo.Create(ctx, sampleOrder("u-1", at))
	require.NoError(t, err)

	order, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, created.CreatedAt.Equal(order.CreatedAt), "created %s, read %s", created.CreatedAt, order.CreatedAt)
	assert.True(t, created.UpdatedAt.Equal(order.UpdatedAt))
}

func TestOrderRepository_FindByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLOrderRepository(db)

	order, err := repo.FindByID(context.Background(), "missing")
	assert.Error(t, err)
	assert.Nil(t, order)

	nfe, ok := errors.IsNotFoundError(err)
	assert.True(t, ok)
	assert.NotNil(t, nfe)
}

func TestOrderRepository_ListByUser_NewestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLOrderRepository(db)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	older, err := repo.Create(ctx, sampleOrder("u-1", base.Add(-time.Hour)))
	require.NoError(t, err)
	newer, err := repo.Create(ctx, sampleOrder("u-1", base))
	require.NoError(t, err)
	_, err = repo.Create(ctx, sampleOrder("u-2", base))
	require.NoError(t, err)

	orders, err := repo.ListByUser(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, newer.ID, orders[0].ID)
	assert.Equal(t, older.ID, orders[1].ID)
	assert.Len(t, orders[0].Items, 2)

	none, err := repo.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestOrderRepository_Create_RollsBackOnItemFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLOrderRepository(db)
	ctx := context.Background()

	order := sampleOrder("u-1", time.Now().UTC())
	order.Items[1].ProductTitle = strings.Repeat("x", 300)

	_, err := repo.Create(ctx, order)
	require.Error(t, err)

	orders, err := repo.ListByUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Empty(t, orders)
}
