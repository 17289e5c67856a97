package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/chris/escrow-contracts/pkg/contract"
	"github.com/chris/escrow-contracts/pkg/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// newTestStore boots a Postgres 16 container and applies the schema.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pgContainer, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("escrow"),
		tcpostgres.WithUsername("escrow"),
		tcpostgres.WithPassword("escrow"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = pgContainer.Terminate(context.Background()) })

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := New(pool)
	require.NoError(t, s.Migrate(ctx))
	return s
}

func newContract(t *testing.T, s *Store, seller int64, code string, created time.Time) *contract.Contract {
	t.Helper()
	id, err := s.NextContractID(context.Background())
	require.NoError(t, err)
	c, err := contract.New(id, seller, code, contract.Details{
		Title:     "Cámara réflex",
		Price:     decimal.RequireFromString("450.50"),
		Condition: contract.ConditionAcceptable,
		PhotoURIs: []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"},
	}, created)
	require.NoError(t, err)
	require.NoError(t, c.Publish(created))
	return c
}

func TestStore_Integration(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	c := newContract(t, s, 42, "ABCDEF", created)
	require.NoError(t, s.InsertContract(ctx, c))

	t.Run("Round Trip", func(t *testing.T) {
		got, err := s.GetContractByAccessCode(ctx, "ABCDEF")
		require.NoError(t, err)

		assert.Equal(t, c.ID, got.ID)
		assert.Equal(t, contract.AWAITING_PAYMENT, got.Status())
		assert.True(t, c.Price.Equal(got.Price))
		assert.Equal(t, c.Photos, got.Photos)
		assert.Equal(t, c.QRPayload, got.QRPayload)
		assert.True(t, created.Equal(got.CreatedAt))

		exists, err := s.AccessCodeExists(ctx, "ABCDEF")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("Duplicate Access Code", func(t *testing.T) {
		dup := newContract(t, s, 43, "ABCDEF", created)

		err := s.InsertContract(ctx, dup)

		assert.ErrorIs(t, err, storage.ErrAccessCodeTaken)
	})

	t.Run("Duplicate ID", func(t *testing.T) {
		dup, err := contract.New(c.ID, 43, "GHJKLM", contract.Details{
			Title: "Otro", Price: decimal.NewFromInt(1), Condition: contract.ConditionNew,
		}, created)
		require.NoError(t, err)

		err = s.InsertContract(ctx, dup)

		assert.ErrorIs(t, err, storage.ErrContractExists)
	})

	t.Run("Status Compare And Swap", func(t *testing.T) {
		got, err := s.GetContract(ctx, c.ID)
		require.NoError(t, err)
		require.NoError(t, got.LockFunds(created.Add(time.Minute)))

		require.NoError(t, s.UpdateContractStatus(ctx, got, contract.AWAITING_PAYMENT))
		assert.ErrorIs(t, s.UpdateContractStatus(ctx, got, contract.AWAITING_PAYMENT), storage.ErrStaleContract)

		stored, err := s.GetContract(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, contract.LOCKED, stored.Status())
	})

	t.Run("Assign Buyer Once", func(t *testing.T) {
		_, err := s.AssignBuyer(ctx, c.ID, 42, created)
		assert.ErrorIs(t, err, storage.ErrBuyerAlreadyAssigned)

		bound, err := s.AssignBuyer(ctx, c.ID, 7, created)
		require.NoError(t, err)
		buyer, ok := bound.BuyerID()
		assert.True(t, ok)
		assert.Equal(t, int64(7), buyer)

		_, err = s.AssignBuyer(ctx, c.ID, 8, created)
		assert.ErrorIs(t, err, storage.ErrBuyerAlreadyAssigned)

		_, err = s.AssignBuyer(ctx, 999999, 8, created)
		assert.ErrorIs(t, err, storage.ErrContractNotFound)
	})

	t.Run("Lists", func(t *testing.T) {
		newer := newContract(t, s, 42, "PQRSTU", created.Add(time.Hour))
		require.NoError(t, s.InsertContract(ctx, newer))

		selling, err := s.ListContractsBySeller(ctx, 42)
		require.NoError(t, err)
		require.Len(t, selling, 2)
		assert.Equal(t, newer.ID, selling[0].ID)

		buying, err := s.ListContractsByBuyer(ctx, 7)
		require.NoError(t, err)
		require.Len(t, buying, 1)
		assert.Equal(t, c.ID, buying[0].ID)
	})

	t.Run("Not Found", func(t *testing.T) {
		_, err := s.GetContract(ctx, 999999)
		assert.ErrorIs(t, err, storage.ErrContractNotFound)
	})
}
