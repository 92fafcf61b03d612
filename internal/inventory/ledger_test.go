package inventory

import (
	"context"
	"errors"
	"testing"

	"ecommerce/internal/apperr"
	"ecommerce/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestReserve(t *testing.T) {
	ctx := context.Background()

	t.Run("moves stock from available to reserved", func(t *testing.T) {
		db := testutil.NewDB(t)
		p := testutil.CreateProduct(t, db, "Widget", 500, 5)

		require.NoError(t, Reserve(ctx, db, p.ID, 3))

		s, err := Snapshot(ctx, db, p.ID)
		require.NoError(t, err)
		assert.Equal(t, Stock{Available: 2, Reserved: 3}, s)
		assert.Equal(t, int64(5), s.Total())
	})

	t.Run("insufficient stock leaves counters untouched", func(t *testing.T) {
		db := testutil.NewDB(t)
		p := testutil.CreateProduct(t, db, "Widget", 500, 2)

		err := Reserve(ctx, db, p.ID, 3)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperr.ErrInsufficientStock))
		e, _ := apperr.As(err)
		assert.Equal(t, "Widget", e.Fields["product_name"])
		assert.Equal(t, int64(2), e.Fields["available"])
		assert.Equal(t, int64(3), e.Fields["requested"])

		s, err := Snapshot(ctx, db, p.ID)
		require.NoError(t, err)
		assert.Equal(t, Stock{Available: 2, Reserved: 0}, s)
	})

	t.Run("unknown product", func(t *testing.T) {
		db := testutil.NewDB(t)
		err := Reserve(ctx, db, 999, 1)
		assert.True(t, errors.Is(err, apperr.ErrProductNotFound))
	})

	t.Run("non positive quantity", func(t *testing.T) {
		db := testutil.NewDB(t)
		p := testutil.CreateProduct(t, db, "Widget", 500, 2)
		err := Reserve(ctx, db, p.ID, 0)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}

func TestCommitAndRelease(t *testing.T) {
	ctx := context.Background()

	t.Run("commit drops reserved only", func(t *testing.T) {
		db := testutil.NewDB(t)
		p := testutil.CreateProduct(t, db, "Widget", 500, 5)
		require.NoError(t, Reserve(ctx, db, p.ID, 5))

		require.NoError(t, Commit(ctx, db, p.ID, 5))

		s, _ := Snapshot(ctx, db, p.ID)
		assert.Equal(t, Stock{Available: 0, Reserved: 0}, s)
	})

	t.Run("release restores available", func(t *testing.T) {
		db := testutil.NewDB(t)
		p := testutil.CreateProduct(t, db, "Widget", 500, 5)
		require.NoError(t, Reserve(ctx, db, p.ID, 4))

		require.NoError(t, Release(ctx, db, p.ID, 4))

		s, _ := Snapshot(ctx, db, p.ID)
		assert.Equal(t, Stock{Available: 5, Reserved: 0}, s)
	})

	t.Run("cannot drive reserved negative", func(t *testing.T) {
		db := testutil.NewDB(t)
		p := testutil.CreateProduct(t, db, "Widget", 500, 5)
		require.NoError(t, Reserve(ctx, db, p.ID, 1))

		assert.Error(t, Commit(ctx, db, p.ID, 2))
		assert.Error(t, Release(ctx, db, p.ID, 2))

		s, _ := Snapshot(ctx, db, p.ID)
		assert.Equal(t, Stock{Available: 4, Reserved: 1}, s)
	})

	t.Run("soft deleted product still reconciles", func(t *testing.T) {
		db := testutil.NewDB(t)
		p := testutil.CreateProduct(t, db, "Widget", 500, 5)
		require.NoError(t, Reserve(ctx, db, p.ID, 2))
		require.NoError(t, db.Delete(&p).Error)

		require.NoError(t, Release(ctx, db, p.ID, 2))

		s, _ := Snapshot(ctx, db, p.ID)
		assert.Equal(t, Stock{Available: 5, Reserved: 0}, s)
	})
}

func TestReserveRollsBackWithTransaction(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	a := testutil.CreateProduct(t, db, "A", 100, 5)
	b := testutil.CreateProduct(t, db, "B", 100, 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := Reserve(ctx, tx, a.ID, 3); err != nil {
			return err
		}
		return Reserve(ctx, tx, b.ID, 2)
	})
	require.True(t, errors.Is(err, apperr.ErrInsufficientStock))

	sa, _ := Snapshot(ctx, db, a.ID)
	sb, _ := Snapshot(ctx, db, b.ID)
	assert.Equal(t, Stock{Available: 5, Reserved: 0}, sa)
	assert.Equal(t, Stock{Available: 1, Reserved: 0}, sb)
}
