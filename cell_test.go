package mv_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Erigara/mv"
)

func TestCellLoad(t *testing.T) {
	c := mv.NewCell("genesis", nil)
	require.Equal(t, "genesis", c.Load())
	require.EqualValues(t, 0, c.Version())
}

func TestCellBlockCommit(t *testing.T) {
	c := mv.NewCell(0, nil)

	b, err := c.Block()
	require.NoError(t, err)
	require.EqualValues(t, 0, b.Base())
	require.NoError(t, b.Set(7))

	// staged value is invisible until commit
	require.Equal(t, 0, c.Load())

	v, err := b.Get()
	require.NoError(t, err)
	require.Equal(t, 7, v)

	require.NoError(t, b.Commit())
	require.Equal(t, 7, c.Load())
	require.EqualValues(t, 1, c.Version())
}

func TestCellBlockRollback(t *testing.T) {
	c := mv.NewCell(1, nil)

	b, err := c.Block()
	require.NoError(t, err)
	require.NoError(t, b.Set(2))
	require.NoError(t, b.Rollback())

	require.Equal(t, 1, c.Load())
	require.EqualValues(t, 0, c.Version())

	require.ErrorIs(t, b.Set(3), mv.ErrScopeClosed)
	_, err = b.Get()
	require.ErrorIs(t, err, mv.ErrScopeClosed)
}

func TestCellWriterBusy(t *testing.T) {
	c := mv.NewCell(0, nil)

	b, err := c.Block()
	require.NoError(t, err)
	_, err = c.Block()
	require.ErrorIs(t, err, mv.ErrWriterBusy)
	require.NoError(t, b.Rollback())
}

func TestCellTransactionStep(t *testing.T) {
	c := mv.NewCell(0, nil)

	require.NoError(t, c.Update(func(b *mv.CellBlock[int]) error {
		if err := b.Step(func(tx *mv.CellTransaction[int]) error {
			return tx.Set(1)
		}); err != nil {
			return err
		}
		boom := errors.New("boom")
		err := b.Step(func(tx *mv.CellTransaction[int]) error {
			if err := tx.Set(2); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		v, err := b.Get()
		require.NoError(t, err)
		require.Equal(t, 1, v)
		return nil
	}))

	require.Equal(t, 1, c.Load())
}

func TestCellTransactionRollback(t *testing.T) {
	c := mv.NewCell(10, nil)

	b, err := c.Block()
	require.NoError(t, err)

	tx, err := b.Transaction()
	require.NoError(t, err)

	v, err := tx.Get()
	require.NoError(t, err)
	require.Equal(t, 10, v)

	require.NoError(t, tx.Set(11))
	require.NoError(t, tx.Set(12))
	require.NoError(t, tx.Rollback())

	v, err = b.Get()
	require.NoError(t, err)
	require.Equal(t, 10, v, "rollback restores the first prior value")
	require.NoError(t, b.Rollback())
}

func TestCellTransactionSerial(t *testing.T) {
	c := mv.NewCell(0, nil)

	b, err := c.Block()
	require.NoError(t, err)
	tx, err := b.Transaction()
	require.NoError(t, err)

	_, err = b.Transaction()
	require.ErrorIs(t, err, mv.ErrWriterBusy)
	require.ErrorIs(t, b.Set(1), mv.ErrScopeActive)
	require.ErrorIs(t, b.Commit(), mv.ErrScopeActive)

	require.NoError(t, tx.Set(1))
	require.NoError(t, tx.Commit())
	require.NoError(t, b.Commit())
	require.Equal(t, 1, c.Load())
}

func TestCellBlockRollbackClosesTransaction(t *testing.T) {
	c := mv.NewCell(0, nil)

	b, err := c.Block()
	require.NoError(t, err)
	tx, err := b.Transaction()
	require.NoError(t, err)
	require.NoError(t, tx.Set(5))

	require.NoError(t, b.Rollback())
	require.ErrorIs(t, tx.Set(6), mv.ErrScopeClosed)
	require.Equal(t, 0, c.Load())
}

func TestCellRevertLast(t *testing.T) {
	c := mv.NewCell("a", nil)

	require.NoError(t, c.Update(func(b *mv.CellBlock[string]) error {
		return b.Set("b")
	}))
	require.NoError(t, c.Update(func(b *mv.CellBlock[string]) error {
		return b.Set("c")
	}))
	require.Equal(t, "c", c.Load())

	require.NoError(t, c.RevertLast())
	require.Equal(t, "b", c.Load())
	require.EqualValues(t, 3, c.Version())

	require.ErrorIs(t, c.RevertLast(), mv.ErrNoHistory)
}

func TestCellRevertScopeActive(t *testing.T) {
	c := mv.NewCell(0, nil)
	require.NoError(t, c.Update(func(b *mv.CellBlock[int]) error {
		return b.Set(1)
	}))

	b, err := c.Block()
	require.NoError(t, err)
	require.ErrorIs(t, c.RevertLast(), mv.ErrScopeActive)
	require.NoError(t, b.Rollback())

	require.NoError(t, c.RevertLast())
	require.Equal(t, 0, c.Load())
}

func TestCellViewIsolation(t *testing.T) {
	c := mv.NewCell(1, nil)

	view := c.View()
	require.NoError(t, c.Update(func(b *mv.CellBlock[int]) error {
		return b.Set(2)
	}))

	require.Equal(t, 1, view.Value())
	require.EqualValues(t, 0, view.Version())

	dup := view.Dup()
	require.NoError(t, view.Close())
	require.Equal(t, 1, dup.Value())
	require.NoError(t, dup.Close())

	require.Equal(t, 2, c.Load())
	require.PanicsWithError(t, mv.ErrViewClosed.Error(), func() {
		dup.Value()
	})
}
