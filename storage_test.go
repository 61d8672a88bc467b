package mv_test

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Erigara/mv"
)

func entries(s *mv.Storage[string, int]) map[string]int {
	view := s.View()
	defer view.Close()
	m := make(map[string]int, view.Len())
	view.Ascend(func(k string, v int) bool {
		m[k] = v
		return true
	})
	return m
}

func commit(t *testing.T, s *mv.Storage[string, int], m map[string]int) {
	t.Helper()
	require.NoError(t, s.Update(func(b *mv.Block[string, int]) error {
		for k, v := range m {
			if err := b.Set(k, v); err != nil {
				return err
			}
		}
		return nil
	}))
}

func TestStorageEmpty(t *testing.T) {
	s := mv.New[string, int](nil)
	require.EqualValues(t, 0, s.Version())
	require.Zero(t, s.Len())
	require.False(t, s.Contains("a"))

	_, err := s.Get("a")
	require.ErrorIs(t, err, mv.ErrKeyNotFound)
}

func TestStorageGet(t *testing.T) {
	s := mv.New[string, int](nil)
	commit(t, s, map[string]int{"a": 1, "b": 2})

	v, err := s.Get("a")
	require.NoError(t, err)
	require.Equal(t, 1, v)
	require.True(t, s.Contains("b"))
	require.Equal(t, 2, s.Len())
	require.EqualValues(t, 1, s.Version())
}

func TestStorageNewFunc(t *testing.T) {
	// descending order
	s := mv.NewFunc[int, string](func(a, b int) bool { return a > b }, nil)
	require.NoError(t, s.Update(func(b *mv.Block[int, string]) error {
		b.Set(1, "one")
		b.Set(3, "three")
		b.Set(2, "two")
		return nil
	}))

	var keys []int
	view := s.View()
	defer view.Close()
	view.Ascend(func(k int, _ string) bool {
		keys = append(keys, k)
		return true
	})
	require.Equal(t, []int{3, 2, 1}, keys)
}

func TestViewIsolation(t *testing.T) {
	s := mv.New[string, int](nil)
	commit(t, s, map[string]int{"a": 1})

	view := s.View()
	defer view.Close()
	require.EqualValues(t, 1, view.Version())

	commit(t, s, map[string]int{"a": 10, "b": 2})

	v, err := view.Get("a")
	require.NoError(t, err)
	require.Equal(t, 1, v)
	require.False(t, view.Contains("b"))
	require.Equal(t, 1, view.Len())
	require.EqualValues(t, 1, view.Version())

	fresh := s.View()
	defer fresh.Close()
	v, err = fresh.Get("a")
	require.NoError(t, err)
	require.Equal(t, 10, v)
	require.True(t, fresh.Contains("b"))
	require.EqualValues(t, 2, fresh.Version())
}

func TestViewReacquire(t *testing.T) {
	s := mv.New[string, int](nil)

	view := s.View()
	commit(t, s, map[string]int{"k1": 1})

	require.Zero(t, view.Len())
	require.False(t, view.Contains("k1"))
	require.NoError(t, view.Close())

	view = s.View()
	defer view.Close()
	v, err := view.Get("k1")
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestViewDup(t *testing.T) {
	s := mv.New[string, int](nil)
	commit(t, s, map[string]int{"a": 1})

	view := s.View()
	dup := view.Dup()
	require.NoError(t, view.Close())

	commit(t, s, map[string]int{"a": 2})

	v, err := dup.Get("a")
	require.NoError(t, err)
	require.Equal(t, 1, v)
	require.NoError(t, dup.Close())
	require.Error(t, dup.Close())
}

func TestViewClosedPanics(t *testing.T) {
	s := mv.New[string, int](nil)
	view := s.View()
	require.NoError(t, view.Close())
	require.PanicsWithError(t, mv.ErrViewClosed.Error(), func() {
		view.Len()
	})
}

func TestViewAscendRange(t *testing.T) {
	s := mv.New[string, int](nil)
	commit(t, s, map[string]int{"a": 1, "b": 2, "c": 3, "d": 4})

	view := s.View()
	defer view.Close()
	var keys []string
	view.AscendRange("b", "d", func(k string, _ int) bool {
		keys = append(keys, k)
		return true
	})
	require.Equal(t, []string{"b", "c"}, keys)
}

func TestWriterBusy(t *testing.T) {
	s := mv.New[string, int](nil)
	b, err := s.Block()
	require.NoError(t, err)

	_, err = s.Block()
	require.ErrorIs(t, err, mv.ErrWriterBusy)
	require.ErrorIs(t, s.Update(func(*mv.Block[string, int]) error { return nil }), mv.ErrWriterBusy)

	require.NoError(t, b.Rollback())
	_, err = s.Block()
	require.NoError(t, err)
}

func TestWaitWriter(t *testing.T) {
	s := mv.New[string, int](&mv.Options{WaitWriter: true})
	b, err := s.Block()
	require.NoError(t, err)
	require.NoError(t, b.Set("a", 1))

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		done <- s.Update(func(b *mv.Block[string, int]) error {
			return b.Set("b", 2)
		})
	}()

	<-started
	require.NoError(t, b.Commit())
	require.NoError(t, <-done)
	require.Equal(t, map[string]int{"a": 1, "b": 2}, entries(s))
	require.EqualValues(t, 2, s.Version())
}

func TestRevertLast(t *testing.T) {
	s := mv.New[string, int](nil)
	commit(t, s, map[string]int{"a": 1})
	before := entries(s)

	commit(t, s, map[string]int{"b": 2})
	require.Equal(t, map[string]int{"a": 1, "b": 2}, entries(s))

	require.NoError(t, s.RevertLast())
	require.Equal(t, before, entries(s))
	// sequence numbers keep increasing across reverts
	require.EqualValues(t, 3, s.Version())

	require.ErrorIs(t, s.RevertLast(), mv.ErrNoHistory)
}

func TestRevertLastEmptyHistory(t *testing.T) {
	s := mv.New[string, int](nil)
	require.ErrorIs(t, s.RevertLast(), mv.ErrNoHistory)
}

func TestRevertLastScopeActive(t *testing.T) {
	s := mv.New[string, int](nil)
	commit(t, s, map[string]int{"a": 1})

	b, err := s.Block()
	require.NoError(t, err)
	require.ErrorIs(t, s.RevertLast(), mv.ErrScopeActive)

	require.NoError(t, b.Rollback())
	require.NoError(t, s.RevertLast())
}

func TestRevertChain(t *testing.T) {
	s := mv.New[string, int](&mv.Options{HistoryDepth: 2})
	commit(t, s, map[string]int{"a": 1})
	commit(t, s, map[string]int{"b": 2})
	commit(t, s, map[string]int{"c": 3})

	require.NoError(t, s.RevertLast())
	require.Equal(t, map[string]int{"a": 1, "b": 2}, entries(s))

	require.NoError(t, s.RevertLast())
	require.Equal(t, map[string]int{"a": 1}, entries(s))

	require.ErrorIs(t, s.RevertLast(), mv.ErrNoHistory)
}

func TestHistoryDisabled(t *testing.T) {
	s := mv.New[string, int](&mv.Options{HistoryDepth: -1})
	commit(t, s, map[string]int{"a": 1})
	require.ErrorIs(t, s.RevertLast(), mv.ErrNoHistory)
	require.Zero(t, s.Stats().History)
}

func TestStats(t *testing.T) {
	s := mv.New[string, int](nil)
	require.Equal(t, mv.Stats{Version: 0, Len: 0, Live: 1, History: 0}, s.Stats())

	commit(t, s, map[string]int{"a": 1})
	commit(t, s, map[string]int{"b": 2})
	require.Equal(t, mv.Stats{Version: 2, Len: 2, Live: 2, History: 1}, s.Stats())

	view := s.View()
	commit(t, s, map[string]int{"c": 3})
	commit(t, s, map[string]int{"d": 4})
	// pinned generation survives its eviction from history
	require.Equal(t, mv.Stats{Version: 4, Len: 4, Live: 3, History: 1}, s.Stats())

	require.NoError(t, view.Close())
	require.Equal(t, 2, s.Stats().Live)
}

func TestBlockScenario(t *testing.T) {
	s := mv.New[string, int](nil)

	b, err := s.Block()
	require.NoError(t, err)

	t1, err := b.Transaction()
	require.NoError(t, err)
	require.NoError(t, t1.Set("k1", 1))
	require.NoError(t, t1.Commit())

	t2, err := b.Transaction()
	require.NoError(t, err)
	require.NoError(t, t2.Set("k2", 2))
	require.NoError(t, t2.Rollback())

	require.NoError(t, b.Commit())
	require.Equal(t, map[string]int{"k1": 1}, entries(s))

	require.NoError(t, s.RevertLast())
	require.Equal(t, map[string]int{}, entries(s))
}

func TestConcurrentReaders(t *testing.T) {
	const (
		readers = 8
		commits = 500
	)

	s := mv.New[string, int](nil)
	commit(t, s, map[string]int{"a": 0, "b": 0})

	var torn int64
	var stop int32
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for atomic.LoadInt32(&stop) == 0 {
				view := s.View()
				a, erra := view.Get("a")
				b, errb := view.Get("b")
				if erra != nil || errb != nil || a != b {
					atomic.AddInt64(&torn, 1)
				}
				view.Close()
			}
		}()
	}

	for i := 1; i <= commits; i++ {
		commit(t, s, map[string]int{"a": i, "b": i})
	}
	atomic.StoreInt32(&stop, 1)
	wg.Wait()

	require.Zero(t, atomic.LoadInt64(&torn))
	require.Equal(t, map[string]int{"a": commits, "b": commits}, entries(s))
}

func TestStorageAgainstMap(t *testing.T) {
	rng := rand.New(rand.NewSource(20))
	s := mv.New[int, int](nil)
	shadow := make(map[int]int)
	var prior map[int]int

	clone := func(m map[int]int) map[int]int {
		c := make(map[int]int, len(m))
		for k, v := range m {
			c[k] = v
		}
		return c
	}
	mutate := func(m map[int]int) {
		for i := 0; i < 1+rng.Intn(8); i++ {
			k := rng.Intn(50)
			switch {
			case rng.Intn(4) == 0:
				delete(m, k)
			default:
				m[k] = rng.Int()
			}
		}
	}
	apply := func(tx *mv.Transaction[int, int], m map[int]int) {
		for k, v := range m {
			require.NoError(t, tx.Set(k, v))
		}
		view := clone(m)
		for k := 0; k < 50; k++ {
			if _, ok := view[k]; !ok {
				require.NoError(t, tx.Delete(k))
			}
		}
	}

	for round := 0; round < 200; round++ {
		switch {
		case rng.Intn(10) == 0:
			err := s.RevertLast()
			switch {
			case prior != nil:
				require.NoError(t, err)
				shadow, prior = prior, nil
			default:
				require.ErrorIs(t, err, mv.ErrNoHistory)
			}
		default:
			b, err := s.Block()
			require.NoError(t, err)
			staged := clone(shadow)
			for txs := 0; txs < 1+rng.Intn(3); txs++ {
				next := clone(staged)
				mutate(next)
				tx, err := b.Transaction()
				require.NoError(t, err)
				apply(tx, next)
				switch {
				case rng.Intn(3) == 0:
					require.NoError(t, tx.Rollback())
				default:
					require.NoError(t, tx.Commit())
					staged = next
				}
			}
			switch {
			case rng.Intn(4) == 0:
				require.NoError(t, b.Rollback())
			default:
				require.NoError(t, b.Commit())
				prior = shadow
				shadow = staged
			}
		}

		view := s.View()
		require.Equal(t, len(shadow), view.Len())
		view.Ascend(func(k, v int) bool {
			require.Equal(t, shadow[k], v)
			return true
		})
		require.NoError(t, view.Close())
	}
}
