package epoch_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Erigara/mv/internal/epoch"
)

func TestCellInitial(t *testing.T) {
	c := epoch.New("genesis", nil)
	require.EqualValues(t, 0, c.Seq())
	require.EqualValues(t, 1, c.Live())

	g := c.Pin()
	require.EqualValues(t, 0, g.Seq())
	require.Equal(t, "genesis", g.Value())
	g.Release()
	require.EqualValues(t, 1, c.Live())
}

func TestCellPublish(t *testing.T) {
	c := epoch.New(uint64(0), nil)
	for i := uint64(1); i <= 5; i++ {
		superseded := c.Publish(i)
		require.Equal(t, i-1, superseded.Value())
		superseded.Release()
		require.Equal(t, i, c.Seq())
		require.EqualValues(t, 1, c.Live())
	}
	require.Equal(t, uint64(5), c.Tip().Value())
}

func TestCellPinAcrossPublish(t *testing.T) {
	c := epoch.New("old", nil)
	g := c.Pin()

	superseded := c.Publish("new")
	superseded.Release()

	require.Equal(t, "old", g.Value())
	require.EqualValues(t, 2, c.Live())

	g.Release()
	require.EqualValues(t, 1, c.Live())
	require.Equal(t, "new", c.Pin().Value())
}

func TestCellDropHook(t *testing.T) {
	var dropped []string
	c := epoch.New("a", func(s string) { dropped = append(dropped, s) })

	c.Publish("b").Release()
	require.Equal(t, []string{"a"}, dropped)

	g := c.Pin()
	c.Publish("c").Release()
	require.Equal(t, []string{"a"}, dropped, "pinned generation must not be destroyed")

	g.Release()
	require.Equal(t, []string{"a", "b"}, dropped)
}

func TestGenerationRetainAfterDestroy(t *testing.T) {
	c := epoch.New(1, nil)
	g := c.Pin()

	superseded := c.Publish(2)
	require.Same(t, g, superseded)
	superseded.Release()

	g.Release()
	require.False(t, g.Retain())
	require.EqualValues(t, 1, c.Live())
}

func TestCellConcurrentPinPublish(t *testing.T) {
	const (
		readers  = 8
		publishs = 2000
	)

	var destroyed int64
	c := epoch.New(uint64(0), func(uint64) { atomic.AddInt64(&destroyed, 1) })

	var torn int64
	var stop int32
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for atomic.LoadInt32(&stop) == 0 {
				g := c.Pin()
				if g.Value() != g.Seq() {
					atomic.AddInt64(&torn, 1)
				}
				g.Release()
			}
		}()
	}

	for i := uint64(1); i <= publishs; i++ {
		c.Publish(i).Release()
	}
	atomic.StoreInt32(&stop, 1)
	wg.Wait()

	require.Zero(t, atomic.LoadInt64(&torn))
	require.EqualValues(t, 1, c.Live())
	require.EqualValues(t, publishs, atomic.LoadInt64(&destroyed))
	require.Equal(t, uint64(publishs), c.Seq())
}
