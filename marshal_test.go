package mv_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Erigara/mv"
)

func TestStorageMarshal(t *testing.T) {
	s := mv.New[string, int](nil)
	commit(t, s, map[string]int{"b": 2, "a": 1})

	data, err := json.Marshal(s)
	require.NoError(t, err)
	require.JSONEq(t, `{"version":1,"entries":[{"key":"a","value":1},{"key":"b","value":2}]}`, string(data))
}

func TestStorageMarshalEmpty(t *testing.T) {
	s := mv.New[string, int](nil)
	data, err := json.Marshal(s)
	require.NoError(t, err)
	require.JSONEq(t, `{"version":0,"entries":[]}`, string(data))
}

func TestStorageUnmarshal(t *testing.T) {
	s := mv.New[string, int](nil)
	commit(t, s, map[string]int{"old": 9})

	data := []byte(`{"version":42,"entries":[{"key":"a","value":1},{"key":"b","value":2}]}`)
	require.NoError(t, json.Unmarshal(data, s))

	require.Equal(t, map[string]int{"a": 1, "b": 2}, entries(s))
	// imported version is informational; own sequence keeps counting
	require.EqualValues(t, 2, s.Version())

	// a restore retires the previous content like a commit
	require.NoError(t, s.RevertLast())
	require.Equal(t, map[string]int{"old": 9}, entries(s))
}

func TestStorageUnmarshalBusy(t *testing.T) {
	s := mv.New[string, int](nil)
	b, err := s.Block()
	require.NoError(t, err)

	err = json.Unmarshal([]byte(`{"version":0,"entries":[]}`), s)
	require.ErrorIs(t, err, mv.ErrWriterBusy)
	require.NoError(t, b.Rollback())
}

func TestStorageRoundTrip(t *testing.T) {
	src := mv.New[string, int](nil)
	commit(t, src, map[string]int{"a": 1, "b": 2, "c": 3})

	data, err := json.Marshal(src)
	require.NoError(t, err)

	dst := mv.New[string, int](nil)
	require.NoError(t, json.Unmarshal(data, dst))
	require.Equal(t, entries(src), entries(dst))
}

func TestStorageMarshalIgnoresOpenBlock(t *testing.T) {
	s := mv.New[string, int](nil)
	commit(t, s, map[string]int{"a": 1})

	b, err := s.Block()
	require.NoError(t, err)
	require.NoError(t, b.Set("a", 100))

	data, err := json.Marshal(s)
	require.NoError(t, err)
	require.JSONEq(t, `{"version":1,"entries":[{"key":"a","value":1}]}`, string(data))
	require.NoError(t, b.Rollback())
}

func TestCellMarshal(t *testing.T) {
	c := mv.NewCell("genesis", nil)
	data, err := json.Marshal(c)
	require.NoError(t, err)
	require.JSONEq(t, `{"version":0,"value":"genesis"}`, string(data))
}

func TestCellUnmarshal(t *testing.T) {
	c := mv.NewCell("old", nil)

	require.NoError(t, json.Unmarshal([]byte(`{"version":7,"value":"new"}`), c))
	require.Equal(t, "new", c.Load())
	require.EqualValues(t, 1, c.Version())

	require.NoError(t, c.RevertLast())
	require.Equal(t, "old", c.Load())
}

func TestCellRoundTrip(t *testing.T) {
	type state struct {
		Height uint64 `json:"height"`
		Hash   string `json:"hash"`
	}
	src := mv.NewCell(state{Height: 9, Hash: "abc"}, nil)

	data, err := json.Marshal(src)
	require.NoError(t, err)

	dst := mv.NewCell(state{}, nil)
	require.NoError(t, json.Unmarshal(data, dst))
	require.Equal(t, src.Load(), dst.Load())
}
