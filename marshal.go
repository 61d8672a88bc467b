package mv

import "encoding/json"

type storageEntry[K, V any] struct {
	Key   K `json:"key"`
	Value V `json:"value"`
}

type storageExport[K, V any] struct {
	Version uint64               `json:"version"`
	Entries []storageEntry[K, V] `json:"entries"`
}

type cellExport[V any] struct {
	Version uint64 `json:"version"`
	Value   V      `json:"value"`
}

// MarshalJSON exports a point-in-time snapshot: the pinned version and
// every entry in key order.
func (s *Storage[K, V]) MarshalJSON() ([]byte, error) {
	v := s.View()
	defer v.Close()
	export := storageExport[K, V]{
		Version: v.Version(),
		Entries: make([]storageEntry[K, V], 0, v.Len()),
	}
	v.Ascend(func(key K, value V) bool {
		export.Entries = append(export.Entries, storageEntry[K, V]{Key: key, Value: value})
		return true
	})
	return json.Marshal(export)
}

// UnmarshalJSON replaces the content with the imported entries,
// published as the next generation. The previous content is retired
// to history like a commit, so a restore can be reverted. The imported
// version number is informational; sequence numbers stay monotonic.
// Like Block, restoring contends for the write gate.
func (s *Storage[K, V]) UnmarshalJSON(data []byte) error {
	var export storageExport[K, V]
	if err := json.Unmarshal(data, &export); err != nil {
		return err
	}
	locker, err := s.gate.acquire()
	if err != nil {
		return err
	}
	defer s.gate.release(locker)
	t := s.newTree()
	for _, e := range export.Entries {
		t.ReplaceOrInsert(item[K, V]{key: e.Key, value: e.Value})
	}
	s.commit(t)
	return nil
}

// MarshalJSON exports the pinned version and value.
func (c *Cell[V]) MarshalJSON() ([]byte, error) {
	v := c.View()
	defer v.Close()
	return json.Marshal(cellExport[V]{Version: v.Version(), Value: v.Value()})
}

// UnmarshalJSON publishes the imported value as the next generation,
// retiring the previous one to history like a commit.
func (c *Cell[V]) UnmarshalJSON(data []byte) error {
	var export cellExport[V]
	if err := json.Unmarshal(data, &export); err != nil {
		return err
	}
	locker, err := c.gate.acquire()
	if err != nil {
		return err
	}
	defer c.gate.release(locker)
	c.commit(export.Value)
	return nil
}
