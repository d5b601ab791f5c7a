// Package tags stamps host objects with their custom content identity and
// reads it back. Every identity check goes through Store so that a nil
// object and a missing tag are handled in one place.
package tags

import (
	"fmt"

	"voxelcraft.ai/customcontent/internal/sim/engine"
)

// Keys are the namespaced metadata keys used per category.
type Keys struct {
	Entity     engine.Key
	Item       engine.Key
	Multiblock engine.Key
	// Instance carries a multiblock instance id on its marker entities.
	Instance engine.Key
}

func NewKeys(namespace string) (Keys, error) {
	var k Keys
	for _, f := range []struct {
		dst  *engine.Key
		name string
	}{
		{&k.Entity, "custom_entity_id"},
		{&k.Item, "custom_item_id"},
		{&k.Multiblock, "custom_multiblock_id"},
		{&k.Instance, "custom_multiblock_instance"},
	} {
		key, err := engine.NewKey(namespace, f.name)
		if err != nil {
			return Keys{}, fmt.Errorf("tag keys: %w", err)
		}
		*f.dst = key
	}
	return k, nil
}

type Store struct{}

func New() *Store { return &Store{} }

// Tag sets value under key. A nil holder is ignored.
func (s *Store) Tag(h engine.Holder, key engine.Key, value string) {
	if d := data(h); d != nil {
		d.Set(key, value)
	}
}

// Read returns the value under key, or false when the holder is nil or never
// carried the key.
func (s *Store) Read(h engine.Holder, key engine.Key) (string, bool) {
	return data(h).Get(key)
}

func (s *Store) Clear(h engine.Holder, key engine.Key) {
	data(h).Remove(key)
}

// ReadID reads the tag under key and parses it into a typed identifier. An
// absent tag and an unparsable one are both reported as false.
func ReadID[K any](s *Store, h engine.Holder, key engine.Key, parse func(string) (K, bool)) (K, bool) {
	var zero K
	raw, ok := s.Read(h, key)
	if !ok {
		return zero, false
	}
	return parse(raw)
}

func data(h engine.Holder) *engine.DataContainer {
	if h == nil {
		return nil
	}
	return h.PersistentData()
}
