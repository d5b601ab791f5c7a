// Package multiblock places, tracks and persists custom structures made of
// several world blocks.
package multiblock

import (
	"voxelcraft.ai/customcontent/internal/content/kinds"
	"voxelcraft.ai/customcontent/internal/content/registry"
	"voxelcraft.ai/customcontent/internal/content/tags"
	"voxelcraft.ai/customcontent/internal/sim/engine"
)

// Definition describes one structure kind. Identify recognises the marker
// entities a placed structure realizes. Generate runs after a placement is
// committed and returns those markers untagged; kinds without markers return
// nil.
type Definition interface {
	registry.Definition[kinds.MultiblockKind, *engine.Entity]
	Pattern() Pattern
	Generate(w *engine.World, anchor engine.Vec3i, o Orientation) ([]*engine.Entity, error)
}

type Base struct {
	id      kinds.MultiblockKind
	tags    *tags.Store
	key     engine.Key
	pattern Pattern
}

func NewBase(id kinds.MultiblockKind, store *tags.Store, keys tags.Keys, pattern Pattern) Base {
	return Base{id: id, tags: store, key: keys.Multiblock, pattern: pattern}
}

func (b Base) ContentID() kinds.MultiblockKind { return b.id }
func (b Base) Pattern() Pattern               { return b.pattern }

func (b Base) Identify(e *engine.Entity) bool {
	got, ok := tags.ReadID(b.tags, e, b.key, kinds.ParseMultiblockKind)
	return ok && got == b.id
}
