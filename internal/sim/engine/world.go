package engine

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"voxelcraft.ai/customcontent/internal/sim/catalogs"
)

type World struct {
	id     string
	minY   int
	maxY   int
	blocks *catalogs.BlockCatalog
	types  *catalogs.EntityCatalog
	chunks *ChunkStore

	entities map[uuid.UUID]*Entity
	nextSeq  uint64

	notify func(BlockChangeEvent)
}

func (w *World) ID() string { return w.id }

func (w *World) InBounds(p Vec3i) bool {
	return p.Y >= w.minY && p.Y < w.maxY
}

// BlockAt returns the block type name at p. Positions outside the build
// height read as AIR.
func (w *World) BlockAt(p Vec3i) string {
	if !w.InBounds(p) {
		return "AIR"
	}
	return w.blocks.Palette[w.chunks.GetBlock(p)]
}

// SetBlock changes the block at p and notifies block-change listeners when
// the stored type actually changed.
func (w *World) SetBlock(p Vec3i, block string) error {
	if !w.InBounds(p) {
		return fmt.Errorf("set block %s in %s: out of bounds", p, w.id)
	}
	bid, ok := w.blocks.Index[block]
	if !ok {
		return fmt.Errorf("set block %s in %s: unknown block %q", p, w.id, block)
	}
	old := w.chunks.SetBlock(p, bid)
	if old == bid {
		return nil
	}
	if w.notify != nil {
		w.notify(BlockChangeEvent{
			World: w,
			Pos:   p,
			From:  w.blocks.Palette[old],
			To:    block,
		})
	}
	return nil
}

// Fill sets every block in the inclusive box [a,b].
func (w *World) Fill(a, b Vec3i, block string) error {
	lo := Vec3i{X: min(a.X, b.X), Y: min(a.Y, b.Y), Z: min(a.Z, b.Z)}
	hi := Vec3i{X: max(a.X, b.X), Y: max(a.Y, b.Y), Z: max(a.Z, b.Z)}
	for y := lo.Y; y <= hi.Y; y++ {
		for z := lo.Z; z <= hi.Z; z++ {
			for x := lo.X; x <= hi.X; x++ {
				if err := w.SetBlock(Vec3i{X: x, Y: y, Z: z}, block); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (w *World) SpawnEntity(typ string, p Vec3i) (*Entity, error) {
	if !w.types.Has(typ) {
		return nil, fmt.Errorf("spawn in %s: unknown entity type %q", w.id, typ)
	}
	if !w.InBounds(p) {
		return nil, fmt.Errorf("spawn %s in %s: %s out of bounds", typ, w.id, p)
	}
	w.nextSeq++
	e := &Entity{
		id:    uuid.New(),
		typ:   typ,
		world: w,
		pos:   p,
		seq:   w.nextSeq,
	}
	w.entities[e.id] = e
	return e, nil
}

func (w *World) RemoveEntity(e *Entity) bool {
	if e == nil || e.world != w {
		return false
	}
	if _, ok := w.entities[e.id]; !ok {
		return false
	}
	delete(w.entities, e.id)
	e.removed = true
	return true
}

func (w *World) Entity(id uuid.UUID) (*Entity, bool) {
	e, ok := w.entities[id]
	return e, ok
}

// Entities lists live entities in spawn order.
func (w *World) Entities() []*Entity {
	out := make([]*Entity, 0, len(w.entities))
	for _, e := range w.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}
