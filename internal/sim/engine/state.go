package engine

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// WorldState is the persistent form of one world: its non-empty chunks and
// live entities. Chunk block ids index Palette, so a state written under one
// block catalog can be restored under another.
type WorldState struct {
	ID       string
	Palette  []string
	Chunks   []ChunkState
	Entities []EntityState
}

type ChunkState struct {
	CX, CY, CZ int
	Blocks     []uint16
}

type EntityState struct {
	ID         uuid.UUID
	Type       string
	Pos        Vec3i
	CustomName string
	Data       map[string]string
}

// ImportStats counts what a restore kept and what it had to substitute.
type ImportStats struct {
	Worlds   int
	Chunks   int
	Entities int
	// ReplacedBlocks counts blocks whose type is gone from the catalog; they
	// are restored as AIR.
	ReplacedBlocks int
	// Skipped counts worlds that are not configured and entities whose type
	// is gone or whose position is out of bounds.
	Skipped int
}

func (w *World) Export() WorldState {
	st := WorldState{ID: w.id, Palette: append([]string(nil), w.blocks.Palette...)}
	keys := make([]ChunkKey, 0, len(w.chunks.Chunks))
	for k := range w.chunks.Chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.CY != b.CY {
			return a.CY < b.CY
		}
		if a.CZ != b.CZ {
			return a.CZ < b.CZ
		}
		return a.CX < b.CX
	})
	for _, k := range keys {
		ch := w.chunks.Chunks[k]
		st.Chunks = append(st.Chunks, ChunkState{CX: k.CX, CY: k.CY, CZ: k.CZ, Blocks: append([]uint16(nil), ch.Blocks...)})
	}
	for _, e := range w.Entities() {
		es := EntityState{ID: e.id, Type: e.typ, Pos: e.pos, CustomName: e.customName}
		for _, k := range e.data.Keys() {
			if es.Data == nil {
				es.Data = map[string]string{}
			}
			v, _ := e.data.Get(k)
			es.Data[k.String()] = v
		}
		st.Entities = append(st.Entities, es)
	}
	return st
}

// Import replaces the blocks and entities of w with st. No block-change
// events fire. A malformed chunk fails the whole import and leaves w as it
// was.
func (w *World) Import(st WorldState) (ImportStats, error) {
	var stats ImportStats
	if st.ID != w.id {
		return stats, fmt.Errorf("import %s: state is for world %q", w.id, st.ID)
	}
	remap := make([]uint16, len(st.Palette))
	replaced := make([]bool, len(st.Palette))
	for i, name := range st.Palette {
		if id, ok := w.blocks.Index[name]; ok {
			remap[i] = id
			continue
		}
		remap[i] = w.chunks.Air
		replaced[i] = true
	}

	chunks := NewChunkStore(w.chunks.Air)
	for _, cs := range st.Chunks {
		if len(cs.Blocks) != chunkSize*chunkSize*chunkSize {
			return stats, fmt.Errorf("import %s: chunk (%d,%d,%d) has %d blocks", w.id, cs.CX, cs.CY, cs.CZ, len(cs.Blocks))
		}
		k := ChunkKey{CX: cs.CX, CY: cs.CY, CZ: cs.CZ}
		if _, dup := chunks.Chunks[k]; dup {
			return stats, fmt.Errorf("import %s: chunk (%d,%d,%d) repeated", w.id, cs.CX, cs.CY, cs.CZ)
		}
		ch := chunks.newChunk(k)
		for i, b := range cs.Blocks {
			if int(b) >= len(remap) {
				return stats, fmt.Errorf("import %s: chunk (%d,%d,%d): block id %d outside palette", w.id, cs.CX, cs.CY, cs.CZ, b)
			}
			if replaced[b] {
				stats.ReplacedBlocks++
			}
			ch.Blocks[i] = remap[b]
			if remap[b] != chunks.Air {
				ch.nonAir++
			}
		}
		if ch.nonAir == 0 {
			delete(chunks.Chunks, k)
			continue
		}
		stats.Chunks++
	}

	entities := map[uuid.UUID]*Entity{}
	var seq uint64
	for _, es := range st.Entities {
		if !w.types.Has(es.Type) || !w.InBounds(es.Pos) {
			stats.Skipped++
			continue
		}
		if _, dup := entities[es.ID]; dup || es.ID == uuid.Nil {
			stats.Skipped++
			continue
		}
		seq++
		e := &Entity{id: es.ID, typ: es.Type, world: w, pos: es.Pos, seq: seq, customName: es.CustomName}
		for k, v := range es.Data {
			if key, err := ParseKey(k); err == nil {
				e.data.Set(key, v)
			}
		}
		entities[e.id] = e
		stats.Entities++
	}

	for _, e := range w.entities {
		e.removed = true
	}
	w.chunks = chunks
	w.entities = entities
	w.nextSeq = seq
	stats.Worlds = 1
	return stats, nil
}

// ExportWorlds captures every world in configuration order. It must run on
// the simulation goroutine or while Run is not running.
func (s *Server) ExportWorlds() []WorldState {
	out := make([]WorldState, 0, len(s.cfg.Worlds))
	for _, w := range s.Worlds() {
		out = append(out, w.Export())
	}
	return out
}

// ImportWorlds restores the given states into the matching configured worlds.
// States of unknown worlds are skipped. The first malformed state stops the
// import; worlds restored before it keep their new contents.
func (s *Server) ImportWorlds(states []WorldState) (ImportStats, error) {
	var total ImportStats
	for _, st := range states {
		w, ok := s.worlds[st.ID]
		if !ok {
			total.Skipped++
			continue
		}
		got, err := w.Import(st)
		if err != nil {
			return total, err
		}
		total.Worlds += got.Worlds
		total.Chunks += got.Chunks
		total.Entities += got.Entities
		total.ReplacedBlocks += got.ReplacedBlocks
		total.Skipped += got.Skipped
	}
	return total, nil
}
