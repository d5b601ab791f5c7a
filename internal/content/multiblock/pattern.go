package multiblock

import (
	"fmt"

	"voxelcraft.ai/customcontent/internal/content/errs"
	"voxelcraft.ai/customcontent/internal/sim/catalogs"
	"voxelcraft.ai/customcontent/internal/sim/engine"
)

// PatternBlock is one required block, relative to the anchor of a structure
// facing NORTH.
type PatternBlock struct {
	Offset engine.Vec3i
	Block  string
}

type Pattern struct {
	Blocks []PatternBlock
}

// Cells returns the absolute positions the pattern occupies, in pattern order.
func (p Pattern) Cells(anchor engine.Vec3i, o Orientation) []engine.Vec3i {
	out := make([]engine.Vec3i, len(p.Blocks))
	for i, b := range p.Blocks {
		out[i] = anchor.Add(o.Rotate(b.Offset))
	}
	return out
}

// Match checks the live blocks of w against the pattern and reports the first
// cell that differs.
func (p Pattern) Match(w *engine.World, anchor engine.Vec3i, o Orientation) error {
	if w == nil {
		return fmt.Errorf("no world: %w", errs.ErrInvalidTarget)
	}
	if len(p.Blocks) == 0 {
		return fmt.Errorf("empty pattern: %w", errs.ErrPatternMismatch)
	}
	for _, b := range p.Blocks {
		pos := anchor.Add(o.Rotate(b.Offset))
		if !w.InBounds(pos) {
			return fmt.Errorf("cell %s outside world %s: %w", pos, w.ID(), errs.ErrInvalidTarget)
		}
		if got := w.BlockAt(pos); got != b.Block {
			return fmt.Errorf("cell %s: want %s, found %s: %w", pos, b.Block, got, errs.ErrPatternMismatch)
		}
	}
	return nil
}

// Validate rejects empty patterns, repeated offsets and blocks the host does
// not know.
func (p Pattern) Validate(blocks *catalogs.BlockCatalog) error {
	if len(p.Blocks) == 0 {
		return fmt.Errorf("empty pattern: %w", errs.ErrConfiguration)
	}
	seen := make(map[engine.Vec3i]struct{}, len(p.Blocks))
	for _, b := range p.Blocks {
		if _, dup := seen[b.Offset]; dup {
			return fmt.Errorf("offset %s listed twice: %w", b.Offset, errs.ErrConfiguration)
		}
		seen[b.Offset] = struct{}{}
		if blocks != nil && !blocks.Has(b.Block) {
			return fmt.Errorf("offset %s: unknown block %q: %w", b.Offset, b.Block, errs.ErrConfiguration)
		}
	}
	return nil
}
