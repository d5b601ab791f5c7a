package plugin

import (
	"fmt"

	"voxelcraft.ai/customcontent/internal/protocol"
	"voxelcraft.ai/customcontent/internal/sim/engine"
)

// MaxFill caps the volume of one FILL command.
const MaxFill = 32 * 32 * 32

// editBlocks applies SET_BLOCK and FILL to the host world. Both are checked
// completely before the first block changes, so a rejected command edits
// nothing. Block changes reach the multiblock store through the engine's
// block-change hook like any other edit.
func (p *Plugin) editBlocks(out protocol.ResultMsg, cmd protocol.CommandMsg) protocol.ResultMsg {
	w, ok := p.srv.World(cmd.World)
	if !ok {
		return fail(out, protocol.ErrWorldNotFound, fmt.Sprintf("unknown world %q", cmd.World))
	}
	if !p.srv.Catalogs().Blocks.Has(cmd.Block) {
		return fail(out, protocol.ErrInvalidTarget, fmt.Sprintf("unknown block %q", cmd.Block))
	}
	a := engine.Vec3i{X: cmd.Pos[0], Y: cmd.Pos[1], Z: cmd.Pos[2]}
	b := a
	if cmd.Type == protocol.TypeFill {
		b = engine.Vec3i{X: cmd.To[0], Y: cmd.To[1], Z: cmd.To[2]}
	}
	if !w.InBounds(a) || !w.InBounds(b) {
		return fail(out, protocol.ErrInvalidTarget, fmt.Sprintf("%s..%s is outside the build height", a, b))
	}
	n := span(a.X, b.X) * span(a.Y, b.Y) * span(a.Z, b.Z)
	if n > MaxFill {
		return fail(out, protocol.ErrInvalidTarget, fmt.Sprintf("fill of %d blocks exceeds %d", n, MaxFill))
	}
	if err := w.Fill(a, b, cmd.Block); err != nil {
		return fail(out, protocol.ErrInternal, err.Error())
	}
	out.OK = true
	out.Blocks = n
	out.Message = fmt.Sprintf("set %d %s in %s", n, cmd.Block, w.ID())
	return out
}

func span(a, b int) int {
	if a > b {
		return a - b + 1
	}
	return b - a + 1
}
