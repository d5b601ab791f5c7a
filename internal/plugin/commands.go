package plugin

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"voxelcraft.ai/customcontent/internal/content/facade"
	"voxelcraft.ai/customcontent/internal/protocol"
	"voxelcraft.ai/customcontent/internal/sim/engine"
)

// Execute routes one command to its facade. It must run on the simulation
// goroutine. World edits are served even while custom content is disabled.
func (p *Plugin) Execute(cmd protocol.CommandMsg) protocol.ResultMsg {
	out := protocol.NewResult(cmd)
	out.ServerTick = p.srv.CurrentTick()
	if cmd.Type == protocol.TypeSetBlock || cmd.Type == protocol.TypeFill {
		return p.editBlocks(out, cmd)
	}
	if !p.enabled {
		return fail(out, protocol.ErrDisabled, "custom content is disabled")
	}
	loc := engine.Location{World: cmd.World, Pos: engine.Vec3i{X: cmd.Pos[0], Y: cmd.Pos[1], Z: cmd.Pos[2]}}

	switch cmd.Type {
	case protocol.TypeSpawn:
		if p.spawn == nil {
			return fail(out, protocol.ErrDisabled, "no custom entities declared")
		}
		return fill(out, p.spawn.Spawn(cmd.Name, loc))

	case protocol.TypeGive:
		if p.give == nil {
			return fail(out, protocol.ErrDisabled, "no custom items declared")
		}
		player, ok := p.srv.Player(cmd.Player)
		if !ok {
			return fail(out, protocol.ErrInvalidTarget, fmt.Sprintf("player %q is not online", cmd.Player))
		}
		amount := cmd.Amount
		if amount == 0 {
			amount = 1
		}
		return fill(out, p.give.Give(player, cmd.Name, amount))

	case protocol.TypePlace:
		if p.place == nil {
			return fail(out, protocol.ErrDisabled, "no custom multiblocks declared")
		}
		return fill(out, p.place.Place(cmd.Name, loc, cmd.Orientation))

	case protocol.TypeRemove:
		if p.place == nil {
			return fail(out, protocol.ErrDisabled, "no custom multiblocks declared")
		}
		return fill(out, p.place.Remove(loc))

	case protocol.TypeList:
		return p.list(out, cmd.Category)

	default:
		return fail(out, protocol.ErrBadRequest, fmt.Sprintf("unknown command %q", cmd.Type))
	}
}

// list answers with the completion names of every enabled category, or of
// the one asked for.
func (p *Plugin) list(out protocol.ResultMsg, category string) protocol.ResultMsg {
	all := map[string][]string{}
	if p.spawn != nil {
		all["entity"] = p.spawn.Names()
	}
	if p.give != nil {
		all["item"] = p.give.Names()
	}
	if p.place != nil {
		all["multiblock"] = p.place.Names()
	}
	category = strings.ToLower(strings.TrimSpace(category))
	if category != "" {
		names, ok := all[category]
		if !ok {
			return fail(out, protocol.ErrDisabled, fmt.Sprintf("category %q is not enabled", category))
		}
		all = map[string][]string{category: names}
	}
	out.OK = true
	out.Names = all
	out.Message = fmt.Sprintf("%d categories", len(all))
	return out
}

func fail(out protocol.ResultMsg, code, msg string) protocol.ResultMsg {
	out.OK = false
	out.Code = code
	out.Message = msg
	return out
}

func fill(out protocol.ResultMsg, r facade.Result) protocol.ResultMsg {
	out.OK = r.OK
	out.Code = r.Code
	out.Message = r.Message
	out.ContentID = r.ContentID
	out.Items = r.Items
	for _, id := range r.Entities {
		out.Entities = append(out.Entities, id.String())
	}
	if r.OK && r.InstanceID != uuid.Nil {
		out.InstanceID = r.InstanceID.String()
	}
	return out
}
