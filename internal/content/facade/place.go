package facade

import (
	"fmt"

	"voxelcraft.ai/customcontent/internal/content/kinds"
	"voxelcraft.ai/customcontent/internal/content/multiblock"
	"voxelcraft.ai/customcontent/internal/protocol"
	"voxelcraft.ai/customcontent/internal/sim/engine"
)

type Place struct {
	store *multiblock.Store
	audit *Auditor
}

func NewPlace(store *multiblock.Store, audit *Auditor) *Place {
	return &Place{store: store, audit: audit}
}

func (f *Place) Names() []string { return names(f.store.IDs()) }

// Place registers a structure already built at loc. An empty orientation
// means NORTH.
func (f *Place) Place(name string, loc engine.Location, orientation string) Result {
	id, ok := kinds.LookupMultiblockKind(name)
	if !ok {
		return f.record(ActionPlace, name, loc, unknownID("multiblock", name))
	}
	o := multiblock.North
	if orientation != "" {
		if o, ok = multiblock.ParseOrientation(orientation); !ok {
			return f.record(ActionPlace, id.String(), loc, Result{
				Code:      protocol.ErrInvalidTarget,
				ContentID: id.String(),
				Message:   fmt.Sprintf("bad orientation %q", orientation),
			})
		}
	}
	inst, err := f.store.Place(id, loc, o)
	if err != nil {
		return f.record(ActionPlace, id.String(), loc, failed(id.String(), err))
	}
	return f.record(ActionPlace, id.String(), loc, Result{
		OK:         true,
		ContentID:  id.String(),
		InstanceID: inst.ID,
		Entities:   inst.Markers(),
		Message:    fmt.Sprintf("placed %s at %s facing %s", id, loc, o),
	})
}

// Remove drops the structure owning loc.
func (f *Place) Remove(loc engine.Location) Result {
	inst, ok := f.store.InstanceAt(loc)
	if !ok {
		return Result{Code: protocol.ErrNotFound, Message: fmt.Sprintf("no structure at %s", loc)}
	}
	f.store.Unregister(inst.ID)
	return Result{
		OK:         true,
		ContentID:  inst.Kind.String(),
		InstanceID: inst.ID,
		Message:    fmt.Sprintf("removed %s %s", inst.Kind, inst.ID),
	}
}

// RecordRemoval audits a removal reported by the store.
func (f *Place) RecordRemoval(inst *multiblock.Instance, cause string) {
	f.audit.Record(AuditEntry{
		Action:     ActionRemove,
		ContentID:  inst.Kind.String(),
		World:      inst.World,
		Pos:        inst.Anchor.ToArray(),
		InstanceID: inst.ID.String(),
		OK:         true,
		Message:    cause,
	})
}

func (f *Place) record(action, contentID string, loc engine.Location, r Result) Result {
	e := AuditEntry{
		Action:    action,
		ContentID: contentID,
		World:     loc.World,
		Pos:       loc.Pos.ToArray(),
		OK:        r.OK,
		Code:      r.Code,
		Message:   r.Message,
	}
	if r.OK {
		e.InstanceID = r.InstanceID.String()
	}
	f.audit.Record(e)
	return r
}
