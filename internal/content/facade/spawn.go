package facade

import (
	"fmt"

	"voxelcraft.ai/customcontent/internal/content/entities"
	"voxelcraft.ai/customcontent/internal/content/kinds"
	"voxelcraft.ai/customcontent/internal/sim/engine"
)

type Spawn struct {
	m     *entities.Manager
	audit *Auditor
}

func NewSpawn(m *entities.Manager, audit *Auditor) *Spawn {
	return &Spawn{m: m, audit: audit}
}

// Names lists the spawnable ids for completion.
func (f *Spawn) Names() []string {
	return names(f.m.IDs())
}

func (f *Spawn) Spawn(name string, loc engine.Location) Result {
	id, ok := kinds.LookupEntityKind(name)
	if !ok {
		return f.record(name, loc, unknownID("entity", name))
	}
	out, err := f.m.Spawn(id, loc)
	if err != nil {
		return f.record(id.String(), loc, failed(id.String(), err))
	}
	r := Result{
		OK:        true,
		ContentID: id.String(),
		Message:   fmt.Sprintf("spawned %s (%d entities) at %s", id, len(out), loc),
	}
	for _, e := range out {
		r.Entities = append(r.Entities, e.ID())
	}
	return f.record(id.String(), loc, r)
}

func (f *Spawn) record(contentID string, loc engine.Location, r Result) Result {
	f.audit.Record(AuditEntry{
		Action:    ActionSpawn,
		ContentID: contentID,
		World:     loc.World,
		Pos:       loc.Pos.ToArray(),
		Amount:    len(r.Entities),
		OK:        r.OK,
		Code:      r.Code,
		Message:   r.Message,
	})
	return r
}

func names[K fmt.Stringer](ids []K) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

