package facade

import (
	"fmt"

	"voxelcraft.ai/customcontent/internal/content/items"
	"voxelcraft.ai/customcontent/internal/content/kinds"
	"voxelcraft.ai/customcontent/internal/sim/engine"
)

type Give struct {
	m     *items.Manager
	audit *Auditor
}

func NewGive(m *items.Manager, audit *Auditor) *Give {
	return &Give{m: m, audit: audit}
}

func (f *Give) Names() []string { return names(f.m.IDs()) }

func (f *Give) Give(p *engine.Player, name string, amount int) Result {
	id, ok := kinds.LookupItemKind(name)
	if !ok {
		return f.record(p, name, amount, unknownID("item", name))
	}
	out, err := f.m.Give(p, id, amount)
	if err != nil {
		return f.record(p, id.String(), amount, failed(id.String(), err))
	}
	total := 0
	for _, s := range out {
		total += s.Amount
	}
	return f.record(p, id.String(), amount, Result{
		OK:        true,
		ContentID: id.String(),
		Items:     total,
		Message:   fmt.Sprintf("gave %d %s to %s", total, id, p.Name()),
	})
}

func (f *Give) record(p *engine.Player, contentID string, amount int, r Result) Result {
	e := AuditEntry{
		Action:    ActionGive,
		ContentID: contentID,
		Amount:    amount,
		OK:        r.OK,
		Code:      r.Code,
		Message:   r.Message,
	}
	if p != nil {
		loc := p.Location()
		e.Actor = p.Name()
		e.World = loc.World
		e.Pos = loc.Pos.ToArray()
	}
	f.audit.Record(e)
	return r
}
