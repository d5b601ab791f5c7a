// Package entities registers custom entity kinds, spawns them and recognises
// them again when the host hands back a bare entity.
package entities

import (
	"fmt"
	"io"
	"log"

	"voxelcraft.ai/customcontent/internal/content/errs"
	"voxelcraft.ai/customcontent/internal/content/kinds"
	"voxelcraft.ai/customcontent/internal/content/registry"
	"voxelcraft.ai/customcontent/internal/content/tags"
	"voxelcraft.ai/customcontent/internal/sim/engine"
)

// Definition materializes one entity kind. Generate must not tag what it
// produces; the manager does that for every returned entity. If Generate
// fails it removes whatever it already spawned.
type Definition interface {
	registry.Definition[kinds.EntityKind, *engine.Entity]
	Generate(w *engine.World, pos engine.Vec3i) ([]*engine.Entity, error)
}

// Interacter is implemented by definitions that react to players
// interacting with their entities.
type Interacter interface {
	OnInteract(ev engine.InteractEvent)
}

// Base implements ContentID and Identify. Concrete kinds embed it.
type Base struct {
	id   kinds.EntityKind
	tags *tags.Store
	key  engine.Key
}

func NewBase(id kinds.EntityKind, store *tags.Store, keys tags.Keys) Base {
	return Base{id: id, tags: store, key: keys.Entity}
}

func (b Base) ContentID() kinds.EntityKind { return b.id }

func (b Base) Identify(e *engine.Entity) bool {
	got, ok := tags.ReadID(b.tags, e, b.key, kinds.ParseEntityKind)
	return ok && got == b.id
}

type Manager struct {
	reg    *registry.Registry[kinds.EntityKind, *engine.Entity, Definition]
	tags   *tags.Store
	key    engine.Key
	worlds engine.Worlds
	log    *log.Logger
}

func NewManager(worlds engine.Worlds, store *tags.Store, keys tags.Keys, logger *log.Logger, defs ...Definition) (*Manager, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	m := &Manager{
		reg:    registry.New[kinds.EntityKind, *engine.Entity, Definition]("entity", logger),
		tags:   store,
		key:    keys.Entity,
		worlds: worlds,
		log:    logger,
	}
	for _, d := range defs {
		var id kinds.EntityKind
		if d != nil {
			id = d.ContentID()
		}
		if err := m.reg.Register(id, d); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Manager) IDs() []kinds.EntityKind { return m.reg.IDs() }

func (m *Manager) Resolve(id kinds.EntityKind) (Definition, error) { return m.reg.Resolve(id) }

// Spawn materializes id at loc and stamps every produced entity.
func (m *Manager) Spawn(id kinds.EntityKind, loc engine.Location) ([]*engine.Entity, error) {
	def, err := m.reg.Resolve(id)
	if err != nil {
		return nil, err
	}
	w, ok := m.worlds.World(loc.World)
	if !ok {
		return nil, fmt.Errorf("spawn %s: %q: %w", id, loc.World, errs.ErrUnknownWorld)
	}
	if !w.InBounds(loc.Pos) {
		return nil, fmt.Errorf("spawn %s at %s: %w", id, loc, errs.ErrInvalidTarget)
	}
	out, err := def.Generate(w, loc.Pos)
	if err != nil {
		return nil, fmt.Errorf("spawn %s at %s: %w", id, loc, err)
	}
	for _, e := range out {
		m.tags.Tag(e, m.key, id.String())
	}
	return out, nil
}

// Identify reports which registered kind e is, if any.
func (m *Manager) Identify(e *engine.Entity) (kinds.EntityKind, bool) {
	if !e.Valid() {
		return 0, false
	}
	return m.reg.IdentifyAny(e)
}

// HandleInteract dispatches an interaction to the owning definition. It
// reports whether the entity was a custom one.
func (m *Manager) HandleInteract(ev engine.InteractEvent) bool {
	id, ok := m.Identify(ev.Entity)
	if !ok {
		return false
	}
	def, err := m.reg.Resolve(id)
	if err != nil {
		return false
	}
	if h, ok := def.(Interacter); ok {
		h.OnInteract(ev)
	}
	return true
}
