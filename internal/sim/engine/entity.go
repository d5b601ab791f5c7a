package engine

import "github.com/google/uuid"

// Entity is a live host entity. The zero value is not usable; entities are
// created by World.SpawnEntity.
type Entity struct {
	id         uuid.UUID
	typ        string
	world      *World
	pos        Vec3i
	seq        uint64
	customName string
	data       DataContainer
	removed    bool
}

func (e *Entity) ID() uuid.UUID { return e.id }
func (e *Entity) Type() string  { return e.typ }
func (e *Entity) World() *World { return e.world }
func (e *Entity) Pos() Vec3i    { return e.pos }

func (e *Entity) Location() Location {
	return Location{World: e.world.ID(), Pos: e.pos}
}

func (e *Entity) CustomName() string         { return e.customName }
func (e *Entity) SetCustomName(name string) { e.customName = name }

// Valid reports whether the entity is still present in its world.
func (e *Entity) Valid() bool { return e != nil && !e.removed }

func (e *Entity) PersistentData() *DataContainer {
	if e == nil {
		return nil
	}
	return &e.data
}

func (e *Entity) Teleport(p Vec3i) bool {
	if !e.Valid() || !e.world.InBounds(p) {
		return false
	}
	e.pos = p
	return true
}
