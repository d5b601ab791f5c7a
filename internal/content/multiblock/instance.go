package multiblock

import (
	"github.com/google/uuid"

	"voxelcraft.ai/customcontent/internal/content/kinds"
	"voxelcraft.ai/customcontent/internal/sim/engine"
)

type State uint8

const (
	Placed State = iota + 1
	Removed
)

func (s State) String() string {
	switch s {
	case Placed:
		return "PLACED"
	case Removed:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

// Instance is one placed structure. Cells are absolute positions in World.
type Instance struct {
	ID          uuid.UUID
	Kind        kinds.MultiblockKind
	World       string
	Anchor      engine.Vec3i
	Orientation Orientation
	Cells       []engine.Vec3i

	state   State
	markers []uuid.UUID
}

func (i *Instance) State() State { return i.state }

func (i *Instance) Location() engine.Location {
	return engine.Location{World: i.World, Pos: i.Anchor}
}

// Markers lists the ids of the entities realized for this instance.
func (i *Instance) Markers() []uuid.UUID {
	out := make([]uuid.UUID, len(i.markers))
	copy(out, i.markers)
	return out
}

func (i *Instance) Record() Record {
	return Record{
		InstanceID:  i.ID.String(),
		ContentID:   i.Kind.String(),
		World:       i.World,
		X:           i.Anchor.X,
		Y:           i.Anchor.Y,
		Z:           i.Anchor.Z,
		Orientation: i.Orientation.String(),
	}
}

// Record is the persisted form of a placed instance.
type Record struct {
	InstanceID  string `json:"instance_id"`
	ContentID   string `json:"content_id"`
	World       string `json:"world"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Z           int    `json:"z"`
	Orientation string `json:"orientation"`
}

// Persister stores the full ordered record list. LoadRecords returns
// (nil, nil) when nothing was saved yet and an error wrapping
// errs.ErrPersistenceCorruption when the saved data cannot be decoded.
type Persister interface {
	SaveRecords(recs []Record) error
	LoadRecords() ([]Record, error)
}
