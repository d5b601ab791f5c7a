package multiblock

import (
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"

	"voxelcraft.ai/customcontent/internal/content/errs"
	"voxelcraft.ai/customcontent/internal/content/kinds"
	"voxelcraft.ai/customcontent/internal/content/registry"
	"voxelcraft.ai/customcontent/internal/content/tags"
	"voxelcraft.ai/customcontent/internal/sim/catalogs"
	"voxelcraft.ai/customcontent/internal/sim/engine"
)

// Removal causes passed to Config.OnRemove.
const (
	CauseBroken   = "BROKEN"
	CauseExplicit = "REMOVED"
)

type Config struct {
	Tags   *tags.Store
	Keys   tags.Keys
	Worlds engine.Worlds
	// Blocks, when set, is used to validate patterns at registration.
	Blocks    *catalogs.BlockCatalog
	Persister Persister
	Logger    *log.Logger

	// NewID defaults to uuid.New.
	NewID func() uuid.UUID
	// OnRemove, when set, is called after an instance left the store.
	OnRemove func(inst *Instance, cause string)
}

type cell struct {
	world string
	pos   engine.Vec3i
}

// Store owns every placed instance and the cell index over them. Like the
// host world it is only touched from the simulation goroutine.
type Store struct {
	cfg Config
	reg *registry.Registry[kinds.MultiblockKind, *engine.Entity, Definition]
	log *log.Logger

	instances []*Instance
	byID      map[uuid.UUID]*Instance
	cells     map[cell]*Instance
}

type LoadReport struct {
	Loaded  int
	Dropped int
	// Corrupt is set when the persisted data could not be read at all and
	// the store started empty.
	Corrupt bool
}

func NewStore(cfg Config, defs ...Definition) (*Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	if cfg.Tags == nil {
		cfg.Tags = tags.New()
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.New
	}
	if cfg.Worlds == nil {
		return nil, fmt.Errorf("multiblock store: no worlds: %w", errs.ErrConfiguration)
	}
	s := &Store{
		cfg:   cfg,
		reg:   registry.New[kinds.MultiblockKind, *engine.Entity, Definition]("multiblock", cfg.Logger),
		log:   cfg.Logger,
		byID:  map[uuid.UUID]*Instance{},
		cells: map[cell]*Instance{},
	}
	for _, d := range defs {
		if err := s.register(d); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) register(d Definition) error {
	var id kinds.MultiblockKind
	if d != nil {
		id = d.ContentID()
		if err := d.Pattern().Validate(s.cfg.Blocks); err != nil {
			err = fmt.Errorf("multiblock %s: %w", id, err)
			s.log.Printf("register: %v", err)
			return err
		}
	}
	return s.reg.Register(id, d)
}

func (s *Store) IDs() []kinds.MultiblockKind { return s.reg.IDs() }

func (s *Store) Resolve(id kinds.MultiblockKind) (Definition, error) { return s.reg.Resolve(id) }

// Place validates the live blocks at loc against the pattern of id and, when
// they match and no cell belongs to another instance, records a new instance.
// Nothing is recorded on failure.
func (s *Store) Place(id kinds.MultiblockKind, loc engine.Location, o Orientation) (*Instance, error) {
	def, err := s.reg.Resolve(id)
	if err != nil {
		return nil, err
	}
	if !o.Valid() {
		return nil, fmt.Errorf("place %s: orientation %s: %w", id, o, errs.ErrInvalidTarget)
	}
	w, ok := s.cfg.Worlds.World(loc.World)
	if !ok {
		return nil, fmt.Errorf("place %s: %q: %w", id, loc.World, errs.ErrUnknownWorld)
	}
	p := def.Pattern()
	if err := p.Match(w, loc.Pos, o); err != nil {
		return nil, fmt.Errorf("place %s at %s facing %s: %w", id, loc, o, err)
	}
	cells := p.Cells(loc.Pos, o)
	if owner := s.firstOwner(w.ID(), cells); owner != nil {
		return nil, fmt.Errorf("place %s at %s: cells overlap %s %s: %w", id, loc, owner.Kind, owner.ID, errs.ErrOverlapConflict)
	}

	inst := &Instance{
		ID:          s.cfg.NewID(),
		Kind:        id,
		World:       w.ID(),
		Anchor:      loc.Pos,
		Orientation: o,
		Cells:       cells,
		state:       Placed,
	}
	s.commit(inst)
	s.realize(def, w, inst)
	return inst, nil
}

func (s *Store) firstOwner(world string, cells []engine.Vec3i) *Instance {
	for _, c := range cells {
		if owner := s.cells[cell{world, c}]; owner != nil {
			return owner
		}
	}
	return nil
}

func (s *Store) commit(inst *Instance) {
	s.instances = append(s.instances, inst)
	s.byID[inst.ID] = inst
	for _, c := range inst.Cells {
		s.cells[cell{inst.World, c}] = inst
	}
}

func (s *Store) realize(def Definition, w *engine.World, inst *Instance) {
	markers, err := def.Generate(w, inst.Anchor, inst.Orientation)
	if err != nil {
		s.log.Printf("realize %s %s: %v", inst.Kind, inst.ID, err)
	}
	s.adopt(inst, markers)
}

func (s *Store) adopt(inst *Instance, markers []*engine.Entity) {
	for _, e := range markers {
		if !e.Valid() {
			continue
		}
		s.cfg.Tags.Tag(e, s.cfg.Keys.Multiblock, inst.Kind.String())
		s.cfg.Tags.Tag(e, s.cfg.Keys.Instance, inst.ID.String())
		inst.markers = append(inst.markers, e.ID())
	}
}

func (s *Store) InstanceAt(loc engine.Location) (*Instance, bool) {
	inst, ok := s.cells[cell{loc.World, loc.Pos}]
	return inst, ok
}

func (s *Store) Instance(id uuid.UUID) (*Instance, bool) {
	inst, ok := s.byID[id]
	return inst, ok
}

// Instances returns the live instances in placement order.
func (s *Store) Instances() []*Instance {
	out := make([]*Instance, len(s.instances))
	copy(out, s.instances)
	return out
}

func (s *Store) Len() int { return len(s.instances) }

// HandleBlockChange removes the instance owning the changed cell when its
// pattern no longer matches. It reports whether an instance was removed.
func (s *Store) HandleBlockChange(ev engine.BlockChangeEvent) bool {
	if ev.World == nil {
		return false
	}
	owner := s.cells[cell{ev.World.ID(), ev.Pos}]
	if owner == nil {
		return false
	}
	def, err := s.reg.Resolve(owner.Kind)
	if err == nil && def.Pattern().Match(ev.World, owner.Anchor, owner.Orientation) == nil {
		return false
	}
	s.remove(owner, CauseBroken)
	return true
}

// Remove drops the instance owning loc, if any.
func (s *Store) Remove(loc engine.Location) bool {
	inst, ok := s.cells[cell{loc.World, loc.Pos}]
	if !ok {
		return false
	}
	s.remove(inst, CauseExplicit)
	return true
}

func (s *Store) Unregister(id uuid.UUID) bool {
	inst, ok := s.byID[id]
	if !ok {
		return false
	}
	s.remove(inst, CauseExplicit)
	return true
}

func (s *Store) remove(inst *Instance, cause string) {
	for _, c := range inst.Cells {
		if s.cells[cell{inst.World, c}] == inst {
			delete(s.cells, cell{inst.World, c})
		}
	}
	delete(s.byID, inst.ID)
	for i, v := range s.instances {
		if v == inst {
			s.instances = append(s.instances[:i], s.instances[i+1:]...)
			break
		}
	}
	s.removeMarkers(inst)
	inst.state = Removed
	if s.cfg.OnRemove != nil {
		s.cfg.OnRemove(inst, cause)
	}
}

func (s *Store) removeMarkers(inst *Instance) {
	if w, ok := s.cfg.Worlds.World(inst.World); ok {
		for _, id := range inst.markers {
			if e, ok := w.Entity(id); ok {
				w.RemoveEntity(e)
			}
		}
	}
	inst.markers = nil
}

// dropMarkers removes world entities still tagged with the instance id of a
// record that could not be restored. Markers of a live instance with the same
// id are left alone.
func (s *Store) dropMarkers(r Record) {
	id, err := uuid.Parse(r.InstanceID)
	if err != nil {
		return
	}
	if _, live := s.byID[id]; live {
		return
	}
	w, ok := s.cfg.Worlds.World(r.World)
	if !ok {
		return
	}
	for _, e := range s.existingMarkers(w, id) {
		w.RemoveEntity(e)
	}
}

// Records returns the persisted form of every live instance in placement
// order.
func (s *Store) Records() []Record {
	out := make([]Record, 0, len(s.instances))
	for _, inst := range s.instances {
		out = append(out, inst.Record())
	}
	return out
}

// Save writes all live instances through the persister, replacing whatever
// was stored before. Without a persister it does nothing.
func (s *Store) Save() error {
	if s.cfg.Persister == nil {
		return nil
	}
	recs := s.Records()
	if err := s.cfg.Persister.SaveRecords(recs); err != nil {
		return fmt.Errorf("save placements: %w", err)
	}
	return nil
}

// Load replaces the in-memory placements with the persisted ones. Records
// that cannot be restored are dropped with a log line and their leftover
// markers removed; unreadable data leaves the store empty. Without a persister
// Load does nothing.
func (s *Store) Load() (LoadReport, error) {
	var rep LoadReport
	if s.cfg.Persister == nil {
		return rep, nil
	}
	s.reset()
	recs, err := s.cfg.Persister.LoadRecords()
	if err != nil {
		s.log.Printf("load placements: %v; starting empty", err)
		rep.Corrupt = true
		return rep, nil
	}
	for i, r := range recs {
		if err := s.restore(r); err != nil {
			s.log.Printf("load placements: drop record %d (%s %s): %v", i, r.ContentID, r.InstanceID, err)
			s.dropMarkers(r)
			rep.Dropped++
			continue
		}
		rep.Loaded++
	}
	return rep, nil
}

// reset forgets every instance and removes its markers from the world.
func (s *Store) reset() {
	for _, inst := range s.instances {
		s.removeMarkers(inst)
		inst.state = Removed
	}
	s.instances = nil
	s.byID = map[uuid.UUID]*Instance{}
	s.cells = map[cell]*Instance{}
}

func (s *Store) restore(r Record) error {
	id, err := uuid.Parse(r.InstanceID)
	if err != nil {
		return fmt.Errorf("instance id: %w", errs.ErrPersistenceCorruption)
	}
	if _, dup := s.byID[id]; dup {
		return fmt.Errorf("instance id repeated: %w", errs.ErrPersistenceCorruption)
	}
	kind, ok := kinds.ParseMultiblockKind(r.ContentID)
	if !ok {
		return fmt.Errorf("unknown kind: %w", errs.ErrNotFound)
	}
	def, err := s.reg.Resolve(kind)
	if err != nil {
		return err
	}
	o, ok := ParseOrientation(r.Orientation)
	if !ok {
		return fmt.Errorf("orientation %q: %w", r.Orientation, errs.ErrPersistenceCorruption)
	}
	w, ok := s.cfg.Worlds.World(r.World)
	if !ok {
		return fmt.Errorf("%q: %w", r.World, errs.ErrUnknownWorld)
	}
	anchor := engine.Vec3i{X: r.X, Y: r.Y, Z: r.Z}
	p := def.Pattern()
	if err := p.Match(w, anchor, o); err != nil {
		return err
	}
	cells := p.Cells(anchor, o)
	if owner := s.firstOwner(w.ID(), cells); owner != nil {
		return fmt.Errorf("cells overlap %s: %w", owner.ID, errs.ErrOverlapConflict)
	}
	inst := &Instance{
		ID:          id,
		Kind:        kind,
		World:       w.ID(),
		Anchor:      anchor,
		Orientation: o,
		Cells:       cells,
		state:       Placed,
	}
	s.commit(inst)
	if existing := s.existingMarkers(w, inst.ID); len(existing) > 0 {
		for _, e := range existing {
			inst.markers = append(inst.markers, e.ID())
		}
		return nil
	}
	s.realize(def, w, inst)
	return nil
}

// existingMarkers finds marker entities that survived in the world from an
// earlier run.
func (s *Store) existingMarkers(w *engine.World, id uuid.UUID) []*engine.Entity {
	var out []*engine.Entity
	want := id.String()
	for _, e := range w.Entities() {
		if got, ok := s.cfg.Tags.Read(e, s.cfg.Keys.Instance); ok && got == want {
			out = append(out, e)
		}
	}
	return out
}
