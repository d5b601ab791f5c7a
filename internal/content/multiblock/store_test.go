package multiblock

import (
	"errors"
	"fmt"
	"testing"

	"voxelcraft.ai/customcontent/internal/content/errs"
	"voxelcraft.ai/customcontent/internal/content/kinds"
	"voxelcraft.ai/customcontent/internal/content/tags"
	"voxelcraft.ai/customcontent/internal/sim/catalogs"
	"voxelcraft.ai/customcontent/internal/sim/engine"
)

// altar is a 3x3 floor of STONE around a GOLD_BLOCK with one marker above
// the centre. pillar is a two-high STONE column without markers.
type altar struct{ Base }

func (a altar) Generate(w *engine.World, anchor engine.Vec3i, _ Orientation) ([]*engine.Entity, error) {
	e, err := w.SpawnEntity("ARMOR_STAND", anchor.Add(engine.Vec3i{Y: 1}))
	if err != nil {
		return nil, err
	}
	return []*engine.Entity{e}, nil
}

type pillar struct{ Base }

func (pillar) Generate(*engine.World, engine.Vec3i, Orientation) ([]*engine.Entity, error) {
	return nil, nil
}

func altarPattern() Pattern {
	var p Pattern
	for dz := -1; dz <= 1; dz++ {
		for dx := -1; dx <= 1; dx++ {
			b := "STONE"
			if dx == 0 && dz == 0 {
				b = "GOLD_BLOCK"
			}
			p.Blocks = append(p.Blocks, PatternBlock{Offset: engine.Vec3i{X: dx, Z: dz}, Block: b})
		}
	}
	return p
}

type memPersister struct {
	recs []Record
	err  error
}

func (m *memPersister) SaveRecords(recs []Record) error {
	m.recs = append([]Record(nil), recs...)
	return nil
}

func (m *memPersister) LoadRecords() ([]Record, error) { return m.recs, m.err }

type fixture struct {
	srv   *engine.Server
	world *engine.World
	store *Store
	tags  *tags.Store
	keys  tags.Keys
	disk  *memPersister
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cats, err := catalogs.Build(
		[]catalogs.BlockDef{{ID: "AIR"}, {ID: "STONE"}, {ID: "GOLD_BLOCK"}, {ID: "DIRT"}},
		nil,
		[]catalogs.EntityTypeDef{{ID: "ARMOR_STAND"}},
	)
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	srv, err := engine.NewServer(engine.Config{Worlds: []string{"world"}, MinY: 0, MaxY: 64}, cats)
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	keys, _ := tags.NewKeys("test")
	f := &fixture{srv: srv, tags: tags.New(), keys: keys, disk: &memPersister{}}
	f.world, _ = srv.World("world")
	f.store = f.newStore(t)
	srv.OnBlockChange(func(ev engine.BlockChangeEvent) { f.store.HandleBlockChange(ev) })
	return f
}

func (f *fixture) newStore(t *testing.T) *Store {
	t.Helper()
	shrine := Pattern{Blocks: []PatternBlock{
		{Offset: engine.Vec3i{}, Block: "STONE"},
		{Offset: engine.Vec3i{Y: 1}, Block: "STONE"},
	}}
	s, err := NewStore(Config{
		Tags:      f.tags,
		Keys:      f.keys,
		Worlds:    f.srv,
		Blocks:    &f.srv.Catalogs().Blocks,
		Persister: f.disk,
	},
		altar{NewBase(kinds.Altar3x3, f.tags, f.keys, altarPattern())},
		pillar{NewBase(kinds.ShrinePillar, f.tags, f.keys, shrine)},
	)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return s
}

func (f *fixture) buildAltar(t *testing.T, at engine.Vec3i) {
	t.Helper()
	for _, b := range altarPattern().Blocks {
		if err := f.world.SetBlock(at.Add(b.Offset), b.Block); err != nil {
			t.Fatalf("build: %v", err)
		}
	}
}

func loc(x, y, z int) engine.Location {
	return engine.Location{World: "world", Pos: engine.Vec3i{X: x, Y: y, Z: z}}
}

func TestStore_PlaceIndexesCellsAndTagsMarker(t *testing.T) {
	f := newFixture(t)
	f.buildAltar(t, engine.Vec3i{X: 5, Y: 10, Z: 5})

	inst, err := f.store.Place(kinds.Altar3x3, loc(5, 10, 5), North)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if len(inst.Cells) != 9 || inst.State() != Placed {
		t.Fatalf("cells=%d state=%s", len(inst.Cells), inst.State())
	}
	for _, c := range inst.Cells {
		got, ok := f.store.InstanceAt(engine.Location{World: "world", Pos: c})
		if !ok || got != inst {
			t.Fatalf("cell %s not indexed", c)
		}
	}
	if _, ok := f.store.InstanceAt(loc(5, 11, 5)); ok {
		t.Fatalf("cell above the floor must not be owned")
	}

	markers := inst.Markers()
	if len(markers) != 1 {
		t.Fatalf("markers=%d want 1", len(markers))
	}
	e, ok := f.world.Entity(markers[0])
	if !ok {
		t.Fatalf("marker entity missing")
	}
	def, _ := f.store.Resolve(kinds.Altar3x3)
	if !def.Identify(e) {
		t.Fatalf("marker should identify as ALTAR_3x3")
	}
	if got, _ := f.tags.Read(e, f.keys.Instance); got != inst.ID.String() {
		t.Fatalf("marker instance tag=%q want %s", got, inst.ID)
	}
}

func TestStore_PlaceFailuresLeaveNoState(t *testing.T) {
	f := newFixture(t)
	f.buildAltar(t, engine.Vec3i{X: 0, Y: 5, Z: 0})
	if err := f.world.SetBlock(engine.Vec3i{X: 1, Y: 5, Z: 1}, "DIRT"); err != nil {
		t.Fatalf("set: %v", err)
	}
	cases := []struct {
		name string
		id   kinds.MultiblockKind
		at   engine.Location
		want error
	}{
		{"mismatch", kinds.Altar3x3, loc(0, 5, 0), errs.ErrPatternMismatch},
		{"unknown kind", kinds.MultiblockKind(42), loc(0, 5, 0), errs.ErrNotFound},
		{"unknown world", kinds.Altar3x3, engine.Location{World: "nether"}, errs.ErrNotFound},
	}
	for _, c := range cases {
		if _, err := f.store.Place(c.id, c.at, North); !errors.Is(err, c.want) {
			t.Fatalf("%s: err=%v want %v", c.name, err, c.want)
		}
	}
	if f.store.Len() != 0 {
		t.Fatalf("failed placements left %d instances", f.store.Len())
	}
	if len(f.world.Entities()) != 0 {
		t.Fatalf("failed placements realized markers")
	}
}

func TestStore_OverlapKeepsFirstInstance(t *testing.T) {
	f := newFixture(t)
	f.buildAltar(t, engine.Vec3i{X: 0, Y: 5, Z: 0})
	first, err := f.store.Place(kinds.Altar3x3, loc(0, 5, 0), North)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	// A pillar needs STONE at the anchor and above it: the floor corner plus
	// a new block.
	if err := f.world.SetBlock(engine.Vec3i{X: 1, Y: 6, Z: 1}, "STONE"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := f.store.Place(kinds.ShrinePillar, loc(1, 5, 1), North); !errors.Is(err, errs.ErrOverlapConflict) {
		t.Fatalf("err=%v want ErrOverlapConflict", err)
	}
	if _, err := f.store.Place(kinds.Altar3x3, loc(0, 5, 0), East); !errors.Is(err, errs.ErrOverlapConflict) {
		t.Fatalf("same cells again: err=%v want ErrOverlapConflict", err)
	}
	if f.store.Len() != 1 {
		t.Fatalf("len=%d want 1", f.store.Len())
	}
	for _, c := range first.Cells {
		if got, _ := f.store.InstanceAt(engine.Location{World: "world", Pos: c}); got != first {
			t.Fatalf("cell %s lost its owner", c)
		}
	}
}

func TestStore_RotatedPlacement(t *testing.T) {
	f := newFixture(t)
	p := Pattern{Blocks: []PatternBlock{
		{Offset: engine.Vec3i{}, Block: "STONE"},
		{Offset: engine.Vec3i{X: 1}, Block: "GOLD_BLOCK"},
	}}
	anchor := engine.Vec3i{X: 3, Y: 3, Z: 3}
	_ = f.world.SetBlock(anchor, "STONE")
	_ = f.world.SetBlock(anchor.Add(East.Rotate(engine.Vec3i{X: 1})), "GOLD_BLOCK")
	if err := p.Match(f.world, anchor, East); err != nil {
		t.Fatalf("east match: %v", err)
	}
	if err := p.Match(f.world, anchor, North); !errors.Is(err, errs.ErrPatternMismatch) {
		t.Fatalf("north err=%v want mismatch", err)
	}
}

func TestStore_BreakRemovesInstanceOnce(t *testing.T) {
	f := newFixture(t)
	f.buildAltar(t, engine.Vec3i{X: 0, Y: 5, Z: 0})
	var removed []string
	f.store.cfg.OnRemove = func(inst *Instance, cause string) {
		removed = append(removed, fmt.Sprintf("%s:%s", inst.Kind, cause))
	}
	inst, err := f.store.Place(kinds.Altar3x3, loc(0, 5, 0), North)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	marker := inst.Markers()[0]

	// Unrelated change next to the structure.
	_ = f.world.SetBlock(engine.Vec3i{X: 2, Y: 5, Z: 0}, "DIRT")
	if f.store.Len() != 1 {
		t.Fatalf("unrelated change removed the altar")
	}

	_ = f.world.SetBlock(engine.Vec3i{X: 0, Y: 5, Z: 0}, "AIR")
	if f.store.Len() != 0 || inst.State() != Removed {
		t.Fatalf("broken altar still placed: len=%d state=%s", f.store.Len(), inst.State())
	}
	for _, c := range inst.Cells {
		if _, ok := f.store.InstanceAt(engine.Location{World: "world", Pos: c}); ok {
			t.Fatalf("cell %s still indexed", c)
		}
	}
	if _, ok := f.world.Entity(marker); ok {
		t.Fatalf("marker should be removed with the altar")
	}

	_ = f.world.SetBlock(engine.Vec3i{X: 1, Y: 5, Z: 0}, "AIR")
	if f.store.Remove(loc(0, 5, 0)) || f.store.Unregister(inst.ID) {
		t.Fatalf("second removal should be a no-op")
	}
	if len(removed) != 1 || removed[0] != "ALTAR_3x3:BROKEN" {
		t.Fatalf("removals=%v", removed)
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.buildAltar(t, engine.Vec3i{X: 0, Y: 5, Z: 0})
	_ = f.world.Fill(engine.Vec3i{X: 10, Y: 0, Z: 10}, engine.Vec3i{X: 10, Y: 1, Z: 10}, "STONE")
	a, err := f.store.Place(kinds.Altar3x3, loc(0, 5, 0), South)
	if err != nil {
		t.Fatalf("place altar: %v", err)
	}
	p, err := f.store.Place(kinds.ShrinePillar, loc(10, 0, 10), North)
	if err != nil {
		t.Fatalf("place pillar: %v", err)
	}
	if err := f.store.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	fresh := f.newStore(t)
	rep, err := fresh.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rep.Loaded != 2 || rep.Dropped != 0 || rep.Corrupt {
		t.Fatalf("report=%+v", rep)
	}
	got := fresh.Instances()
	if got[0].ID != a.ID || got[1].ID != p.ID || got[0].Orientation != South {
		t.Fatalf("order or fields lost: %+v", got)
	}
	if _, ok := fresh.InstanceAt(loc(1, 5, 1)); !ok {
		t.Fatalf("cells not re-indexed")
	}
	if len(got[0].Markers()) != 1 || got[0].Markers()[0] != a.Markers()[0] {
		t.Fatalf("existing marker should be adopted, not duplicated")
	}
	if n := len(f.world.Entities()); n != 1 {
		t.Fatalf("entities=%d want 1", n)
	}
}

func TestStore_LoadDropsInvalidRecords(t *testing.T) {
	f := newFixture(t)
	f.buildAltar(t, engine.Vec3i{X: 0, Y: 5, Z: 0})
	good := Record{InstanceID: "7f0c2e0e-7d7e-4c55-9a4b-0d6a51c1f001", ContentID: "ALTAR_3x3", World: "world", X: 0, Y: 5, Z: 0, Orientation: "NORTH"}
	f.disk.recs = []Record{
		good,
		{InstanceID: "7f0c2e0e-7d7e-4c55-9a4b-0d6a51c1f002", ContentID: "ALTAR_3x3", World: "world", X: 0, Y: 5, Z: 0, Orientation: "EAST"},
		{InstanceID: "7f0c2e0e-7d7e-4c55-9a4b-0d6a51c1f003", ContentID: "DRAGON_NEST", World: "world"},
		{InstanceID: "7f0c2e0e-7d7e-4c55-9a4b-0d6a51c1f004", ContentID: "SHRINE_PILLAR", World: "world", X: 30, Y: 1, Z: 30, Orientation: "NORTH"},
		{InstanceID: "7f0c2e0e-7d7e-4c55-9a4b-0d6a51c1f005", ContentID: "ALTAR_3x3", World: "gone", Orientation: "NORTH"},
		{InstanceID: "not-a-uuid", ContentID: "ALTAR_3x3", World: "world", Orientation: "NORTH"},
	}
	rep, err := f.store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rep.Loaded != 1 || rep.Dropped != 5 {
		t.Fatalf("report=%+v", rep)
	}
	if got := f.store.Instances()[0].ID.String(); got != good.InstanceID {
		t.Fatalf("kept %s want %s", got, good.InstanceID)
	}
	// The record had no marker in the world yet, so one is realized.
	if len(f.world.Entities()) != 1 {
		t.Fatalf("marker not realized on load")
	}
}

func TestStore_LoadCorruptStartsEmpty(t *testing.T) {
	f := newFixture(t)
	f.buildAltar(t, engine.Vec3i{X: 0, Y: 5, Z: 0})
	if _, err := f.store.Place(kinds.Altar3x3, loc(0, 5, 0), North); err != nil {
		t.Fatalf("place: %v", err)
	}
	f.disk.err = fmt.Errorf("decode: %w", errs.ErrPersistenceCorruption)
	rep, err := f.store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !rep.Corrupt || f.store.Len() != 0 {
		t.Fatalf("report=%+v len=%d", rep, f.store.Len())
	}
}

func TestNewStore_RejectsBadPatterns(t *testing.T) {
	f := newFixture(t)
	bad := []Pattern{
		{},
		{Blocks: []PatternBlock{{Block: "STONE"}, {Block: "STONE"}}},
		{Blocks: []PatternBlock{{Block: "OBSIDIAN"}}},
	}
	for i, p := range bad {
		_, err := NewStore(Config{Worlds: f.srv, Blocks: &f.srv.Catalogs().Blocks},
			pillar{NewBase(kinds.ShrinePillar, f.tags, f.keys, p)})
		if !errors.Is(err, errs.ErrConfiguration) {
			t.Fatalf("pattern %d: err=%v want ErrConfiguration", i, err)
		}
	}
}

func TestStore_LoadRemovesMarkersOfDroppedRecords(t *testing.T) {
	f := newFixture(t)
	f.buildAltar(t, engine.Vec3i{X: 0, Y: 5, Z: 0})
	inst, err := f.store.Place(kinds.Altar3x3, loc(0, 5, 0), North)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := f.store.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	// The next run starts with the altar's marker in the world but a floor
	// block changed while nothing was tracking it.
	fresh := f.newStore(t)
	f.store = fresh
	_ = f.world.SetBlock(engine.Vec3i{X: 1, Y: 5, Z: 0}, "DIRT")
	if _, ok := f.world.Entity(inst.Markers()[0]); !ok {
		t.Fatalf("marker should still be in the world before load")
	}

	rep, err := fresh.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rep.Loaded != 0 || rep.Dropped != 1 {
		t.Fatalf("report=%+v", rep)
	}
	def, _ := fresh.Resolve(kinds.Altar3x3)
	for _, e := range f.world.Entities() {
		if def.Identify(e) {
			t.Fatalf("entity %s still identifies as ALTAR_3x3 without an instance", e.ID())
		}
	}
}

func TestStore_LoadDiscardsMarkersOfReplacedInstances(t *testing.T) {
	f := newFixture(t)
	f.buildAltar(t, engine.Vec3i{X: 0, Y: 5, Z: 0})
	inst, err := f.store.Place(kinds.Altar3x3, loc(0, 5, 0), North)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	// Nothing was ever saved, so Load replaces the placement with nothing.
	rep, err := f.store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rep.Loaded != 0 || f.store.Len() != 0 || inst.State() != Removed {
		t.Fatalf("report=%+v len=%d state=%s", rep, f.store.Len(), inst.State())
	}
	if n := len(f.world.Entities()); n != 0 {
		t.Fatalf("entities=%d want 0", n)
	}
}

func TestStore_NoPersisterSaveAndLoadAreNoops(t *testing.T) {
	f := newFixture(t)
	s, err := NewStore(Config{Tags: f.tags, Keys: f.keys, Worlds: f.srv},
		altar{NewBase(kinds.Altar3x3, f.tags, f.keys, altarPattern())})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	f.buildAltar(t, engine.Vec3i{X: 0, Y: 5, Z: 0})
	if _, err := s.Place(kinds.Altar3x3, loc(0, 5, 0), North); err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	rep, err := s.Load()
	if err != nil || rep != (LoadReport{}) {
		t.Fatalf("load: rep=%+v err=%v", rep, err)
	}
	if s.Len() != 1 {
		t.Fatalf("load without persister dropped placements")
	}
}

func TestStore_AsymmetricPatternFollowsRotation(t *testing.T) {
	f := newFixture(t)
	// An L-shaped floor: the orientation decides which cells it covers.
	l := Pattern{Blocks: []PatternBlock{
		{Offset: engine.Vec3i{}, Block: "STONE"},
		{Offset: engine.Vec3i{X: 1}, Block: "GOLD_BLOCK"},
		{Offset: engine.Vec3i{Z: 2}, Block: "DIRT"},
	}}
	s, err := NewStore(Config{Tags: f.tags, Keys: f.keys, Worlds: f.srv, Blocks: &f.srv.Catalogs().Blocks},
		pillar{NewBase(kinds.ShrinePillar, f.tags, f.keys, l)})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	build := func(anchor engine.Vec3i, o Orientation) {
		for _, b := range l.Blocks {
			if err := f.world.SetBlock(anchor.Add(o.Rotate(b.Offset)), b.Block); err != nil {
				t.Fatalf("build: %v", err)
			}
		}
	}

	anchor := engine.Vec3i{X: 20, Y: 1, Z: 20}
	build(anchor, East)
	if _, err := s.Place(kinds.ShrinePillar, engine.Location{World: "world", Pos: anchor}, North); !errors.Is(err, errs.ErrPatternMismatch) {
		t.Fatalf("north over an east build: err=%v want mismatch", err)
	}
	inst, err := s.Place(kinds.ShrinePillar, engine.Location{World: "world", Pos: anchor}, East)
	if err != nil {
		t.Fatalf("place east: %v", err)
	}
	// EAST maps (x,z) to (z,-x).
	want := map[engine.Vec3i]bool{
		anchor:                          true,
		anchor.Add(engine.Vec3i{Z: -1}): true,
		anchor.Add(engine.Vec3i{X: 2}):  true,
	}
	if len(inst.Cells) != len(want) {
		t.Fatalf("cells=%v", inst.Cells)
	}
	for _, c := range inst.Cells {
		if !want[c] {
			t.Fatalf("unexpected cell %s in %v", c, inst.Cells)
		}
		if got, ok := s.InstanceAt(engine.Location{World: "world", Pos: c}); !ok || got != inst {
			t.Fatalf("rotated cell %s not indexed", c)
		}
	}
	for _, off := range []engine.Vec3i{{X: 1}, {Z: 2}} {
		if _, ok := s.InstanceAt(engine.Location{World: "world", Pos: anchor.Add(off)}); ok {
			t.Fatalf("unrotated offset %s must not be owned", off)
		}
	}

	// WEST at anchor+(4,0,0) covers anchor+(2,0,0) with its DIRT arm, which
	// the EAST instance already owns.
	other := anchor.Add(engine.Vec3i{X: 4})
	_ = f.world.SetBlock(other, "STONE")
	_ = f.world.SetBlock(other.Add(West.Rotate(engine.Vec3i{X: 1})), "GOLD_BLOCK")
	if _, err := s.Place(kinds.ShrinePillar, engine.Location{World: "world", Pos: other}, West); !errors.Is(err, errs.ErrOverlapConflict) {
		t.Fatalf("west err=%v want overlap", err)
	}
	if s.Len() != 1 {
		t.Fatalf("len=%d want 1", s.Len())
	}
}
