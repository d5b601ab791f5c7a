package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"voxelcraft.ai/customcontent/internal/sim/catalogs"
)

func testCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	c, err := catalogs.Build(
		[]catalogs.BlockDef{{ID: "AIR"}, {ID: "STONE", Solid: true}, {ID: "GOLD_BLOCK", Solid: true}},
		[]catalogs.ItemDef{{ID: "IRON_SWORD", MaxStack: 1}, {ID: "GOLD_NUGGET", MaxStack: 64}},
		[]catalogs.EntityTypeDef{{ID: "ZOMBIE", Living: true}},
	)
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	return c
}

func testServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(Config{TickRateHz: 100, Worlds: []string{"world"}, MinY: -64, MaxY: 320}, testCatalogs(t))
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	return s
}

func TestChunkStore_NegativeCoordinatesAndSparseDrop(t *testing.T) {
	cs := NewChunkStore(0)
	p := Vec3i{X: -1, Y: -17, Z: -33}
	if old := cs.SetBlock(p, 2); old != 0 {
		t.Fatalf("old=%d want 0", old)
	}
	if got := cs.GetBlock(p); got != 2 {
		t.Fatalf("get=%d want 2", got)
	}
	if got := cs.GetBlock(Vec3i{X: 15, Y: -17, Z: -33}); got != 0 {
		t.Fatalf("neighbour chunk cell should be air, got %d", got)
	}
	cs.SetBlock(p, 0)
	if len(cs.Chunks) != 0 {
		t.Fatalf("all-air chunk should be dropped, have %d", len(cs.Chunks))
	}
}

func TestWorld_SetBlockNotifiesOnlyOnChange(t *testing.T) {
	s := testServer(t)
	w, _ := s.World("world")
	var events []BlockChangeEvent
	s.OnBlockChange(func(ev BlockChangeEvent) { events = append(events, ev) })

	p := Vec3i{X: 3, Y: 64, Z: -2}
	if err := w.SetBlock(p, "STONE"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := w.SetBlock(p, "STONE"); err != nil {
		t.Fatalf("set again: %v", err)
	}
	if len(events) != 1 || events[0].From != "AIR" || events[0].To != "STONE" || events[0].Pos != p {
		t.Fatalf("unexpected events: %+v", events)
	}
	if err := w.SetBlock(p, "DIAMOND"); err == nil {
		t.Fatalf("expected unknown block error")
	}
	if err := w.SetBlock(Vec3i{Y: 400}, "STONE"); err == nil {
		t.Fatalf("expected out of bounds error")
	}
	if got := w.BlockAt(Vec3i{Y: 1000}); got != "AIR" {
		t.Fatalf("out of bounds should read AIR, got %s", got)
	}
}

func TestWorld_EntitiesLifecycle(t *testing.T) {
	s := testServer(t)
	w, _ := s.World("world")
	a, err := w.SpawnEntity("ZOMBIE", Vec3i{Y: 64})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	b, _ := w.SpawnEntity("ZOMBIE", Vec3i{X: 1, Y: 64})
	if _, err := w.SpawnEntity("DRAGON", Vec3i{Y: 64}); err == nil {
		t.Fatalf("expected unknown type error")
	}
	if got := w.Entities(); len(got) != 2 || got[0] != a || got[1] != b {
		t.Fatalf("entities not in spawn order")
	}
	if !w.RemoveEntity(a) || a.Valid() {
		t.Fatalf("remove should invalidate entity")
	}
	if w.RemoveEntity(a) {
		t.Fatalf("second remove should report false")
	}
	if _, ok := w.Entity(b.ID()); !ok {
		t.Fatalf("b should still be present")
	}
}

func TestDataContainer_NilSafe(t *testing.T) {
	var e *Entity
	if d := e.PersistentData(); d != nil {
		t.Fatalf("nil entity should have nil container")
	}
	var d *DataContainer
	d.Set(MustKey("ns", "k"), "v")
	if _, ok := d.Get(MustKey("ns", "k")); ok {
		t.Fatalf("nil container should read empty")
	}

	s := &ItemStack{Material: "GOLD_NUGGET", Amount: 3}
	s.PersistentData().Set(MustKey("ns", "k"), "v")
	c := s.Clone()
	c.PersistentData().Set(MustKey("ns", "k"), "w")
	if v, _ := s.PersistentData().Get(MustKey("ns", "k")); v != "v" {
		t.Fatalf("clone must not share metadata, got %q", v)
	}
}

func TestKey_Validation(t *testing.T) {
	if _, err := NewKey("Bad", "x"); err == nil {
		t.Fatalf("upper-case namespace should be rejected")
	}
	k, err := ParseKey("customcontent:custom_entity_id")
	if err != nil || k.String() != "customcontent:custom_entity_id" {
		t.Fatalf("parse: %v %v", k, err)
	}
}

func TestServer_ItemStacks(t *testing.T) {
	s := testServer(t)
	if _, err := s.NewItemStack("IRON_SWORD", 2); err == nil {
		t.Fatalf("swords do not stack")
	}
	st, err := s.NewItemStack("GOLD_NUGGET", 64)
	if err != nil || st.Amount != 64 {
		t.Fatalf("nugget stack: %v %+v", err, st)
	}
}

func TestServer_CallRunsOnSimulationLoop(t *testing.T) {
	s := testServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	w, _ := s.World("world")
	callCtx, callCancel := context.WithTimeout(ctx, 2*time.Second)
	defer callCancel()
	var got string
	if err := s.Call(callCtx, func() {
		_ = w.SetBlock(Vec3i{Y: 1}, "GOLD_BLOCK")
		got = w.BlockAt(Vec3i{Y: 1})
	}); err != nil {
		t.Fatalf("call: %v", err)
	}
	if got != "GOLD_BLOCK" {
		t.Fatalf("got %s", got)
	}

	s.Stop()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := s.Call(context.Background(), func() {}); err != ErrStopped {
		t.Fatalf("call after stop: %v", err)
	}
}

func TestServer_CallAbandonedBeforeRunNeverExecutes(t *testing.T) {
	s := testServer(t)
	var ran atomic.Bool
	callCtx, callCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer callCancel()
	if err := s.Call(callCtx, func() { ran.Store(true) }); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("call: %v want deadline exceeded", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()
	// The loop has drained the queue once this returns.
	if err := s.Call(context.Background(), func() {}); err != nil {
		t.Fatalf("sync call: %v", err)
	}
	if ran.Load() {
		t.Fatalf("task ran after its caller got an error")
	}
	s.Stop()
}

func TestServer_CallWaitsForClaimedTask(t *testing.T) {
	s := testServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	w, _ := s.World("world")
	callCtx, callCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer callCancel()
	err := s.Call(callCtx, func() {
		time.Sleep(200 * time.Millisecond)
		_ = w.SetBlock(Vec3i{Y: 2}, "STONE")
	})
	if err != nil {
		t.Fatalf("claimed task reported %v", err)
	}
	var got string
	if err := s.Call(context.Background(), func() { got = w.BlockAt(Vec3i{Y: 2}) }); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != "STONE" {
		t.Fatalf("block=%s want STONE", got)
	}
	s.Stop()
}

func TestWorld_ExportImportRoundTrip(t *testing.T) {
	s := testServer(t)
	w, _ := s.World("world")
	_ = w.Fill(Vec3i{X: -2, Y: 0, Z: -2}, Vec3i{X: 2, Y: 0, Z: 2}, "STONE")
	_ = w.SetBlock(Vec3i{X: 40, Y: -10, Z: 7}, "GOLD_BLOCK")
	e, err := w.SpawnEntity("ZOMBIE", Vec3i{Y: 1})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	e.SetCustomName("Bob")
	e.PersistentData().Set(MustKey("test", "id"), "GOBLIN_WARRIOR")

	states := s.ExportWorlds()

	fresh := testServer(t)
	var events int
	fresh.OnBlockChange(func(BlockChangeEvent) { events++ })
	stats, err := fresh.ImportWorlds(states)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if stats.Worlds != 1 || stats.Entities != 1 || stats.Chunks == 0 || stats.Skipped != 0 {
		t.Fatalf("stats=%+v", stats)
	}
	if events != 0 {
		t.Fatalf("import fired %d block events", events)
	}
	fw, _ := fresh.World("world")
	if fw.BlockAt(Vec3i{X: -2, Z: 2}) != "STONE" || fw.BlockAt(Vec3i{X: 40, Y: -10, Z: 7}) != "GOLD_BLOCK" || fw.BlockAt(Vec3i{X: 3}) != "AIR" {
		t.Fatalf("blocks not restored")
	}
	got, ok := fw.Entity(e.ID())
	if !ok || got.Type() != "ZOMBIE" || got.CustomName() != "Bob" || got.Pos() != (Vec3i{Y: 1}) {
		t.Fatalf("entity not restored: %+v", got)
	}
	if v, _ := got.PersistentData().Get(MustKey("test", "id")); v != "GOBLIN_WARRIOR" {
		t.Fatalf("entity data=%q", v)
	}
}

func TestWorld_ImportToleratesCatalogChanges(t *testing.T) {
	s := testServer(t)
	w, _ := s.World("world")
	blocks := make([]uint16, 16*16*16)
	blocks[0], blocks[1] = 1, 2
	states := []WorldState{
		{
			ID:      "world",
			Palette: []string{"AIR", "STONE", "MARBLE"},
			Chunks:  []ChunkState{{Blocks: blocks}},
			Entities: []EntityState{
				{ID: uuid.New(), Type: "DRAGON"},
				{ID: uuid.New(), Type: "ZOMBIE", Pos: Vec3i{Y: 999}},
			},
		},
		{ID: "nether"},
	}
	stats, err := s.ImportWorlds(states)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if stats.ReplacedBlocks != 1 || stats.Skipped != 3 || stats.Entities != 0 {
		t.Fatalf("stats=%+v", stats)
	}
	if w.BlockAt(Vec3i{}) != "STONE" || w.BlockAt(Vec3i{X: 1}) != "AIR" {
		t.Fatalf("remap wrong: %s %s", w.BlockAt(Vec3i{}), w.BlockAt(Vec3i{X: 1}))
	}

	bad := []WorldState{{ID: "world", Palette: []string{"AIR"}, Chunks: []ChunkState{{Blocks: []uint16{0}}}}}
	if _, err := s.ImportWorlds(bad); err == nil {
		t.Fatalf("short chunk should fail")
	}
	if w.BlockAt(Vec3i{}) != "STONE" {
		t.Fatalf("failed import changed the world")
	}
}
