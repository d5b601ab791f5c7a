package catalog

import (
	"strconv"

	"voxelcraft.ai/customcontent/internal/content/entities"
	"voxelcraft.ai/customcontent/internal/content/kinds"
	"voxelcraft.ai/customcontent/internal/content/tags"
	"voxelcraft.ai/customcontent/internal/sim/engine"
)

const (
	warriorName = "Goblin Warrior"
	archerName  = "Goblin Archer"
)

var taunts = []string{
	"Goblin Warrior: Shinies are mine!",
	"Goblin Warrior: You smell like a dwarf.",
	"Goblin Warrior: Poke me again, I dare you.",
}

type goblinWarrior struct {
	entities.Base
	tags     *tags.Store
	tauntKey engine.Key
}

func newGoblinWarrior(env Env) *goblinWarrior {
	return &goblinWarrior{
		Base:     entities.NewBase(kinds.GoblinWarrior, env.Tags, env.Keys),
		tags:     env.Tags,
		tauntKey: TauntKey(env.Keys),
	}
}

// TauntKey is the metadata key counting interactions with a warrior.
func TauntKey(keys tags.Keys) engine.Key {
	return engine.Key{Namespace: keys.Entity.Namespace, Name: "goblin_taunts"}
}

func (g *goblinWarrior) Generate(w *engine.World, pos engine.Vec3i) ([]*engine.Entity, error) {
	e, err := spawnNamed(w, "ZOMBIE", warriorName, pos)
	if err != nil {
		return nil, err
	}
	return []*engine.Entity{e}, nil
}

// OnInteract answers with the next taunt and counts the interactions on the
// entity itself.
func (g *goblinWarrior) OnInteract(ev engine.InteractEvent) {
	n := Taunts(g.tags, ev.Entity, g.tauntKey)
	ev.Entity.SetCustomName(taunts[n%len(taunts)])
	g.tags.Tag(ev.Entity, g.tauntKey, strconv.Itoa(n+1))
}

// Taunts reads the interaction counter stored under key.
func Taunts(s *tags.Store, e *engine.Entity, key engine.Key) int {
	raw, ok := s.Read(e, key)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// goblinSquad is a warrior flanked by two archers.
type goblinSquad struct {
	entities.Base
}

func newGoblinSquad(env Env) *goblinSquad {
	return &goblinSquad{Base: entities.NewBase(kinds.GoblinSquad, env.Tags, env.Keys)}
}

func (g *goblinSquad) Generate(w *engine.World, pos engine.Vec3i) ([]*engine.Entity, error) {
	members := []struct {
		typ, name string
		off       engine.Vec3i
	}{
		{"ZOMBIE", warriorName, engine.Vec3i{}},
		{"SKELETON", archerName, engine.Vec3i{X: -2}},
		{"SKELETON", archerName, engine.Vec3i{X: 2}},
	}
	out := make([]*engine.Entity, 0, len(members))
	for _, m := range members {
		e, err := spawnNamed(w, m.typ, m.name, pos.Add(m.off))
		if err != nil {
			removeAll(w, out)
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
