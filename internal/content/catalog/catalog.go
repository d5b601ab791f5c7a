// Package catalog declares the concrete custom content shipped with the
// server.
package catalog

import (
	"voxelcraft.ai/customcontent/internal/content/entities"
	"voxelcraft.ai/customcontent/internal/content/items"
	"voxelcraft.ai/customcontent/internal/content/multiblock"
	"voxelcraft.ai/customcontent/internal/content/tags"
	"voxelcraft.ai/customcontent/internal/sim/engine"
)

// Env is what definitions need from the plugin to read and write tags.
type Env struct {
	Tags *tags.Store
	Keys tags.Keys
}

func Entities(env Env) []entities.Definition {
	return []entities.Definition{
		newGoblinWarrior(env),
		newGoblinSquad(env),
	}
}

func Items(env Env) []items.Definition {
	return []items.Definition{
		newGoblinBlade(env),
		newAltarKey(env),
	}
}

func Multiblocks(env Env) []multiblock.Definition {
	return []multiblock.Definition{
		newAltar(env),
		newShrinePillar(env),
	}
}

func spawnNamed(w *engine.World, typ, name string, pos engine.Vec3i) (*engine.Entity, error) {
	e, err := w.SpawnEntity(typ, pos)
	if err != nil {
		return nil, err
	}
	e.SetCustomName(name)
	return e, nil
}

func removeAll(w *engine.World, es []*engine.Entity) {
	for _, e := range es {
		w.RemoveEntity(e)
	}
}
