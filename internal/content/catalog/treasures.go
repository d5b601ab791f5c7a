package catalog

import (
	"voxelcraft.ai/customcontent/internal/content/items"
	"voxelcraft.ai/customcontent/internal/content/kinds"
	"voxelcraft.ai/customcontent/internal/sim/engine"
)

// material is an item kind backed by one host material with a custom display
// name.
type material struct {
	items.Base
	material    string
	displayName string
}

func (m *material) Generate(f engine.ItemFactory, amount int) ([]*engine.ItemStack, error) {
	return items.Stacks(f, m.material, m.displayName, amount)
}

func newGoblinBlade(env Env) *material {
	return &material{
		Base:        items.NewBase(kinds.GoblinBlade, env.Tags, env.Keys),
		material:    "IRON_SWORD",
		displayName: "Goblin Blade",
	}
}

func newAltarKey(env Env) *material {
	return &material{
		Base:        items.NewBase(kinds.AltarKey, env.Tags, env.Keys),
		material:    "GOLD_NUGGET",
		displayName: "Altar Key",
	}
}
