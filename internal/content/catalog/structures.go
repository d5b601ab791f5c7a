package catalog

import (
	"voxelcraft.ai/customcontent/internal/content/kinds"
	"voxelcraft.ai/customcontent/internal/content/multiblock"
	"voxelcraft.ai/customcontent/internal/sim/engine"
)

// AltarPattern is a 3x3 floor of stone bricks around a gold block. The anchor
// is the gold block.
func AltarPattern() multiblock.Pattern {
	var p multiblock.Pattern
	for dz := -1; dz <= 1; dz++ {
		for dx := -1; dx <= 1; dx++ {
			b := "STONE_BRICKS"
			if dx == 0 && dz == 0 {
				b = "GOLD_BLOCK"
			}
			p.Blocks = append(p.Blocks, multiblock.PatternBlock{Offset: engine.Vec3i{X: dx, Z: dz}, Block: b})
		}
	}
	return p
}

// ShrinePattern is a column of three polished andesite blocks rising from the
// anchor.
func ShrinePattern() multiblock.Pattern {
	var p multiblock.Pattern
	for dy := 0; dy < 3; dy++ {
		p.Blocks = append(p.Blocks, multiblock.PatternBlock{Offset: engine.Vec3i{Y: dy}, Block: "POLISHED_ANDESITE"})
	}
	return p
}

type altar struct {
	multiblock.Base
}

func newAltar(env Env) *altar {
	return &altar{Base: multiblock.NewBase(kinds.Altar3x3, env.Tags, env.Keys, AltarPattern())}
}

// Generate puts an armor stand above the gold block.
func (a *altar) Generate(w *engine.World, anchor engine.Vec3i, _ multiblock.Orientation) ([]*engine.Entity, error) {
	e, err := spawnNamed(w, "ARMOR_STAND", "Altar", anchor.Add(engine.Vec3i{Y: 1}))
	if err != nil {
		return nil, err
	}
	return []*engine.Entity{e}, nil
}

type shrinePillar struct {
	multiblock.Base
}

func newShrinePillar(env Env) *shrinePillar {
	return &shrinePillar{Base: multiblock.NewBase(kinds.ShrinePillar, env.Tags, env.Keys, ShrinePattern())}
}

func (*shrinePillar) Generate(*engine.World, engine.Vec3i, multiblock.Orientation) ([]*engine.Entity, error) {
	return nil, nil
}
