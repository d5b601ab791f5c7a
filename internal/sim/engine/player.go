package engine

type Player struct {
	name      string
	world     *World
	pos       Vec3i
	inventory []*ItemStack
}

func (p *Player) Name() string  { return p.name }
func (p *Player) World() *World { return p.world }

func (p *Player) Location() Location {
	return Location{World: p.world.ID(), Pos: p.pos}
}

// Give puts the stack into the player's inventory. Stacks are kept as given;
// the host does not merge them.
func (p *Player) Give(s *ItemStack) {
	if s == nil || s.Amount <= 0 {
		return
	}
	p.inventory = append(p.inventory, s)
}

func (p *Player) Inventory() []*ItemStack {
	out := make([]*ItemStack, len(p.inventory))
	copy(out, p.inventory)
	return out
}
