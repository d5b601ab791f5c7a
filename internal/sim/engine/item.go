package engine

import (
	"fmt"

	"voxelcraft.ai/customcontent/internal/sim/catalogs"
)

// ItemStack is a host item stack. Stacks are values owned by whoever holds
// them (an inventory, a command reply); they are not registered anywhere.
type ItemStack struct {
	Material    string
	Amount      int
	DisplayName string

	data DataContainer
}

func (s *ItemStack) PersistentData() *DataContainer {
	if s == nil {
		return nil
	}
	return &s.data
}

// Clone copies the stack including its metadata.
func (s *ItemStack) Clone() *ItemStack {
	if s == nil {
		return nil
	}
	return &ItemStack{
		Material:    s.Material,
		Amount:      s.Amount,
		DisplayName: s.DisplayName,
		data:        s.data.clone(),
	}
}

// ItemFactory creates item stacks of known materials.
type ItemFactory interface {
	NewItemStack(material string, amount int) (*ItemStack, error)
	MaxStack(material string) int
}

type itemFactory struct {
	items *catalogs.ItemCatalog
}

func (f itemFactory) NewItemStack(material string, amount int) (*ItemStack, error) {
	def, ok := f.items.Defs[material]
	if !ok {
		return nil, fmt.Errorf("unknown item material %q", material)
	}
	if amount <= 0 || amount > def.MaxStack {
		return nil, fmt.Errorf("item %s: amount %d outside 1..%d", material, amount, def.MaxStack)
	}
	return &ItemStack{Material: material, Amount: amount}, nil
}

func (f itemFactory) MaxStack(material string) int {
	return f.items.Defs[material].MaxStack
}
