// Package items registers custom item kinds and hands them out as tagged
// item stacks.
package items

import (
	"fmt"
	"io"
	"log"

	"voxelcraft.ai/customcontent/internal/content/errs"
	"voxelcraft.ai/customcontent/internal/content/kinds"
	"voxelcraft.ai/customcontent/internal/content/registry"
	"voxelcraft.ai/customcontent/internal/content/tags"
	"voxelcraft.ai/customcontent/internal/sim/engine"
)

// MaxGive bounds a single give request.
const MaxGive = 64 * 36

// Definition materializes one item kind as one or more stacks totalling
// amount items. The manager tags the result.
type Definition interface {
	registry.Definition[kinds.ItemKind, *engine.ItemStack]
	Generate(f engine.ItemFactory, amount int) ([]*engine.ItemStack, error)
}

type Base struct {
	id   kinds.ItemKind
	tags *tags.Store
	key  engine.Key
}

func NewBase(id kinds.ItemKind, store *tags.Store, keys tags.Keys) Base {
	return Base{id: id, tags: store, key: keys.Item}
}

func (b Base) ContentID() kinds.ItemKind { return b.id }

func (b Base) Identify(s *engine.ItemStack) bool {
	got, ok := tags.ReadID(b.tags, s, b.key, kinds.ParseItemKind)
	return ok && got == b.id
}

// Stacks splits amount of material into full stacks plus a remainder.
func Stacks(f engine.ItemFactory, material, displayName string, amount int) ([]*engine.ItemStack, error) {
	per := f.MaxStack(material)
	if per <= 0 {
		return nil, fmt.Errorf("item material %q: %w", material, errs.ErrConfiguration)
	}
	var out []*engine.ItemStack
	for amount > 0 {
		n := min(amount, per)
		s, err := f.NewItemStack(material, n)
		if err != nil {
			return nil, err
		}
		s.DisplayName = displayName
		out = append(out, s)
		amount -= n
	}
	return out, nil
}

type Manager struct {
	reg     *registry.Registry[kinds.ItemKind, *engine.ItemStack, Definition]
	tags    *tags.Store
	key     engine.Key
	factory engine.ItemFactory
	log     *log.Logger
}

func NewManager(factory engine.ItemFactory, store *tags.Store, keys tags.Keys, logger *log.Logger, defs ...Definition) (*Manager, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	m := &Manager{
		reg:     registry.New[kinds.ItemKind, *engine.ItemStack, Definition]("item", logger),
		tags:    store,
		key:     keys.Item,
		factory: factory,
		log:     logger,
	}
	for _, d := range defs {
		var id kinds.ItemKind
		if d != nil {
			id = d.ContentID()
		}
		if err := m.reg.Register(id, d); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Manager) IDs() []kinds.ItemKind { return m.reg.IDs() }

// Create produces tagged stacks of id without handing them to anyone.
func (m *Manager) Create(id kinds.ItemKind, amount int) ([]*engine.ItemStack, error) {
	def, err := m.reg.Resolve(id)
	if err != nil {
		return nil, err
	}
	if amount <= 0 || amount > MaxGive {
		return nil, fmt.Errorf("create %s: amount %d outside 1..%d: %w", id, amount, MaxGive, errs.ErrInvalidTarget)
	}
	out, err := def.Generate(m.factory, amount)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", id, err)
	}
	for _, s := range out {
		m.tags.Tag(s, m.key, id.String())
	}
	return out, nil
}

// Give creates amount items of id and puts them into the player's inventory.
func (m *Manager) Give(p *engine.Player, id kinds.ItemKind, amount int) ([]*engine.ItemStack, error) {
	if p == nil {
		return nil, fmt.Errorf("give %s: no player: %w", id, errs.ErrInvalidTarget)
	}
	out, err := m.Create(id, amount)
	if err != nil {
		return nil, err
	}
	for _, s := range out {
		p.Give(s)
	}
	return out, nil
}

func (m *Manager) Identify(s *engine.ItemStack) (kinds.ItemKind, bool) {
	return m.reg.IdentifyAny(s)
}
