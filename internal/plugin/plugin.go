// Package plugin assembles the custom content layer on top of an engine
// server: tag keys, per-category managers, the placement store, facades and
// the event hooks that keep them in sync with the world.
package plugin

import (
	"fmt"
	"io"
	"log"

	"voxelcraft.ai/customcontent/internal/content/catalog"
	"voxelcraft.ai/customcontent/internal/content/entities"
	"voxelcraft.ai/customcontent/internal/content/errs"
	"voxelcraft.ai/customcontent/internal/content/facade"
	"voxelcraft.ai/customcontent/internal/content/items"
	"voxelcraft.ai/customcontent/internal/content/multiblock"
	"voxelcraft.ai/customcontent/internal/content/tags"
	"voxelcraft.ai/customcontent/internal/sim/engine"
)

// Declarations produce each category's definitions. A nil function or an
// empty result disables the category.
type Declarations struct {
	Entities    func(catalog.Env) []entities.Definition
	Items       func(catalog.Env) []items.Definition
	Multiblocks func(catalog.Env) []multiblock.Definition
}

func DefaultDeclarations() Declarations {
	return Declarations{
		Entities:    catalog.Entities,
		Items:       catalog.Items,
		Multiblocks: catalog.Multiblocks,
	}
}

type Options struct {
	Server    *engine.Server
	Namespace string

	Declarations Declarations
	// Persister stores placements. Without one Enable starts empty and
	// Disable saves nothing.
	Persister multiblock.Persister
	// Audit is optional. When it implements io.Closer, Disable closes it.
	Audit  facade.AuditLogger
	Logger *log.Logger
}

type Plugin struct {
	srv  *engine.Server
	tags *tags.Store
	keys tags.Keys
	log  *log.Logger

	entities *entities.Manager
	items    *items.Manager
	store    *multiblock.Store

	spawn *facade.Spawn
	give  *facade.Give
	place *facade.Place

	persister multiblock.Persister
	audit     facade.AuditLogger
	enabled   bool
}

func New(opts Options) (*Plugin, error) {
	if opts.Server == nil {
		return nil, fmt.Errorf("plugin: no server: %w", errs.ErrConfiguration)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	keys, err := tags.NewKeys(opts.Namespace)
	if err != nil {
		return nil, fmt.Errorf("plugin: %v: %w", err, errs.ErrConfiguration)
	}
	p := &Plugin{
		srv:       opts.Server,
		tags:      tags.New(),
		keys:      keys,
		log:       logger,
		persister: opts.Persister,
		audit:     opts.Audit,
	}
	env := catalog.Env{Tags: p.tags, Keys: keys}
	auditor := facade.NewAuditor(opts.Audit, opts.Server.CurrentTick, sub(logger, "audit"))
	decl := opts.Declarations

	if decl.Entities != nil {
		if defs := decl.Entities(env); len(defs) > 0 {
			p.entities, err = entities.NewManager(opts.Server, p.tags, keys, sub(logger, "entities"), defs...)
			if err != nil {
				return nil, err
			}
			p.spawn = facade.NewSpawn(p.entities, auditor)
		}
	}
	if decl.Items != nil {
		if defs := decl.Items(env); len(defs) > 0 {
			p.items, err = items.NewManager(opts.Server, p.tags, keys, sub(logger, "items"), defs...)
			if err != nil {
				return nil, err
			}
			p.give = facade.NewGive(p.items, auditor)
		}
	}
	if decl.Multiblocks != nil {
		if defs := decl.Multiblocks(env); len(defs) > 0 {
			p.store, err = multiblock.NewStore(multiblock.Config{
				Tags:      p.tags,
				Keys:      keys,
				Worlds:    opts.Server,
				Blocks:    &opts.Server.Catalogs().Blocks,
				Persister: opts.Persister,
				Logger:    sub(logger, "multiblock"),
				OnRemove: func(inst *multiblock.Instance, cause string) {
					if p.place != nil {
						p.place.RecordRemoval(inst, cause)
					}
				},
			}, defs...)
			if err != nil {
				return nil, err
			}
			p.place = facade.NewPlace(p.store, auditor)
		}
	}

	opts.Server.OnBlockChange(p.handleBlockChange)
	opts.Server.OnInteract(p.handleInteract)
	return p, nil
}

func sub(l *log.Logger, component string) *log.Logger {
	return log.New(l.Writer(), l.Prefix()+"["+component+"] ", l.Flags())
}

func (p *Plugin) handleBlockChange(ev engine.BlockChangeEvent) {
	if !p.enabled || p.store == nil {
		return
	}
	p.store.HandleBlockChange(ev)
}

func (p *Plugin) handleInteract(ev engine.InteractEvent) {
	if !p.enabled || p.entities == nil {
		return
	}
	p.entities.HandleInteract(ev)
}

// Enable restores persisted placements and starts handling events.
func (p *Plugin) Enable() (multiblock.LoadReport, error) {
	var rep multiblock.LoadReport
	if p.enabled {
		return rep, nil
	}
	if p.store != nil && p.persister != nil {
		var err error
		if rep, err = p.store.Load(); err != nil {
			return rep, err
		}
		p.log.Printf("enable: %d placements restored, %d dropped", rep.Loaded, rep.Dropped)
	}
	p.enabled = true
	return rep, nil
}

// Disable saves placements, stops event handling and closes the audit sink.
func (p *Plugin) Disable() error {
	if !p.enabled {
		return nil
	}
	p.enabled = false
	var first error
	if p.store != nil {
		if err := p.store.Save(); err != nil {
			p.log.Printf("disable: %v", err)
			first = err
		}
	}
	if c, ok := p.audit.(io.Closer); ok {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (p *Plugin) Enabled() bool     { return p.enabled }
func (p *Plugin) Keys() tags.Keys   { return p.keys }
func (p *Plugin) Tags() *tags.Store { return p.tags }

// Category accessors return nil when the category is disabled.
func (p *Plugin) Entities() *entities.Manager    { return p.entities }
func (p *Plugin) Items() *items.Manager          { return p.items }
func (p *Plugin) Multiblocks() *multiblock.Store { return p.store }
func (p *Plugin) SpawnFacade() *facade.Spawn     { return p.spawn }
func (p *Plugin) GiveFacade() *facade.Give       { return p.give }
func (p *Plugin) PlaceFacade() *facade.Place     { return p.place }
