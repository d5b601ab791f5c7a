package main

import (
	"fmt"
	"log"
	"time"

	"voxelcraft.ai/customcontent/internal/content/facade"
	"voxelcraft.ai/customcontent/internal/content/multiblock"
	"voxelcraft.ai/customcontent/internal/persistence/indexdb"
	persistlog "voxelcraft.ai/customcontent/internal/persistence/log"
	"voxelcraft.ai/customcontent/internal/persistence/snapshot"
	"voxelcraft.ai/customcontent/internal/plugin"
	"voxelcraft.ai/customcontent/internal/sim/catalogs"
	"voxelcraft.ai/customcontent/internal/sim/engine"
	"voxelcraft.ai/customcontent/internal/sim/tuning"
)

// node is one server process worth of state: the host engine with its
// worlds restored, and the plugin enabled over it.
type node struct {
	sim    *engine.Server
	plugin *plugin.Plugin
	worlds *snapshot.WorldFile
	index  *indexdb.SQLiteIndex
	audit  *persistlog.AuditLogger
	report multiblock.LoadReport
	log    *log.Logger
}

// openNode builds the engine, restores the world snapshot and enables the
// plugin. Worlds come back before Enable so persisted placements find their
// marker entities.
func openNode(tune tuning.Tuning, cats *catalogs.Catalogs, players []string, logger *log.Logger) (*node, error) {
	sim, err := engine.NewServer(engine.Config{
		TickRateHz: tune.TickRateHz,
		Worlds:     tune.Worlds,
		MinY:       tune.MinY,
		MaxY:       tune.MaxY,
	}, cats)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	n := &node{
		sim:    sim,
		worlds: snapshot.NewWorldFile(tuning.PathIn(tune.DataDir, tune.Persistence.World)),
		log:    logger,
	}
	st, err := n.worlds.Restore(sim)
	if err != nil {
		logger.Printf("world data unreadable, starting with empty worlds: %v", err)
	} else if st.Worlds > 0 {
		logger.Printf("restored %d worlds: %d chunks, %d entities (%d unknown blocks replaced, %d skipped)",
			st.Worlds, st.Chunks, st.Entities, st.ReplacedBlocks, st.Skipped)
	}
	for _, name := range players {
		if _, err := sim.AddPlayer(name, engine.Location{World: tune.Worlds[0]}); err != nil {
			return nil, fmt.Errorf("player: %w", err)
		}
	}

	persister, index, err := openPersistence(tune, cats, logger)
	if err != nil {
		return nil, fmt.Errorf("persistence: %w", err)
	}
	n.index = index

	var sinks persistlog.Tee
	if tune.Audit {
		n.audit = persistlog.NewAuditLogger(tune.DataDir, tune.Namespace, nil)
		sinks = append(sinks, n.audit)
		if index != nil {
			sinks = append(sinks, index)
		}
	}
	var audit facade.AuditLogger
	if len(sinks) > 0 {
		audit = sinks
	}

	p, err := plugin.New(plugin.Options{
		Server:       sim,
		Namespace:    tune.Namespace,
		Declarations: plugin.DefaultDeclarations(),
		Persister:    persister,
		Audit:        audit,
		Logger:       logger,
	})
	if err != nil {
		n.closeStores()
		return nil, fmt.Errorf("plugin: %w", err)
	}
	n.plugin = p
	if n.report, err = p.Enable(); err != nil {
		n.closeStores()
		return nil, fmt.Errorf("enable: %w", err)
	}
	if n.report.Corrupt {
		logger.Printf("placement data unreadable; started with no placements")
	}
	return n, nil
}

// flushAudit pushes buffered audit lines to disk every interval until done
// is closed.
func (n *node) flushAudit(every time.Duration, done <-chan struct{}) {
	if n.audit == nil {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if err := n.audit.Flush(); err != nil {
				n.log.Printf("audit flush: %v", err)
			}
		}
	}
}

// close saves placements and worlds. The simulation loop must have stopped.
func (n *node) close() error {
	var first error
	if err := n.plugin.Disable(); err != nil {
		n.log.Printf("disable: %v", err)
		first = err
	}
	if err := n.worlds.Save(n.sim); err != nil {
		n.log.Printf("save worlds: %v", err)
		if first == nil {
			first = err
		}
	}
	n.closeStores()
	return first
}

func (n *node) closeStores() {
	if n.audit != nil {
		_ = n.audit.Close()
	}
	if n.index != nil {
		if d := n.index.DroppedAudits(); d > 0 {
			n.log.Printf("index dropped %d audit rows", d)
		}
		_ = n.index.Close()
	}
}
