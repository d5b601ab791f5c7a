package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"voxelcraft.ai/customcontent/internal/sim/catalogs"
)

var ErrStopped = errors.New("engine stopped")

type Config struct {
	TickRateHz int
	Worlds     []string
	MinY       int
	MaxY       int
}

// Server is the host runtime. All game state is owned by the simulation
// goroutine started by Run; other goroutines reach it only through Call.
type Server struct {
	cfg      Config
	catalogs *catalogs.Catalogs
	items    itemFactory

	worlds  map[string]*World
	players map[string]*Player

	blockListeners    []func(BlockChangeEvent)
	interactListeners []func(InteractEvent)

	tasks chan *task
	stop  chan struct{}
	tick  atomic.Uint64
}

// Task states. A queued task is claimed by Run or abandoned by its caller,
// never both.
const (
	taskQueued int32 = iota
	taskClaimed
	taskAbandoned
)

type task struct {
	fn    func()
	done  chan struct{}
	state atomic.Int32
}

func NewServer(cfg Config, cats *catalogs.Catalogs) (*Server, error) {
	if cats == nil {
		return nil, fmt.Errorf("nil catalogs")
	}
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 20
	}
	if cfg.MaxY <= cfg.MinY {
		return nil, fmt.Errorf("invalid build height [%d,%d)", cfg.MinY, cfg.MaxY)
	}
	if len(cfg.Worlds) == 0 {
		return nil, fmt.Errorf("no worlds configured")
	}
	s := &Server{
		cfg:      cfg,
		catalogs: cats,
		items:    itemFactory{items: &cats.Items},
		worlds:   map[string]*World{},
		players:  map[string]*Player{},
		tasks:    make(chan *task, 256),
		stop:     make(chan struct{}),
	}
	for _, id := range cfg.Worlds {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("empty world id")
		}
		if _, dup := s.worlds[id]; dup {
			return nil, fmt.Errorf("duplicate world id %q", id)
		}
		s.worlds[id] = &World{
			id:       id,
			minY:     cfg.MinY,
			maxY:     cfg.MaxY,
			blocks:   &cats.Blocks,
			types:    &cats.Entities,
			chunks:   NewChunkStore(cats.Blocks.Index["AIR"]),
			entities: map[uuid.UUID]*Entity{},
			notify:   s.fireBlockChange,
		}
	}
	return s, nil
}

func (s *Server) Catalogs() *catalogs.Catalogs { return s.catalogs }

func (s *Server) World(id string) (*World, bool) {
	w, ok := s.worlds[id]
	return w, ok
}

func (s *Server) Worlds() []*World {
	out := make([]*World, 0, len(s.worlds))
	for _, w := range s.worlds {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (s *Server) NewItemStack(material string, amount int) (*ItemStack, error) {
	return s.items.NewItemStack(material, amount)
}

func (s *Server) MaxStack(material string) int { return s.items.MaxStack(material) }

func (s *Server) AddPlayer(name string, loc Location) (*Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty player name")
	}
	if _, dup := s.players[name]; dup {
		return nil, fmt.Errorf("player %q already online", name)
	}
	w, ok := s.worlds[loc.World]
	if !ok {
		return nil, fmt.Errorf("player %q: unknown world %q", name, loc.World)
	}
	p := &Player{name: name, world: w, pos: loc.Pos}
	s.players[name] = p
	return p, nil
}

func (s *Server) Player(name string) (*Player, bool) {
	p, ok := s.players[name]
	return p, ok
}

func (s *Server) OnBlockChange(fn func(BlockChangeEvent)) {
	s.blockListeners = append(s.blockListeners, fn)
}

func (s *Server) OnInteract(fn func(InteractEvent)) {
	s.interactListeners = append(s.interactListeners, fn)
}

// Interact delivers a player/entity interaction to the listeners.
func (s *Server) Interact(p *Player, e *Entity) {
	if p == nil || !e.Valid() {
		return
	}
	ev := InteractEvent{Player: p, Entity: e}
	for _, fn := range s.interactListeners {
		fn(ev)
	}
}

func (s *Server) fireBlockChange(ev BlockChangeEvent) {
	for _, fn := range s.blockListeners {
		fn(ev)
	}
}

func (s *Server) CurrentTick() uint64 { return s.tick.Load() }

// Run is the simulation loop. Tasks handed over through Call run between
// ticks, one at a time, on this goroutine.
func (s *Server) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(s.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case t := <-s.tasks:
			if !t.state.CompareAndSwap(taskQueued, taskClaimed) {
				continue
			}
			t.fn()
			close(t.done)
		case <-ticker.C:
			s.tick.Add(1)
		}
	}
}

// Stop ends Run. It is safe to call more than once.
func (s *Server) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
}

// Call runs fn on the simulation goroutine and waits for it to finish. It must
// not be called from the simulation goroutine itself. When Call returns an
// error fn has not run and never will; once Run has picked fn up, Call waits
// for it regardless of ctx.
func (s *Server) Call(ctx context.Context, fn func()) error {
	t := &task{fn: fn, done: make(chan struct{})}
	select {
	case s.tasks <- t:
	case <-s.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-t.done:
		return nil
	case <-s.stop:
		return t.abandon(ErrStopped)
	case <-ctx.Done():
		return t.abandon(ctx.Err())
	}
}

// abandon gives up on a queued task. If Run already claimed it, it waits for
// fn to finish and reports success instead.
func (t *task) abandon(err error) error {
	if t.state.CompareAndSwap(taskQueued, taskAbandoned) {
		return err
	}
	<-t.done
	return nil
}
