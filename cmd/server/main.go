package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"voxelcraft.ai/customcontent/internal/content/multiblock"
	"voxelcraft.ai/customcontent/internal/persistence/indexdb"
	"voxelcraft.ai/customcontent/internal/persistence/snapshot"
	"voxelcraft.ai/customcontent/internal/sim/catalogs"
	"voxelcraft.ai/customcontent/internal/sim/tuning"
	"voxelcraft.ai/customcontent/internal/transport/ws"
)

func main() {
	var (
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir    = flag.String("data", "", "runtime data directory (overrides tuning data_dir)")
		addr       = flag.String("addr", "", "http listen address (overrides tuning listen)")
		players    = flag.String("players", "", "comma separated players to put online at the first world's origin")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
		if _, err := os.Stat(tp); err != nil {
			tp = ""
		}
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}
	if *dataDir != "" {
		tune.DataDir = *dataDir
	}
	if *addr != "" {
		tune.Listen = *addr
	}
	if err := os.MkdirAll(tune.DataDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	var online []string
	for _, name := range strings.Split(*players, ",") {
		if name = strings.TrimSpace(name); name != "" {
			online = append(online, name)
		}
	}
	n, err := openNode(tune, cats, online, logger)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	sim := n.sim

	ctx, cancel := signalContext()
	defer cancel()

	simDone := make(chan error, 1)
	go func() { simDone <- sim.Run(ctx) }()
	go n.flushAudit(2*time.Second, ctx.Done())

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprintf(rw, "ok tick=%d\n", sim.CurrentTick())
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(sim, n.plugin, logger).Handler())

	srv := &http.Server{
		Addr:              tune.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (namespace=%s worlds=%v backend=%s)", tune.Listen, tune.Namespace, tune.Worlds, tune.Persistence.Backend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("ListenAndServe: %v", err)
	}

	// Disable and the world save touch game state, so the simulation loop
	// must be gone first.
	cancel()
	sim.Stop()
	<-simDone
	_ = n.close()
}

// openPersistence picks the placement backend. The sqlite index is also
// returned so it can receive audit rows.
func openPersistence(t tuning.Tuning, cats *catalogs.Catalogs, logger *log.Logger) (multiblock.Persister, *indexdb.SQLiteIndex, error) {
	switch t.Persistence.Backend {
	case tuning.BackendSQLite:
		path := tuning.PathIn(t.DataDir, t.Persistence.SQLite)
		idx, err := indexdb.OpenSQLiteRecover(path, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := idx.UpsertCatalogs(cats); err != nil {
			logger.Printf("index catalogs: %v", err)
		}
		return idx, idx, nil
	default:
		path := tuning.PathIn(t.DataDir, t.Persistence.File)
		return snapshot.NewFileStore(path, t.Namespace), nil, nil
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
