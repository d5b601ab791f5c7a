// Package indexdb keeps multiblock placements and the content audit trail in
// a local SQLite database. It is the alternative to the snapshot file
// backend and doubles as a queryable audit index.
package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxelcraft.ai/customcontent/internal/content/errs"
	"voxelcraft.ai/customcontent/internal/content/facade"
	"voxelcraft.ai/customcontent/internal/content/multiblock"
	"voxelcraft.ai/customcontent/internal/sim/catalogs"
)

const schemaVersion = "1"

type SQLiteIndex struct {
	db *sql.DB

	ch   chan facade.AuditEntry
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan facade.AuditEntry, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

// OpenSQLiteRecover opens path and, when the file is not a usable database,
// moves it aside to path+".corrupt" and starts a fresh one.
func OpenSQLiteRecover(path string, logger *log.Logger) (*SQLiteIndex, error) {
	s, err := OpenSQLite(path)
	if err == nil {
		return s, nil
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return nil, err
	}
	aside := path + ".corrupt"
	if logger != nil {
		logger.Printf("open %s: %v; moving it to %s", path, err, aside)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(path + suffix)
	}
	if rerr := os.Rename(path, aside); rerr != nil {
		return nil, fmt.Errorf("open %s: %v; move aside: %w", path, err, rerr)
	}
	return OpenSQLite(path)
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			count INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS placements (
			seq INTEGER PRIMARY KEY,
			instance_id TEXT NOT NULL UNIQUE,
			content_id TEXT NOT NULL,
			world TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			orientation TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS audits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tick INTEGER NOT NULL,
			action TEXT NOT NULL,
			content_id TEXT NOT NULL,
			actor TEXT,
			world TEXT,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			ok INTEGER NOT NULL,
			code TEXT,
			instance_id TEXT,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_content_tick ON audits(content_id, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_instance ON audits(instance_id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	_, err := db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version',?)`, schemaVersion)
	return err
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// SaveRecords replaces every stored placement with recs in one transaction.
func (s *SQLiteIndex) SaveRecords(recs []multiblock.Record) error {
	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM placements`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO placements(seq,instance_id,content_id,world,x,y,z,orientation) VALUES(?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, r := range recs {
		if _, err := stmt.Exec(i, r.InstanceID, r.ContentID, r.World, r.X, r.Y, r.Z, r.Orientation); err != nil {
			return fmt.Errorf("placement %d (%s): %w", i, r.InstanceID, err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('placements_saved_at',?)`, now); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadRecords returns the stored placements in save order, or (nil, nil) when
// placements were never saved.
func (s *SQLiteIndex) LoadRecords() ([]multiblock.Record, error) {
	var saved string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key='placements_saved_at'`).Scan(&saved)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("placements: %v: %w", err, errs.ErrPersistenceCorruption)
	}

	rows, err := s.db.Query(`SELECT instance_id,content_id,world,x,y,z,orientation FROM placements ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("placements: %v: %w", err, errs.ErrPersistenceCorruption)
	}
	defer rows.Close()
	recs := []multiblock.Record{}
	for rows.Next() {
		var r multiblock.Record
		if err := rows.Scan(&r.InstanceID, &r.ContentID, &r.World, &r.X, &r.Y, &r.Z, &r.Orientation); err != nil {
			return nil, fmt.Errorf("placements: %v: %w", err, errs.ErrPersistenceCorruption)
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("placements: %v: %w", err, errs.ErrPersistenceCorruption)
	}
	return recs, nil
}

// UpsertCatalogs records which host catalogs the placements were validated
// against.
func (s *SQLiteIndex) UpsertCatalogs(cats *catalogs.Catalogs) error {
	if s == nil || cats == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	rows := []struct {
		name   string
		digest string
		count  int
	}{
		{"blocks_palette", cats.Blocks.PaletteDigest, len(cats.Blocks.Palette)},
		{"blocks_defs", cats.Blocks.DefsDigest, len(cats.Blocks.Defs)},
		{"items", cats.Items.Digest, len(cats.Items.Palette)},
		{"entities", cats.Entities.Digest, len(cats.Entities.Types)},
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,count,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.digest == "" {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, r.count, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CatalogDigest returns the digest last recorded for name.
func (s *SQLiteIndex) CatalogDigest(name string) (string, bool) {
	var d string
	if err := s.db.QueryRow(`SELECT digest FROM catalogs WHERE name=?`, name).Scan(&d); err != nil {
		return "", false
	}
	return d, true
}

// WriteAudit queues e for the writer goroutine. Entries are dropped when the
// writer falls behind; the JSONL audit files remain the complete record.
func (s *SQLiteIndex) WriteAudit(e facade.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- e:
	default:
		s.dropped.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) DroppedAudits() uint64 { return s.dropped.Load() }

// Audits returns stored audit entries for contentID (all when empty) in
// insertion order.
func (s *SQLiteIndex) Audits(contentID string) ([]facade.AuditEntry, error) {
	q := `SELECT raw_json FROM audits ORDER BY id`
	var args []any
	if contentID != "" {
		q = `SELECT raw_json FROM audits WHERE content_id=? ORDER BY id`
		args = append(args, contentID)
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []facade.AuditEntry
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var e facade.AuditEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()
	insertAudit, _ := s.db.Prepare(`INSERT INTO audits(tick,action,content_id,actor,world,x,y,z,ok,code,instance_id,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertAudit != nil {
			_ = insertAudit.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)
	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for e := range s.ch {
		begin()
		if tx == nil || insertAudit == nil {
			continue
		}
		raw, _ := json.Marshal(e)
		ok := 0
		if e.OK {
			ok = 1
		}
		if _, err := tx.Stmt(insertAudit).Exec(
			int64(e.Tick),
			e.Action,
			e.ContentID,
			e.Actor,
			e.World,
			e.Pos[0], e.Pos[1], e.Pos[2],
			ok,
			e.Code,
			e.InstanceID,
			string(raw),
		); err != nil {
			_ = tx.Rollback()
			tx = nil
			continue
		}
		opCount++
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0 {
			commit()
		}
	}
	commit()
}
