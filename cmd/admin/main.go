package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"voxelcraft.ai/customcontent/internal/content/facade"
	"voxelcraft.ai/customcontent/internal/persistence/indexdb"
	persistlog "voxelcraft.ai/customcontent/internal/persistence/log"
	"voxelcraft.ai/customcontent/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "placements":
		placementsCmd(os.Args[2:])
	case "audit":
		auditCmd(os.Args[2:])
	case "db":
		dbCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: admin placements|audit|db [flags]")
}

func placementsCmd(args []string) {
	fs := flag.NewFlagSet("placements", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	snapPath := fs.String("snapshot", "", "snapshot file (default: <data>/multiblocks.snap.zst)")
	dbPath := fs.String("db", "", "read placements from this sqlite index instead")
	_ = fs.Parse(args)

	if *dbPath != "" {
		idx, err := indexdb.OpenSQLite(*dbPath)
		if err != nil {
			fail("open", err)
		}
		defer idx.Close()
		recs, err := idx.LoadRecords()
		if err != nil {
			fail("load", err)
		}
		printJSONL(recs)
		return
	}

	path := *snapPath
	if path == "" {
		path = filepath.Join(*dataDir, "multiblocks.snap.zst")
	}
	h, recs, err := snapshot.Read(path)
	if err != nil {
		fail("read", err)
	}
	fmt.Fprintf(os.Stderr, "namespace=%s version=%d records=%d\n", h.Namespace, h.Version, h.Records)
	printJSONL(recs)
}

func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	namespace := fs.String("namespace", "customcontent", "plugin namespace whose audit files are read")
	contentID := fs.String("id", "", "content id filter")
	action := fs.String("action", "", "action filter (SPAWN, GIVE, PLACE, REMOVE)")
	failedOnly := fs.Bool("failed", false, "only failed operations")
	_ = fs.Parse(args)

	files, err := filepath.Glob(filepath.Join(persistlog.AuditDir(*dataDir), *namespace+"-*.jsonl.zst"))
	if err != nil {
		fail("glob", err)
	}
	sort.Strings(files)
	for _, f := range files {
		entries, err := persistlog.ReadJSONL[facade.AuditEntry](f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", filepath.Base(f), err)
		}
		var keep []facade.AuditEntry
		for _, e := range entries {
			if *contentID != "" && e.ContentID != *contentID {
				continue
			}
			if *action != "" && !strings.EqualFold(e.Action, *action) {
				continue
			}
			if *failedOnly && e.OK {
				continue
			}
			keep = append(keep, e)
		}
		printJSONL(keep)
	}
}

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite index path (default: <data>/multiblocks.sqlite)")
	contentID := fs.String("id", "", "content id filter (audits)")
	_ = fs.Parse(args)

	q := "catalogs"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	path := *dbPath
	if path == "" {
		path = filepath.Join(*dataDir, "multiblocks.sqlite")
	}
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		fail("open", err)
	}
	defer idx.Close()

	switch q {
	case "catalogs":
		for _, name := range []string{"blocks_palette", "blocks_defs", "items", "entities"} {
			d, ok := idx.CatalogDigest(name)
			if !ok {
				d = "-"
			}
			fmt.Printf("%-16s %s\n", name, d)
		}
	case "audits":
		entries, err := idx.Audits(*contentID)
		if err != nil {
			fail("audits", err)
		}
		printJSONL(entries)
	default:
		fmt.Fprintf(os.Stderr, "unknown db query %q (catalogs, audits)\n", q)
		os.Exit(2)
	}
}

func printJSONL[T any](rows []T) {
	enc := json.NewEncoder(os.Stdout)
	for _, r := range rows {
		_ = enc.Encode(r)
	}
}

func fail(what string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}
