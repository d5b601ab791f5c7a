package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"voxelcraft.ai/customcontent/internal/content/errs"
	"voxelcraft.ai/customcontent/internal/content/multiblock"
)

func sampleRecords() []multiblock.Record {
	return []multiblock.Record{
		{InstanceID: "7f0c2e0e-7d7e-4c55-9a4b-0d6a51c1f001", ContentID: "ALTAR_3x3", World: "world", X: 1, Y: 64, Z: -3, Orientation: "EAST"},
		{InstanceID: "7f0c2e0e-7d7e-4c55-9a4b-0d6a51c1f002", ContentID: "SHRINE_PILLAR", World: "world_nether", X: -10, Y: 30, Z: 8, Orientation: "NORTH"},
	}
}

func TestFileStore_RoundTripKeepsOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "multiblocks.snap.zst")
	s := NewFileStore(path, "customcontent")

	if recs, err := s.LoadRecords(); err != nil || recs != nil {
		t.Fatalf("missing file: recs=%v err=%v", recs, err)
	}
	if err := s.SaveRecords(sampleRecords()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.LoadRecords()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := sampleRecords()
	if len(got) != len(want) {
		t.Fatalf("records=%d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("record %d=%+v want %+v", i, got[i], want[i])
		}
	}

	// Saving again replaces the file.
	if err := s.SaveRecords(want[:1]); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _ = s.LoadRecords()
	if len(got) != 1 {
		t.Fatalf("records after overwrite=%d want 1", len(got))
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestFileStore_EmptyStoreRoundTrip(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "p.snap.zst"), "")
	if err := s.SaveRecords(nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.LoadRecords()
	if err != nil || len(got) != 0 {
		t.Fatalf("recs=%v err=%v", got, err)
	}
}

func writeRawZstd(t *testing.T, path, body string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	enc, err := zstd.NewWriter(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	if _, err := enc.Write([]byte(body)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestFileStore_CorruptionIsReported(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]func(path string){
		"not zstd": func(p string) { _ = os.WriteFile(p, []byte("plain text"), 0o644) },
		"bad header": func(p string) {
			writeRawZstd(t, p, "{oops\n[]")
		},
		"wrong version": func(p string) {
			writeRawZstd(t, p, `{"version":9,"namespace":"ns","records":0}`+"\n[]")
		},
		"schema violation": func(p string) {
			writeRawZstd(t, p, `{"version":1,"namespace":"ns","records":1}`+"\n"+`[{"instance_id":"x","world":"w"}]`)
		},
		"count mismatch": func(p string) {
			writeRawZstd(t, p, `{"version":1,"namespace":"ns","records":2}`+"\n[]")
		},
		"other namespace": func(p string) {
			writeRawZstd(t, p, `{"version":1,"namespace":"other","records":0}`+"\n[]")
		},
	}
	for name, write := range cases {
		path := filepath.Join(dir, name+".snap.zst")
		write(path)
		_, err := NewFileStore(path, "ns").LoadRecords()
		if !errors.Is(err, errs.ErrPersistenceCorruption) {
			t.Fatalf("%s: err=%v want ErrPersistenceCorruption", name, err)
		}
	}
}
