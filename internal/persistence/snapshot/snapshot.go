// Package snapshot stores multiblock placements in a single zstd-compressed
// file: one JSON header line followed by the JSON record list. Every save
// rewrites the whole file.
package snapshot

import (
	"bufio"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"voxelcraft.ai/customcontent/internal/content/errs"
	"voxelcraft.ai/customcontent/internal/content/multiblock"
)

const Version = 1

//go:embed schemas/placements.schema.json
var placementsSchema string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func recordsSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("placements.schema.json", placementsSchema)
	})
	return schema, schemaErr
}

type Header struct {
	Version   int    `json:"version"`
	Namespace string `json:"namespace"`
	Records   int    `json:"records"`
}

func Write(path string, h Header, recs []multiblock.Record) error {
	if recs == nil {
		recs = []multiblock.Record{}
	}
	h.Records = len(recs)
	return writeAtomic(path, func(bw *bufio.Writer) error {
		if err := writeHeader(bw, h); err != nil {
			return err
		}
		if err := json.NewEncoder(bw).Encode(recs); err != nil {
			return fmt.Errorf("encode records: %w", err)
		}
		return nil
	})
}

// writeAtomic writes a zstd stream produced by body to a temp file next to
// path and renames it over path once it is synced.
func writeAtomic(path string, body func(*bufio.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := writeZstd(tmp, body); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeZstd(path string, body func(*bufio.Writer) error) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	closed := false
	defer func() {
		if !closed {
			_ = enc.Close()
		}
	}()
	bw := bufio.NewWriterSize(enc, 64*1024)
	if err := body(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	closed = true
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Sync()
}

func writeHeader(bw *bufio.Writer, h any) error {
	hb, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	return bw.WriteByte('\n')
}

// Read returns the header and records stored at path. Anything that does not
// decode into a valid snapshot is reported as errs.ErrPersistenceCorruption.
func Read(path string) (Header, []multiblock.Record, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, nil, corrupt(path, err)
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, nil, corrupt(path, fmt.Errorf("header: %w", err))
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, nil, corrupt(path, fmt.Errorf("header: %w", err))
	}
	if h.Version != Version {
		return h, nil, corrupt(path, fmt.Errorf("unsupported version %d", h.Version))
	}

	body, err := io.ReadAll(br)
	if err != nil {
		return h, nil, corrupt(path, err)
	}
	s, err := recordsSchema()
	if err != nil {
		return h, nil, err
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return h, nil, corrupt(path, err)
	}
	if err := s.Validate(doc); err != nil {
		return h, nil, corrupt(path, err)
	}
	var recs []multiblock.Record
	if err := json.Unmarshal(body, &recs); err != nil {
		return h, nil, corrupt(path, err)
	}
	if len(recs) != h.Records {
		return h, nil, corrupt(path, fmt.Errorf("header counts %d records, body has %d", h.Records, len(recs)))
	}
	return h, recs, nil
}

func corrupt(path string, err error) error {
	return fmt.Errorf("%s: %v: %w", filepath.Base(path), err, errs.ErrPersistenceCorruption)
}

// FileStore is a multiblock.Persister backed by one snapshot file.
type FileStore struct {
	Path      string
	Namespace string
}

func NewFileStore(path, namespace string) *FileStore {
	return &FileStore{Path: path, Namespace: namespace}
}

func (s *FileStore) SaveRecords(recs []multiblock.Record) error {
	return Write(s.Path, Header{Version: Version, Namespace: s.Namespace}, recs)
}

func (s *FileStore) LoadRecords() ([]multiblock.Record, error) {
	h, recs, err := Read(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if s.Namespace != "" && h.Namespace != s.Namespace {
		return nil, corrupt(s.Path, fmt.Errorf("namespace %q, want %q", h.Namespace, s.Namespace))
	}
	return recs, nil
}
