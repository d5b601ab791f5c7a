package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/klauspost/compress/zstd"

	"voxelcraft.ai/customcontent/internal/sim/engine"
)

const WorldsVersion = 1

// WorldsHeader is the JSON line in front of a world snapshot, readable
// without decoding the gob body.
type WorldsHeader struct {
	Version int    `json:"version"`
	Tick    uint64 `json:"tick"`
	Worlds  int    `json:"worlds"`
	Chunks  int    `json:"chunks"`
}

type worldsBody struct {
	Header WorldsHeader
	Worlds []engine.WorldState
}

// WriteWorlds stores the host worlds' blocks and entities at path, replacing
// the previous file.
func WriteWorlds(path string, tick uint64, states []engine.WorldState) error {
	h := WorldsHeader{Version: WorldsVersion, Tick: tick, Worlds: len(states)}
	for _, st := range states {
		h.Chunks += len(st.Chunks)
	}
	return writeAtomic(path, func(bw *bufio.Writer) error {
		if err := writeHeader(bw, h); err != nil {
			return err
		}
		if err := gob.NewEncoder(bw).Encode(worldsBody{Header: h, Worlds: states}); err != nil {
			return fmt.Errorf("gob encode: %w", err)
		}
		return nil
	})
}

// ReadWorlds loads a world snapshot. A missing file is fs.ErrNotExist; any
// other failure is errs.ErrPersistenceCorruption.
func ReadWorlds(path string) (WorldsHeader, []engine.WorldState, error) {
	var h WorldsHeader
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

	br := bufio.NewReaderSize(dec, 256*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, nil, corrupt(path, fmt.Errorf("header: %w", err))
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, nil, corrupt(path, fmt.Errorf("header: %w", err))
	}
	if h.Version != WorldsVersion {
		return h, nil, corrupt(path, fmt.Errorf("unsupported version %d", h.Version))
	}
	var body worldsBody
	if err := gob.NewDecoder(br).Decode(&body); err != nil {
		return h, nil, corrupt(path, fmt.Errorf("gob decode: %w", err))
	}
	if body.Header != h || len(body.Worlds) != h.Worlds {
		return h, nil, corrupt(path, fmt.Errorf("header does not match body"))
	}
	return h, body.Worlds, nil
}

// WorldFile saves and restores the host worlds of a server through one
// snapshot file. Both calls must happen while the simulation loop is not
// running.
type WorldFile struct{ Path string }

func NewWorldFile(path string) *WorldFile { return &WorldFile{Path: path} }

func (wf *WorldFile) Save(srv *engine.Server) error {
	return WriteWorlds(wf.Path, srv.CurrentTick(), srv.ExportWorlds())
}

// Restore loads the file into srv. A missing file restores nothing and is
// not an error.
func (wf *WorldFile) Restore(srv *engine.Server) (engine.ImportStats, error) {
	_, states, err := ReadWorlds(wf.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return engine.ImportStats{}, nil
	}
	if err != nil {
		return engine.ImportStats{}, err
	}
	return srv.ImportWorlds(states)
}
