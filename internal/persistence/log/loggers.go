package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"voxelcraft.ai/customcontent/internal/content/facade"
)

// hourLayout names one rotation period.
const hourLayout = "2006-01-02-15"

// HourlyJSONL appends JSON lines to <dir>/<namespace>-<hour>.jsonl.zst, one
// file per namespace and UTC hour. Lines are buffered until Flush, a
// rotation or Close; a reopened hour appends a new zstd frame, so the file
// stays readable.
type HourlyJSONL struct {
	dir string
	now func() time.Time

	mu    sync.Mutex
	files map[string]*hourFile
}

type hourFile struct {
	hour  string
	f     *os.File
	enc   *zstd.Encoder
	w     *bufio.Writer
	dirty bool
}

// NewHourlyJSONL writes under dir. A nil clock uses time.Now.
func NewHourlyJSONL(dir string, now func() time.Time) *HourlyJSONL {
	if now == nil {
		now = time.Now
	}
	return &HourlyJSONL{dir: dir, now: now, files: map[string]*hourFile{}}
}

func (h *HourlyJSONL) Write(namespace string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	hour := h.now().UTC().Format(hourLayout)
	hf := h.files[namespace]
	if hf == nil || hf.hour != hour {
		if hf != nil {
			delete(h.files, namespace)
			if err := hf.close(); err != nil {
				return err
			}
		}
		if hf, err = h.open(namespace, hour); err != nil {
			return err
		}
		h.files[namespace] = hf
	}
	if _, err := hf.w.Write(b); err != nil {
		return err
	}
	hf.dirty = true
	return hf.w.WriteByte('\n')
}

// Flush pushes buffered lines of every open file down to disk.
func (h *HourlyJSONL) Flush() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var first error
	for _, hf := range h.files {
		if err := hf.flush(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (h *HourlyJSONL) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var first error
	for ns, hf := range h.files {
		if err := hf.close(); err != nil && first == nil {
			first = err
		}
		delete(h.files, ns)
	}
	return first
}

func (h *HourlyJSONL) open(namespace, hour string) (*hourFile, error) {
	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(h.dir, fmt.Sprintf("%s-%s.jsonl.zst", namespace, hour))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &hourFile{hour: hour, f: f, enc: enc, w: bufio.NewWriterSize(enc, 64*1024)}, nil
}

func (hf *hourFile) flush() error {
	if !hf.dirty {
		return nil
	}
	if err := hf.w.Flush(); err != nil {
		return err
	}
	if err := hf.enc.Flush(); err != nil {
		return err
	}
	hf.dirty = false
	return nil
}

func (hf *hourFile) close() error {
	err := hf.w.Flush()
	if cerr := hf.enc.Close(); err == nil {
		err = cerr
	}
	if cerr := hf.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// AuditLogger writes content audit entries of one namespace into hourly
// compressed JSONL files under <dataDir>/audit.
type AuditLogger struct {
	w         *HourlyJSONL
	namespace string
}

func NewAuditLogger(dataDir, namespace string, now func() time.Time) *AuditLogger {
	return &AuditLogger{w: NewHourlyJSONL(AuditDir(dataDir), now), namespace: namespace}
}

// AuditDir is where audit files of dataDir live.
func AuditDir(dataDir string) string { return filepath.Join(dataDir, "audit") }

func (l *AuditLogger) WriteAudit(e facade.AuditEntry) error { return l.w.Write(l.namespace, e) }
func (l *AuditLogger) Flush() error                         { return l.w.Flush() }
func (l *AuditLogger) Close() error                         { return l.w.Close() }

// Tee fans every entry out to all sinks and returns the first error.
type Tee []facade.AuditLogger

func (t Tee) WriteAudit(e facade.AuditEntry) error {
	var first error
	for _, s := range t {
		if s == nil {
			continue
		}
		if err := s.WriteAudit(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Flush flushes every sink that buffers.
func (t Tee) Flush() error {
	var first error
	for _, s := range t {
		f, ok := s.(interface{ Flush() error })
		if !ok {
			continue
		}
		if err := f.Flush(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ReadJSONL decodes every line of one compressed JSONL file.
func ReadJSONL[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []T
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var v T
		if err := json.Unmarshal(sc.Bytes(), &v); err != nil {
			return out, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		out = append(out, v)
	}
	return out, sc.Err()
}
