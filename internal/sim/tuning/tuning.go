package tuning

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. CC_NAMESPACE.
const EnvPrefix = "CC_"

// Persistence backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

type Tuning struct {
	Namespace  string   `yaml:"namespace" env:"NAMESPACE"`
	TickRateHz int      `yaml:"tick_rate_hz" env:"TICK_RATE_HZ"`
	Worlds     []string `yaml:"worlds" env:"WORLDS" envSeparator:","`
	MinY       int      `yaml:"min_y" env:"MIN_Y"`
	MaxY       int      `yaml:"max_y" env:"MAX_Y"`

	DataDir string `yaml:"data_dir" env:"DATA_DIR"`
	Listen  string `yaml:"listen" env:"LISTEN"`
	Audit   bool   `yaml:"audit" env:"AUDIT"`

	Persistence Persistence `yaml:"persistence" envPrefix:"PERSISTENCE_"`
}

type Persistence struct {
	Backend string `yaml:"backend" env:"BACKEND"`
	// File, SQLite and World are relative to DataDir unless absolute.
	File   string `yaml:"file" env:"FILE"`
	SQLite string `yaml:"sqlite" env:"SQLITE"`

	// World holds the host chunks and entities across restarts.
	World string `yaml:"world" env:"WORLD"`
}

func Defaults() Tuning {
	return Tuning{
		Namespace:  "customcontent",
		TickRateHz: 20,
		Worlds:     []string{"world"},
		MinY:       -64,
		MaxY:       320,
		DataDir:    "./data",
		Listen:     ":8080",
		Audit:      true,
		Persistence: Persistence{
			Backend: BackendFile,
			File:    "multiblocks.snap.zst",
			SQLite:  "multiblocks.sqlite",
			World:   "worlds.snap.zst",
		},
	}
}

// Load reads path over Defaults, applies CC_* environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return t, err
		}
		if err := yaml.Unmarshal(raw, &t); err != nil {
			return t, fmt.Errorf("tuning.yaml: %w", err)
		}
	}
	if err := env.ParseWithOptions(&t, env.Options{Prefix: EnvPrefix}); err != nil {
		return t, fmt.Errorf("tuning env: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

func (t *Tuning) Normalize() {
	t.Namespace = strings.ToLower(strings.TrimSpace(t.Namespace))
	t.Persistence.Backend = strings.ToLower(strings.TrimSpace(t.Persistence.Backend))
	worlds := t.Worlds[:0]
	for _, w := range t.Worlds {
		if w = strings.TrimSpace(w); w != "" {
			worlds = append(worlds, w)
		}
	}
	t.Worlds = worlds
}

var namespaceRE = regexp.MustCompile(`^[a-z0-9._-]+$`)

func (t Tuning) Validate() error {
	if !namespaceRE.MatchString(t.Namespace) {
		return fmt.Errorf("tuning: namespace %q must match %s", t.Namespace, namespaceRE)
	}
	if t.TickRateHz <= 0 || t.TickRateHz > 1000 {
		return fmt.Errorf("tuning: tick_rate_hz %d outside 1..1000", t.TickRateHz)
	}
	if len(t.Worlds) == 0 {
		return fmt.Errorf("tuning: no worlds")
	}
	seen := map[string]bool{}
	for _, w := range t.Worlds {
		if seen[w] {
			return fmt.Errorf("tuning: world %q listed twice", w)
		}
		seen[w] = true
	}
	if t.MaxY <= t.MinY {
		return fmt.Errorf("tuning: max_y %d must exceed min_y %d", t.MaxY, t.MinY)
	}
	if t.Persistence.World == "" {
		return fmt.Errorf("tuning: persistence.world is empty")
	}
	switch t.Persistence.Backend {
	case BackendFile:
		if t.Persistence.File == "" {
			return fmt.Errorf("tuning: persistence.file is empty")
		}
	case BackendSQLite:
		if t.Persistence.SQLite == "" {
			return fmt.Errorf("tuning: persistence.sqlite is empty")
		}
	default:
		return fmt.Errorf("tuning: unknown persistence backend %q", t.Persistence.Backend)
	}
	return nil
}

// PathIn resolves a persistence path against dataDir.
func PathIn(dataDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dataDir, p)
}
