package catalogs

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// Catalogs are the host engine's static type tables: the block types a world
// can hold, the item materials a stack can be made of and the entity types
// that can be spawned.
type Catalogs struct {
	Blocks   BlockCatalog
	Items    ItemCatalog
	Entities EntityCatalog
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string
}

type BlockDef struct {
	ID        string `json:"id"`
	Solid     bool   `json:"solid"`
	Breakable bool   `json:"breakable"`
}

type ItemCatalog struct {
	Palette []string
	Defs    map[string]ItemDef
	Digest  string
}

type ItemDef struct {
	ID       string `json:"id"`
	MaxStack int    `json:"max_stack"`
	PlaceAs  string `json:"place_as,omitempty"`
}

type EntityCatalog struct {
	Types  []string
	Defs   map[string]EntityTypeDef
	Digest string
}

type EntityTypeDef struct {
	ID        string `json:"id"`
	Living    bool   `json:"living"`
	MaxHealth int    `json:"max_health"`
}

func Load(configDir string) (*Catalogs, error) {
	var (
		blocks   []BlockDef
		items    []ItemDef
		entities []EntityTypeDef
	)
	blocksRaw, err := readValidated(filepath.Join(configDir, "blocks.json"), "blocks.schema.json", &blocks)
	if err != nil {
		return nil, err
	}
	itemsRaw, err := readValidated(filepath.Join(configDir, "items.json"), "items.schema.json", &items)
	if err != nil {
		return nil, err
	}
	entitiesRaw, err := readValidated(filepath.Join(configDir, "entities.json"), "entities.schema.json", &entities)
	if err != nil {
		return nil, err
	}

	c, err := Build(blocks, items, entities)
	if err != nil {
		return nil, err
	}
	c.Blocks.DefsDigest = sha256Hex(blocksRaw)
	c.Items.Digest = sha256Hex(itemsRaw)
	c.Entities.Digest = sha256Hex(entitiesRaw)
	return c, nil
}

// Build assembles catalogs from already decoded definitions. Load uses it
// after schema validation; tests use it directly.
func Build(blocks []BlockDef, items []ItemDef, entities []EntityTypeDef) (*Catalogs, error) {
	var c Catalogs
	if err := buildBlocks(blocks, &c.Blocks); err != nil {
		return nil, err
	}
	if err := buildItems(items, &c.Items); err != nil {
		return nil, err
	}
	if err := buildEntities(entities, &c.Entities); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *BlockCatalog) Has(id string) bool {
	_, ok := c.Index[id]
	return ok
}

func (c *ItemCatalog) Has(id string) bool {
	_, ok := c.Defs[id]
	return ok
}

func (c *EntityCatalog) Has(id string) bool {
	_, ok := c.Defs[id]
	return ok
}

func readValidated(path, schemaName string, out any) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	schema, err := compileSchema(schemaName)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return raw, nil
}

func compileSchema(name string) (*jsonschema.Schema, error) {
	b, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		return nil, err
	}
	s, err := jsonschema.CompileString(name, string(b))
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	return s, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func buildBlocks(defs []BlockDef, out *BlockCatalog) error {
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("blocks.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("blocks.json: duplicate id %s", d.ID)
		}
		out.Defs[d.ID] = d
	}

	// Ensure AIR exists and is palette id 0.
	if _, ok := out.Defs["AIR"]; !ok {
		return fmt.Errorf("blocks.json: missing AIR")
	}
	ids := sortedKeys(out.Defs)
	ids = append([]string{"AIR"}, filterOut(ids, "AIR")...)
	if len(ids) > 1<<16 {
		return fmt.Errorf("blocks.json: %d block types exceed palette size", len(ids))
	}

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	if out.DefsDigest == "" {
		defsJSON, _ := json.Marshal(defs)
		out.DefsDigest = sha256Hex(defsJSON)
	}
	return nil
}

func buildItems(defs []ItemDef, out *ItemCatalog) error {
	out.Defs = map[string]ItemDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("items.json: duplicate id %s", d.ID)
		}
		if d.MaxStack <= 0 {
			d.MaxStack = 64
		}
		out.Defs[d.ID] = d
	}
	out.Palette = sortedKeys(out.Defs)
	return nil
}

func buildEntities(defs []EntityTypeDef, out *EntityCatalog) error {
	out.Defs = map[string]EntityTypeDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("entities.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("entities.json: duplicate id %s", d.ID)
		}
		out.Defs[d.ID] = d
	}
	out.Types = sortedKeys(out.Defs)
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func filterOut(in []string, remove string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == remove {
			continue
		}
		out = append(out, s)
	}
	return out
}
