package protocol

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	schemaOnce sync.Once
	schemaErr  error
	commandSch *jsonschema.Schema
	resultSch  *jsonschema.Schema
)

func loadSchemas() error {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft7
		for _, name := range []string{"command.schema.json", "result.schema.json"} {
			f, err := schemaFS.Open("schemas/" + name)
			if err != nil {
				schemaErr = err
				return
			}
			err = c.AddResource(name, f)
			_ = f.Close()
			if err != nil {
				schemaErr = fmt.Errorf("add %s: %w", name, err)
				return
			}
		}
		if commandSch, schemaErr = c.Compile("command.schema.json"); schemaErr != nil {
			return
		}
		resultSch, schemaErr = c.Compile("result.schema.json")
	})
	return schemaErr
}

// DecodeCommand validates raw against the command schema and decodes it.
func DecodeCommand(raw []byte) (CommandMsg, error) {
	var cmd CommandMsg
	if err := loadSchemas(); err != nil {
		return cmd, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return cmd, fmt.Errorf("command: %w", err)
	}
	if err := commandSch.Validate(doc); err != nil {
		return cmd, fmt.Errorf("command: %w", err)
	}
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return cmd, fmt.Errorf("command: %w", err)
	}
	return cmd, nil
}

// ValidateResult checks an outgoing result against the result schema.
func ValidateResult(r ResultMsg) error {
	if err := loadSchemas(); err != nil {
		return err
	}
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	return resultSch.Validate(doc)
}
