package export

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/agentstation/cardmap/pkg/errors"
)

//go:embed schema.json
var schemaJSON []byte

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// Schema returns the JSON schema of the exported catalog.
func Schema() []byte {
	return bytes.Clone(schemaJSON)
}

func catalogSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("schema.json", bytes.NewReader(schemaJSON)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile("schema.json")
	})
	return compiled, compileErr
}

// Validate checks an exported catalog document against the schema and
// reports duplicated identifiers.
func Validate(data []byte) error {
	schema, err := catalogSchema()
	if err != nil {
		return errors.NewConfigError("schema", "compile catalog schema", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return errors.WrapParse("json", "", err)
	}
	if err := schema.Validate(doc); err != nil {
		return errors.WrapValidation("catalog", err)
	}

	seen := make(map[string]int)
	for i, item := range doc.([]any) {
		id, _ := item.(map[string]any)["uniqueId"].(string)
		if prev, dup := seen[id]; dup {
			return errors.NewValidationError("uniqueId", id,
				fmt.Sprintf("identifier repeated at entries %d and %d", prev, i))
		}
		seen[id] = i
	}
	return nil
}
