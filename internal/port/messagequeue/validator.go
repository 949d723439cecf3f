package messagequeue

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

func compileSchemas() {
	c := jsonschema.NewCompiler()
	for name, src := range schemaSources {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal schema %s: %w", name, err)
			return
		}
		if err := c.AddResource(name+".json", doc); err != nil {
			compileErr = fmt.Errorf("add schema %s: %w", name, err)
			return
		}
	}
	compiled = make(map[string]*jsonschema.Schema, len(schemaSources))
	for name := range schemaSources {
		s, err := c.Compile(name + ".json")
		if err != nil {
			compileErr = fmt.Errorf("compile schema %s: %w", name, err)
			return
		}
		compiled[name] = s
	}
}

// Validate checks whether data is JSON conforming to the schema registered
// for subject. Subjects without a schema only need to be valid JSON.
func Validate(subject string, data []byte) error {
	compileOnce.Do(compileSchemas)
	if compileErr != nil {
		return compileErr
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid JSON on subject %s: %w", subject, err)
	}

	schema, ok := compiled[subject]
	if !ok {
		return nil
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", subject, err)
	}
	return nil
}
