package completion

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema is a compiled JSON Schema (draft 2020-12) for completion output.
type Schema struct {
	compiled *jsonschema.Schema
}

// CompileSchema compiles src, registered under name.
func CompileSchema(name, src string) (*Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		return nil, eris.Wrapf(err, "completion: add schema resource %s", name)
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return nil, eris.Wrapf(err, "completion: compile schema %s", name)
	}
	return &Schema{compiled: compiled}, nil
}

// MustCompileSchema is CompileSchema for package-level schemas.
func MustCompileSchema(name, src string) *Schema {
	s, err := CompileSchema(name, src)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks a JSON document against the schema.
func (s *Schema) Validate(doc []byte) error {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return eris.Wrap(err, "completion: decode for validation")
	}
	if err := s.compiled.Validate(value); err != nil {
		return eris.Wrap(err, "completion: validate")
	}
	return nil
}
