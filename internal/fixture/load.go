package fixture

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"sigs.k8s.io/yaml"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "https://github.com/deixis/jftest/fixture.schema.json"

var (
	schemaOnce     sync.Once
	schemaErr      error
	compiledSchema *jsonschema.Schema
)

// Load reads every path in order and returns the fixtures they contain,
// preserving file order and in-file order. It fails on the first source
// that cannot be read, parsed or validated; no partial result is returned.
func Load(paths ...string) ([]Fixture, error) {
	var all []Fixture
	for _, p := range paths {
		fixtures, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		all = append(all, fixtures...)
	}
	return all, nil
}

// LoadFile reads a single fixture file.
func LoadFile(path string) ([]Fixture, error) {
	if strings.HasPrefix(path, "-") {
		return nil, fmt.Errorf("Invalid option %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("File %s not found", path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	fixtures, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	source := filepath.Base(path)
	for i := range fixtures {
		fixtures[i].Source = source
	}
	return fixtures, nil
}

// Parse decodes and validates the contents of a fixture file.
// Input that is not JSON is read as YAML and converted to JSON first.
func Parse(data []byte) ([]Fixture, error) {
	jsonData := data
	if !json.Valid(data) {
		var err error
		if jsonData, err = yaml.YAMLToJSON(data); err != nil {
			return nil, fmt.Errorf("parsing: %w", err)
		}
	}

	var document any
	if err := json.Unmarshal(jsonData, &document); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}

	sch, err := loadSchema()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(document); err != nil {
		return nil, fmt.Errorf("validating: %w", err)
	}

	var fixtures []Fixture
	if err := json.Unmarshal(jsonData, &fixtures); err != nil {
		return nil, fmt.Errorf("decoding: %w", err)
	}
	return fixtures, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("loading fixture schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}
