package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// A scenario compiles one plan document into a program and optionally
// executes that program against a seeded in-memory database.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Plan is the path to the CUE plan document to compile.
	// Relative to the scenario file location.
	Plan string `yaml:"plan"`

	// Schema contains DDL statements creating the model tables.
	// Required when Execute is true.
	Schema string `yaml:"schema,omitempty"`

	// Seed contains SQL statements run before the program executes.
	// Seed statements are assumed to succeed.
	Seed []string `yaml:"seed,omitempty"`

	// Execute controls whether the compiled program also runs against
	// an in-memory database. When false only the compiled form is
	// captured.
	Execute bool `yaml:"execute,omitempty"`

	// dir is the directory the scenario file was loaded from, used to
	// resolve the plan path.
	dir string
}

// LoadScenario reads and parses a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s: name is required", path)
	}
	if s.Plan == "" {
		return nil, fmt.Errorf("scenario %s: plan is required", path)
	}
	if s.Execute && s.Schema == "" {
		return nil, fmt.Errorf("scenario %s: execute requires a schema", path)
	}

	s.dir = filepath.Dir(path)
	return &s, nil
}

// PlanPath resolves the plan document path relative to the scenario file.
func (s *Scenario) PlanPath() string {
	if filepath.IsAbs(s.Plan) || s.dir == "" {
		return s.Plan
	}
	return filepath.Join(s.dir, s.Plan)
}
