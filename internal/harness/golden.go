package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/inkwell-db/inkwell/internal/qvalue"
)

// Snapshot captures a scenario run for golden comparison. All fields use
// canonical JSON serialization for deterministic comparison.
type Snapshot struct {
	ScenarioName string
	Program      string
	Value        qvalue.Value
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical
// JSON serialization.
func (s *Snapshot) toCanonicalMap() map[string]any {
	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"program":       s.Program,
	}
	if s.Value != nil {
		result["value"] = s.Value
	}
	return result
}

// RunWithGolden executes a scenario and compares the snapshot against a
// golden file. The golden file is stored in
// testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, s *Scenario) error {
	t.Helper()

	result, err := Run(context.Background(), s)
	if err != nil {
		return err
	}

	snapshot := Snapshot{
		ScenarioName: s.Name,
		Program:      result.Pretty,
		Value:        result.Value,
	}

	data, err := qvalue.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, data)

	return nil
}
