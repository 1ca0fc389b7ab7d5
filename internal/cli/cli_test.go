package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPlan = `
plan: {
	models: User: fields: {
		id:   "int"
		name: "string"
	}
	nodes: [{
		id:     "create"
		kind:   "query"
		model:  "User"
		op:     "create"
		args: name: "Alice"
		result: true
	}]
}
`

const failingPlan = `
plan: {
	nodes: [
		{id: "guard", kind: "query", model: "User", op: "findMany"},
		{id: "wipe", kind: "query", model: "User", op: "delete"},
	]
	edges: [{kind: "data", from: "guard", to: "wipe", expect: {rowCountEq: 1}}]
}
`

const testSchema = `CREATE TABLE User (id INTEGER PRIMARY KEY, name TEXT NOT NULL);`

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestCompileCommand_TextOutput(t *testing.T) {
	plan := writeTempFile(t, "plan.cue", testPlan)

	out, _, err := runCLI(t, "compile", plan)
	require.NoError(t, err)
	assert.Contains(t, out, "execute \"INSERT INTO User (name) VALUES (?)\"")
	assert.Contains(t, out, "dataMap count")
}

func TestCompileCommand_JSONOutput(t *testing.T) {
	plan := writeTempFile(t, "plan.cue", testPlan)

	out, _, err := runCLI(t, "--format", "json", "compile", plan)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, data["pretty"], "execute")
	assert.Contains(t, data, "program")
}

func TestCompileCommand_WritesOutputFile(t *testing.T) {
	plan := writeTempFile(t, "plan.cue", testPlan)
	outPath := filepath.Join(t.TempDir(), "program.json")

	_, _, err := runCLI(t, "compile", plan, "-o", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var program map[string]any
	require.NoError(t, json.Unmarshal(data, &program))
	assert.Equal(t, "dataMap", program["kind"])
}

func TestCompileCommand_MissingPlanFile(t *testing.T) {
	out, _, err := runCLI(t, "compile", filepath.Join(t.TempDir(), "absent.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodePlanLoad)
}

func TestCompileCommand_MalformedPlan(t *testing.T) {
	plan := writeTempFile(t, "plan.cue", `plan: nodes: [{id: "a", kind: "bogus"}]`)

	out, _, err := runCLI(t, "--format", "json", "compile", plan)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodePlanLoad, resp.Error.Code)
}

func TestInvalidFormatRejected(t *testing.T) {
	plan := writeTempFile(t, "plan.cue", testPlan)

	_, _, err := runCLI(t, "--format", "xml", "compile", plan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestValidateCommand_TextOutput(t *testing.T) {
	plan := writeTempFile(t, "plan.cue", testPlan)

	out, _, err := runCLI(t, "validate", plan)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")
	assert.Contains(t, out, "1 node(s)")
	assert.Contains(t, out, "1 model(s)")
}

func TestValidateCommand_JSONOutput(t *testing.T) {
	plan := writeTempFile(t, "plan.cue", testPlan)

	out, _, err := runCLI(t, "--format", "json", "validate", plan)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(1), data["nodes"])
	assert.Equal(t, float64(1), data["models"])
	assert.Equal(t, false, data["transactional"])
}

func TestValidateCommand_SurfacesTranslationErrors(t *testing.T) {
	// Compiles as a document but fails structurally: the If node has no
	// Then edge.
	plan := writeTempFile(t, "plan.cue", `
plan: nodes: [{id: "cond", kind: "if", rule: "never", data: "x"}]
`)

	out, _, err := runCLI(t, "validate", plan)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeTranslate)
}

func TestRunCommand_ExecutesProgram(t *testing.T) {
	plan := writeTempFile(t, "plan.cue", testPlan)
	schema := writeTempFile(t, "schema.sql", testSchema)

	out, _, err := runCLI(t, "run", plan, "--schema", schema)
	require.NoError(t, err)
	assert.Contains(t, out, `{"count":1}`)
}

func TestRunCommand_JSONOutput(t *testing.T) {
	plan := writeTempFile(t, "plan.cue", testPlan)
	schema := writeTempFile(t, "schema.sql", testSchema)

	out, _, err := runCLI(t, "--format", "json", "run", plan, "--schema", schema)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data := resp.Data.(map[string]any)
	value := data["value"].(map[string]any)
	assert.Equal(t, float64(1), value["count"])
}

func TestRunCommand_ExecutionFailureExitCode(t *testing.T) {
	plan := writeTempFile(t, "plan.cue", failingPlan)
	schema := writeTempFile(t, "schema.sql", testSchema)

	out, _, err := runCLI(t, "run", plan, "--schema", schema)
	require.Error(t, err)
	// A violated expectation is a program failure, not a command error.
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeExecution)
}

func TestRunCommand_PersistsToDatabaseFile(t *testing.T) {
	plan := writeTempFile(t, "plan.cue", testPlan)
	schema := writeTempFile(t, "schema.sql", testSchema)
	dbPath := filepath.Join(t.TempDir(), "test.db")

	_, _, err := runCLI(t, "run", plan, "--db", dbPath, "--schema", schema)
	require.NoError(t, err)

	// A second run against the same file sees the first insert.
	out, _, err := runCLI(t, "run", plan, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, `{"count":1}`)

	info, err := os.Stat(dbPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestExplainCommand_ListsStatements(t *testing.T) {
	plan := writeTempFile(t, "plan.cue", testPlan)

	out, _, err := runCLI(t, "explain", plan)
	require.NoError(t, err)
	assert.Contains(t, out, "Statements:")
	assert.Contains(t, out, "INSERT INTO User (name) VALUES (?)")
	assert.Contains(t, out, "dataMap count")
}

func TestExplainCommand_JSONOutput(t *testing.T) {
	plan := writeTempFile(t, "plan.cue", testPlan)

	out, _, err := runCLI(t, "--format", "json", "explain", plan)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	data := resp.Data.(map[string]any)
	statements := data["statements"].([]any)
	require.Len(t, statements, 1)
	assert.Equal(t, "INSERT INTO User (name) VALUES (?)", statements[0])
}

func TestVerboseLogsGoToStderr(t *testing.T) {
	plan := writeTempFile(t, "plan.cue", testPlan)

	out, errOut, err := runCLI(t, "--format", "json", "-v", "compile", plan)
	require.NoError(t, err)

	// Stdout stays valid JSON; diagnostics land on stderr.
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Contains(t, errOut, "Compiled")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "nope")))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
}
