package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/inkwell-db/inkwell/internal/expr"
	"github.com/inkwell-db/inkwell/internal/plan"
	"github.com/inkwell-db/inkwell/internal/sqlbuild"
	"github.com/inkwell-db/inkwell/internal/translate"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompileResult holds the compiled program in its two serializations.
type CompileResult struct {
	Pretty    string          `json:"pretty"`
	Canonical json.RawMessage `json:"program"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <plan-file>",
		Short: "Compile a plan document to a program",
		Long: `Compile a CUE plan document into a linear database program.

The compiler parses the plan's nodes and edges, lowers the graph to an
expression program, and prints the program in its stable pretty form.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompileCmd(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompileCmd(opts *CompileOptions, planPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	program, doc, cmdErr := compilePlan(planPath)
	if cmdErr != nil {
		return cmdErr.emit(formatter)
	}
	formatter.VerboseLog("Compiled %d node(s) from %s", doc.Graph.NodeCount(), planPath)

	pretty := expr.Format(program)
	canonical, err := expr.MarshalCanonical(program)
	if err != nil {
		return commandError(ErrCodeGeneric, "encoding program", err).emit(formatter)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, canonical, 0644); err != nil {
			return commandError(ErrCodeWriteFailed, "writing output file", err).emit(formatter)
		}
		formatter.VerboseLog("Wrote canonical program to %s", opts.Output)
	}

	if formatter.Format == "json" {
		return formatter.Success(CompileResult{Pretty: pretty, Canonical: canonical})
	}
	fmt.Fprintln(formatter.Writer, pretty)
	return nil
}

// compilePlan loads a plan document and lowers its graph to a program.
// Shared by the compile, run and explain commands.
func compilePlan(path string) (expr.Expression, *plan.Document, *cmdError) {
	doc, err := plan.Load(path)
	if err != nil {
		return nil, nil, commandError(ErrCodePlanLoad, "loading plan", err)
	}

	program, err := translate.Translate(doc.Graph, sqlbuild.New())
	if err != nil {
		return nil, nil, commandError(ErrCodeTranslate, "translating plan", err)
	}
	return program, doc, nil
}

// cmdError pairs a CLI error code with its cause so commands report
// failures uniformly.
type cmdError struct {
	code     string
	message  string
	err      error
	exitCode int
}

func commandError(code, message string, err error) *cmdError {
	return &cmdError{code: code, message: message, err: err, exitCode: ExitCommandError}
}

func executionError(code, message string, err error) *cmdError {
	return &cmdError{code: code, message: message, err: err, exitCode: ExitFailure}
}

// emit prints the error through the formatter and returns the ExitError
// cobra propagates.
func (e *cmdError) emit(formatter *OutputFormatter) error {
	message := e.message
	if e.err != nil {
		message = fmt.Sprintf("%s: %v", e.message, e.err)
	}
	_ = formatter.Error(e.code, message, nil)
	return WrapExitError(e.exitCode, fmt.Sprintf("%s: %s", e.code, e.message), e.err)
}

// newFormatter builds the per-command output formatter. Verbose logs go
// to stderr to avoid corrupting JSON output.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
