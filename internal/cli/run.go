package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/inkwell-db/inkwell/internal/conn"
	"github.com/inkwell-db/inkwell/internal/interp"
	"github.com/inkwell-db/inkwell/internal/qvalue"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string // SQLite database path; empty means in-memory
	Schema   string // optional DDL file applied before execution
}

// RunResult holds the executed program's final value.
type RunResult struct {
	Value json.RawMessage `json:"value"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <plan-file>",
		Short: "Compile and execute a plan document",
		Long: `Compile a CUE plan document and execute the resulting program
against a SQLite database.

With no --db flag the program runs against a fresh in-memory database;
use --schema to create the model tables first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database path (default in-memory)")
	cmd.Flags().StringVar(&opts.Schema, "schema", "", "DDL file applied before execution")

	return cmd
}

func runRun(opts *RunOptions, planPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	program, _, cmdErr := compilePlan(planPath)
	if cmdErr != nil {
		return cmdErr.emit(formatter)
	}

	db, err := openDatabase(opts.Database)
	if err != nil {
		return commandError(ErrCodeDatabase, "opening database", err).emit(formatter)
	}
	defer db.Close()

	if opts.Schema != "" {
		ddl, err := os.ReadFile(opts.Schema)
		if err != nil {
			return commandError(ErrCodeDatabase, "reading schema file", err).emit(formatter)
		}
		if err := db.ApplyDDL(string(ddl)); err != nil {
			return commandError(ErrCodeDatabase, "applying schema", err).emit(formatter)
		}
		formatter.VerboseLog("Applied schema from %s", opts.Schema)
	}

	value, err := interp.New(db.Handle()).Run(cmd.Context(), program)
	if err != nil {
		return executionError(ErrCodeExecution, "executing program", err).emit(formatter)
	}

	encoded, err := qvalue.MarshalCanonical(value)
	if err != nil {
		return commandError(ErrCodeGeneric, "encoding result", err).emit(formatter)
	}

	if formatter.Format == "json" {
		return formatter.Success(RunResult{Value: encoded})
	}
	fmt.Fprintln(formatter.Writer, string(encoded))
	return nil
}

// openDatabase opens the named database, or a fresh in-memory one when
// no path is given.
func openDatabase(path string) (*conn.DB, error) {
	if path == "" {
		return conn.OpenMemory()
	}
	return conn.Open(path)
}
