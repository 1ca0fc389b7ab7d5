package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// ValidateResult summarizes a validated plan document.
type ValidateResult struct {
	Plan          string `json:"plan"`
	Nodes         int    `json:"nodes"`
	Models        int    `json:"models"`
	Transactional bool   `json:"transactional"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <plan-file>",
		Short: "Validate a plan document",
		Long: `Validate a CUE plan document without executing anything.

Parses the document, resolves node and edge references, and lowers the
graph to a program to surface structural errors. Nothing is written.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, planPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	_, doc, cmdErr := compilePlan(planPath)
	if cmdErr != nil {
		return cmdErr.emit(formatter)
	}

	result := ValidateResult{
		Plan:          planPath,
		Nodes:         doc.Graph.NodeCount(),
		Models:        len(doc.Models),
		Transactional: doc.Graph.NeedsTransaction(),
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ %s is valid: %d node(s), %d model(s)\n",
		planPath, result.Nodes, result.Models)
	if result.Transactional {
		fmt.Fprintln(formatter.Writer, "  runs in a transaction")
	}
	return nil
}
