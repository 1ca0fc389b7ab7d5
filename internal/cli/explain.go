package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkwell-db/inkwell/internal/expr"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
}

// ExplainResult describes a compiled program for inspection.
type ExplainResult struct {
	Plan          string   `json:"plan"`
	Nodes         int      `json:"nodes"`
	Transactional bool     `json:"transactional"`
	Statements    []string `json:"statements"`
	Pretty        string   `json:"pretty"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <plan-file>",
		Short: "Show the program a plan document compiles to",
		Long: `Compile a CUE plan document and show the resulting program
together with every SQL statement it would issue, without touching a
database.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args[0], cmd)
		},
	}

	return cmd
}

func runExplain(opts *ExplainOptions, planPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	program, doc, cmdErr := compilePlan(planPath)
	if cmdErr != nil {
		return cmdErr.emit(formatter)
	}

	result := ExplainResult{
		Plan:          planPath,
		Nodes:         doc.Graph.NodeCount(),
		Transactional: doc.Graph.NeedsTransaction(),
		Statements:    collectStatements(program),
		Pretty:        expr.Format(program),
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "Plan: %s (%d node(s))\n", planPath, result.Nodes)
	if result.Transactional {
		fmt.Fprintln(formatter.Writer, "Runs in a transaction")
	}
	fmt.Fprintln(formatter.Writer)
	fmt.Fprintln(formatter.Writer, "Statements:")
	for _, stmt := range result.Statements {
		fmt.Fprintf(formatter.Writer, "  %s\n", stmt)
	}
	fmt.Fprintln(formatter.Writer)
	fmt.Fprintln(formatter.Writer, result.Pretty)
	return nil
}

// collectStatements walks the program and gathers every database
// statement in evaluation order.
func collectStatements(program expr.Expression) []string {
	var out []string

	var walk func(e expr.Expression)
	walk = func(e expr.Expression) {
		switch node := e.(type) {
		case expr.Query:
			out = append(out, node.DB.Statement)
		case expr.Execute:
			out = append(out, node.DB.Statement)
		case expr.Seq:
			for _, item := range node.Items {
				walk(item)
			}
		case expr.Let:
			for _, b := range node.Bindings {
				walk(b.Expr)
			}
			walk(node.Body)
		case expr.Reverse:
			walk(node.Expr)
		case expr.Sum:
			for _, item := range node.Exprs {
				walk(item)
			}
		case expr.Concat:
			for _, item := range node.Exprs {
				walk(item)
			}
		case expr.Unique:
			walk(node.Expr)
		case expr.Required:
			walk(node.Expr)
		case expr.Join:
			walk(node.Parent)
			for _, child := range node.Children {
				walk(child.Child)
			}
		case expr.MapField:
			walk(node.Records)
		case expr.Transaction:
			walk(node.Expr)
		case expr.DataMap:
			walk(node.Expr)
		case expr.Validate:
			walk(node.Expr)
		case expr.If:
			walk(node.Value)
			walk(node.Then)
			walk(node.Else)
		case expr.Diff:
			walk(node.From)
			walk(node.To)
		case expr.DistinctBy:
			walk(node.Expr)
		case expr.Paginate:
			walk(node.Expr)
		case expr.ExtendRecord:
			walk(node.Expr)
		}
	}
	walk(program)

	return out
}
