// Package harness runs conformance scenarios end to end: plan document
// in, compiled program and (optionally) executed result out. Scenario
// outputs are compared against golden files for regression coverage.
package harness

import (
	"context"
	"fmt"

	"github.com/inkwell-db/inkwell/internal/conn"
	"github.com/inkwell-db/inkwell/internal/expr"
	"github.com/inkwell-db/inkwell/internal/interp"
	"github.com/inkwell-db/inkwell/internal/plan"
	"github.com/inkwell-db/inkwell/internal/qvalue"
	"github.com/inkwell-db/inkwell/internal/sqlbuild"
	"github.com/inkwell-db/inkwell/internal/translate"
)

// Result captures everything a scenario produced.
type Result struct {
	// Program is the compiled expression tree.
	Program expr.Expression

	// Pretty is the printed form of the program.
	Pretty string

	// Value is the executed program's final value. Nil when the
	// scenario does not execute.
	Value qvalue.Value
}

// Run compiles a scenario's plan and, when requested, executes the
// compiled program against a seeded in-memory database.
func Run(ctx context.Context, s *Scenario) (*Result, error) {
	doc, err := plan.Load(s.PlanPath())
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	program, err := translate.Translate(doc.Graph, sqlbuild.New())
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	result := &Result{
		Program: program,
		Pretty:  expr.Format(program),
	}

	if !s.Execute {
		return result, nil
	}

	db, err := conn.OpenMemory()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	defer db.Close()

	if err := db.ApplyDDL(s.Schema); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	for _, stmt := range s.Seed {
		if _, err := db.Handle().ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("scenario %s: seed %q: %w", s.Name, stmt, err)
		}
	}

	value, err := interp.New(db.Handle()).Run(ctx, program)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	result.Value = value

	return result, nil
}
