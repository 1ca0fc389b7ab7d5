// Package sqlbuild lowers primitive queries to parameterized SQLite
// statements. It is the concrete query-builder capability injected into
// the translator; the translator itself never manufactures SQL syntax.
package sqlbuild

import (
	"fmt"
	"sort"
	"strings"

	"github.com/inkwell-db/inkwell/internal/expr"
	"github.com/inkwell-db/inkwell/internal/qgraph"
	"github.com/inkwell-db/inkwell/internal/qvalue"
)

// SQLite builds statements for the SQLite dialect.
//
// Every SELECT carries an ORDER BY so results are deterministic across
// runs. All values are parameterized, never interpolated.
type SQLite struct{}

// New returns a SQLite builder.
func New() *SQLite {
	return &SQLite{}
}

// Build converts one primitive query into a dialect-specific DBQuery.
func (b *SQLite) Build(q *qgraph.Query) (*expr.DBQuery, error) {
	if q == nil {
		return nil, fmt.Errorf("cannot build nil query")
	}

	switch q.Op {
	case qgraph.OpFindUnique, qgraph.OpFindMany:
		return b.buildSelect(q)
	case qgraph.OpAggregate:
		return b.buildAggregate(q)
	case qgraph.OpCreate:
		return b.buildInsert(q)
	case qgraph.OpUpdate, qgraph.OpUpdateMany:
		return b.buildUpdate(q)
	case qgraph.OpDelete:
		return b.buildDelete(q)
	default:
		return nil, fmt.Errorf("unsupported operation %s", q.Op)
	}
}

func (b *SQLite) buildSelect(q *qgraph.Query) (*expr.DBQuery, error) {
	cols := "*"
	if len(q.Returning) > 0 {
		cols = strings.Join(q.Returning, ", ")
	}

	where, params, err := b.whereClause(q)
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s", cols, q.Model, where, b.orderKey(q))
	if q.Op == qgraph.OpFindUnique {
		stmt += " LIMIT 1"
	}

	return &expr.DBQuery{Statement: stmt, Params: params, Columns: q.Returning}, nil
}

func (b *SQLite) buildAggregate(q *qgraph.Query) (*expr.DBQuery, error) {
	where, params, err := b.whereClause(q)
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf("SELECT COUNT(*) AS count FROM %s%s", q.Model, where)
	return &expr.DBQuery{Statement: stmt, Params: params, Columns: []string{"count"}}, nil
}

func (b *SQLite) buildInsert(q *qgraph.Query) (*expr.DBQuery, error) {
	if len(q.Args) == 0 {
		return nil, fmt.Errorf("create on %s has no write arguments", q.Model)
	}

	fields := make([]string, len(q.Args))
	marks := make([]string, len(q.Args))
	params := make([]qvalue.Value, len(q.Args))
	for i, arg := range q.Args {
		fields[i] = arg.Field
		marks[i] = "?"
		params[i] = arg.Value
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		q.Model, strings.Join(fields, ", "), strings.Join(marks, ", "))
	stmt += b.returningClause(q)

	return &expr.DBQuery{Statement: stmt, Params: params, Columns: q.Returning}, nil
}

func (b *SQLite) buildUpdate(q *qgraph.Query) (*expr.DBQuery, error) {
	if len(q.Args) == 0 {
		return nil, fmt.Errorf("update on %s has no write arguments", q.Model)
	}

	sets := make([]string, len(q.Args))
	params := make([]qvalue.Value, 0, len(q.Args))
	for i, arg := range q.Args {
		sets[i] = arg.Field + " = ?"
		params = append(params, arg.Value)
	}

	where, whereParams, err := b.whereClause(q)
	if err != nil {
		return nil, err
	}
	params = append(params, whereParams...)

	stmt := fmt.Sprintf("UPDATE %s SET %s%s", q.Model, strings.Join(sets, ", "), where)
	stmt += b.returningClause(q)

	return &expr.DBQuery{Statement: stmt, Params: params, Columns: q.Returning}, nil
}

func (b *SQLite) buildDelete(q *qgraph.Query) (*expr.DBQuery, error) {
	where, params, err := b.whereClause(q)
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf("DELETE FROM %s%s", q.Model, where)
	stmt += b.returningClause(q)

	return &expr.DBQuery{Statement: stmt, Params: params, Columns: q.Returning}, nil
}

// returningClause emits RETURNING when the operation declares result
// columns. Requires SQLite 3.35; mattn/go-sqlite3 surfaces the rows
// through Query instead of Exec.
func (b *SQLite) returningClause(q *qgraph.Query) string {
	if len(q.Returning) == 0 {
		return ""
	}
	return " RETURNING " + strings.Join(q.Returning, ", ")
}

// orderKey returns the deterministic ordering key for a select.
func (b *SQLite) orderKey(q *qgraph.Query) string {
	if len(q.Returning) > 0 {
		cols := append([]string(nil), q.Returning...)
		sort.Strings(cols)
		return cols[0] + " ASC"
	}
	return "rowid ASC"
}

// whereClause assembles the WHERE text from the query's filter, selector
// sets and single selector. Returns the clause with a leading " WHERE ",
// or the empty string when unconstrained.
func (b *SQLite) whereClause(q *qgraph.Query) (string, []qvalue.Value, error) {
	var conds []string
	var params []qvalue.Value

	if q.Filter != nil {
		sql, p, err := b.filterSQL(q.Filter)
		if err != nil {
			return "", nil, err
		}
		if sql != "" {
			conds = append(conds, sql)
			params = append(params, p...)
		}
	}

	if len(q.SelectorSets) > 0 {
		var sets []string
		for _, set := range q.SelectorSets {
			sql, p := b.selectorSQL(set)
			sets = append(sets, sql)
			params = append(params, p...)
		}
		if len(sets) == 1 {
			conds = append(conds, sets[0])
		} else {
			conds = append(conds, "("+strings.Join(sets, " OR ")+")")
		}
	}

	if q.Selector != nil {
		sql, p := b.selectorSQL(*q.Selector)
		conds = append(conds, sql)
		params = append(params, p...)
	}

	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), params, nil
}

// selectorSQL renders one field set as a conjunction. List-typed
// placeholders become membership tests over a JSON-encoded parameter;
// the interpreter serializes the resolved rows into that shape.
func (b *SQLite) selectorSQL(set qgraph.SelectorSet) (string, []qvalue.Value) {
	parts := make([]string, len(set))
	params := make([]qvalue.Value, len(set))
	for i, fv := range set {
		if isListValue(fv.Value) {
			parts[i] = fv.Field + " IN (SELECT value FROM json_each(?))"
		} else {
			parts[i] = fv.Field + " = ?"
		}
		params[i] = fv.Value
	}
	if len(parts) == 1 {
		return parts[0], params
	}
	return "(" + strings.Join(parts, " AND ") + ")", params
}

func (b *SQLite) filterSQL(f qgraph.Filter) (string, []qvalue.Value, error) {
	switch pred := f.(type) {
	case qgraph.Equals:
		return pred.Field + " = ?", []qvalue.Value{pred.Value}, nil
	case *qgraph.Equals:
		return pred.Field + " = ?", []qvalue.Value{pred.Value}, nil
	case qgraph.In:
		return pred.Field + " IN (SELECT value FROM json_each(?))", []qvalue.Value{pred.Value}, nil
	case *qgraph.In:
		return pred.Field + " IN (SELECT value FROM json_each(?))", []qvalue.Value{pred.Value}, nil
	case qgraph.And:
		return b.filterAnd(pred.Filters)
	case *qgraph.And:
		return b.filterAnd(pred.Filters)
	default:
		return "", nil, fmt.Errorf("unsupported filter type %T", f)
	}
}

func (b *SQLite) filterAnd(filters []qgraph.Filter) (string, []qvalue.Value, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	var parts []string
	var params []qvalue.Value
	for _, f := range filters {
		sql, p, err := b.filterSQL(f)
		if err != nil {
			return "", nil, err
		}
		if sql == "" {
			continue
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}

	if len(parts) == 0 {
		return "", nil, nil
	}
	if len(parts) == 1 {
		return parts[0], params, nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", params, nil
}

func isListValue(v qvalue.Value) bool {
	switch val := v.(type) {
	case qvalue.List:
		return true
	case qvalue.Placeholder:
		return val.Type.List
	default:
		return false
	}
}
