// Package interp executes compiled Expression programs against a SQLite
// database. Values flow through the interpreter as qvalue trees: query
// leaves yield lists of row objects, write leaves yield affected-row
// counts, and the structural operators reshape them.
package interp

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/inkwell-db/inkwell/internal/expr"
	"github.com/inkwell-db/inkwell/internal/qgraph"
	"github.com/inkwell-db/inkwell/internal/qvalue"
)

// querier is the common surface of *sql.DB and *sql.Tx the evaluator
// runs statements through.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Interpreter executes programs. Safe for concurrent use; each Run gets
// its own environment chain.
type Interpreter struct {
	db *sql.DB
}

// New returns an interpreter bound to a database handle.
func New(db *sql.DB) *Interpreter {
	return &Interpreter{db: db}
}

// Run evaluates a program to its final value. A Transaction marker at
// the root opens one database transaction for the whole program;
// any failure inside rolls it back.
func (i *Interpreter) Run(ctx context.Context, program expr.Expression) (qvalue.Value, error) {
	requestID := uuid.Must(uuid.NewV7()).String()
	slog.Debug("executing program", "request_id", requestID)

	if txn, ok := program.(expr.Transaction); ok {
		tx, err := i.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, &RuntimeError{Code: ErrCodeDatabase, Message: "begin transaction", Err: err}
		}
		out, err := eval(ctx, tx, newEnv(nil), txn.Expr)
		if err != nil {
			tx.Rollback()
			slog.Debug("program rolled back", "request_id", requestID, "error", err)
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, &RuntimeError{Code: ErrCodeDatabase, Message: "commit transaction", Err: err}
		}
		return out, nil
	}

	return eval(ctx, i.db, newEnv(nil), program)
}

// env is a lexical scope chain mirroring Let nesting.
type env struct {
	parent *env
	vars   map[string]qvalue.Value
}

func newEnv(parent *env) *env {
	return &env{parent: parent, vars: make(map[string]qvalue.Value)}
}

func (e *env) lookup(name string) (qvalue.Value, bool) {
	for scope := e; scope != nil; scope = scope.parent {
		if v, ok := scope.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func eval(ctx context.Context, q querier, scope *env, e expr.Expression) (qvalue.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	switch node := e.(type) {
	case expr.Unit:
		return qvalue.Null{}, nil

	case expr.Seq:
		var last qvalue.Value = qvalue.Null{}
		for _, item := range node.Items {
			v, err := eval(ctx, q, scope, item)
			if err != nil {
				return nil, err
			}
			last = v
		}
		return last, nil

	case expr.Get:
		v, ok := scope.lookup(node.Name)
		if !ok {
			return nil, &RuntimeError{Code: ErrCodeUnboundName, Message: fmt.Sprintf("no binding named %q", node.Name)}
		}
		return v, nil

	case expr.Let:
		inner := newEnv(scope)
		for _, b := range node.Bindings {
			v, err := eval(ctx, q, inner, b.Expr)
			if err != nil {
				return nil, err
			}
			inner.vars[b.Name] = v
		}
		return eval(ctx, q, inner, node.Body)

	case expr.GetFirstNonEmpty:
		for _, name := range node.Names {
			v, ok := scope.lookup(name)
			if !ok {
				return nil, &RuntimeError{Code: ErrCodeUnboundName, Message: fmt.Sprintf("no binding named %q", name)}
			}
			if !isEmpty(v) {
				return v, nil
			}
		}
		return qvalue.Null{}, nil

	case expr.Query:
		return runQuery(ctx, q, scope, node.DB)

	case expr.Execute:
		return runExecute(ctx, q, scope, node.DB)

	case expr.Reverse:
		v, err := eval(ctx, q, scope, node.Expr)
		if err != nil {
			return nil, err
		}
		list := asList(v)
		out := make(qvalue.List, len(list))
		for i, rec := range list {
			out[len(list)-1-i] = rec
		}
		return out, nil

	case expr.Sum:
		var total int64
		for _, item := range node.Exprs {
			v, err := eval(ctx, q, scope, item)
			if err != nil {
				return nil, err
			}
			n, err := asCount(v)
			if err != nil {
				return nil, err
			}
			total += n
		}
		return qvalue.Int(total), nil

	case expr.Concat:
		var out qvalue.List
		for _, item := range node.Exprs {
			v, err := eval(ctx, q, scope, item)
			if err != nil {
				return nil, err
			}
			out = append(out, asList(v)...)
		}
		return out, nil

	case expr.Unique:
		v, err := eval(ctx, q, scope, node.Expr)
		if err != nil {
			return nil, err
		}
		list, ok := v.(qvalue.List)
		if !ok {
			return v, nil
		}
		switch len(list) {
		case 0:
			return qvalue.Null{}, nil
		case 1:
			return list[0], nil
		default:
			return nil, &RuntimeError{Code: ErrCodeTooManyRows, Message: fmt.Sprintf("expected at most one row, found %d", len(list))}
		}

	case expr.Required:
		v, err := eval(ctx, q, scope, node.Expr)
		if err != nil {
			return nil, err
		}
		if isEmpty(v) {
			return nil, &RuntimeError{Code: ErrCodeMissingRecord, Message: "required value is empty"}
		}
		return v, nil

	case expr.Join:
		return evalJoin(ctx, q, scope, node)

	case expr.MapField:
		v, err := eval(ctx, q, scope, node.Records)
		if err != nil {
			return nil, err
		}
		return mapField(node.Field, v), nil

	case expr.Transaction:
		// Nested markers are redundant once execution is already inside
		// a transaction; the root marker is handled by Run.
		return eval(ctx, q, scope, node.Expr)

	case expr.DataMap:
		v, err := eval(ctx, q, scope, node.Expr)
		if err != nil {
			return nil, err
		}
		return reshape(v, node.Structure), nil

	case expr.Validate:
		v, err := eval(ctx, q, scope, node.Expr)
		if err != nil {
			return nil, err
		}
		for _, rule := range node.Rules {
			ok, err := checkRule(rule, v)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, &RuntimeError{
					Code:    ErrCodeValidationFailed,
					Message: fmt.Sprintf("rule %s violated", rule),
					ErrorID: node.ErrorID,
				}
			}
		}
		return v, nil

	case expr.If:
		v, err := eval(ctx, q, scope, node.Value)
		if err != nil {
			return nil, err
		}
		ok, err := checkRule(node.Rule, v)
		if err != nil {
			return nil, err
		}
		if ok {
			return eval(ctx, q, scope, node.Then)
		}
		return eval(ctx, q, scope, node.Else)

	case expr.Diff:
		from, err := eval(ctx, q, scope, node.From)
		if err != nil {
			return nil, err
		}
		to, err := eval(ctx, q, scope, node.To)
		if err != nil {
			return nil, err
		}
		return diffLists(asList(from), asList(to))

	case expr.DistinctBy:
		v, err := eval(ctx, q, scope, node.Expr)
		if err != nil {
			return nil, err
		}
		return distinctBy(asList(v), node.Fields)

	case expr.Paginate:
		v, err := eval(ctx, q, scope, node.Expr)
		if err != nil {
			return nil, err
		}
		return paginate(asList(v), node.Pagination), nil

	case expr.ExtendRecord:
		v, err := eval(ctx, q, scope, node.Expr)
		if err != nil {
			return nil, err
		}
		return extendRecords(scope, v, node.Values)

	default:
		return nil, fmt.Errorf("unsupported expression %T", e)
	}
}

// runQuery executes a read statement and yields a list of row objects.
func runQuery(ctx context.Context, q querier, scope *env, db *expr.DBQuery) (qvalue.Value, error) {
	args, err := resolveParams(scope, db.Params)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, db.Statement, args...)
	if err != nil {
		return nil, &RuntimeError{Code: ErrCodeDatabase, Message: fmt.Sprintf("query %q", db.Statement), Err: err}
	}
	defer rows.Close()

	return scanRows(rows)
}

// runExecute executes a write statement. Statements with declared result
// columns (RETURNING) go through Query to surface the rows; everything
// else yields the affected-row count.
func runExecute(ctx context.Context, q querier, scope *env, db *expr.DBQuery) (qvalue.Value, error) {
	args, err := resolveParams(scope, db.Params)
	if err != nil {
		return nil, err
	}

	if len(db.Columns) > 0 {
		rows, err := q.QueryContext(ctx, db.Statement, args...)
		if err != nil {
			return nil, &RuntimeError{Code: ErrCodeDatabase, Message: fmt.Sprintf("execute %q", db.Statement), Err: err}
		}
		defer rows.Close()
		return scanRows(rows)
	}

	res, err := q.ExecContext(ctx, db.Statement, args...)
	if err != nil {
		return nil, &RuntimeError{Code: ErrCodeDatabase, Message: fmt.Sprintf("execute %q", db.Statement), Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, &RuntimeError{Code: ErrCodeDatabase, Message: "affected-row count unavailable", Err: err}
	}
	return qvalue.Int(affected), nil
}

// scanRows converts a result set into a list of row objects keyed by
// column name.
func scanRows(rows *sql.Rows) (qvalue.Value, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, &RuntimeError{Code: ErrCodeDatabase, Message: "column names unavailable", Err: err}
	}

	out := qvalue.List{}
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &RuntimeError{Code: ErrCodeDatabase, Message: "row scan failed", Err: err}
		}
		rec := make(qvalue.Object, len(cols))
		for i, col := range cols {
			rec[col] = qvalue.FromRaw(raw[i])
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &RuntimeError{Code: ErrCodeDatabase, Message: "row iteration failed", Err: err}
	}
	return out, nil
}

// resolveParams substitutes placeholder parameters from the environment
// and converts everything to driver values. List-shaped parameters are
// JSON-encoded to feed json_each membership tests.
func resolveParams(scope *env, params []qvalue.Value) ([]any, error) {
	out := make([]any, 0, len(params))
	for _, p := range params {
		v := p
		if ph, ok := p.(qvalue.Placeholder); ok {
			resolved, found := scope.lookup(ph.Name)
			if !found {
				return nil, &RuntimeError{Code: ErrCodeUnboundName, Message: fmt.Sprintf("no binding named %q", ph.Name)}
			}
			v = coercePlaceholder(resolved, ph.Type)
		}

		if list, ok := v.(qvalue.List); ok {
			encoded, err := qvalue.MarshalCanonical(list)
			if err != nil {
				return nil, fmt.Errorf("encode list parameter: %w", err)
			}
			out = append(out, string(encoded))
			continue
		}

		raw, err := qvalue.Raw(v)
		if err != nil {
			return nil, fmt.Errorf("parameter conversion: %w", err)
		}
		out = append(out, raw)
	}
	return out, nil
}

// coercePlaceholder aligns a resolved binding with the placeholder's
// declared shape: scalar placeholders unwrap singleton lists, list
// placeholders wrap scalars.
func coercePlaceholder(v qvalue.Value, ft qvalue.FieldType) qvalue.Value {
	list, isList := v.(qvalue.List)
	if ft.List {
		if isList {
			return list
		}
		if _, isNull := v.(qvalue.Null); isNull {
			return qvalue.List{}
		}
		return qvalue.List{v}
	}
	if isList {
		if len(list) == 0 {
			return qvalue.Null{}
		}
		return list[0]
	}
	return v
}

// mapField projects one field from a record or record set.
func mapField(field string, v qvalue.Value) qvalue.Value {
	switch val := v.(type) {
	case qvalue.List:
		out := make(qvalue.List, 0, len(val))
		for _, rec := range val {
			out = append(out, mapField(field, rec))
		}
		return out
	case qvalue.Object:
		if fv, ok := val[field]; ok {
			return fv
		}
		return qvalue.Null{}
	case qvalue.Null:
		return qvalue.Null{}
	default:
		return v
	}
}

// evalJoin nests child record sets under parent records.
func evalJoin(ctx context.Context, q querier, scope *env, node expr.Join) (qvalue.Value, error) {
	parentVal, err := eval(ctx, q, scope, node.Parent)
	if err != nil {
		return nil, err
	}
	parents := asList(parentVal)

	for _, child := range node.Children {
		childVal, err := eval(ctx, q, scope, child.Child)
		if err != nil {
			return nil, err
		}
		childRows := asList(childVal)

		// Index child rows by the join tuple.
		index := make(map[string]qvalue.List)
		for _, row := range childRows {
			key, err := joinKey(row, child.On, 1)
			if err != nil {
				return nil, err
			}
			index[key] = append(index[key], row)
		}

		for i, p := range parents {
			rec, ok := p.(qvalue.Object)
			if !ok {
				continue
			}
			key, err := joinKey(rec, child.On, 0)
			if err != nil {
				return nil, err
			}
			matched := index[key]
			if child.Unique {
				if len(matched) > 1 {
					return nil, &RuntimeError{Code: ErrCodeTooManyRows, Message: fmt.Sprintf("join field %q matched %d rows", child.ParentField, len(matched))}
				}
				if len(matched) == 1 {
					rec[child.ParentField] = matched[0]
				} else {
					rec[child.ParentField] = qvalue.Null{}
				}
			} else {
				if matched == nil {
					matched = qvalue.List{}
				}
				rec[child.ParentField] = matched
			}
			parents[i] = rec
		}
	}

	return parents, nil
}

// joinKey encodes the record's join-tuple side (0 parent, 1 child) into
// a comparable string.
func joinKey(v qvalue.Value, on [][2]string, side int) (string, error) {
	rec, ok := v.(qvalue.Object)
	if !ok {
		return "", fmt.Errorf("join over non-record value %T", v)
	}
	tuple := make(qvalue.List, 0, len(on))
	for _, pair := range on {
		fv, ok := rec[pair[side]]
		if !ok {
			fv = qvalue.Null{}
		}
		tuple = append(tuple, fv)
	}
	key, err := qvalue.MarshalCanonical(tuple)
	if err != nil {
		return "", fmt.Errorf("encode join key: %w", err)
	}
	return string(key), nil
}

// diffLists returns the records of from absent in to, compared by
// canonical encoding.
func diffLists(from, to qvalue.List) (qvalue.Value, error) {
	seen := make(map[string]bool, len(to))
	for _, rec := range to {
		key, err := qvalue.MarshalCanonical(rec)
		if err != nil {
			return nil, fmt.Errorf("encode diff operand: %w", err)
		}
		seen[string(key)] = true
	}

	out := qvalue.List{}
	for _, rec := range from {
		key, err := qvalue.MarshalCanonical(rec)
		if err != nil {
			return nil, fmt.Errorf("encode diff operand: %w", err)
		}
		if !seen[string(key)] {
			out = append(out, rec)
		}
	}
	return out, nil
}

// distinctBy keeps the first record per distinct field tuple.
func distinctBy(list qvalue.List, fields []string) (qvalue.Value, error) {
	seen := make(map[string]bool, len(list))
	out := qvalue.List{}
	for _, rec := range list {
		obj, ok := rec.(qvalue.Object)
		if !ok {
			out = append(out, rec)
			continue
		}
		tuple := make(qvalue.List, 0, len(fields))
		for _, f := range fields {
			fv, ok := obj[f]
			if !ok {
				fv = qvalue.Null{}
			}
			tuple = append(tuple, fv)
		}
		key, err := qvalue.MarshalCanonical(tuple)
		if err != nil {
			return nil, fmt.Errorf("encode distinct key: %w", err)
		}
		if seen[string(key)] {
			continue
		}
		seen[string(key)] = true
		out = append(out, rec)
	}
	return out, nil
}

// paginate applies a skip/take window. Take < 0 means unbounded.
func paginate(list qvalue.List, p expr.Pagination) qvalue.Value {
	skip := p.Skip
	if skip < 0 {
		skip = 0
	}
	if skip >= int64(len(list)) {
		return qvalue.List{}
	}
	rest := list[skip:]
	if p.Take >= 0 && p.Take < int64(len(rest)) {
		rest = rest[:p.Take]
	}
	return append(qvalue.List{}, rest...)
}

// extendRecords adds computed field values to each record, resolving
// placeholders against the current scope.
func extendRecords(scope *env, v qvalue.Value, values []qgraph.FieldValue) (qvalue.Value, error) {
	extend := func(rec qvalue.Object) error {
		for _, fv := range values {
			val := fv.Value
			if ph, ok := val.(qvalue.Placeholder); ok {
				resolved, found := scope.lookup(ph.Name)
				if !found {
					return &RuntimeError{Code: ErrCodeUnboundName, Message: fmt.Sprintf("no binding named %q", ph.Name)}
				}
				val = coercePlaceholder(resolved, ph.Type)
			}
			rec[fv.Field] = val
		}
		return nil
	}

	switch val := v.(type) {
	case qvalue.List:
		for _, rec := range val {
			if obj, ok := rec.(qvalue.Object); ok {
				if err := extend(obj); err != nil {
					return nil, err
				}
			}
		}
		return val, nil
	case qvalue.Object:
		if err := extend(val); err != nil {
			return nil, err
		}
		return val, nil
	default:
		return v, nil
	}
}

// reshape applies the result structure to a raw value.
func reshape(v qvalue.Value, structure *expr.ResultNode) qvalue.Value {
	if structure == nil {
		return v
	}

	switch structure.Kind {
	case expr.ResultCount:
		if n, err := asCount(v); err == nil {
			return qvalue.Object{"count": qvalue.Int(n)}
		}
		return v

	case expr.ResultValue:
		switch val := v.(type) {
		case qvalue.List:
			if len(val) == 1 {
				return reshape(val[0], structure)
			}
			return val
		case qvalue.Object:
			if fv, ok := val[structure.Name]; ok {
				return fv
			}
			return val
		default:
			return v
		}

	case expr.ResultObject:
		switch val := v.(type) {
		case qvalue.List:
			out := make(qvalue.List, 0, len(val))
			for _, rec := range val {
				out = append(out, reshape(rec, structure))
			}
			return out
		case qvalue.Object:
			out := make(qvalue.Object, len(structure.Fields))
			for _, f := range structure.Fields {
				fv, ok := val[f.Name]
				if !ok {
					fv = qvalue.Null{}
				}
				if f.Nested != nil {
					fv = reshape(fv, f.Nested)
				} else {
					fv = coerceField(fv, f.Type)
				}
				out[f.Name] = fv
			}
			return out
		default:
			return v
		}

	default:
		return v
	}
}

// coerceField aligns a scanned value with its declared field type.
// SQLite stores booleans as integers and timestamps as text, so the
// declared type decides the response representation.
func coerceField(v qvalue.Value, ft qvalue.FieldType) qvalue.Value {
	if _, ok := v.(qvalue.Null); ok {
		return v
	}
	switch ft.Kind {
	case qvalue.KindBool:
		if n, ok := v.(qvalue.Int); ok {
			return qvalue.Bool(n != 0)
		}
	case qvalue.KindDateTime:
		if s, ok := v.(qvalue.String); ok {
			if dt, err := qvalue.NormalizeDateTime(string(s)); err == nil {
				return dt
			}
		}
	case qvalue.KindEnum:
		if s, ok := v.(qvalue.String); ok {
			return qvalue.Enum(s)
		}
	case qvalue.KindFloat:
		if n, ok := v.(qvalue.Int); ok {
			return qvalue.Float(float64(n))
		}
	}
	return v
}

// isEmpty reports whether a value carries no data: NULL, an empty list,
// or an empty record.
func isEmpty(v qvalue.Value) bool {
	switch val := v.(type) {
	case nil, qvalue.Null:
		return true
	case qvalue.List:
		return len(val) == 0
	case qvalue.Object:
		return len(val) == 0
	default:
		return false
	}
}

// asList views a value as a record list. Scalars and records become
// singleton lists; NULL becomes the empty list.
func asList(v qvalue.Value) qvalue.List {
	switch val := v.(type) {
	case qvalue.List:
		return val
	case qvalue.Null, nil:
		return qvalue.List{}
	default:
		return qvalue.List{v}
	}
}

// asCount extracts a row or affected-row count from a value.
func asCount(v qvalue.Value) (int64, error) {
	switch val := v.(type) {
	case qvalue.Int:
		return int64(val), nil
	case qvalue.List:
		return int64(len(val)), nil
	case qvalue.Null, nil:
		return 0, nil
	case qvalue.Object:
		if n, ok := val["count"].(qvalue.Int); ok {
			return int64(n), nil
		}
		return 1, nil
	default:
		return 0, fmt.Errorf("value %T has no count", v)
	}
}

// checkRule evaluates one row-count rule against a value.
func checkRule(rule qgraph.DataRule, v qvalue.Value) (bool, error) {
	switch r := rule.(type) {
	case qgraph.RowCountEq:
		n, err := asCount(v)
		if err != nil {
			return false, err
		}
		return n == int64(r), nil
	case qgraph.RowCountNeq:
		n, err := asCount(v)
		if err != nil {
			return false, err
		}
		return n != int64(r), nil
	case qgraph.AffectedRowCountEq:
		n, err := asCount(v)
		if err != nil {
			return false, err
		}
		return n == int64(r), nil
	case qgraph.Never:
		return false, nil
	default:
		return false, fmt.Errorf("unsupported rule %T", rule)
	}
}
