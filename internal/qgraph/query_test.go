package qgraph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-db/inkwell/internal/qvalue"
)

func TestOperation_Reads(t *testing.T) {
	assert.True(t, OpFindUnique.Reads())
	assert.True(t, OpFindMany.Reads())
	assert.True(t, OpAggregate.Reads())
	assert.False(t, OpCreate.Reads())
	assert.False(t, OpUpdate.Reads())
	assert.False(t, OpUpdateMany.Reads())
	assert.False(t, OpDelete.Reads())
}

func TestParseOperation_RoundTrip(t *testing.T) {
	for _, op := range []Operation{OpFindUnique, OpFindMany, OpCreate, OpUpdate, OpUpdateMany, OpDelete, OpAggregate} {
		parsed, ok := ParseOperation(op.String())
		require.True(t, ok, "operation %s should parse", op)
		assert.Equal(t, op, parsed)
	}

	_, ok := ParseOperation("upsert")
	assert.False(t, ok)
}

func TestQuery_FieldType_DefaultsToString(t *testing.T) {
	q := &Query{
		Model:  "User",
		Fields: map[string]qvalue.FieldType{"id": {Kind: qvalue.KindInt}},
	}

	assert.Equal(t, qvalue.KindInt, q.FieldType("id").Kind)
	assert.Equal(t, qvalue.KindString, q.FieldType("unknown").Kind)
}

func TestQuery_MergeArg(t *testing.T) {
	q := &Query{Args: []FieldValue{{Field: "name", Value: qvalue.String("a")}}}

	// Overwrite existing argument.
	q.MergeArg("name", qvalue.String("b"))
	require.Len(t, q.Args, 1)
	assert.Equal(t, qvalue.String("b"), q.Args[0].Value)

	// Append new argument.
	q.MergeArg("email", qvalue.String("b@example.com"))
	require.Len(t, q.Args, 2)
	assert.Equal(t, "email", q.Args[1].Field)
}

func TestQuery_NormalizeDateTimes(t *testing.T) {
	q := &Query{
		Model: "Post",
		Fields: map[string]qvalue.FieldType{
			"publishedAt": {Kind: qvalue.KindDateTime},
			"title":       {Kind: qvalue.KindString},
		},
		Args: []FieldValue{
			{Field: "publishedAt", Value: qvalue.String("2024-03-01T12:30:00+02:00")},
			{Field: "title", Value: qvalue.String("2024-03-01")},
		},
	}

	require.NoError(t, q.NormalizeDateTimes())

	dt, ok := q.Args[0].Value.(qvalue.DateTime)
	require.True(t, ok, "datetime arg should be normalized")
	assert.Equal(t, "2024-03-01T10:30:00Z", time.Time(dt).Format(time.RFC3339))

	// String-typed fields are left alone even when they look like dates.
	assert.Equal(t, qvalue.String("2024-03-01"), q.Args[1].Value)
}

func TestQuery_NormalizeDateTimes_RejectsGarbage(t *testing.T) {
	q := &Query{
		Fields: map[string]qvalue.FieldType{"at": {Kind: qvalue.KindDateTime}},
		Args:   []FieldValue{{Field: "at", Value: qvalue.String("not a time")}},
	}

	assert.Error(t, q.NormalizeDateTimes())
}

func TestRowSink_RequiresUniqueRow(t *testing.T) {
	assert.True(t, RowSink{Kind: SinkExactlyOne}.RequiresUniqueRow())
	assert.True(t, RowSink{Kind: SinkExactlyOneFilter}.RequiresUniqueRow())
	assert.True(t, RowSink{Kind: SinkExactlyOneWriteArgs}.RequiresUniqueRow())
	assert.False(t, RowSink{Kind: SinkAll}.RequiresUniqueRow())
	assert.False(t, RowSink{Kind: SinkSingle}.RequiresUniqueRow())
	assert.False(t, RowSink{Kind: SinkDiscard}.RequiresUniqueRow())
}

func TestRowSink_ScalarPlaceholder(t *testing.T) {
	// Single keeps the scalar type without demanding uniqueness.
	assert.True(t, RowSink{Kind: SinkSingle}.ScalarPlaceholder())
	assert.True(t, RowSink{Kind: SinkExactlyOne}.ScalarPlaceholder())
	assert.False(t, RowSink{Kind: SinkAll}.ScalarPlaceholder())
	assert.False(t, RowSink{Kind: SinkAtMostOne}.ScalarPlaceholder())
}

func TestParseRowSinkKind_RoundTrip(t *testing.T) {
	kinds := []RowSinkKind{
		SinkAll, SinkExactlyOne, SinkAtMostOne, SinkSingle,
		SinkAllFilter, SinkExactlyOneFilter, SinkExactlyOneWriteArgs, SinkDiscard,
	}
	for _, k := range kinds {
		parsed, ok := ParseRowSinkKind(k.String())
		require.True(t, ok, "sink %s should parse", k)
		assert.Equal(t, k, parsed)
	}
}

func TestDataRule_String(t *testing.T) {
	assert.Equal(t, "rowCountEq(1)", RowCountEq(1).String())
	assert.Equal(t, "rowCountNeq(0)", RowCountNeq(0).String())
	assert.Equal(t, "affectedRowCountEq(2)", AffectedRowCountEq(2).String())
	assert.Equal(t, "never", Never{}.String())
}
