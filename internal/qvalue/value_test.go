package qvalue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDateTime_AcceptedLayouts(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"rfc3339", "2024-03-01T10:30:00Z", "2024-03-01T10:30:00Z"},
		{"rfc3339 fractional", "2024-03-01T10:30:00.25Z", "2024-03-01T10:30:00.25Z"},
		{"rfc3339 offset", "2024-03-01T12:30:00+02:00", "2024-03-01T10:30:00Z"},
		{"space separated", "2024-03-01 10:30:00", "2024-03-01T10:30:00Z"},
		{"date only", "2024-03-01", "2024-03-01T00:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dt, err := NormalizeDateTime(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, time.Time(dt).Format(time.RFC3339Nano))
		})
	}
}

func TestNormalizeDateTime_Rejected(t *testing.T) {
	_, err := NormalizeDateTime("yesterday")
	assert.Error(t, err)
}

func TestRaw_ScalarConversions(t *testing.T) {
	tests := []struct {
		name  string
		input Value
		want  any
	}{
		{"null", Null{}, nil},
		{"string", String("hello"), "hello"},
		{"int", Int(42), int64(42)},
		{"float", Float(2.5), 2.5},
		{"bool", Bool(true), true},
		{"enum", Enum("admin"), "admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Raw(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRaw_DateTimeIsUTCText(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	dt := DateTime(time.Date(2024, 3, 1, 11, 0, 0, 0, loc))

	got, err := Raw(dt)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T10:00:00Z", got)
}

func TestRaw_CompositeValuesRejected(t *testing.T) {
	// Lists and objects must never reach a single statement parameter;
	// placeholders must be resolved before parameter encoding.
	for _, v := range []Value{
		List{Int(1)},
		Object{"id": Int(1)},
		Placeholder{Name: "q0_id", Type: FieldType{Kind: KindInt}},
	} {
		_, err := Raw(v)
		assert.Error(t, err, "value %T should not convert", v)
	}
}

func TestFromRaw_RoundTrip(t *testing.T) {
	assert.Equal(t, Null{}, FromRaw(nil))
	assert.Equal(t, String("a"), FromRaw("a"))
	assert.Equal(t, String("bytes"), FromRaw([]byte("bytes")))
	assert.Equal(t, Int(7), FromRaw(int64(7)))
	assert.Equal(t, Float(1.5), FromRaw(1.5))
	assert.Equal(t, Bool(true), FromRaw(true))
}

func TestDisplay_Placeholder(t *testing.T) {
	scalar := Placeholder{Name: "q1_id", Type: FieldType{Kind: KindInt}}
	list := Placeholder{Name: "q1_id", Type: FieldType{Kind: KindInt, List: true}}

	assert.Equal(t, "var(q1_id: int)", Display(scalar))
	assert.Equal(t, "var(q1_id: int[])", Display(list))
}
