package parquet

import (
	"bytes"
	"reflect"
	"testing"
	"time"

	pq "github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strataworks/strata/pkg/errors"
	"github.com/strataworks/strata/pkg/schema"
)

type status int

const (
	statusPending status = iota
	statusActive
)

func (s status) MarshalText() ([]byte, error) {
	if s == statusActive {
		return []byte("active"), nil
	}
	return []byte("pending"), nil
}

func (s *status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "active":
		*s = statusActive
	case "pending":
		*s = statusPending
	default:
		return errors.Newf(errors.ErrorTypeData, "unknown status %q", text)
	}
	return nil
}

type event struct {
	ID        int64
	Name      string
	Count     int32
	Ratio     float64
	Active    bool
	Note      *string
	State     status
	Payload   []byte
	CreatedAt time.Time
	Key       uuid.UUID
	Amount    decimal.Decimal
}

func sampleEvent(id int64) event {
	note := "annotated"
	return event{
		ID:        id,
		Name:      "event",
		Count:     7,
		Ratio:     3.25,
		Active:    true,
		Note:      &note,
		State:     statusActive,
		Payload:   []byte{0x01, 0x02, 0x03},
		CreatedAt: time.Date(2026, 8, 29, 12, 30, 45, 123456000, time.UTC),
		Key:       uuid.MustParse("f47ac10b-58cc-4372-a567-0e02b2c3d479"),
		Amount:    decimal.RequireFromString("129.500000001"),
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	in := []event{sampleEvent(1), sampleEvent(2)}

	data, err := Marshal(in)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	var out []event
	require.NoError(t, Unmarshal(data, &out))
	require.Len(t, out, 2)

	for i, got := range out {
		want := in[i]
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Count, got.Count)
		assert.Equal(t, want.Ratio, got.Ratio)
		assert.Equal(t, want.Active, got.Active)
		require.NotNil(t, got.Note)
		assert.Equal(t, *want.Note, *got.Note)
		assert.Equal(t, want.State, got.State)
		assert.Equal(t, want.Payload, got.Payload)
		assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "want %s, got %s", want.CreatedAt, got.CreatedAt)
		assert.Equal(t, want.Key, got.Key)
		assert.True(t, want.Amount.Equal(got.Amount), "want %s, got %s", want.Amount, got.Amount)
	}
}

func TestMarshalPreservesRowOrder(t *testing.T) {
	in := make([]event, 10)
	for i := range in {
		in[i] = sampleEvent(int64(i + 1))
	}

	data, err := Marshal(in)
	require.NoError(t, err)

	var out []event
	require.NoError(t, Unmarshal(data, &out))
	require.Len(t, out, 10)
	for i, got := range out {
		assert.Equal(t, int64(i+1), got.ID)
	}
}

func TestMarshalIsDeterministic(t *testing.T) {
	in := []event{sampleEvent(1), sampleEvent(2), sampleEvent(3)}

	first, err := Marshal(in)
	require.NoError(t, err)
	second, err := Marshal(in)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first, second), "same input must produce identical bytes")
}

func TestMarshalPointerElements(t *testing.T) {
	a, b := sampleEvent(1), sampleEvent(2)
	data, err := Marshal([]*event{&a, &b})
	require.NoError(t, err)

	var out []*event
	require.NoError(t, Unmarshal(data, &out))
	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].ID)
	assert.Equal(t, int64(2), out[1].ID)
}

func TestMarshalNilPointerFieldBecomesNull(t *testing.T) {
	e := sampleEvent(1)
	e.Note = nil

	data, err := Marshal([]event{e})
	require.NoError(t, err)

	var out []event
	require.NoError(t, Unmarshal(data, &out))
	require.Len(t, out, 1)
	assert.Nil(t, out[0].Note)
}

func TestMarshalInputValidation(t *testing.T) {
	_, err := Marshal(nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = Marshal([]event{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one item required")

	_, err = Marshal(42)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestUnmarshalInputValidation(t *testing.T) {
	var out []event
	require.Error(t, Unmarshal(nil, &out))
	require.Error(t, Unmarshal([]byte{0x01}, nil))

	data, err := Marshal([]event{sampleEvent(1)})
	require.NoError(t, err)
	var notSlice event
	require.Error(t, Unmarshal(data, &notSlice))
}

type looseRecord struct {
	Id string
}

type strictRecord struct {
	Id int64
}

func TestUnconvertibleCellWritesZeroValue(t *testing.T) {
	s, err := schema.New(schema.Column{Name: "Id", Type: schema.TypeInt64})
	require.NoError(t, err)

	// "abc" cannot become an int64; the cell is written as zero, not an
	// error.
	data, err := Marshal([]looseRecord{{Id: "abc"}}, WithSchema(s))
	require.NoError(t, err)

	var out []strictRecord
	require.NoError(t, Unmarshal(data, &out))
	require.Len(t, out, 1)
	assert.Equal(t, int64(0), out[0].Id)
}

func TestExplicitSchemaSkipsUnmatchedColumns(t *testing.T) {
	s, err := schema.New(
		schema.Column{Name: "Id", Type: schema.TypeInt64},
		schema.Column{Name: "Missing", Type: schema.TypeString},
	)
	require.NoError(t, err)

	data, err := Marshal([]strictRecord{{Id: 5}}, WithSchema(s))
	require.NoError(t, err)

	var out []strictRecord
	require.NoError(t, Unmarshal(data, &out))
	require.Len(t, out, 1)
	assert.Equal(t, int64(5), out[0].Id)
}

func TestUnmarshalStrictCoercionFailure(t *testing.T) {
	data, err := Marshal([]looseRecord{{Id: "definitely-not-a-number"}})
	require.NoError(t, err)

	var out []strictRecord
	err = Unmarshal(data, &out)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
	assert.Contains(t, err.Error(), "Id")
}

func TestUnmarshalInvalidEnumMember(t *testing.T) {
	type stateOnly struct {
		State string
	}
	data, err := Marshal([]stateOnly{{State: "retired"}})
	require.NoError(t, err)

	var out []struct{ State status }
	err = Unmarshal(data, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid enum value")
}

func TestUnmarshalOne(t *testing.T) {
	data, err := Marshal([]event{sampleEvent(9), sampleEvent(10)})
	require.NoError(t, err)

	var got event
	require.NoError(t, UnmarshalOne(data, &got))
	assert.Equal(t, int64(9), got.ID)
}

func TestCompressionCodecs(t *testing.T) {
	in := []event{sampleEvent(1)}
	for _, name := range []string{"snappy", "gzip", "zstd", "lz4", "none"} {
		data, err := Marshal(in, WithCompression(name))
		require.NoError(t, err, "codec %s", name)

		var out []event
		require.NoError(t, Unmarshal(data, &out), "codec %s", name)
		require.Len(t, out, 1)
		assert.Equal(t, int64(1), out[0].ID)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	c := NewCodec(WithCompression("gzip"))

	data, err := c.Marshal([]event{sampleEvent(4)})
	require.NoError(t, err)

	var one event
	require.NoError(t, c.UnmarshalOne(data, &one))
	assert.Equal(t, int64(4), one.ID)

	var many []event
	require.NoError(t, c.Unmarshal(data, &many))
	assert.Len(t, many, 1)
}

// writeRowGroups builds a container with one row group per slice, bypassing
// the single-row-group writer.
func writeRowGroups(t *testing.T, groups ...interface{}) []byte {
	t.Helper()

	first := reflect.ValueOf(groups[0])
	elemType := first.Type().Elem()
	s, err := schema.ForType(elemType)
	require.NoError(t, err)
	fields, err := schema.Describe(elemType)
	require.NoError(t, err)
	bindings := bind(s, fields)

	var buf bytes.Buffer
	props := pq.NewWriterProperties(pq.WithCreatedBy(createdBy))
	fw, err := pqarrow.NewFileWriter(arrowSchema(bindings), &buf, props, pqarrow.NewArrowWriterProperties())
	require.NoError(t, err)
	for _, g := range groups {
		rec := materialize(reflect.ValueOf(g), bindings)
		require.NoError(t, fw.Write(rec))
		rec.Release()
	}
	require.NoError(t, fw.Close())
	return buf.Bytes()
}

func TestUnmarshalReadsFirstRowGroupOnly(t *testing.T) {
	data := writeRowGroups(t,
		[]strictRecord{{Id: 1}, {Id: 2}},
		[]strictRecord{{Id: 3}},
	)

	var out []strictRecord
	require.NoError(t, Unmarshal(data, &out))
	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].Id)
	assert.Equal(t, int64(2), out[1].Id)
}

func TestUnmarshalZeroRowGroups(t *testing.T) {
	s, err := schema.ForType(reflect.TypeOf(strictRecord{}))
	require.NoError(t, err)
	fields, err := schema.Describe(reflect.TypeOf(strictRecord{}))
	require.NoError(t, err)

	var buf bytes.Buffer
	fw, err := pqarrow.NewFileWriter(
		arrowSchema(bind(s, fields)), &buf,
		pq.NewWriterProperties(), pqarrow.NewArrowWriterProperties(),
	)
	require.NoError(t, err)
	require.NoError(t, fw.Close())

	out := []strictRecord{{Id: 99}}
	require.NoError(t, Unmarshal(buf.Bytes(), &out))
	assert.Empty(t, out, "zero rows decode to an empty slice, not an error")

	var one strictRecord
	err = UnmarshalOne(buf.Bytes(), &one)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}
