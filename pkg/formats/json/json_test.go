package json

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strataworks/strata/pkg/errors"
)

type record struct {
	Id    int64   `json:"Id"`
	Name  string  `json:"Name"`
	Value float64 `json:"Value"`
	Note  *string `json:"Note,omitempty"`
}

func TestMarshalRoundTrip(t *testing.T) {
	in := []record{{Id: 1, Name: "A", Value: 1.5}}

	data, err := Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\"Name\": \"A\"", "output is indented")

	var out []record
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestMarshalOmitsNilFields(t *testing.T) {
	data, err := Marshal(record{Id: 1, Name: "A"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Note")
}

func TestMarshalNil(t *testing.T) {
	_, err := Marshal(nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestUnmarshalEmptyData(t *testing.T) {
	var out record
	err := Unmarshal(nil, &out)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestUnmarshalOneFromSequence(t *testing.T) {
	data := []byte(`[{"Id":7,"Name":"first"},{"Id":8,"Name":"second"}]`)

	var got record
	require.NoError(t, UnmarshalOne(data, &got))
	assert.Equal(t, int64(7), got.Id)
	assert.Equal(t, "first", got.Name)
}

func TestUnmarshalOneFromSingleObject(t *testing.T) {
	data := []byte(`{"Id":3,"Name":"solo","Value":2.25}`)

	var got record
	require.NoError(t, UnmarshalOne(data, &got))
	assert.Equal(t, int64(3), got.Id)
	assert.Equal(t, 2.25, got.Value)
}

func TestUnmarshalOneNothingDecodes(t *testing.T) {
	got := record{Id: 42, Name: "stale"}
	require.NoError(t, UnmarshalOne([]byte("not json at all"), &got))
	assert.Equal(t, record{}, got, "out is reset to its zero value")
}

func TestUnmarshalOneEmptySequence(t *testing.T) {
	var got record
	require.NoError(t, UnmarshalOne([]byte(`[]`), &got))
	assert.Equal(t, record{}, got)
}
