package jsonmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/myparcel/pkg/jsonmap"
)

func TestGet_NestedPathWithIndex(t *testing.T) {
	doc, err := jsonmap.Decode([]byte(`{"data":{"shipments":[{"id":123,"barcode":"3SABC"}]}}`))
	require.NoError(t, err)

	assert.Equal(t, float64(123), jsonmap.Get(doc, "data.shipments.0.id"))
	assert.Nil(t, jsonmap.Get(doc, "data.shipments.1.id"))
	assert.Nil(t, jsonmap.Get(doc, "data.missing.id"))
}

func TestFirstPath_SkipsEmptyStrings(t *testing.T) {
	doc := jsonmap.Map{"location_code": "", "locationCode": "NL-123"}

	assert.Equal(t, "NL-123", jsonmap.FirstPath(doc, "location_code", "locationCode"))
}

func TestFirst_KeepsZeroAndFalse(t *testing.T) {
	assert.Equal(t, false, jsonmap.First(nil, "", false, true))
	assert.Equal(t, 0, jsonmap.First("", 0))
}

func TestString(t *testing.T) {
	s, ok := jsonmap.String(float64(12345))
	assert.True(t, ok)
	assert.Equal(t, "12345", s)

	s, ok = jsonmap.String("  abc ")
	assert.True(t, ok)
	assert.Equal(t, "abc", s)

	_, ok = jsonmap.String("   ")
	assert.False(t, ok)

	_, ok = jsonmap.String(map[string]any{})
	assert.False(t, ok)
}

func TestNumber(t *testing.T) {
	n, ok := jsonmap.Number("12.5")
	assert.True(t, ok)
	assert.Equal(t, 12.5, n)

	_, ok = jsonmap.Number("twelve")
	assert.False(t, ok)
}

func TestBool(t *testing.T) {
	cases := []struct {
		in      any
		want    bool
		wantSet bool
	}{
		{true, true, true},
		{"true", true, true},
		{"0", false, true},
		{float64(1), true, true},
		{float64(2), false, false},
		{"yes", false, false},
	}
	for _, tc := range cases {
		got, ok := jsonmap.Bool(tc.in)
		assert.Equal(t, tc.wantSet, ok, "%v", tc.in)
		assert.Equal(t, tc.want, got, "%v", tc.in)
	}
}

func TestDecode_WrapsArrays(t *testing.T) {
	doc, err := jsonmap.Decode([]byte(`[{"id":1}]`))
	require.NoError(t, err)
	assert.Equal(t, float64(1), jsonmap.Get(doc, "data.0.id"))

	empty, err := jsonmap.Decode(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
