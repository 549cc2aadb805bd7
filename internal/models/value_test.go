package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	v, err := ParseValue([]byte(`{"a":[1,"two",null,true,{"b":1.50}],"big":12345678901234567890}`))
	require.NoError(t, err)
	assert.Equal(t, KindObject, v.Kind())

	a, ok := v.Get("a")
	require.True(t, ok)
	items, ok := a.Items()
	require.True(t, ok)
	require.Len(t, items, 5)
	assert.Equal(t, "1", items[0].Text())
	s, ok := items[1].Str()
	assert.True(t, ok)
	assert.Equal(t, "two", s)
	assert.True(t, items[2].IsNull())
	assert.Equal(t, "true", items[3].Text())
	assert.Equal(t, `{"b":1.50}`, items[4].Text())

	big, _ := v.Get("big")
	assert.Equal(t, "12345678901234567890", big.Text(), "numbers keep their literal form")

	_, ok = v.Get("missing")
	assert.False(t, ok)
	_, ok = a.Get("x")
	assert.False(t, ok, "Get on an array")
	_, ok = v.Items()
	assert.False(t, ok, "Items on an object")
}

func TestValueJSON(t *testing.T) {
	var wrapper struct {
		V Value `json:"v"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"v":{"k":"1,234"}}`), &wrapper))
	k, ok := wrapper.V.Get("k")
	require.True(t, ok)
	assert.Equal(t, "1,234", k.Text())

	_, err := ParseValue([]byte(`{"broken"`))
	assert.Error(t, err)

	assert.Equal(t, "null", Value{}.Text())
}

func TestRecordSetSample(t *testing.T) {
	rs := RecordSet{
		{{Name: "Serial No", Value: String("A")}},
		{{Name: "Other", Value: String("x")}},
		{{Name: "Serial No", Value: Number("7")}},
	}
	assert.Equal(t, []string{"A", "<absent>", "7"}, rs.Sample("Serial No", 8))
	assert.Equal(t, []string{"A"}, rs.Sample("Serial No", 1))
	assert.Empty(t, rs.Sample("Serial No", 0))
}
