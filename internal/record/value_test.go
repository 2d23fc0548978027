package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromGoToGoRoundTrip(t *testing.T) {
	in := map[string]any{
		"title": "Groceries",
		"done":  false,
		"count": 3,
		"tags":  []any{"home", "weekly"},
		"nested": map[string]any{
			"add": []any{"todoItems"},
		},
	}

	v, err := FromGo(in)
	require.NoError(t, err)

	out, ok := ToGo(v).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Groceries", out["title"])
	assert.Equal(t, false, out["done"])
	assert.Equal(t, int64(3), out["count"], "ints normalize to int64")
	assert.Equal(t, []any{"home", "weekly"}, out["tags"])
}

func TestFromGoRejectsFloats(t *testing.T) {
	_, err := FromGo(map[string]any{"x": 1.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "x")
}

func TestUnmarshalValueRejectsFloats(t *testing.T) {
	_, err := UnmarshalValue([]byte(`{"price": 9.99}`))
	require.Error(t, err)
}

func TestObjectGetters(t *testing.T) {
	obj := Object{
		"title": String("Milk"),
		"done":  Bool(true),
		"n":     Int(2),
	}

	assert.Equal(t, "Milk", obj.GetString("title"))
	assert.Equal(t, "", obj.GetString("missing"))
	assert.Equal(t, "", obj.GetString("n"), "non-string fields read as empty")
	assert.True(t, obj.GetBool("done"))
	assert.False(t, obj.GetBool("title"))
}

func TestObjectClone(t *testing.T) {
	obj := Object{"a": Int(1)}
	clone := obj.Clone()
	clone["a"] = Int(2)
	clone["b"] = Int(3)

	assert.Equal(t, Int(1), obj["a"])
	_, ok := obj["b"]
	assert.False(t, ok)
}

func TestUnmarshalJSONPreservesTypes(t *testing.T) {
	var obj Object
	err := obj.UnmarshalJSON([]byte(`{"done":true,"n":7,"s":"x","null":null,"arr":[1,"a"]}`))
	require.NoError(t, err)

	assert.Equal(t, Bool(true), obj["done"])
	assert.Equal(t, Int(7), obj["n"])
	assert.Equal(t, String("x"), obj["s"])
	assert.Equal(t, Null{}, obj["null"])
	assert.Equal(t, Array{Int(1), String("a")}, obj["arr"])
}
