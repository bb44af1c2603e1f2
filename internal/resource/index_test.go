package resource

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecomputeIndexes(t *testing.T) {
	a := &Resource{LocalID: 1, Attributes: Attributes{"id": 1, "color": "red"}}
	b := &Resource{LocalID: 2, Attributes: Attributes{"id": 2}}
	c := &Resource{LocalID: 3, Attributes: Attributes{"id": 3, "color": "red"}}
	d := &Resource{LocalID: 4, Attributes: Attributes{"color": "blue"}}

	ix := RecomputeIndexes([]*Resource{a, b, c, d}, []string{"color", "id"})

	assert.Equal(t, []*Resource{a, c}, ix["color"]["red"])
	assert.Equal(t, []*Resource{d}, ix["color"]["blue"])
	assert.Len(t, ix["color"], 2)

	// a resource missing the first index is still indexed under the others
	assert.Equal(t, []*Resource{b}, ix["id"]["2"])
	assert.Len(t, ix["id"], 3)
}

func TestRecomputeIndexesSkipsBlankValues(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"nil", nil},
		{"false", false},
		{"zero int", 0},
		{"zero float", float64(0)},
		{"NaN", math.NaN()},
		{"empty string", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Resource{Attributes: Attributes{"id": 1, "tag": tt.value}}
			ix := RecomputeIndexes([]*Resource{r}, []string{"tag", "id"})
			assert.Empty(t, ix["tag"])
			assert.Len(t, ix["id"], 1)
		})
	}
}

func TestRecomputeIndexesEmptyInput(t *testing.T) {
	ix := RecomputeIndexes(nil, []string{"id", "owner"})
	require.Len(t, ix, 2)
	assert.Empty(t, ix["id"])
	assert.Empty(t, ix["owner"])
}

func TestRecomputeIndexesDoesNotMutateInput(t *testing.T) {
	r := &Resource{Attributes: Attributes{"id": 1}}
	in := []*Resource{r}
	_ = RecomputeIndexes(in, []string{"id", "missing"})

	assert.Same(t, r, in[0])
	assert.Equal(t, Attributes{"id": 1}, r.Attributes)
}

func TestIndexKey(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{10, "10"},
		{int64(10), "10"},
		{float64(10), "10"},
		{1.5, "1.5"},
		{"abc", "abc"},
		{true, "true"},
		{[]any{1, "x"}, `[1,"x"]`},
		{map[string]any{"k": "v"}, `{"k":"v"}`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IndexKey(tt.value), "IndexKey(%#v)", tt.value)
	}
}

func TestNewReducerIndexNames(t *testing.T) {
	assert.Equal(t, []string{"id"}, NewReducer().IndexNames())
	assert.Equal(t, []string{"owner", "id"}, NewReducer("owner", "id", "", "owner").IndexNames())
}
