package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_NoGroups(t *testing.T) {
	grid, err := Build(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, grid.Len())
	assert.Equal(t, 0, grid.At(0).Global)
}

func TestBuild_CartesianProduct(t *testing.T) {
	groups := []Group{
		{Name: "climate", Members: []string{"wet", "dry", "avg"}},
		{Name: "demand", Members: []string{"low", "high"}},
	}
	grid, err := Build(groups)
	require.NoError(t, err)
	assert.Equal(t, 6, grid.Len())

	seen := make(map[string]bool)
	for i := 0; i < grid.Len(); i++ {
		idx := grid.At(i)
		assert.Equal(t, i, idx.Global)
		seen[idx.Label(groups)] = true
	}
	assert.Len(t, seen, 6)
	assert.True(t, seen["climate=wet,demand=low"])
	assert.True(t, seen["climate=avg,demand=high"])
}

func TestBuild_EmptyGroupMembers(t *testing.T) {
	_, err := Build([]Group{{Name: "climate", Members: nil}})
	require.Error(t, err)
}

func TestGrid_OrdinalOf(t *testing.T) {
	groups := []Group{
		{Name: "climate", Members: []string{"wet", "dry", "avg"}},
		{Name: "demand", Members: []string{"low", "high"}},
	}
	grid, err := Build(groups)
	require.NoError(t, err)

	idx := grid.At(3) // climate ordinal 1 (dry), demand ordinal 1 (high): row-major, last varies fastest
	assert.Equal(t, 1, grid.OrdinalOf(idx, "climate"))
	assert.Equal(t, 1, grid.OrdinalOf(idx, "demand"))
	assert.Equal(t, -1, grid.OrdinalOf(idx, "nonexistent"))
}
