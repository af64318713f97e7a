package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamespace_SetGetDelete(t *testing.T) {
	ns := NewNamespace()
	ns.Set("x", 5)

	v, ok := ns.Get("x")
	require := assert.New(t)
	require.True(ok)
	require.Equal(5, v)

	ns.Delete("x")
	_, ok = ns.Get("x")
	require.False(ok)
}

func TestNamespace_PurgeUniquelyOwnedRemovesOnlyUnshared(t *testing.T) {
	ns := NewNamespace()
	ns.Set("x", 1)
	ns.Set("y", 2)

	owned := map[string]struct{}{"x": {}, "y": {}}
	stillWritten := map[string]struct{}{"y": {}} // y is also written by a surviving cell

	ns.PurgeUniquelyOwned(owned, stillWritten)

	_, xOK := ns.Get("x")
	_, yOK := ns.Get("y")
	assert.False(t, xOK, "x was uniquely owned by the deleted cell and must be purged")
	assert.True(t, yOK, "y is still written by another cell and must survive")
}

func TestNamespace_Snapshot(t *testing.T) {
	ns := NewNamespace()
	ns.Set("a", 1)
	ns.Set("b", "two")

	snap := ns.Snapshot()
	assert.Equal(t, map[string]any{"a": 1, "b": "two"}, snap)
}
