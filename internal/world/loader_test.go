package world

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxelworld/internal/vec"
)

func TestRingOffsets(t *testing.T) {
	assert.Equal(t, []vec.Vec3{{}}, RingOffsets(0))
	assert.Len(t, RingOffsets(1), 26)
	assert.Len(t, RingOffsets(2), 98)
	for _, o := range RingOffsets(3) {
		assert.Equal(t, 3, o.Chebyshev())
	}
}

func TestShellIteratorNearestFirst(t *testing.T) {
	it := NewShellIterator(2)
	seen := make(map[vec.Vec3]bool)
	last := 0
	for {
		o, ok := it.Next()
		if !ok {
			break
		}
		r := o.Chebyshev()
		require.GreaterOrEqual(t, r, last, "кольца идут от ближних к дальним")
		last = r
		require.False(t, seen[o], "смещение %v повторилось", o)
		seen[o] = true
	}
	assert.Len(t, seen, 125)
}

func TestLoaderBudgetAndReset(t *testing.T) {
	l := NewLoader(2, 10)
	start := mgl32.Vec3{40, 8, 8}

	first := l.Update(start)
	require.Len(t, first, 10)
	assert.Equal(t, vec.New(1, 0, 0), first[0], "сначала чанк самой сущности")

	total := len(first)
	for !l.Done() {
		total += len(l.Update(start))
	}
	assert.Equal(t, 125, total)
	assert.Empty(t, l.Update(start))

	again := l.Update(start.Add(mgl32.Vec3{0, 0, 0.6}))
	require.NotEmpty(t, again, "смещение больше Distance/4 сбрасывает перебор")
	assert.Equal(t, vec.New(1, 0, 0), again[0])
}

func TestLODFor(t *testing.T) {
	viewer := mgl32.Vec3{16, 16, 16}
	assert.Equal(t, 0, LODFor(viewer, vec.New(5, 0, 0), 0))
	assert.Equal(t, 0, LODFor(viewer, vec.Vec3{}, 64))
	assert.Equal(t, 2, LODFor(viewer, vec.New(4, 0, 0), 64))
	assert.Equal(t, MaxLOD, LODFor(viewer, vec.New(100, 0, 0), 64))
}
