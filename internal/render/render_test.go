package render

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxelworld/internal/world/block"
)

func TestAtlasLayout(t *testing.T) {
	a := NewAtlas()
	// machine_front, machine_side, source, stone, wire
	assert.Equal(t, 5, a.Len())

	front, ok := a.Mapping(block.Machine, block.Forward)
	require.True(t, ok)
	side, ok := a.Mapping(block.Machine, block.Up)
	require.True(t, ok)
	assert.NotEqual(t, front, side)
	assert.Equal(t, uint32(0), front, "ячейки по алфавиту")

	_, ok = a.Mapping(block.Air, block.Up)
	assert.False(t, ok, "у воздуха нет текстуры")

	assert.True(t, a.HasLayer("stone", LayerNormal))
	assert.False(t, a.HasLayer("wire", LayerHeightmap))

	x, y := a.Offset(17)
	assert.Equal(t, 1, x)
	assert.Equal(t, 1, y)
}

func TestNullTracksMeshes(t *testing.T) {
	r := NewNull()
	var _ Renderer = r

	id := r.CreateBlockMesh(BlockMesh{Indices: []uint32{0, 1, 2}, Position: mgl32.Vec3{32, 0, 0}})
	r.CreateBlockMesh(BlockMesh{})
	assert.Equal(t, 2, r.Meshes())

	m, ok := r.Mesh(id)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{32, 0, 0}, m.Position)

	r.DestroyBlockMesh(id)
	assert.Equal(t, 1, r.Meshes())
	assert.Equal(t, 2, r.Created())

	r.Resize(800, 600)
	r.Render(Frame{Camera: mgl32.Vec3{1, 2, 3}})
	w, h := r.Size()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)
	assert.Equal(t, 1, r.Frames())
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, r.LastFrame().Camera)
}
