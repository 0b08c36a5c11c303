package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxelworld/internal/util"
	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world/block"
)

func TestGenerateDeterministic(t *testing.T) {
	g1 := NewWorldGenerator(DefaultAlphaSeed, DefaultBetaSeed)
	g2 := NewWorldGenerator(DefaultAlphaSeed, DefaultBetaSeed)

	a := g1.GenerateChunk(vec.Vec3{}, 0)
	b := g2.GenerateChunk(vec.Vec3{}, 0)
	require.Len(t, a, Size(0))
	assert.Equal(t, a, b, "одинаковые сиды дают одинаковый чанк")
	assert.Equal(t, util.EncodeRLE(a), util.EncodeRLE(b))

	assert.Equal(t, a, g1.GenerateChunk(vec.Vec3{}, 0), "повторная генерация не меняет результат")
}

func TestGenerateLODSize(t *testing.T) {
	g := NewWorldGenerator(DefaultAlphaSeed, DefaultBetaSeed)
	for lod := 0; lod <= MaxLOD; lod++ {
		assert.Len(t, g.GenerateChunk(vec.New(1, -1, 0), lod), Size(lod))
	}
}

func TestGenerateExtremes(t *testing.T) {
	g := NewWorldGenerator(DefaultAlphaSeed, DefaultBetaSeed)

	for _, b := range g.GenerateChunk(vec.New(0, 0, -200), 2) {
		require.Equal(t, block.Stone, b, "глубоко под землей только камень")
	}
	for _, b := range g.GenerateChunk(vec.New(0, 0, 200), 2) {
		require.Equal(t, block.Air, b, "высоко над землей только воздух")
	}
}

func TestClientChunkFromBlocks(t *testing.T) {
	blocks := make([]block.Block, Size(3))
	blocks[0] = block.Stone
	c := NewClientChunkFromBlocks(3, blocks)
	assert.Equal(t, 3, c.LOD())
	assert.Equal(t, block.Stone, c.Get(0))
	assert.Zero(t, c.At(1).VisibleMask&block.Left.Bit(), "грань к камню скрыта")

	s := NewServerChunkFromBlocks(3, []block.Block{block.Source, block.Air})
	assert.Equal(t, 1, s.TileCount())
}
