package world

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world/block"
)

// BlockVertex вершина меша чанка в формате, который ожидает рендерер
type BlockVertex struct {
	Position mgl32.Vec3
	Scale    float32
	UV       mgl32.Vec2
	Normal   block.Direction
	Texture  uint32
	Ambient  float32
}

// TextureMapping сопоставляет грани блока индекс в атласе текстур
type TextureMapping func(b block.Block, dir block.Direction) (uint32, bool)

var vertexOffsets = [8]vec.Vec3{
	{X: 0, Y: 0, Z: 1},
	{X: 0, Y: 1, Z: 1},
	{X: 1, Y: 1, Z: 1},
	{X: 1, Y: 0, Z: 1},
	{X: 0, Y: 0, Z: 0},
	{X: 0, Y: 1, Z: 0},
	{X: 1, Y: 1, Z: 0},
	{X: 1, Y: 0, Z: 0},
}

// Порядок вершин каждой грани в каноническом порядке направлений
var vertexSideOrder = [block.DirectionCount][4]int{
	{4, 5, 1, 0},
	{3, 2, 6, 7},
	{0, 3, 7, 4},
	{5, 6, 2, 1},
	{5, 4, 7, 6},
	{0, 1, 2, 3},
}

// Какую упакованную вершину затенения брать для вершины грани.
// Индексируется противоположным направлением грани.
var ambientVertexOrder = [block.DirectionCount][4]int{
	block.Left:    {1, 0, 3, 2},
	block.Right:   {0, 1, 2, 3},
	block.Forward: {2, 1, 3, 0},
	block.Back:    {1, 2, 3, 0},
	block.Up:      {2, 1, 0, 3},
	block.Down:    {0, 3, 1, 2},
}

var faceUV = [4]mgl32.Vec2{{0, 0}, {0, 1}, {1, 1}, {1, 0}}

// GenBlockMesh строит меш чанка: по 4 вершины и 6 индексов на каждую
// видимую грань непрозрачного блока. Позиции вершин в блоках LOD 0
// относительно начала чанка.
func GenBlockMesh(c *ClientChunk, mapping TextureMapping) ([]BlockVertex, []uint32) {
	var vertices []BlockVertex
	var indices []uint32

	axis := Axis(c.lod)
	scale := Scale(c.lod)
	for i, info := range c.data {
		if !info.Block.IsOpaque() {
			continue
		}
		p := Delinearize(axis, i)
		for _, dir := range block.Directions {
			if info.VisibleMask&dir.Bit() == 0 {
				continue
			}

			texture, _ := mapping(info.Block, dir)
			base := uint32(len(vertices))
			order := ambientVertexOrder[dir.Opposite()]
			for k := 0; k < 4; k++ {
				offset := vertexOffsets[vertexSideOrder[dir][k]]
				vertices = append(vertices, BlockVertex{
					Position: offset.Add(p).Scale(scale).ToFloat(),
					Scale:    float32(scale),
					UV:       faceUV[k],
					Normal:   dir,
					Texture:  texture,
					Ambient:  UnpackAO(info.Ambient, dir, order[k]),
				})
			}
			indices = append(indices,
				base+1, base+0, base+3,
				base+1, base+3, base+2,
			)
		}
	}
	return vertices, indices
}
