// Package render описывает границу между миром клиента и графическим
// бэкендом. Мир передает готовые меши чанков; сам бэкенд подключается
// извне, в комплекте только Null для безголового клиента и тестов.
package render

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/voxelworld/internal/world"
	"github.com/annel0/voxelworld/internal/world/block"
)

// MeshID дескриптор меша, выданный рендерером
type MeshID uint64

// BlockMesh меш одного чанка
type BlockMesh struct {
	Vertices []world.BlockVertex
	Indices  []uint32
	// Position мировая позиция начала чанка в блоках
	Position mgl32.Vec3
}

// Frame состояние мира, нужное для отрисовки кадра
type Frame struct {
	Camera mgl32.Vec3
	Look   mgl32.Vec2
}

// Renderer графический бэкенд
type Renderer interface {
	CreateBlockMesh(mesh BlockMesh) MeshID
	DestroyBlockMesh(id MeshID)
	BlockMapping(b block.Block, dir block.Direction) (uint32, bool)
	Resize(width, height int)
	Render(frame Frame)
}
