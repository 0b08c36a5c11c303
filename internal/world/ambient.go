package world

import (
	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world/block"
)

// noOcclusion значение затенения грани без перекрытий (все вершины = 3)
const noOcclusion = 0xFF

func vertexAO(side1, side2, corner int) int {
	return side1 + side2 + max(corner, side1*side2)
}

// voxelAO считает затенение четырех вершин грани по двум боковым осям d1, d2
func voxelAO(p, d1, d2 vec.Vec3, present func(vec.Vec3) bool) [4]int {
	b := func(q vec.Vec3) int {
		if present(q) {
			return 1
		}
		return 0
	}

	side := [4]int{
		b(p.Add(d1)),
		b(p.Add(d2)),
		b(p.Sub(d1)),
		b(p.Sub(d2)),
	}
	corner := [4]int{
		b(p.Add(d1).Add(d2)),
		b(p.Sub(d1).Add(d2)),
		b(p.Sub(d1).Sub(d2)),
		b(p.Add(d1).Sub(d2)),
	}

	return [4]int{
		vertexAO(side[0], side[1], corner[0]),
		vertexAO(side[1], side[2], corner[1]),
		vertexAO(side[2], side[3], corner[2]),
		vertexAO(side[3], side[0], corner[3]),
	}
}

// packAO упаковывает 4 значения затенения по 2 бита, 3 = нет затенения
func packAO(ao [4]int) uint8 {
	return uint8(3-ao[0]) | uint8(3-ao[1])<<2 | uint8(3-ao[2])<<4 | uint8(3-ao[3])<<6
}

// UnpackAO возвращает яркость вершины грани в диапазоне [0, 1]
func UnpackAO(ambient [block.DirectionCount]uint8, dir block.Direction, vertex int) float32 {
	return float32((ambient[dir]>>(vertex*2))&3) / 3
}

// faceAO затенение грани с нормалью n у блока в позиции p
func faceAO(p, n vec.Vec3, present func(vec.Vec3) bool) uint8 {
	d1 := vec.Vec3{X: n.Z, Y: n.X, Z: n.Y}
	d2 := vec.Vec3{X: n.Y, Y: n.Z, Z: n.X}
	return packAO(voxelAO(p.Add(n), d1, d2, present))
}

// AmbientInside считает затенение граней блока i только по блокам своего чанка.
// Грани, смотрящие наружу, получают значение без затенения.
func AmbientInside(c *ClientChunk, i int) [block.DirectionCount]uint8 {
	var values [block.DirectionCount]uint8
	for d := range values {
		values[d] = noOcclusion
	}

	axis := Axis(c.lod)
	p := Delinearize(axis, i)
	present := func(q vec.Vec3) bool {
		return InBounds(axis, q) && c.data[Linearize(axis, q)].Block.IsOpaque()
	}
	forEachInnerNeighbor(axis, p, func(_ vec.Vec3, dir block.Direction) {
		values[dir] = faceAO(p, dir.Normal(), present)
	})
	return values
}

// Neighborhood окрестность 3×3×3 чанков с центром в индексе 13.
// Индекс соседа со смещением (dx, dy, dz) ∈ [-1, 1]³: ((dz+1)*3+(dy+1))*3+(dx+1).
type Neighborhood [27]*ClientChunk

// NeighborhoodIndex индекс соседа по смещению от центра
func NeighborhoodIndex(offset vec.Vec3) int {
	return ((offset.Z+1)*3+(offset.Y+1))*3 + (offset.X + 1)
}

// Center возвращает центральный чанк окрестности
func (n *Neighborhood) Center() *ClientChunk {
	return n[13]
}

// opaqueAt проверяет непрозрачность блока по мировой позиции LOD 0.
// low координата чанка с индексом 0.
func (n *Neighborhood) opaqueAt(low, world vec.Vec3) bool {
	diff := ChunkOf(world).Sub(low)
	if !InBounds(3, diff) {
		return false
	}
	c := n[Linearize(3, diff)]
	if c == nil {
		return false
	}
	return c.data[Linearize(Axis(c.lod), LocalOf(world, c.lod))].Block.IsOpaque()
}

// BorderAmbient затенение всех граней одного граничного блока
type BorderAmbient struct {
	Index   int
	Ambient [block.DirectionCount]uint8
}

// AmbientBetween считает затенение граничных блоков центрального чанка на
// грани dir с учетом всех 27 чанков окрестности. Блоки без видимых граней
// пропускаются. Все 27 чанков должны присутствовать.
func AmbientBetween(n *Neighborhood, target vec.Vec3, dir block.Direction) []BorderAmbient {
	c := n.Center()
	axis := Axis(c.lod)
	scale := Scale(c.lod)
	low := target.Sub(vec.Splat(1))
	origin := target.Scale(ChunkAxis)

	// Выборка в единицах блоков центрального чанка
	present := func(q vec.Vec3) bool {
		return n.opaqueAt(low, origin.Add(q.Scale(scale)))
	}

	values := make([]BorderAmbient, 0, axis*axis)
	for u := 0; u < axis; u++ {
		for v := 0; v < axis; v++ {
			p := facePosition(axis, dir, u, v)
			i := Linearize(axis, p)
			if c.data[i].VisibleMask&block.AllDirectionsMask == 0 {
				continue
			}

			var ambient [block.DirectionCount]uint8
			for _, d := range block.Directions {
				ambient[d] = faceAO(p, d.Normal(), present)
			}
			values = append(values, BorderAmbient{Index: i, Ambient: ambient})
		}
	}
	return values
}

// SetAmbientBetween записывает результат AmbientBetween в чанк
func SetAmbientBetween(values []BorderAmbient, c *ClientChunk) {
	for _, v := range values {
		c.data[v.Index].Ambient = v.Ambient
	}
}
