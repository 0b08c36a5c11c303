package world

import (
	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world/block"
)

// VisibleMaskInside считает маску видимых граней блока i по соседям внутри
// чанка. Биты граней, смотрящих за пределы чанка, остаются выставленными и
// уточняются в VisibleMaskBetween.
func VisibleMaskInside(c *ClientChunk, i int) uint8 {
	mask := uint8(0xFF)
	axis := Axis(c.lod)
	forEachInnerNeighbor(axis, Delinearize(axis, i), func(n vec.Vec3, dir block.Direction) {
		if c.data[Linearize(axis, n)].Block.IsOpaque() {
			mask &^= dir.Bit()
		} else {
			mask |= dir.Bit()
		}
	})
	return mask
}

// faceCoord координата слоя блоков, прилегающего к грани dir
func faceCoord(axis int, dir block.Direction) int {
	if dir.Sign() > 0 {
		return axis - 1
	}
	return 0
}

// facePosition позиция блока на грани dir с координатами u, v в плоскости грани
func facePosition(axis int, dir block.Direction, u, v int) vec.Vec3 {
	d := dir.Axis()
	return vec.Vec3{}.
		With(d, faceCoord(axis, dir)).
		With((d+1)%3, u).
		With((d+2)%3, v)
}

// VisibleMaskBetween согласует маски видимости на общей грани двух соседних
// чанков; dir указывает из a в b. Цикл ведет сторона с более грубым LOD
// (больший номер уровня): каждой ее ячейке соответствует ratio×ratio ячеек
// более детальной стороны. Роли сторон определяются по LOD, а не по порядку
// аргументов. Возвращает true, если хотя бы одна маска изменилась.
func VisibleMaskBetween(a, b *ClientChunk, dir block.Direction) bool {
	coarse, fine, coarseDir := b, a, dir.Opposite()
	if a.lod > b.lod {
		coarse, fine, coarseDir = a, b, dir
	}
	fineDir := coarseDir.Opposite()

	coarseAxis := Axis(coarse.lod)
	fineAxis := Axis(fine.lod)
	ratio := Scale(coarse.lod) / Scale(fine.lod)
	d := coarseDir.Axis()

	changed := false
	for u := 0; u < coarseAxis; u++ {
		for v := 0; v < coarseAxis; v++ {
			mine := &coarse.data[Linearize(coarseAxis, facePosition(coarseAxis, coarseDir, u, v))]
			before := mine.VisibleMask
			mine.VisibleMask &^= coarseDir.Bit()

			base := facePosition(fineAxis, fineDir, u*ratio, v*ratio)
			for u2 := 0; u2 < ratio; u2++ {
				for v2 := 0; v2 < ratio; v2++ {
					p := base.
						With((d+1)%3, base.Get((d+1)%3)+u2).
						With((d+2)%3, base.Get((d+2)%3)+v2)
					theirs := &fine.data[Linearize(fineAxis, p)]
					theirBefore := theirs.VisibleMask

					if mine.Block.IsOpaque() {
						theirs.VisibleMask &^= fineDir.Bit()
					} else {
						theirs.VisibleMask |= fineDir.Bit()
					}
					if !theirs.Block.IsOpaque() {
						mine.VisibleMask |= coarseDir.Bit()
					}

					changed = changed || theirs.VisibleMask != theirBefore
				}
			}
			changed = changed || mine.VisibleMask != before
		}
	}
	return changed
}

// FaceInvisible сообщает, что ни один блок на грани dir не показывает ее наружу
func FaceInvisible(c *ClientChunk, dir block.Direction) bool {
	axis := Axis(c.lod)
	for u := 0; u < axis; u++ {
		for v := 0; v < axis; v++ {
			if c.data[Linearize(axis, facePosition(axis, dir, u, v))].VisibleMask&dir.Bit() != 0 {
				return false
			}
		}
	}
	return true
}

// RecalculateInside пересчитывает маски и затенение внутри чанка для всех блоков
func RecalculateInside(c *ClientChunk) {
	for i := range c.data {
		c.data[i].VisibleMask = VisibleMaskInside(c, i)
		c.data[i].Ambient = AmbientInside(c, i)
	}
}

// BorderFaces маска граней чанка с ребром axis, на которых лежит позиция p
func BorderFaces(axis int, p vec.Vec3) uint8 {
	var mask uint8
	for _, dir := range block.Directions {
		if p.Get(dir.Axis()) == faceCoord(axis, dir) {
			mask |= dir.Bit()
		}
	}
	return mask
}

// RecalculateAround пересчитывает маски и затенение блока i и его соседей
// внутри чанка после правки. Возвращает маску граней чанка, на которых
// лежат пересчитанные блоки: межчанковые данные этих граней нужно
// согласовать заново.
func RecalculateAround(c *ClientChunk, i int) uint8 {
	axis := Axis(c.lod)
	p := Delinearize(axis, i)

	var faces uint8
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				q := p.Add(vec.New(dx, dy, dz))
				if !InBounds(axis, q) {
					continue
				}
				j := Linearize(axis, q)
				c.data[j].VisibleMask = VisibleMaskInside(c, j)
				c.data[j].Ambient = AmbientInside(c, j)
				faces |= BorderFaces(axis, q)
			}
		}
	}
	return faces
}
