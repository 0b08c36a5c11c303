package world

import (
	"github.com/annel0/voxelworld/internal/util"
	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world/block"
)

// Константы генерации
const (
	DefaultAlphaSeed = 400
	DefaultBetaSeed  = 500
	NoiseFrequency   = 0.0005

	// Шаг решетки, на которой считается шум
	noiseScale = 8
	// Узлов решетки по оси: ChunkAxis/noiseScale плюс один узел отступа
	noiseAxis = ChunkAxis/noiseScale + 1
)

// WorldGenerator генерирует ландшафт. Плотность = базовый фрактальный шум
// плюс вертикальное "сжатие", амплитуду которого задает второй канал шума.
// Результат зависит только от координаты чанка, LOD и сидов.
type WorldGenerator struct {
	alpha *util.NoiseChannel
	beta  *util.NoiseChannel
}

// NewWorldGenerator создаёт генератор с двумя каналами шума
func NewWorldGenerator(alphaSeed, betaSeed int64) *WorldGenerator {
	return &WorldGenerator{
		alpha: util.NewNoiseChannel(alphaSeed, NoiseFrequency),
		beta:  util.NewNoiseChannel(betaSeed, NoiseFrequency),
	}
}

// Density возвращает плотность в мировой точке. Ось Z направлена вверх.
func (wg *WorldGenerator) Density(p vec.Vec3) float64 {
	x, y, z := float64(p.X), float64(p.Y), float64(p.Z)
	beta := min(max(wg.beta.Sample(x, y, z), -0.9), 0.9)
	squish := util.Remap(beta, -0.9, 0.9, 0.0008, 0.009)
	const heightOffset = 0.0
	return wg.alpha.Sample(x, y, z) + squish*(heightOffset-z)
}

// GenerateChunk генерирует блоки чанка. Шум считается на решетке с шагом 8
// и трилинейно интерполируется по X, затем Y, затем Z.
func (wg *WorldGenerator) GenerateChunk(position vec.Vec3, lod int) []block.Block {
	lod = ClampLOD(lod)
	axis := Axis(lod)
	scale := Scale(lod)
	translation := position.Scale(ChunkAxis)

	var lattice [noiseAxis * noiseAxis * noiseAxis]float64
	at := func(x, y, z int) float64 {
		return lattice[x+noiseAxis*(y+noiseAxis*z)]
	}
	for x := 0; x < noiseAxis; x++ {
		for y := 0; y < noiseAxis; y++ {
			for z := 0; z < noiseAxis; z++ {
				local := vec.New((x-1)*noiseScale, (y-1)*noiseScale, (z-1)*noiseScale)
				lattice[x+noiseAxis*(y+noiseAxis*z)] = wg.Density(translation.Add(local))
			}
		}
	}

	blocks := make([]block.Block, Size(lod))
	for i := range blocks {
		local := Delinearize(axis, i)
		adjusted := local.Scale(scale)

		p0 := adjusted.Div(noiseScale)
		p1 := vec.New(
			min(p0.X+1, noiseAxis-1),
			min(p0.Y+1, noiseAxis-1),
			min(p0.Z+1, noiseAxis-1),
		)
		tx := float64(adjusted.X%noiseScale) / noiseScale
		ty := float64(adjusted.Y%noiseScale) / noiseScale
		tz := float64(adjusted.Z%noiseScale) / noiseScale

		density := util.Lerp(
			util.Lerp(
				util.Lerp(at(p0.X, p0.Y, p0.Z), at(p1.X, p0.Y, p0.Z), tx),
				util.Lerp(at(p0.X, p1.Y, p0.Z), at(p1.X, p1.Y, p0.Z), tx),
				ty,
			),
			util.Lerp(
				util.Lerp(at(p0.X, p0.Y, p1.Z), at(p1.X, p0.Y, p1.Z), tx),
				util.Lerp(at(p0.X, p1.Y, p1.Z), at(p1.X, p1.Y, p1.Z), tx),
				ty,
			),
			tz,
		)

		if density > 0 {
			blocks[i] = block.Stone
		} else {
			blocks[i] = block.Air
		}
	}
	return blocks
}

// NewServerChunkFromBlocks собирает серверный чанк из результата генерации
func NewServerChunkFromBlocks(lod int, blocks []block.Block) *ServerChunk {
	c := NewServerChunk(lod)
	for i, b := range blocks {
		c.Set(i, b)
	}
	return c
}

// NewClientChunkFromBlocks собирает клиентский чанк и считает внутренние
// маски видимости и затенение
func NewClientChunkFromBlocks(lod int, blocks []block.Block) *ClientChunk {
	c := NewClientChunk(lod)
	for i, b := range blocks {
		c.data[i].Block = b
	}
	RecalculateInside(c)
	return c
}
