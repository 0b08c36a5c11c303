package render

import (
	"sort"

	"github.com/annel0/voxelworld/internal/world/block"
)

// Слои атласа
const (
	LayerAlbedo = iota
	LayerHeightmap
	LayerNormal
	LayerCount
)

// AtlasAxis ячеек атласа по одной стороне
const AtlasAxis = 16

// Atlas раскладка текстур блоков по ячейкам атласа. Каждое уникальное имя
// текстуры получает одну ячейку; ячейки выдаются по алфавиту имен.
type Atlas struct {
	cells  map[string]uint32
	layers map[string][LayerCount]bool
}

// NewAtlas строит раскладку по зарегистрированным блокам
func NewAtlas() *Atlas {
	a := &Atlas{
		cells:  make(map[string]uint32),
		layers: make(map[string][LayerCount]bool),
	}

	for _, b := range block.All() {
		for _, dir := range block.Directions {
			name, ok := b.Texture(dir)
			if !ok {
				continue
			}
			layers := a.layers[name]
			layers[LayerAlbedo] = true
			layers[LayerHeightmap] = layers[LayerHeightmap] || b.HasParallax()
			layers[LayerNormal] = layers[LayerNormal] || b.HasNormal()
			a.layers[name] = layers
		}
	}

	names := make([]string, 0, len(a.layers))
	for name := range a.layers {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		a.cells[name] = uint32(i)
	}
	return a
}

// Len количество занятых ячеек
func (a *Atlas) Len() int {
	return len(a.cells)
}

// Cell ячейка текстуры по имени
func (a *Atlas) Cell(name string) (uint32, bool) {
	c, ok := a.cells[name]
	return c, ok
}

// Offset координаты ячейки в сетке атласа
func (a *Atlas) Offset(cell uint32) (x, y int) {
	return int(cell) % AtlasAxis, int(cell) / AtlasAxis
}

// HasLayer есть ли у текстуры данные слоя
func (a *Atlas) HasLayer(name string, layer int) bool {
	return a.layers[name][layer]
}

// Mapping ячейка атласа для грани блока; false для блоков без текстуры
func (a *Atlas) Mapping(b block.Block, dir block.Direction) (uint32, bool) {
	name, ok := b.Texture(dir)
	if !ok {
		return 0, false
	}
	return a.Cell(name)
}
