package world

import (
	"sort"

	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world/block"
)

// ChunkState стадия жизненного цикла чанка
type ChunkState uint8

const (
	// Generating запрос в работе, данных нет
	Generating ChunkState = iota
	// Stasis данные есть, производные поля или соседи еще не готовы
	Stasis
	// Active чанк полностью обработан и виден рендеру и сети
	Active
)

func (s ChunkState) String() string {
	switch s {
	case Generating:
		return "Generating"
	case Stasis:
		return "Stasis"
	case Active:
		return "Active"
	default:
		return "Unknown"
	}
}

// Entry запись о чанке в измерении
type Entry[C Chunk] struct {
	State ChunkState
	Chunk C
	// Neighbors количество присутствующих соседей по граням (0..6)
	Neighbors uint8
}

// Present есть ли у записи данные чанка
func (e *Entry[C]) Present() bool {
	return e.State == Stasis || e.State == Active
}

// BlockEdit изменение одного блока
type BlockEdit struct {
	Chunk vec.Vec3
	Local vec.Vec3
	Block block.Block
}

// Dimension отображение координат чанков в их состояние.
// Изменяется только из тика своего мира.
type Dimension[C Chunk] struct {
	chunks map[vec.Vec3]*Entry[C]
	// Правки для чанков, которых еще нет; применяются при вставке
	buffer      map[vec.Vec3][]BlockEdit
	updated     map[vec.Vec3]struct{}
	activations map[vec.Vec3]struct{}
}

// NewDimension создает пустое измерение
func NewDimension[C Chunk]() *Dimension[C] {
	return &Dimension[C]{
		chunks:      make(map[vec.Vec3]*Entry[C]),
		buffer:      make(map[vec.Vec3][]BlockEdit),
		updated:     make(map[vec.Vec3]struct{}),
		activations: make(map[vec.Vec3]struct{}),
	}
}

// Len количество записей в измерении
func (d *Dimension[C]) Len() int {
	return len(d.chunks)
}

// Entry возвращает запись о чанке
func (d *Dimension[C]) Entry(pos vec.Vec3) (*Entry[C], bool) {
	e, ok := d.chunks[pos]
	return e, ok
}

// State возвращает состояние чанка
func (d *Dimension[C]) State(pos vec.Vec3) (ChunkState, bool) {
	e, ok := d.chunks[pos]
	if !ok {
		return 0, false
	}
	return e.State, true
}

// Chunk возвращает данные чанка в состоянии Stasis или Active
func (d *Dimension[C]) Chunk(pos vec.Vec3) (C, bool) {
	e, ok := d.chunks[pos]
	if !ok || !e.Present() {
		var zero C
		return zero, false
	}
	return e.Chunk, true
}

// Has сообщает, есть ли запись о чанке в любом состоянии
func (d *Dimension[C]) Has(pos vec.Vec3) bool {
	_, ok := d.chunks[pos]
	return ok
}

// MarkGenerating регистрирует запрос на генерацию
func (d *Dimension[C]) MarkGenerating(pos vec.Vec3) {
	d.chunks[pos] = &Entry[C]{State: Generating}
}

// Insert кладет данные чанка в состояние Stasis, обновляет счетчики соседей
// и применяет отложенные правки. Повторная вставка перезаписывает данные.
func (d *Dimension[C]) Insert(pos vec.Vec3, chunk C) *Entry[C] {
	if old, ok := d.chunks[pos]; ok && old.Present() {
		d.detach(pos)
	}

	e := &Entry[C]{State: Stasis, Chunk: chunk}
	d.chunks[pos] = e

	forEachNeighbor(pos, func(n vec.Vec3, _ block.Direction) {
		their, ok := d.chunks[n]
		if !ok || !their.Present() {
			return
		}
		if their.State == Stasis {
			their.Neighbors = min(their.Neighbors+1, 6)
		}
		e.Neighbors++
	})

	if edits, ok := d.buffer[pos]; ok {
		delete(d.buffer, pos)
		d.SetBlocks(edits)
	}
	return e
}

// detach уменьшает счетчики соседей перед удалением или заменой чанка
func (d *Dimension[C]) detach(pos vec.Vec3) {
	forEachNeighbor(pos, func(n vec.Vec3, _ block.Direction) {
		if their, ok := d.chunks[n]; ok && their.State == Stasis && their.Neighbors > 0 {
			their.Neighbors--
		}
	})
}

// Remove удаляет чанк из измерения
func (d *Dimension[C]) Remove(pos vec.Vec3) {
	e, ok := d.chunks[pos]
	if !ok {
		return
	}
	if e.Present() {
		d.detach(pos)
	}
	delete(d.chunks, pos)
	delete(d.updated, pos)
	delete(d.activations, pos)
}

// Activate переводит чанк из Stasis в Active и записывает его в активации тика
func (d *Dimension[C]) Activate(pos vec.Vec3) bool {
	e, ok := d.chunks[pos]
	if !ok || e.State != Stasis {
		return false
	}
	e.State = Active
	d.activations[pos] = struct{}{}
	return true
}

// NeighborsPresent проверяет, что все шесть соседей по граням имеют данные
func (d *Dimension[C]) NeighborsPresent(pos vec.Vec3) bool {
	present := true
	forEachNeighbor(pos, func(n vec.Vec3, _ block.Direction) {
		if e, ok := d.chunks[n]; !ok || !e.Present() {
			present = false
		}
	})
	return present
}

// Neighborhood собирает окрестность 3×3×3. Возвращает false, если хотя бы
// один из 27 чанков отсутствует или еще генерируется.
func (d *Dimension[C]) Neighborhood(pos vec.Vec3) ([27]C, bool) {
	var out [27]C
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				offset := vec.New(dx, dy, dz)
				c, ok := d.Chunk(pos.Add(offset))
				if !ok {
					return out, false
				}
				out[NeighborhoodIndex(offset)] = c
			}
		}
	}
	return out, true
}

// SetBlocks применяет правки блоков. Правки для отсутствующих чанков
// откладываются до их вставки. Возвращает чанки, данные которых изменились.
func (d *Dimension[C]) SetBlocks(edits []BlockEdit) []vec.Vec3 {
	byChunk := make(map[vec.Vec3][]BlockEdit)
	for _, edit := range edits {
		byChunk[edit.Chunk] = append(byChunk[edit.Chunk], edit)
	}

	var modified []vec.Vec3
	for _, pos := range sortedKeys(byChunk) {
		group := byChunk[pos]
		e, ok := d.chunks[pos]
		if !ok || !e.Present() {
			d.buffer[pos] = append(d.buffer[pos], group...)
			continue
		}

		axis := Axis(e.Chunk.LOD())
		changed := false
		for _, edit := range group {
			if !InBounds(axis, edit.Local) {
				continue
			}
			if e.Chunk.Set(Linearize(axis, edit.Local), edit.Block) {
				changed = true
			}
		}
		if changed {
			modified = append(modified, pos)
			d.updated[pos] = struct{}{}
		}
	}
	return modified
}

// EditAt строит правку для мировой позиции LOD 0 с учетом LOD чанка-владельца
func (d *Dimension[C]) EditAt(world vec.Vec3, b block.Block) BlockEdit {
	pos := ChunkOf(world)
	lod := 0
	if c, ok := d.Chunk(pos); ok {
		lod = c.LOD()
	}
	return BlockEdit{Chunk: pos, Local: LocalOf(world, lod), Block: b}
}

// BufferedEdits количество отложенных правок
func (d *Dimension[C]) BufferedEdits() int {
	n := 0
	for _, edits := range d.buffer {
		n += len(edits)
	}
	return n
}

// BlockAt возвращает блок по мировой позиции LOD 0. false, если чанк не загружен.
func (d *Dimension[C]) BlockAt(world vec.Vec3) (block.Block, bool) {
	c, ok := d.Chunk(ChunkOf(world))
	if !ok {
		return block.Air, false
	}
	return c.Get(Linearize(Axis(c.LOD()), LocalOf(world, c.LOD()))), true
}

// MarkUpdated добавляет чанк в множество обновленных за тик
func (d *Dimension[C]) MarkUpdated(pos vec.Vec3) {
	d.updated[pos] = struct{}{}
}

// Updated возвращает обновленные за тик чанки без очистки
func (d *Dimension[C]) Updated() []vec.Vec3 {
	return sortedKeys(d.updated)
}

// DrainUpdated забирает и очищает множество обновленных чанков
func (d *Dimension[C]) DrainUpdated() []vec.Vec3 {
	out := sortedKeys(d.updated)
	clear(d.updated)
	return out
}

// DrainActivations забирает и очищает множество активированных чанков
func (d *Dimension[C]) DrainActivations() []vec.Vec3 {
	out := sortedKeys(d.activations)
	clear(d.activations)
	return out
}

// Positions возвращает координаты чанков в заданном состоянии
func (d *Dimension[C]) Positions(state ChunkState) []vec.Vec3 {
	var out []vec.Vec3
	for pos, e := range d.chunks {
		if e.State == state {
			out = append(out, pos)
		}
	}
	sortPositions(out)
	return out
}

// Count количество чанков в заданном состоянии
func (d *Dimension[C]) Count(state ChunkState) int {
	n := 0
	for _, e := range d.chunks {
		if e.State == state {
			n++
		}
	}
	return n
}

func sortedKeys[V any](m map[vec.Vec3]V) []vec.Vec3 {
	out := make([]vec.Vec3, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sortPositions(out)
	return out
}

func sortPositions(out []vec.Vec3) {
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
}
