package world

import (
	"sort"

	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world/block"
)

const (
	// ChunkAxis длина ребра чанка в блоках при LOD 0
	ChunkAxis = 32
	// ChunkSize количество блоков в чанке LOD 0
	ChunkSize = ChunkAxis * ChunkAxis * ChunkAxis
	// MaxLOD последний уровень детализации, при котором в чанке остается один блок
	MaxLOD = 5
)

// Scale возвращает размер блока уровня lod в блоках LOD 0
func Scale(lod int) int {
	return 1 << lod
}

// Axis возвращает длину ребра чанка уровня lod
func Axis(lod int) int {
	return ChunkAxis >> lod
}

// Size возвращает количество блоков в чанке уровня lod
func Size(lod int) int {
	a := Axis(lod)
	return a * a * a
}

// ClampLOD приводит уровень детализации к допустимому диапазону
func ClampLOD(lod int) int {
	return min(max(lod, 0), MaxLOD)
}

// Linearize переводит локальную позицию в индекс плоского массива.
// axis должен соответствовать LOD чанка, которому принадлежит индекс.
func Linearize(axis int, p vec.Vec3) int {
	return (p.Z*axis+p.Y)*axis + p.X
}

// Delinearize обратное преобразование к Linearize
func Delinearize(axis int, i int) vec.Vec3 {
	z := i / (axis * axis)
	i -= z * axis * axis
	return vec.Vec3{X: i % axis, Y: i / axis, Z: z}
}

// InBounds проверяет, лежит ли позиция внутри чанка с ребром axis
func InBounds(axis int, p vec.Vec3) bool {
	return p.X >= 0 && p.Y >= 0 && p.Z >= 0 && p.X < axis && p.Y < axis && p.Z < axis
}

// ChunkOf возвращает координату чанка, которому принадлежит мировая позиция блока
func ChunkOf(world vec.Vec3) vec.Vec3 {
	return world.FloorDiv(ChunkAxis)
}

// LocalOf возвращает локальную позицию мирового блока внутри чанка уровня lod
func LocalOf(world vec.Vec3, lod int) vec.Vec3 {
	return world.EuclidRem(ChunkAxis).Div(Scale(lod))
}

// Chunk общий интерфейс клиентского и серверного чанков
type Chunk interface {
	LOD() int
	Len() int
	Get(i int) block.Block
	// Set записывает блок и сообщает, изменилось ли значение
	Set(i int, b block.Block) bool
}

// Blocks копирует идентификаторы блоков чанка в плоский массив
func Blocks(c Chunk) []block.Block {
	blocks := make([]block.Block, c.Len())
	for i := range blocks {
		blocks[i] = c.Get(i)
	}
	return blocks
}

// IsEmpty сообщает, состоит ли чанк только из прозрачных блоков
func IsEmpty(c Chunk) bool {
	for i := 0; i < c.Len(); i++ {
		if c.Get(i).IsOpaque() {
			return false
		}
	}
	return true
}

// ClientBlock данные блока на клиенте: тип, маска видимых граней и
// упакованное затенение (2 бита на вершину, 4 вершины на грань).
type ClientBlock struct {
	Block       block.Block
	VisibleMask uint8
	Ambient     [block.DirectionCount]uint8
}

// ClientChunk чанк клиента с кэшем производных данных.
// NeighborVisibilityMask и NeighborAOMask отмечают грани чанка, для которых
// уже посчитаны видимость и затенение на стыке с соседом.
type ClientChunk struct {
	lod  int
	data []ClientBlock

	NeighborVisibilityMask uint8
	NeighborAOMask         uint8
}

// NewClientChunk создает пустой (воздушный) клиентский чанк
func NewClientChunk(lod int) *ClientChunk {
	lod = ClampLOD(lod)
	return &ClientChunk{
		lod:  lod,
		data: make([]ClientBlock, Size(lod)),
	}
}

func (c *ClientChunk) LOD() int { return c.lod }

func (c *ClientChunk) Len() int { return len(c.data) }

func (c *ClientChunk) Get(i int) block.Block { return c.data[i].Block }

func (c *ClientChunk) Set(i int, b block.Block) bool {
	if c.data[i].Block == b {
		return false
	}
	c.data[i].Block = b
	return true
}

// Info возвращает изменяемую ссылку на данные блока
func (c *ClientChunk) Info(i int) *ClientBlock {
	return &c.data[i]
}

// At возвращает копию данных блока
func (c *ClientChunk) At(i int) ClientBlock {
	return c.data[i]
}

// VisibilityResolved все шесть граней чанка согласованы с соседями
func (c *ClientChunk) VisibilityResolved() bool {
	return c.NeighborVisibilityMask&block.AllDirectionsMask == block.AllDirectionsMask
}

// AOResolved затенение на всех шести гранях посчитано
func (c *ClientChunk) AOResolved() bool {
	return c.NeighborAOMask&block.AllDirectionsMask == block.AllDirectionsMask
}

// ServerBlock данные блока на сервере
type ServerBlock struct {
	Block    block.Block
	Rotation uint8
}

// TileID идентификатор тайла внутри чанка
type TileID uint32

// TileData состояние симулируемого блока
type TileData struct {
	Index int
	Power float32
}

// TileTransition описывает смену типа блока в ячейке
type TileTransition struct {
	Index int
	Old   block.Block
	New   block.Block
}

// Despawn нужно ли удалить существующий тайл
func (t TileTransition) Despawn() bool {
	return t.Old != t.New && t.Old.IsTile()
}

// Spawn нужно ли создать новый тайл
func (t TileTransition) Spawn() bool {
	return t.Old != t.New && t.New.IsTile()
}

// ServerChunk авторитетный чанк сервера с реестром тайлов
type ServerChunk struct {
	lod  int
	data []ServerBlock

	mapping  map[int]TileID
	tiles    map[TileID]*TileData
	nextTile TileID
}

// NewServerChunk создает пустой серверный чанк
func NewServerChunk(lod int) *ServerChunk {
	lod = ClampLOD(lod)
	return &ServerChunk{
		lod:     lod,
		data:    make([]ServerBlock, Size(lod)),
		mapping: make(map[int]TileID),
		tiles:   make(map[TileID]*TileData),
	}
}

func (c *ServerChunk) LOD() int { return c.lod }

func (c *ServerChunk) Len() int { return len(c.data) }

func (c *ServerChunk) Get(i int) block.Block { return c.data[i].Block }

// Info возвращает копию данных блока
func (c *ServerChunk) Info(i int) ServerBlock { return c.data[i] }

// SetBlock записывает блок и возвращает переход типа, если он затрагивает
// реестр тайлов. Сам реестр не меняется: вызывающий код применяет переход
// через DespawnTile/SpawnTile.
func (c *ServerChunk) SetBlock(i int, b block.Block) (TileTransition, bool) {
	old := c.data[i].Block
	c.data[i].Block = b
	tr := TileTransition{Index: i, Old: old, New: b}
	return tr, tr.Spawn() || tr.Despawn()
}

// Set записывает блок и сразу применяет переход тайла
func (c *ServerChunk) Set(i int, b block.Block) bool {
	old := c.data[i].Block
	if tr, ok := c.SetBlock(i, b); ok {
		if tr.Despawn() {
			c.DespawnTile(i)
		}
		if tr.Spawn() {
			c.SpawnTile(i)
		}
	}
	return old != b
}

// SpawnTile создает тайл в ячейке i, заменяя существующий
func (c *ServerChunk) SpawnTile(i int) TileID {
	c.DespawnTile(i)
	c.nextTile++
	id := c.nextTile
	c.tiles[id] = &TileData{Index: i}
	c.mapping[i] = id
	return id
}

// DespawnTile удаляет тайл в ячейке i, если он есть
func (c *ServerChunk) DespawnTile(i int) bool {
	id, ok := c.mapping[i]
	if !ok {
		return false
	}
	delete(c.tiles, id)
	delete(c.mapping, i)
	return true
}

// Tile возвращает состояние тайла в ячейке i
func (c *ServerChunk) Tile(i int) (TileData, bool) {
	id, ok := c.mapping[i]
	if !ok {
		return TileData{}, false
	}
	return *c.tiles[id], true
}

// SetPower задает мощность тайла в ячейке i
func (c *ServerChunk) SetPower(i int, power float32) bool {
	id, ok := c.mapping[i]
	if !ok {
		return false
	}
	c.tiles[id].Power = power
	return true
}

// TileCount количество тайлов в чанке
func (c *ServerChunk) TileCount() int {
	return len(c.tiles)
}

// Tick выполняет один шаг симуляции тайлов: источники заряжаются до 100,
// машины потребляют 10, соседние тайлы выравнивают мощность с потерей 0.01.
func (c *ServerChunk) Tick() {
	if len(c.tiles) == 0 {
		return
	}

	ids := make([]TileID, 0, len(c.tiles))
	for id := range c.tiles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	axis := Axis(c.lod)
	for _, id := range ids {
		mine := c.tiles[id]
		switch c.data[mine.Index].Block {
		case block.Machine:
			if mine.Power > 0 {
				mine.Power -= 10
			}
		case block.Source:
			mine.Power = 100
		}

		forEachInnerNeighbor(axis, Delinearize(axis, mine.Index), func(n vec.Vec3, _ block.Direction) {
			theirID, ok := c.mapping[Linearize(axis, n)]
			if !ok {
				return
			}
			theirs := c.tiles[theirID]
			avg := max((mine.Power+theirs.Power)/2-0.01, 0)
			mine.Power = avg
			theirs.Power = avg
		})
	}
}

// forEachNeighbor обходит шесть соседей позиции в каноническом порядке граней
func forEachNeighbor(p vec.Vec3, f func(n vec.Vec3, dir block.Direction)) {
	for _, dir := range block.Directions {
		f(p.Add(dir.Normal()), dir)
	}
}

// forEachInnerNeighbor обходит только соседей внутри чанка
func forEachInnerNeighbor(axis int, p vec.Vec3, f func(n vec.Vec3, dir block.Direction)) {
	forEachNeighbor(p, func(n vec.Vec3, dir block.Direction) {
		if InBounds(axis, n) {
			f(n, dir)
		}
	})
}
