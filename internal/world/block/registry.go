package block

import (
	"fmt"
	"sort"
)

// Block представляет идентификатор блока. Значение совпадает с id,
// передаваемым по сети в RLE кодировке.
type Block uint16

// Константы блоков
const (
	Air     Block = iota // 0
	Stone                // 1
	Machine              // 2
	Wire                 // 3
	Source               // 4
)

// Properties описывает статические свойства типа блока
type Properties struct {
	Name string
	// Opaque ложно только для воздуха
	Opaque bool
	// Tile блоки получают сущность симуляции в серверном чанке
	Tile bool
	// Texture возвращает имя текстуры грани или "" если у блока нет текстуры
	Texture func(dir Direction) string
	// Parallax и Normal отмечают наличие дополнительных слоев атласа
	Parallax bool
	Normal   bool
}

var registry = make(map[Block]Properties)

// Register добавляет свойства блока в регистр
func Register(id Block, props Properties) {
	registry[id] = props
}

// Get возвращает свойства для указанного блока
func Get(id Block) (Properties, bool) {
	props, exists := registry[id]
	return props, exists
}

// IsValid проверяет, зарегистрирован ли блок
func IsValid(id Block) bool {
	_, exists := registry[id]
	return exists
}

// All возвращает все зарегистрированные блоки в порядке возрастания id
func All() []Block {
	blocks := make([]Block, 0, len(registry))
	for id := range registry {
		blocks = append(blocks, id)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })
	return blocks
}

// IsOpaque сообщает, перекрывает ли блок соседние грани
func (b Block) IsOpaque() bool {
	return b != Air
}

// IsTile сообщает, нужна ли блоку сущность симуляции
func (b Block) IsTile() bool {
	props, ok := registry[b]
	return ok && props.Tile
}

// Texture возвращает имя текстуры для грани направления dir
func (b Block) Texture(dir Direction) (string, bool) {
	props, ok := registry[b]
	if !ok || props.Texture == nil {
		return "", false
	}
	name := props.Texture(dir)
	return name, name != ""
}

// HasParallax сообщает о наличии карты высот в атласе
func (b Block) HasParallax() bool {
	return registry[b].Parallax
}

// HasNormal сообщает о наличии карты нормалей в атласе
func (b Block) HasNormal() bool {
	return registry[b].Normal
}

func (b Block) String() string {
	if props, ok := registry[b]; ok {
		return props.Name
	}
	return fmt.Sprintf("Block(%d)", uint16(b))
}

func constant(name string) func(Direction) string {
	return func(Direction) string { return name }
}

func init() {
	Register(Air, Properties{Name: "Air"})
	Register(Stone, Properties{
		Name:     "Stone",
		Opaque:   true,
		Texture:  constant("stone"),
		Parallax: true,
		Normal:   true,
	})
	Register(Machine, Properties{
		Name:   "Machine",
		Opaque: true,
		Tile:   true,
		Texture: func(dir Direction) string {
			if dir == Forward {
				return "machine_front"
			}
			return "machine_side"
		},
	})
	Register(Wire, Properties{Name: "Wire", Opaque: true, Tile: true, Texture: constant("wire")})
	Register(Source, Properties{Name: "Source", Opaque: true, Tile: true, Texture: constant("source")})
}
