package block

import "github.com/annel0/voxelworld/internal/vec"

// Direction одна из шести граней куба. Порядок значений совпадает с номером
// бита в масках видимости и индексом в массиве ambient.
type Direction uint8

const (
	Left    Direction = iota // -X
	Right                    // +X
	Forward                  // -Y
	Back                     // +Y
	Up                       // -Z
	Down                     // +Z
)

// DirectionCount количество граней
const DirectionCount = 6

// AllDirectionsMask маска с выставленными битами всех шести граней
const AllDirectionsMask uint8 = 0x3F

// Directions перечисляет грани в каноническом порядке
var Directions = [DirectionCount]Direction{Left, Right, Forward, Back, Up, Down}

// Opposite возвращает противоположную грань
func (d Direction) Opposite() Direction {
	return d ^ 1
}

// Axis возвращает номер оси грани (0 = X, 1 = Y, 2 = Z)
func (d Direction) Axis() int {
	return int(d) / 2
}

// Sign возвращает знак нормали грани: -1 или +1
func (d Direction) Sign() int {
	if d%2 == 0 {
		return -1
	}
	return 1
}

// Normal возвращает единичный вектор нормали грани
func (d Direction) Normal() vec.Vec3 {
	return vec.Vec3{}.With(d.Axis(), d.Sign())
}

// Bit возвращает маску бита этой грани
func (d Direction) Bit() uint8 {
	return 1 << d
}

// FromAxis возвращает грань по оси и знаку нормали
func FromAxis(axis, sign int) Direction {
	d := Direction(axis * 2)
	if sign > 0 {
		d++
	}
	return d
}

func (d Direction) String() string {
	switch d {
	case Left:
		return "Left"
	case Right:
		return "Right"
	case Forward:
		return "Forward"
	case Back:
		return "Back"
	case Up:
		return "Up"
	case Down:
		return "Down"
	default:
		return "Unknown"
	}
}
