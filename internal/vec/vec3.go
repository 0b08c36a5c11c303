package vec

import "github.com/go-gl/mathgl/mgl32"

// Vec3 представляет трехмерный вектор с целочисленными координатами.
// Используется для позиций чанков, локальных и мировых позиций блоков.
type Vec3 struct {
	X int
	Y int
	Z int
}

// New создает вектор из трех координат
func New(x, y, z int) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// Splat создает вектор с одинаковыми координатами
func Splat(v int) Vec3 {
	return Vec3{X: v, Y: v, Z: v}
}

// Get возвращает координату по номеру оси (0 = X, 1 = Y, 2 = Z)
func (v Vec3) Get(axis int) int {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// With возвращает копию вектора с замененной координатой оси
func (v Vec3) With(axis, value int) Vec3 {
	switch axis {
	case 0:
		v.X = value
	case 1:
		v.Y = value
	default:
		v.Z = value
	}
	return v
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Sub вычитает вектор
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{
		X: v.X - other.X,
		Y: v.Y - other.Y,
		Z: v.Z - other.Z,
	}
}

// Scale умножает вектор на скаляр
func (v Vec3) Scale(s int) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Div делит каждую координату на скаляр с округлением к нулю
func (v Vec3) Div(s int) Vec3 {
	return Vec3{X: v.X / s, Y: v.Y / s, Z: v.Z / s}
}

// FloorDiv делит каждую координату с округлением вниз.
// Для отрицательных мировых координат это дает правильный чанк.
func (v Vec3) FloorDiv(s int) Vec3 {
	return Vec3{X: FloorDiv(v.X, s), Y: FloorDiv(v.Y, s), Z: FloorDiv(v.Z, s)}
}

// EuclidRem возвращает неотрицательный остаток по каждой координате
func (v Vec3) EuclidRem(s int) Vec3 {
	return Vec3{X: EuclidRem(v.X, s), Y: EuclidRem(v.Y, s), Z: EuclidRem(v.Z, s)}
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v == other
}

// Chebyshev возвращает максимальный модуль координаты
func (v Vec3) Chebyshev() int {
	return max(abs(v.X), abs(v.Y), abs(v.Z))
}

// DistanceTo возвращает квадрат евклидова расстояния до другого вектора
func (v Vec3) DistanceTo(other Vec3) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return float64(dx*dx + dy*dy + dz*dz)
}

// ToFloat преобразует вектор в mgl32.Vec3
func (v Vec3) ToFloat() mgl32.Vec3 {
	return mgl32.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
}

// Floor округляет вещественный вектор вниз до целочисленного
func Floor(f mgl32.Vec3) Vec3 {
	return Vec3{X: floor32(f[0]), Y: floor32(f[1]), Z: floor32(f[2])}
}

// FloorDiv целочисленное деление с округлением к минус бесконечности
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// EuclidRem остаток от деления, всегда в диапазоне [0, |b|)
func EuclidRem(a, b int) int {
	r := a % b
	if r < 0 {
		if b < 0 {
			r -= b
		} else {
			r += b
		}
	}
	return r
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

func floor32(f float32) int {
	i := int(f)
	if float32(i) > f {
		i--
	}
	return i
}
