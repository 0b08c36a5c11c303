package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world/block"
)

const (
	// MaxRaySteps жесткое ограничение на число шагов луча
	MaxRaySteps = 100
	// DefaultReach дальность выбора блока для установки и разрушения
	DefaultReach = 10.0
)

// Volume источник блоков для трассировки
type Volume interface {
	// BlockAt возвращает блок по мировой позиции; false, если чанк не загружен
	BlockAt(world vec.Vec3) (block.Block, bool)
}

// RayState состояние трассировки
type RayState uint8

const (
	Traversal RayState = iota
	BlockFound
	OutOfBounds
	MaxDistReached
	MaxStepReached
)

// RayTarget какую клетку вернуть после попадания
type RayTarget uint8

const (
	// TargetPosition клетка, в которую попал луч (разрушение)
	TargetPosition RayTarget = iota
	// TargetBackstep последняя пустая клетка перед попаданием (установка)
	TargetBackstep
)

// Ray пошаговый обход сетки вокселей (Amanatides-Woo)
type Ray struct {
	direction   mgl32.Vec3
	maxDistance float32

	State    RayState
	Position vec.Vec3
	Distance float32
	Steps    int
	Block    block.Block

	mask      [3]bool
	sideDist  [3]float32
	deltaDist [3]float32
	step      [3]int
}

// NewRay создает луч из origin в направлении direction
func NewRay(origin, direction mgl32.Vec3, maxDistance float32) *Ray {
	r := &Ray{
		maxDistance: maxDistance,
		Position:    vec.Floor(origin),
	}
	if direction.Len() == 0 {
		r.State = MaxDistReached
		return r
	}
	r.direction = direction.Normalize()

	cell := [3]int{r.Position.X, r.Position.Y, r.Position.Z}
	for a := 0; a < 3; a++ {
		d := r.direction[a]
		if d == 0 {
			r.sideDist[a] = float32(math.Inf(1))
			r.deltaDist[a] = float32(math.Inf(1))
			continue
		}
		r.deltaDist[a] = 1 / float32(math.Abs(float64(d)))
		if d > 0 {
			r.step[a] = 1
			r.sideDist[a] = (float32(cell[a]) + 1 - origin[a]) * r.deltaDist[a]
		} else {
			r.step[a] = -1
			r.sideDist[a] = (origin[a] - float32(cell[a])) * r.deltaDist[a]
		}
	}
	return r
}

// Drive выполняет один шаг: проверяет текущую клетку и переходит в следующую
func (r *Ray) Drive(v Volume) RayState {
	if r.State != Traversal {
		return r.State
	}
	if r.Steps >= MaxRaySteps {
		r.State = MaxStepReached
		return r.State
	}
	if r.Distance > r.maxDistance {
		r.State = MaxDistReached
		return r.State
	}

	b, ok := v.BlockAt(r.Position)
	if !ok {
		r.State = OutOfBounds
		return r.State
	}
	if b.IsOpaque() {
		r.State = BlockFound
		r.Block = b
		return r.State
	}

	m := min(r.sideDist[0], r.sideDist[1], r.sideDist[2])
	var delta vec.Vec3
	for a := 0; a < 3; a++ {
		r.mask[a] = r.sideDist[a] <= m
		if r.mask[a] {
			r.Distance = r.sideDist[a]
			r.sideDist[a] += r.deltaDist[a]
			delta = delta.With(a, r.step[a])
		}
	}
	r.Position = r.Position.Add(delta)
	r.Steps++
	return r.State
}

// Run продвигает луч до завершения
func (r *Ray) Run(v Volume) RayState {
	for r.Drive(v) == Traversal {
	}
	return r.State
}

// Hit результат попадания луча
type Hit struct {
	Position vec.Vec3
	Backstep vec.Vec3
	Normal   vec.Vec3
	Block    block.Block
	// Inside луч начался внутри найденного блока, соседней клетки нет
	Inside bool
}

// Hit возвращает результат, если луч нашел блок
func (r *Ray) Hit() (Hit, bool) {
	if r.State != BlockFound {
		return Hit{}, false
	}
	var back, normal vec.Vec3
	for a := 0; a < 3; a++ {
		if r.mask[a] {
			back = back.With(a, r.step[a])
			normal = normal.With(a, -r.step[a])
		}
	}
	return Hit{
		Position: r.Position,
		Backstep: r.Position.Sub(back),
		Normal:   normal,
		Block:    r.Block,
		Inside:   r.Steps == 0,
	}, true
}

// Target возвращает выбранную клетку попадания. Для TargetBackstep
// результата нет, если луч начался внутри блока.
func (h Hit) Target(t RayTarget) (vec.Vec3, bool) {
	if t == TargetBackstep {
		return h.Backstep, !h.Inside
	}
	return h.Position, true
}

// LookDirection направление взгляда: поворот по рысканию вокруг Z, затем по
// тангажу вокруг X, примененный к (0, 0, -1)
func LookDirection(look mgl32.Vec2) mgl32.Vec3 {
	q := mgl32.QuatRotate(look[0], mgl32.Vec3{0, 0, 1}).
		Mul(mgl32.QuatRotate(look[1], mgl32.Vec3{1, 0, 0}))
	return q.Rotate(mgl32.Vec3{0, 0, -1})
}

// Raycast трассирует луч взгляда и возвращает мировую позицию цели
func Raycast(v Volume, target RayTarget, translation mgl32.Vec3, look mgl32.Vec2, reach float32) (vec.Vec3, bool) {
	ray := NewRay(translation, LookDirection(look), reach)
	ray.Run(v)
	hit, ok := ray.Hit()
	if !ok {
		return vec.Vec3{}, false
	}
	return hit.Target(target)
}
