package entity

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/voxelworld/internal/world/block"
)

// Input намерение игрока за один кадр
type Input struct {
	// Gaze приращение рыскания и тангажа
	Gaze mgl32.Vec2
	// Direction нормализованное направление движения в системе координат игрока
	Direction mgl32.Vec3
}

// TimedInput ввод с меткой и длительностью кадра, в котором он был собран
type TimedInput struct {
	Timestamp uint64
	Delta     float32
	Input     Input
}

// ChangeKind тип изменения блока
type ChangeKind uint8

const (
	// Place ставит блок в последнюю пустую клетку перед попаданием луча
	Place ChangeKind = iota
	// Break заменяет блок, в который попал луч
	Break
)

func (k ChangeKind) String() string {
	if k == Break {
		return "Break"
	}
	return "Place"
}

// Change запрос на установку или разрушение блока
type Change struct {
	Kind  ChangeKind
	Block block.Block
}

// Integrate возвращает позицию и взгляд после применения одного ввода.
// Взгляд накапливается напрямую, тангаж ограничен [0, π]; позиция сдвигается
// на speed*dt в направлении ввода, повернутом на рыскание вокруг Z.
func Integrate(translation mgl32.Vec3, look mgl32.Vec2, speed float32, in Input, dt float32) (mgl32.Vec3, mgl32.Vec2) {
	look = look.Add(in.Gaze)
	look[1] = mgl32.Clamp(look[1], 0, math.Pi)

	yaw := mgl32.QuatRotate(look[0], mgl32.Vec3{0, 0, 1})
	translation = translation.Add(yaw.Rotate(in.Direction).Mul(speed * dt))
	return translation, look
}

// Apply применяет один ввод к сущности
func (e *Entity) Apply(in Input, dt float32) {
	e.Translation, e.Look = Integrate(e.Translation, e.Look, e.Speed, in, dt)
}

// Replay применяет очередь ввода по порядку, каждый элемент со своей
// длительностью кадра, и очищает очередь. Возвращает true, если что-то применено.
func (e *Entity) Replay() bool {
	if len(e.Inputs) == 0 {
		return false
	}
	for _, in := range e.Inputs {
		e.Apply(in.Input, in.Delta)
		e.LastInput = max(e.LastInput, in.Timestamp)
	}
	e.Inputs = e.Inputs[:0]
	return true
}

// Predict возвращает позицию и взгляд после повторного применения ввода,
// который сервер еще не учел (метка больше acked)
func Predict(translation mgl32.Vec3, look mgl32.Vec2, speed float32, inputs []TimedInput, acked uint64) (mgl32.Vec3, mgl32.Vec2) {
	for _, in := range inputs {
		if in.Timestamp <= acked {
			continue
		}
		translation, look = Integrate(translation, look, speed, in.Input, in.Delta)
	}
	return translation, look
}

// Acknowledge удаляет из очереди ввод, уже учтенный сервером
func (e *Entity) Acknowledge(acked uint64) {
	kept := e.Inputs[:0]
	for _, in := range e.Inputs {
		if in.Timestamp > acked {
			kept = append(kept, in)
		}
	}
	e.Inputs = kept
}

// Smooth экспоненциально подтягивает Translation к Target
func (e *Entity) Smooth(dt, rate float32) {
	if e.Target == nil {
		return
	}
	k := 1 - float32(math.Exp(float64(-rate*dt)))
	e.Translation = e.Translation.Add(e.Target.Sub(e.Translation).Mul(k))
}
