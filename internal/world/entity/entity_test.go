package entity

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertVec3(t *testing.T, expected, actual mgl32.Vec3) {
	t.Helper()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, expected[i], actual[i], 1e-5, "компонента %d", i)
	}
}

func TestIntegrateYawRotatesDirection(t *testing.T) {
	pos, look := Integrate(mgl32.Vec3{}, mgl32.Vec2{}, 2, Input{
		Gaze:      mgl32.Vec2{math.Pi / 2, 0},
		Direction: mgl32.Vec3{1, 0, 0},
	}, 0.5)

	assert.InDelta(t, math.Pi/2, look[0], 1e-6)
	assertVec3(t, mgl32.Vec3{0, 1, 0}, pos)
}

func TestIntegrateClampsPitch(t *testing.T) {
	_, look := Integrate(mgl32.Vec3{}, mgl32.Vec2{0, 3}, 1, Input{Gaze: mgl32.Vec2{0, 1}}, 1)
	assert.InDelta(t, math.Pi, look[1], 1e-6)

	_, look = Integrate(mgl32.Vec3{}, mgl32.Vec2{}, 1, Input{Gaze: mgl32.Vec2{0, -1}}, 1)
	assert.Equal(t, float32(0), look[1])
}

func TestReplayUsesPerInputDelta(t *testing.T) {
	e := NewEntity(1, TagServer, mgl32.Vec3{})
	e.Speed = 10
	e.Inputs = []TimedInput{
		{Timestamp: 1, Delta: 0.1, Input: Input{Direction: mgl32.Vec3{1, 0, 0}}},
		{Timestamp: 2, Delta: 0.3, Input: Input{Direction: mgl32.Vec3{0, 1, 0}}},
	}

	require.True(t, e.Replay())
	assertVec3(t, mgl32.Vec3{1, 3, 0}, e.Translation)
	assert.Equal(t, uint64(2), e.LastInput)
	assert.Empty(t, e.Inputs)
	assert.False(t, e.Replay(), "пустая очередь ничего не меняет")
}

func TestPredictSkipsAcknowledged(t *testing.T) {
	inputs := []TimedInput{
		{Timestamp: 1, Delta: 1, Input: Input{Direction: mgl32.Vec3{1, 0, 0}}},
		{Timestamp: 2, Delta: 1, Input: Input{Direction: mgl32.Vec3{1, 0, 0}}},
		{Timestamp: 3, Delta: 1, Input: Input{Direction: mgl32.Vec3{0, 0, 1}}},
	}
	pos, _ := Predict(mgl32.Vec3{5, 0, 0}, mgl32.Vec2{}, 1, inputs, 2)
	assertVec3(t, mgl32.Vec3{5, 0, 1}, pos)

	e := NewEntity(1, TagMain, mgl32.Vec3{})
	e.Inputs = inputs
	e.Acknowledge(2)
	require.Len(t, e.Inputs, 1)
	assert.Equal(t, uint64(3), e.Inputs[0].Timestamp)
}

func TestSmoothConverges(t *testing.T) {
	e := NewEntity(1, TagMain, mgl32.Vec3{})
	e.Smooth(1, 10)
	assertVec3(t, mgl32.Vec3{}, e.Translation)

	target := mgl32.Vec3{10, 0, 0}
	e.Target = &target
	e.Smooth(0.1, 10)
	assert.Greater(t, e.Translation.X(), float32(0))
	assert.Less(t, e.Translation.X(), float32(10), "сглаживание не телепортирует")

	for i := 0; i < 100; i++ {
		e.Smooth(0.1, 10)
	}
	assert.InDelta(t, 10, e.Translation.X(), 1e-3)
}

type countingBehavior struct {
	spawned, updated, despawned int
}

func (b *countingBehavior) Update(*Entity, float32) { b.updated++ }
func (b *countingBehavior) OnSpawn(*Entity)         { b.spawned++ }
func (b *countingBehavior) OnDespawn(*Entity)       { b.despawned++ }

func TestManagerLifecycle(t *testing.T) {
	m := NewManager()
	b := &countingBehavior{}
	m.RegisterBehavior(TagServer, b)

	peer := uuid.New()
	e := m.Spawn(TagServer, mgl32.Vec3{0, 0, 20}, func(e *Entity) { e.Peer = peer })
	local := m.Spawn(TagClient|TagMain, mgl32.Vec3{}, nil)
	assert.Equal(t, 1, b.spawned, "поведение только для серверных сущностей")

	got, ok := m.ByPeer(peer)
	require.True(t, ok)
	assert.Same(t, e, got)

	main, ok := m.Main()
	require.True(t, ok)
	assert.Same(t, local, main)

	m.Update(0.05)
	assert.Equal(t, 1, b.updated)

	assert.True(t, m.Despawn(e.ID))
	assert.False(t, m.Despawn(e.ID))
	assert.Equal(t, 1, b.despawned)
	_, ok = m.ByPeer(peer)
	assert.False(t, ok)
	assert.Equal(t, 1, m.Count())
}

func TestPlayerBehaviorReplays(t *testing.T) {
	moved := 0
	m := NewManager()
	m.RegisterBehavior(TagServer, NewPlayerBehavior(func(*Entity) { moved++ }))

	e := m.Spawn(TagServer, mgl32.Vec3{}, func(e *Entity) { e.Speed = 1 })
	e.Inputs = append(e.Inputs, TimedInput{Timestamp: 7, Delta: 2, Input: Input{Direction: mgl32.Vec3{0, 0, 1}}})

	m.Update(0.05)
	assertVec3(t, mgl32.Vec3{0, 0, 2}, e.Translation)
	assert.Equal(t, 1, moved)

	m.Update(0.05)
	assert.Equal(t, 1, moved, "без ввода движения нет")
}
