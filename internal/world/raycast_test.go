package world

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world/block"
)

// testVolume блоки в кубе [-bound, bound], за его пределами мир не загружен
type testVolume struct {
	blocks map[vec.Vec3]block.Block
	bound  int
}

func (v testVolume) BlockAt(p vec.Vec3) (block.Block, bool) {
	if p.Chebyshev() > v.bound {
		return block.Air, false
	}
	return v.blocks[p], true
}

func TestRayHitAndBackstep(t *testing.T) {
	v := testVolume{blocks: map[vec.Vec3]block.Block{{}: block.Stone}, bound: 64}
	ray := NewRay(mgl32.Vec3{0.5, 0.5, 10.5}, mgl32.Vec3{0, 0, -1}, DefaultReach)

	require.Equal(t, BlockFound, ray.Run(v))
	hit, ok := ray.Hit()
	require.True(t, ok)
	assert.Equal(t, vec.Vec3{}, hit.Position)
	assert.Equal(t, vec.New(0, 0, 1), hit.Backstep)
	assert.Equal(t, vec.New(0, 0, 1), hit.Normal)
	assert.Equal(t, block.Stone, hit.Block)
	assert.False(t, hit.Inside)
	assert.Equal(t, 10, ray.Steps)
	assert.InDelta(t, 9.5, ray.Distance, 1e-5)
}

func TestRayTooFar(t *testing.T) {
	v := testVolume{blocks: map[vec.Vec3]block.Block{vec.New(0, 0, -5): block.Stone}, bound: 64}
	ray := NewRay(mgl32.Vec3{0.5, 0.5, 10.5}, mgl32.Vec3{0, 0, -1}, DefaultReach)
	assert.Equal(t, MaxDistReached, ray.Run(v))
	_, ok := ray.Hit()
	assert.False(t, ok)
}

func TestRayOutOfBounds(t *testing.T) {
	v := testVolume{blocks: map[vec.Vec3]block.Block{}, bound: 3}
	ray := NewRay(mgl32.Vec3{0.5, 0.5, 0.5}, mgl32.Vec3{1, 0, 0}, 50)
	assert.Equal(t, OutOfBounds, ray.Run(v))
	assert.Equal(t, vec.New(4, 0, 0), ray.Position)
}

func TestRayStepLimit(t *testing.T) {
	v := testVolume{blocks: map[vec.Vec3]block.Block{}, bound: 1000}
	ray := NewRay(mgl32.Vec3{0.5, 0.5, 0.5}, mgl32.Vec3{1, 1, 1}, 1000)
	assert.Equal(t, MaxStepReached, ray.Run(v))
	assert.Equal(t, MaxRaySteps, ray.Steps)
}

func TestLookDirection(t *testing.T) {
	d := LookDirection(mgl32.Vec2{0, 0})
	assert.InDelta(t, 0, d.X(), 1e-6)
	assert.InDelta(t, 0, d.Y(), 1e-6)
	assert.InDelta(t, -1, d.Z(), 1e-6)

	d = LookDirection(mgl32.Vec2{0, math.Pi / 2})
	assert.InDelta(t, 0, d.X(), 1e-6)
	assert.InDelta(t, 1, d.Y(), 1e-6)
	assert.InDelta(t, 0, d.Z(), 1e-6)
}

func TestRaycastTargets(t *testing.T) {
	v := testVolume{blocks: map[vec.Vec3]block.Block{vec.New(2, 3, 0): block.Stone}, bound: 64}
	origin := mgl32.Vec3{2.5, 3.5, 5.5}

	pos, ok := Raycast(v, TargetPosition, origin, mgl32.Vec2{}, DefaultReach)
	require.True(t, ok)
	assert.Equal(t, vec.New(2, 3, 0), pos)

	pos, ok = Raycast(v, TargetBackstep, origin, mgl32.Vec2{}, DefaultReach)
	require.True(t, ok)
	assert.Equal(t, vec.New(2, 3, 1), pos)

	_, ok = Raycast(v, TargetPosition, origin, mgl32.Vec2{0, math.Pi}, DefaultReach)
	assert.False(t, ok, "взгляд вверх ни во что не попадает")
}

func TestRaycastStartInsideBlock(t *testing.T) {
	v := testVolume{blocks: map[vec.Vec3]block.Block{vec.New(2, 3, 5): block.Stone}, bound: 64}
	origin := mgl32.Vec3{2.5, 3.5, 5.5}

	ray := NewRay(origin, mgl32.Vec3{0, 0, -1}, DefaultReach)
	require.Equal(t, BlockFound, ray.Run(v))
	hit, ok := ray.Hit()
	require.True(t, ok)
	assert.True(t, hit.Inside)
	assert.Equal(t, 0, ray.Steps)

	pos, ok := Raycast(v, TargetPosition, origin, mgl32.Vec2{}, DefaultReach)
	require.True(t, ok, "разрушение блока под наблюдателем допустимо")
	assert.Equal(t, vec.New(2, 3, 5), pos)

	_, ok = Raycast(v, TargetBackstep, origin, mgl32.Vec2{}, DefaultReach)
	assert.False(t, ok, "установка внутри твердого блока недопустима")
}
