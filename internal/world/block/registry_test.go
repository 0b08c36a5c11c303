package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpacity(t *testing.T) {
	assert.False(t, Air.IsOpaque(), "воздух прозрачен")
	for _, b := range []Block{Stone, Machine, Wire, Source} {
		assert.True(t, b.IsOpaque(), "%s должен быть непрозрачным", b)
	}
}

func TestTextures(t *testing.T) {
	_, ok := Air.Texture(Up)
	assert.False(t, ok, "у воздуха нет текстуры")

	name, ok := Machine.Texture(Forward)
	assert.True(t, ok)
	assert.Equal(t, "machine_front", name)

	name, _ = Machine.Texture(Left)
	assert.Equal(t, "machine_side", name)

	name, _ = Stone.Texture(Down)
	assert.Equal(t, "stone", name)

	assert.True(t, Stone.HasParallax())
	assert.True(t, Stone.HasNormal())
	assert.False(t, Wire.HasNormal())
}

func TestTileBlocks(t *testing.T) {
	assert.True(t, Machine.IsTile())
	assert.True(t, Wire.IsTile())
	assert.True(t, Source.IsTile())
	assert.False(t, Stone.IsTile())
	assert.False(t, Air.IsTile())
}

func TestDirections(t *testing.T) {
	for _, d := range Directions {
		assert.Equal(t, d, d.Opposite().Opposite())
		assert.NotEqual(t, d, d.Opposite())
		assert.Equal(t, d.Axis(), d.Opposite().Axis())
		assert.Equal(t, -d.Sign(), d.Opposite().Sign())
		assert.Equal(t, d, FromAxis(d.Axis(), d.Sign()))
	}
	assert.Equal(t, Right, Left.Opposite())
	assert.Equal(t, Down, Up.Opposite())
	assert.Equal(t, []Block{Air, Stone, Machine, Wire, Source}, All())
}
