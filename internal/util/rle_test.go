package util

import (
	"math/rand"
	"testing"

	"github.com/annel0/voxelworld/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRLERoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	palette := block.All()

	for n := 1; n <= 300; n += 7 {
		blocks := make([]block.Block, n)
		for i := range blocks {
			// Короткие серии, чтобы проверить и границы, и повторы
			if i > 0 && rng.Intn(3) > 0 {
				blocks[i] = blocks[i-1]
				continue
			}
			blocks[i] = palette[rng.Intn(len(palette))]
		}

		encoded := EncodeRLE(blocks)
		require.Zero(t, len(encoded)%6, "длина кодировки кратна 6")

		decoded, err := DecodeRLE(encoded)
		require.NoError(t, err)
		assert.Equal(t, blocks, decoded, "round-trip для n=%d", n)

		exact, err := DecodeRLEExact(encoded, n)
		require.NoError(t, err)
		assert.Equal(t, blocks, exact)
	}
}

func TestRLEWireFormat(t *testing.T) {
	blocks := []block.Block{block.Stone, block.Stone, block.Stone, block.Air}
	encoded := EncodeRLE(blocks)
	assert.Equal(t, []byte{
		0, 0, 0, 3, 0, 1,
		0, 0, 0, 1, 0, 0,
	}, encoded)
}

func TestRLESingleRun(t *testing.T) {
	blocks := make([]block.Block, 32*32*32)
	encoded := EncodeRLE(blocks)
	assert.Len(t, encoded, 6, "однородный чанк кодируется одной серией")
}

func TestRLEDecodeErrors(t *testing.T) {
	_, err := DecodeRLE([]byte{0, 0, 0, 1, 0})
	assert.ErrorIs(t, err, ErrInvalidRLE, "длина не кратна 6")

	_, err = DecodeRLE([]byte{0, 0, 0, 1, 0xFF, 0xFF})
	assert.ErrorIs(t, err, ErrInvalidRLE, "неизвестный блок")

	_, err = DecodeRLE([]byte{0, 0, 0, 0, 0, 1})
	assert.ErrorIs(t, err, ErrInvalidRLE, "пустая серия")

	_, err = DecodeRLEExact([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0, 1}, 8)
	assert.ErrorIs(t, err, ErrInvalidRLE, "слишком много блоков")

	_, err = DecodeRLEExact([]byte{0, 0, 0, 2, 0, 1}, 8)
	assert.ErrorIs(t, err, ErrInvalidRLE, "слишком мало блоков")
}
