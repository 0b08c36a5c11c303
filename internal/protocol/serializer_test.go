package protocol

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/annel0/voxelworld/internal/util"
	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world/block"
	"github.com/annel0/voxelworld/internal/world/entity"
)

func TestSerializeMessages(t *testing.T) {
	ms := NewMessageSerializer()
	chunk := util.EncodeRLE([]block.Block{block.Stone, block.Stone, block.Air})

	messages := []Message{
		Handshake{Version: ProtocolVersion},
		ChunkActivated{Position: vec.New(-3, 0, 7), LOD: 2, Bytes: chunk},
		ChunkUpdated{Position: vec.New(1, -1, 1), Bytes: chunk},
		Inputs{Inputs: []entity.TimedInput{
			{Timestamp: 10, Delta: 0.016, Input: entity.Input{Gaze: mgl32.Vec2{0.1, -0.2}, Direction: mgl32.Vec3{1, 0, 0}}},
			{Timestamp: 11, Delta: 0.017},
		}},
		Change{Kind: entity.Break, Block: block.Air},
		Correct{Position: mgl32.Vec3{1.5, -2, 30}, Look: mgl32.Vec2{3, 1}, LastInput: 11},
	}

	for _, msg := range messages {
		t.Run(msg.Type().String(), func(t *testing.T) {
			data, err := ms.Encode(msg)
			require.NoError(t, err)
			got, err := ms.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, msg, got)
		})
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	ms := NewMessageSerializer()

	_, err := ms.Decode(nil)
	assert.True(t, errors.Is(err, ErrMalformed), "пустые данные")

	var e util.WireEncoder
	e.Raw(42, nil)
	_, err = ms.Decode(e.Bytes())
	assert.True(t, errors.Is(err, ErrUnknownMessage))

	_, err = ms.Decode([]byte{0xFF, 0xFF, 0xFF})
	assert.Error(t, err)
}

func TestDecodeValidatesChange(t *testing.T) {
	ms := NewMessageSerializer()

	var body, out util.WireEncoder
	body.Uint(1, uint64(entity.Place))
	body.Uint(2, 9999)
	out.Raw(protowire.Number(MsgChange), body.Bytes())

	_, err := ms.Decode(out.Bytes())
	assert.True(t, errors.Is(err, ErrMalformed), "неизвестный блок отклоняется")
}

func TestFilters(t *testing.T) {
	assert.True(t, IsChunk(ChunkActivated{}))
	assert.True(t, IsChunk(ChunkUpdated{}))
	assert.False(t, IsChunk(Correct{}))
	assert.True(t, IsInputs(Inputs{}))
	assert.True(t, IsChange(Change{}))
	assert.True(t, IsCorrect(Correct{}))
	assert.True(t, IsHandshake(Handshake{}))
}
