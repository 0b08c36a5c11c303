package protocol

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world/block"
	"github.com/annel0/voxelworld/internal/world/entity"
)

// ProtocolVersion версия прикладного протокола, передается в рукопожатии
const ProtocolVersion = 1

// MsgType определяет тип сообщения. Совпадает с номером поля верхнего уровня.
type MsgType int32

const (
	MsgUnknown        MsgType = 0
	MsgHandshake      MsgType = 1
	MsgChunkActivated MsgType = 2
	MsgChunkUpdated   MsgType = 3
	MsgInputs         MsgType = 4
	MsgChange         MsgType = 5
	MsgCorrect        MsgType = 6
)

func (t MsgType) String() string {
	switch t {
	case MsgHandshake:
		return "Handshake"
	case MsgChunkActivated:
		return "ChunkActivated"
	case MsgChunkUpdated:
		return "ChunkUpdated"
	case MsgInputs:
		return "Inputs"
	case MsgChange:
		return "Change"
	case MsgCorrect:
		return "Correct"
	default:
		return "Unknown"
	}
}

// Message прикладное сообщение
type Message interface {
	Type() MsgType
}

// Handshake первое сообщение клиента
type Handshake struct {
	Version uint32
}

// ChunkActivated полный снимок чанка, ставшего активным на сервере
type ChunkActivated struct {
	Position vec.Vec3
	LOD      int
	Bytes    []byte // RLE всех блоков чанка
}

// ChunkUpdated новое содержимое уже активного чанка
type ChunkUpdated struct {
	Position vec.Vec3
	Bytes    []byte
}

// Inputs пакет ввода клиента в порядке сбора
type Inputs struct {
	Inputs []entity.TimedInput
}

// Change запрос на установку или разрушение блока
type Change struct {
	Kind  entity.ChangeKind
	Block block.Block
}

// Correct авторитетное состояние игрока на сервере
type Correct struct {
	Position  mgl32.Vec3
	Look      mgl32.Vec2
	LastInput uint64 // Метка последнего учтенного ввода
}

func (Handshake) Type() MsgType      { return MsgHandshake }
func (ChunkActivated) Type() MsgType { return MsgChunkActivated }
func (ChunkUpdated) Type() MsgType   { return MsgChunkUpdated }
func (Inputs) Type() MsgType         { return MsgInputs }
func (Change) Type() MsgType         { return MsgChange }
func (Correct) Type() MsgType        { return MsgCorrect }

// Фильтры для выборки сообщений из очереди транспорта

// IsHandshake выбирает рукопожатия
func IsHandshake(m Message) bool { return m.Type() == MsgHandshake }

// IsChunk выбирает сообщения с чанками
func IsChunk(m Message) bool {
	return m.Type() == MsgChunkActivated || m.Type() == MsgChunkUpdated
}

// IsInputs выбирает пакеты ввода
func IsInputs(m Message) bool { return m.Type() == MsgInputs }

// IsChange выбирает изменения блоков
func IsChange(m Message) bool { return m.Type() == MsgChange }

// IsCorrect выбирает коррекции позиции
func IsCorrect(m Message) bool { return m.Type() == MsgCorrect }
