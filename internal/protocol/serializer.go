package protocol

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/annel0/voxelworld/internal/util"
	"github.com/annel0/voxelworld/internal/vec"
	"github.com/annel0/voxelworld/internal/world/block"
	"github.com/annel0/voxelworld/internal/world/entity"
)

var (
	// ErrUnknownMessage тип сообщения не поддерживается
	ErrUnknownMessage = errors.New("неизвестный тип сообщения")
	// ErrMalformed сообщение не удалось разобрать
	ErrMalformed = errors.New("некорректное сообщение")
)

// MessageSerializer кодирует прикладные сообщения в protobuf-совместимый
// формат: одно поле верхнего уровня, номер которого равен MsgType, а
// значение содержит тело сообщения
type MessageSerializer struct{}

// NewMessageSerializer создает новый сериализатор сообщений
func NewMessageSerializer() *MessageSerializer {
	return &MessageSerializer{}
}

// Encode сериализует сообщение
func (ms *MessageSerializer) Encode(msg Message) ([]byte, error) {
	var body util.WireEncoder
	switch m := msg.(type) {
	case Handshake:
		body.Uint(1, uint64(m.Version))
	case ChunkActivated:
		body.Message(1, func(e *util.WireEncoder) { writeVec3(e, m.Position) })
		body.Uint(2, uint64(m.LOD))
		body.Raw(3, m.Bytes)
	case ChunkUpdated:
		body.Message(1, func(e *util.WireEncoder) { writeVec3(e, m.Position) })
		body.Raw(2, m.Bytes)
	case Inputs:
		for _, in := range m.Inputs {
			body.Message(1, func(e *util.WireEncoder) { writeTimedInput(e, in) })
		}
	case Change:
		body.Uint(1, uint64(m.Kind))
		body.Uint(2, uint64(m.Block))
	case Correct:
		body.Message(1, func(e *util.WireEncoder) { writeFloat3(e, m.Position) })
		body.Message(2, func(e *util.WireEncoder) { writeFloat2(e, m.Look) })
		body.Uint(3, m.LastInput)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessage, msg)
	}

	var out util.WireEncoder
	out.Raw(protowire.Number(msg.Type()), body.Bytes())
	return out.Bytes(), nil
}

// Decode десериализует сообщение
func (ms *MessageSerializer) Decode(data []byte) (Message, error) {
	var msg Message
	err := util.DecodeWire(data, func(f util.WireField) error {
		if msg != nil {
			return fmt.Errorf("%w: лишнее поле %d", ErrMalformed, f.Num)
		}
		body, err := f.Raw()
		if err != nil {
			return err
		}
		msg, err = decodeBody(MsgType(f.Num), body)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrUnknownMessage) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: пустое сообщение", ErrMalformed)
	}
	return msg, nil
}

func decodeBody(t MsgType, body []byte) (Message, error) {
	switch t {
	case MsgHandshake:
		var m Handshake
		err := util.DecodeWire(body, func(f util.WireField) error {
			if f.Num == 1 {
				v, err := f.Uint()
				m.Version = uint32(v)
				return err
			}
			return nil
		})
		return m, err

	case MsgChunkActivated:
		var m ChunkActivated
		err := util.DecodeWire(body, func(f util.WireField) error {
			var err error
			switch f.Num {
			case 1:
				m.Position, err = readVec3(f)
			case 2:
				var lod uint64
				lod, err = f.Uint()
				m.LOD = int(lod)
			case 3:
				m.Bytes, err = f.Raw()
			}
			return err
		})
		return m, err

	case MsgChunkUpdated:
		var m ChunkUpdated
		err := util.DecodeWire(body, func(f util.WireField) error {
			var err error
			switch f.Num {
			case 1:
				m.Position, err = readVec3(f)
			case 2:
				m.Bytes, err = f.Raw()
			}
			return err
		})
		return m, err

	case MsgInputs:
		var m Inputs
		err := util.DecodeWire(body, func(f util.WireField) error {
			if f.Num != 1 {
				return nil
			}
			in, err := readTimedInput(f)
			m.Inputs = append(m.Inputs, in)
			return err
		})
		return m, err

	case MsgChange:
		var m Change
		err := util.DecodeWire(body, func(f util.WireField) error {
			switch f.Num {
			case 1:
				v, err := f.Uint()
				if err == nil && v > uint64(entity.Break) {
					err = fmt.Errorf("тип изменения %d", v)
				}
				m.Kind = entity.ChangeKind(v)
				return err
			case 2:
				v, err := f.Uint()
				if err == nil && !block.IsValid(block.Block(v)) {
					err = fmt.Errorf("блок %d", v)
				}
				m.Block = block.Block(v)
				return err
			}
			return nil
		})
		return m, err

	case MsgCorrect:
		var m Correct
		err := util.DecodeWire(body, func(f util.WireField) error {
			var err error
			switch f.Num {
			case 1:
				m.Position, err = readFloat3(f)
			case 2:
				m.Look, err = readFloat2(f)
			case 3:
				m.LastInput, err = f.Uint()
			}
			return err
		})
		return m, err
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownMessage, t)
}

func writeVec3(e *util.WireEncoder, v vec.Vec3) {
	e.Int(1, int64(v.X))
	e.Int(2, int64(v.Y))
	e.Int(3, int64(v.Z))
}

func readVec3(f util.WireField) (vec.Vec3, error) {
	var v vec.Vec3
	raw, err := f.Raw()
	if err != nil {
		return v, err
	}
	err = util.DecodeWire(raw, func(f util.WireField) error {
		x, err := f.Int()
		switch f.Num {
		case 1:
			v.X = int(x)
		case 2:
			v.Y = int(x)
		case 3:
			v.Z = int(x)
		}
		return err
	})
	return v, err
}

func writeFloat3(e *util.WireEncoder, v mgl32.Vec3) {
	for i, x := range v {
		e.Float(protowire.Number(i+1), x)
	}
}

func writeFloat2(e *util.WireEncoder, v mgl32.Vec2) {
	for i, x := range v {
		e.Float(protowire.Number(i+1), x)
	}
}

func readFloats(f util.WireField, out []float32) error {
	raw, err := f.Raw()
	if err != nil {
		return err
	}
	return util.DecodeWire(raw, func(f util.WireField) error {
		x, err := f.Float()
		if i := int(f.Num) - 1; i >= 0 && i < len(out) {
			out[i] = x
		}
		return err
	})
}

func readFloat3(f util.WireField) (mgl32.Vec3, error) {
	var v mgl32.Vec3
	err := readFloats(f, v[:])
	return v, err
}

func readFloat2(f util.WireField) (mgl32.Vec2, error) {
	var v mgl32.Vec2
	err := readFloats(f, v[:])
	return v, err
}

func writeTimedInput(e *util.WireEncoder, in entity.TimedInput) {
	e.Uint(1, in.Timestamp)
	e.Float(2, in.Delta)
	e.Message(3, func(e *util.WireEncoder) { writeFloat2(e, in.Input.Gaze) })
	e.Message(4, func(e *util.WireEncoder) { writeFloat3(e, in.Input.Direction) })
}

func readTimedInput(f util.WireField) (entity.TimedInput, error) {
	var in entity.TimedInput
	raw, err := f.Raw()
	if err != nil {
		return in, err
	}
	err = util.DecodeWire(raw, func(f util.WireField) error {
		var err error
		switch f.Num {
		case 1:
			in.Timestamp, err = f.Uint()
		case 2:
			in.Delta, err = f.Float()
		case 3:
			in.Input.Gaze, err = readFloat2(f)
		case 4:
			in.Input.Direction, err = readFloat3(f)
		}
		return err
	})
	return in, err
}
