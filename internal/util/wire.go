package util

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrWireType поле пришло с неожиданным типом кодирования
var ErrWireType = errors.New("неверный тип поля")

// WireEncoder собирает сообщение в формате protobuf без схемы
type WireEncoder struct {
	buf []byte
}

// Bytes возвращает накопленные байты
func (e *WireEncoder) Bytes() []byte {
	return e.buf
}

// Uint записывает беззнаковое поле varint
func (e *WireEncoder) Uint(num protowire.Number, v uint64) {
	e.buf = protowire.AppendTag(e.buf, num, protowire.VarintType)
	e.buf = protowire.AppendVarint(e.buf, v)
}

// Int записывает знаковое поле в zigzag-кодировании
func (e *WireEncoder) Int(num protowire.Number, v int64) {
	e.Uint(num, protowire.EncodeZigZag(v))
}

// Float записывает поле fixed32
func (e *WireEncoder) Float(num protowire.Number, v float32) {
	e.buf = protowire.AppendTag(e.buf, num, protowire.Fixed32Type)
	e.buf = protowire.AppendFixed32(e.buf, math.Float32bits(v))
}

// Raw записывает поле с байтами
func (e *WireEncoder) Raw(num protowire.Number, v []byte) {
	e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
	e.buf = protowire.AppendBytes(e.buf, v)
}

// Message записывает вложенное сообщение
func (e *WireEncoder) Message(num protowire.Number, build func(*WireEncoder)) {
	var inner WireEncoder
	build(&inner)
	e.Raw(num, inner.buf)
}

// WireField одно разобранное поле
type WireField struct {
	Num  protowire.Number
	Type protowire.Type
	u    uint64
	b    []byte
}

func (f WireField) expect(t protowire.Type) error {
	if f.Type != t {
		return fmt.Errorf("%w: поле %d, тип %d", ErrWireType, f.Num, f.Type)
	}
	return nil
}

// Uint значение поля varint
func (f WireField) Uint() (uint64, error) {
	return f.u, f.expect(protowire.VarintType)
}

// Int значение знакового поля
func (f WireField) Int() (int64, error) {
	return protowire.DecodeZigZag(f.u), f.expect(protowire.VarintType)
}

// Float значение поля fixed32
func (f WireField) Float() (float32, error) {
	return math.Float32frombits(uint32(f.u)), f.expect(protowire.Fixed32Type)
}

// Raw байты поля; срез ссылается на исходный буфер
func (f WireField) Raw() ([]byte, error) {
	return f.b, f.expect(protowire.BytesType)
}

// DecodeWire обходит поля сообщения по порядку. Группы и fixed64 пропускаются.
func DecodeWire(data []byte, visit func(WireField) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		f := WireField{Num: num, Type: typ}
		switch typ {
		case protowire.VarintType:
			f.u, n = protowire.ConsumeVarint(data)
		case protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(data)
			f.u = uint64(v)
		case protowire.BytesType:
			f.b, n = protowire.ConsumeBytes(data)
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		if err := visit(f); err != nil {
			return err
		}
	}
	return nil
}
