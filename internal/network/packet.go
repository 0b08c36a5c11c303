package network

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"

	"github.com/annel0/voxelworld/internal/util"
)

// PacketKind тип пакета транспорта
type PacketKind uint8

const (
	// PacketAck подтверждения; пустой ACK служит heartbeat
	PacketAck PacketKind = iota + 1
	// PacketMessage сообщение, требующее подтверждения
	PacketMessage
)

// Packet единица обмена транспорта
type Packet struct {
	Kind    PacketKind
	ID      uint64
	Acks    []uint64
	Payload []byte
}

const (
	fieldKind    = 1
	fieldID      = 2
	fieldAck     = 3
	fieldPayload = 4
)

func (p Packet) marshal() []byte {
	var e util.WireEncoder
	e.Uint(fieldKind, uint64(p.Kind))
	if p.Kind == PacketMessage {
		e.Uint(fieldID, p.ID)
		e.Raw(fieldPayload, p.Payload)
	}
	for _, id := range p.Acks {
		e.Uint(fieldAck, id)
	}
	return e.Bytes()
}

func unmarshalPacket(data []byte) (Packet, error) {
	var p Packet
	err := util.DecodeWire(data, func(f util.WireField) error {
		switch f.Num {
		case fieldKind:
			v, err := f.Uint()
			p.Kind = PacketKind(v)
			return err
		case fieldID:
			v, err := f.Uint()
			p.ID = v
			return err
		case fieldAck:
			v, err := f.Uint()
			p.Acks = append(p.Acks, v)
			return err
		case fieldPayload:
			v, err := f.Raw()
			p.Payload = append([]byte(nil), v...)
			return err
		}
		return nil
	})
	if err != nil {
		return Packet{}, err
	}
	if p.Kind != PacketAck && p.Kind != PacketMessage {
		return Packet{}, fmt.Errorf("неизвестный тип пакета %d", p.Kind)
	}
	return p, nil
}

// Compression алгоритм сжатия кадра
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionFlate
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionFlate:
		return "flate"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

// ParseCompression разбирает имя алгоритма сжатия из конфигурации
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "none":
		return CompressionNone, nil
	case "", "flate", "deflate":
		return CompressionFlate, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("неизвестное сжатие: %s", s)
	}
}

const (
	checksumSize = 8
	// Предел распакованного размера кадра
	maxDecompressed = 4 << 20
)

// Framer упаковывает пакеты в датаграммы: 8 байт xxhash64 (big endian)
// сжатого тела, затем само сжатое тело. Контрольная сумма ловит порчу
// данных, но не защищает от подделки.
type Framer struct {
	compression Compression

	writers sync.Pool
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewFramer создает упаковщик с заданным сжатием
func NewFramer(c Compression) (*Framer, error) {
	f := &Framer{compression: c}
	switch c {
	case CompressionNone:
	case CompressionFlate:
		f.writers.New = func() any {
			w, _ := flate.NewWriter(nil, flate.BestSpeed)
			return w
		}
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}
		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecompressed))
		if err != nil {
			enc.Close()
			return nil, fmt.Errorf("zstd decoder: %w", err)
		}
		f.encoder, f.decoder = enc, dec
	default:
		return nil, fmt.Errorf("неизвестное сжатие: %d", c)
	}
	return f, nil
}

// Compression используемый алгоритм сжатия
func (f *Framer) Compression() Compression {
	return f.compression
}

// Frame сериализует, сжимает и подписывает пакет
func (f *Framer) Frame(p Packet) ([]byte, error) {
	body, err := f.compress(p.marshal())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialize, err)
	}
	out := make([]byte, checksumSize, checksumSize+len(body))
	binary.BigEndian.PutUint64(out, xxhash.Sum64(body))
	return append(out, body...), nil
}

// Unframe проверяет контрольную сумму, распаковывает и разбирает пакет
func (f *Framer) Unframe(data []byte) (Packet, error) {
	if len(data) < checksumSize {
		return Packet{}, ErrInvalidChecksum
	}
	body := data[checksumSize:]
	if binary.BigEndian.Uint64(data) != xxhash.Sum64(body) {
		return Packet{}, ErrInvalidChecksum
	}
	raw, err := f.decompress(body)
	if err != nil {
		return Packet{}, fmt.Errorf("%w: %v", ErrDecompress, err)
	}
	p, err := unmarshalPacket(raw)
	if err != nil {
		return Packet{}, fmt.Errorf("%w: %v", ErrDeserialize, err)
	}
	return p, nil
}

func (f *Framer) compress(raw []byte) ([]byte, error) {
	switch f.compression {
	case CompressionFlate:
		var buf bytes.Buffer
		w := f.writers.Get().(*flate.Writer)
		defer f.writers.Put(w)
		w.Reset(&buf)
		if _, err := w.Write(raw); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressionZstd:
		return f.encoder.EncodeAll(raw, nil), nil
	default:
		return raw, nil
	}
}

func (f *Framer) decompress(body []byte) ([]byte, error) {
	switch f.compression {
	case CompressionFlate:
		r := flate.NewReader(bytes.NewReader(body))
		defer r.Close()
		raw, err := io.ReadAll(io.LimitReader(r, maxDecompressed+1))
		if err != nil {
			return nil, err
		}
		if len(raw) > maxDecompressed {
			return nil, fmt.Errorf("распакованный кадр больше %d байт", maxDecompressed)
		}
		return raw, nil
	case CompressionZstd:
		return f.decoder.DecodeAll(body, nil)
	default:
		return body, nil
	}
}

// Close освобождает ресурсы zstd
func (f *Framer) Close() {
	if f.encoder != nil {
		f.encoder.Close()
	}
	if f.decoder != nil {
		f.decoder.Close()
	}
}
