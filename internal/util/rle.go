package util

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/annel0/voxelworld/internal/world/block"
)

// runSize размер одной серии: count u32 BE + id u16 BE
const runSize = 6

// ErrInvalidRLE возвращается при разборе поврежденного RLE потока
var ErrInvalidRLE = errors.New("invalid rle stream")

// EncodeRLE сжимает плоский массив блоков в серии (count, id).
// Новая серия начинается при каждой смене значения.
func EncodeRLE(blocks []block.Block) []byte {
	if len(blocks) == 0 {
		return nil
	}

	data := make([]byte, 0, runSize*8)
	curr := blocks[0]
	count := uint32(1)
	for _, b := range blocks[1:] {
		if b == curr {
			count++
			continue
		}
		data = appendRun(data, count, curr)
		curr = b
		count = 1
	}
	return appendRun(data, count, curr)
}

func appendRun(data []byte, count uint32, b block.Block) []byte {
	data = binary.BigEndian.AppendUint32(data, count)
	return binary.BigEndian.AppendUint16(data, uint16(b))
}

// DecodeRLE разворачивает серии обратно в массив блоков.
// Длина входа должна быть кратна шести, id блоков должны быть известны.
func DecodeRLE(data []byte) ([]block.Block, error) {
	return decodeRLE(data, -1)
}

// DecodeRLEExact разворачивает серии и проверяет, что результат содержит
// ровно expected блоков. Не выделяет больше expected элементов.
func DecodeRLEExact(data []byte, expected int) ([]block.Block, error) {
	return decodeRLE(data, expected)
}

func decodeRLE(data []byte, expected int) ([]block.Block, error) {
	if len(data)%runSize != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of %d", ErrInvalidRLE, len(data), runSize)
	}

	capacity := len(data) / runSize
	if expected >= 0 {
		capacity = expected
	}
	blocks := make([]block.Block, 0, capacity)

	for off := 0; off < len(data); off += runSize {
		count := binary.BigEndian.Uint32(data[off:])
		id := block.Block(binary.BigEndian.Uint16(data[off+4:]))
		if !block.IsValid(id) {
			return nil, fmt.Errorf("%w: unknown block id %d", ErrInvalidRLE, uint16(id))
		}
		if count == 0 {
			return nil, fmt.Errorf("%w: empty run at offset %d", ErrInvalidRLE, off)
		}
		if expected >= 0 && len(blocks)+int(count) > expected {
			return nil, fmt.Errorf("%w: more than %d blocks", ErrInvalidRLE, expected)
		}
		for i := uint32(0); i < count; i++ {
			blocks = append(blocks, id)
		}
	}

	if expected >= 0 && len(blocks) != expected {
		return nil, fmt.Errorf("%w: got %d blocks, want %d", ErrInvalidRLE, len(blocks), expected)
	}
	return blocks, nil
}
