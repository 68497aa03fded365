package world

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Кодеры zstd потокобезопасны при использовании EncodeAll/DecodeAll
var chunkEncoder, chunkDecoder = mustZstdCodec()

func newZstdCodec() (*zstd.Encoder, *zstd.Decoder, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return enc, dec, nil
}

// mustZstdCodec падает при старте, а не на первом чанке
func mustZstdCodec() (*zstd.Encoder, *zstd.Decoder) {
	enc, dec, err := newZstdCodec()
	if err != nil {
		panic(err)
	}
	return enc, dec
}

// EncodeChunk сериализует чанк в JSON и сжимает zstd.
// Используется внешними хранилищами (Badger, Redis).
func EncodeChunk(c *Chunk) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации чанка: %w", err)
	}
	return chunkEncoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// DecodeChunk восстанавливает чанк, закодированный EncodeChunk
func DecodeChunk(blob []byte) (*Chunk, error) {
	data, err := chunkDecoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки чанка: %w", err)
	}

	var c Chunk
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("ошибка десериализации чанка: %w", err)
	}
	if len(c.Tiles) != c.Size*c.Size {
		return nil, fmt.Errorf("чанк %s повреждён: %d тайлов при размере %d", c.Coords, len(c.Tiles), c.Size)
	}
	return &c, nil
}
