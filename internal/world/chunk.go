package world

import (
	"fmt"

	"github.com/annel0/tileworld/internal/tile"
	"github.com/annel0/tileworld/internal/vec"
)

// Chunk — квадратный участок мира Size×Size тайлов. После создания не изменяется.
type Chunk struct {
	Coords vec.Vec2        `json:"coords"` // Координаты чанка в мире
	Size   int             `json:"size"`
	Tiles  []tile.Category `json:"tiles"` // Индекс x*Size+y
}

// NewChunk создаёт чанк и проверяет размер сетки
func NewChunk(coords vec.Vec2, size int, tiles []tile.Category) (*Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("некорректный размер чанка %d", size)
	}
	if len(tiles) != size*size {
		return nil, fmt.Errorf("чанк %s: ожидалось %d тайлов, получено %d", coords, size*size, len(tiles))
	}
	return &Chunk{Coords: coords, Size: size, Tiles: tiles}, nil
}

// At возвращает тайл по локальным координатам
func (c *Chunk) At(x, y int) tile.Category {
	return c.Tiles[x*c.Size+y]
}

// WorldTilePos переводит локальные координаты тайла в мировые
func (c *Chunk) WorldTilePos(x, y int) vec.Vec2 {
	return c.Coords.ChunkOrigin(c.Size).Add(vec.Vec2{X: x, Y: y})
}

// forEachTile обходит тайлы чанка в порядке хранения
func (c *Chunk) forEachTile(fn func(pos vec.Vec2, t tile.Category)) {
	for x := 0; x < c.Size; x++ {
		for y := 0; y < c.Size; y++ {
			fn(c.WorldTilePos(x, y), c.At(x, y))
		}
	}
}
