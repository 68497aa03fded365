package noise

import (
	"math"

	"github.com/annel0/tileworld/internal/tile"
)

// Band возвращает номер полосы сэмпла: диапазон [min,max] делится на n
// полос равной ширины. Вырожденный диапазон (min == max) всегда даёт полосу 0.
func Band(sample, min, max float64, n int) int {
	if n <= 1 || max <= min {
		return 0
	}

	bandWidth := (max - min) / float64(n)
	band := int(math.Floor((sample - min) / bandWidth))

	if band < 0 {
		return 0
	}
	if band > n-1 {
		return n - 1
	}
	return band
}

// QuantizeGrid отображает сетку сэмплов на категории тайлов по наблюдаемому min/max
func QuantizeGrid(g *Grid) []tile.Category {
	min, max := g.MinMax()

	tiles := make([]tile.Category, len(g.Values))
	for i, v := range g.Values {
		tiles[i] = tile.Category(Band(v, min, max, tile.Count))
	}
	return tiles
}
