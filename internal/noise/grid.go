package noise

import "github.com/annel0/tileworld/internal/vec"

// Region задаёт прямоугольное окно в мировых координатах тайлов
type Region struct {
	Origin        vec.Vec2
	Width, Height int
}

// ChunkRegion возвращает окно тайлов, покрываемое чанком
func ChunkRegion(coord vec.Vec2, chunkSize int) Region {
	return Region{Origin: coord.ChunkOrigin(chunkSize), Width: chunkSize, Height: chunkSize}
}

// Grid — двумерная сетка сэмплов, хранится по столбцам: индекс x*Height+y
type Grid struct {
	Width, Height int
	Values        []float64
}

// NewGrid создаёт сетку, заполненную нулями
func NewGrid(width, height int) *Grid {
	return &Grid{Width: width, Height: height, Values: make([]float64, width*height)}
}

func (g *Grid) At(x, y int) float64 {
	return g.Values[x*g.Height+y]
}

func (g *Grid) Set(x, y int, v float64) {
	g.Values[x*g.Height+y] = v
}

// MinMax возвращает наименьший и наибольший сэмпл сетки
func (g *Grid) MinMax() (min, max float64) {
	if len(g.Values) == 0 {
		return 0, 0
	}
	min, max = g.Values[0], g.Values[0]
	for _, v := range g.Values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
