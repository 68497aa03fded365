package noise

import (
	"github.com/annel0/tileworld/internal/vec"
	"github.com/aquilax/go-perlin"
	opensimplex "github.com/ojrac/opensimplex-go"
)

const (
	perlinAlpha   = 2.0 // Сглаживание шума
	perlinBeta    = 2.0 // Частота шума
	perlinOctaves = 3   // Внутренние октавы go-perlin
)

// Sampler выдаёт сэмплы шума Перлина, симплекс-шума и фрактального шума.
// После создания только читается, поэтому безопасен для параллельного использования.
type Sampler struct {
	seed    int64
	perlin  *perlin.Perlin
	simplex opensimplex.Noise
}

// NewSampler создаёт сэмплер с указанным сидом
func NewSampler(seed int64) *Sampler {
	return &Sampler{
		seed:    seed,
		perlin:  perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed),
		simplex: opensimplex.New(seed),
	}
}

// Seed возвращает сид сэмплера
func (s *Sampler) Seed() int64 {
	return s.seed
}

// perlin01 возвращает шум Перлина в диапазоне [0,1] без ограничения выбросов
func (s *Sampler) perlin01(x, y float64) float64 {
	return (s.perlin.Noise2D(x, y) + 1.0) / 2.0
}

// SamplePerlin возвращает значение шума Перлина в точке (x,y).
// Базовая функция может немного выходить за пределы, поэтому результат обрезается до [0,1].
func (s *Sampler) SamplePerlin(x, y, scale float64, offset vec.Vec2Float) float64 {
	sample := s.perlin01((x+offset.X)*scale, (y+offset.Y)*scale)
	if sample < 0 {
		return 0
	}
	if sample > 1 {
		return 1
	}
	return sample
}

// SampleSimplex заполняет сетку симплекс-шумом для окна region.
// Значения остаются в исходном диапазоне opensimplex (примерно [-1,1]).
func (s *Sampler) SampleSimplex(region Region, scale float64, offset vec.Vec2Float) *Grid {
	return s.SampleRegion(region, func(x, y float64) float64 {
		return s.simplex.Eval2((x+offset.X)*scale, (y+offset.Y)*scale)
	})
}

// SampleFractal суммирует октавы шума Перлина: на каждой октаве амплитуда
// умножается на persistence, частота на lacunarity. Вклад каждой октавы
// лежит в [-amplitude, amplitude].
func (s *Sampler) SampleFractal(x, y float64, octaves int, persistence, lacunarity float64) float64 {
	amplitude := 1.0
	frequency := 1.0
	height := 0.0

	for i := 0; i < octaves; i++ {
		value := s.perlin01(x*frequency, y*frequency)*2 - 1
		height += value * amplitude

		amplitude *= persistence
		frequency *= lacunarity
	}

	return height
}

// SampleRegion вызывает fn для каждого тайла окна в мировых координатах
func (s *Sampler) SampleRegion(region Region, fn func(x, y float64) float64) *Grid {
	grid := NewGrid(region.Width, region.Height)
	for x := 0; x < region.Width; x++ {
		for y := 0; y < region.Height; y++ {
			wx := float64(region.Origin.X + x)
			wy := float64(region.Origin.Y + y)
			grid.Set(x, y, fn(wx, wy))
		}
	}
	return grid
}
