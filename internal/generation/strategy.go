package generation

import (
	"math/rand"

	"github.com/annel0/tileworld/internal/heightmap"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/noise"
	"github.com/annel0/tileworld/internal/tile"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/wfc"
)

// Strategy заполняет чанк size×size тайлами. Результат хранится по
// столбцам (индекс x*size+y). Вся случайность берётся из rng.
type Strategy interface {
	Generate(coord vec.Vec2, size int, rng *rand.Rand) ([]tile.Category, error)
}

// StrategyFunc позволяет использовать функцию как Strategy
type StrategyFunc func(coord vec.Vec2, size int, rng *rand.Rand) ([]tile.Category, error)

func (f StrategyFunc) Generate(coord vec.Vec2, size int, rng *rand.Rand) ([]tile.Category, error) {
	return f(coord, size, rng)
}

// randomStrategy выбирает категорию равновероятно для каждого тайла
type randomStrategy struct{}

func (randomStrategy) Generate(_ vec.Vec2, size int, rng *rand.Rand) ([]tile.Category, error) {
	tiles := make([]tile.Category, size*size)
	for i := range tiles {
		tiles[i] = tile.Category(rng.Intn(tile.Count))
	}
	return tiles, nil
}

// perlinStrategy квантует шум Перлина по min/max самого чанка
type perlinStrategy struct {
	sampler *noise.Sampler
	params  NoiseParams
}

func (s perlinStrategy) Generate(coord vec.Vec2, size int, _ *rand.Rand) ([]tile.Category, error) {
	grid := s.sampler.SampleRegion(noise.ChunkRegion(coord, size), func(x, y float64) float64 {
		return s.sampler.SamplePerlin(x, y, s.params.Scale, s.params.Offset)
	})
	return noise.QuantizeGrid(grid), nil
}

type simplexStrategy struct {
	sampler *noise.Sampler
	params  NoiseParams
}

func (s simplexStrategy) Generate(coord vec.Vec2, size int, _ *rand.Rand) ([]tile.Category, error) {
	grid := s.sampler.SampleSimplex(noise.ChunkRegion(coord, size), s.params.Scale, s.params.Offset)
	return noise.QuantizeGrid(grid), nil
}

type fractalStrategy struct {
	sampler *noise.Sampler
	params  FractalParams
}

func (s fractalStrategy) Generate(coord vec.Vec2, size int, _ *rand.Rand) ([]tile.Category, error) {
	p := s.params
	grid := s.sampler.SampleRegion(noise.ChunkRegion(coord, size), func(x, y float64) float64 {
		return s.sampler.SampleFractal((x+p.Offset.X)*p.Scale, (y+p.Offset.Y)*p.Scale, p.Octaves, p.Persistence, p.Lacunarity)
	})
	return noise.QuantizeGrid(grid), nil
}

// diamondSquareStrategy строит квадратную карту не меньше чанка и обрезает её
type diamondSquareStrategy struct {
	params DiamondSquareParams
}

func (s diamondSquareStrategy) Generate(_ vec.Vec2, size int, rng *rand.Rand) ([]tile.Category, error) {
	exponent := maxInt(s.params.SizeExponent, heightmap.ExponentFor(size))

	m, err := heightmap.DiamondSquare(exponent, s.params.Roughness, rng)
	if err != nil {
		return nil, err
	}
	return noise.QuantizeGrid(m.Crop(size, size)), nil
}

type midpointStrategy struct {
	params MidpointParams
}

func (s midpointStrategy) Generate(_ vec.Vec2, size int, rng *rand.Rand) ([]tile.Category, error) {
	minExp := heightmap.ExponentFor(size)

	m, err := heightmap.MidpointDisplacement(
		maxInt(s.params.WidthExponent, minExp),
		maxInt(s.params.HeightExponent, minExp),
		s.params.Displacement,
		rng,
	)
	if err != nil {
		return nil, err
	}
	return noise.QuantizeGrid(m.Crop(size, size)), nil
}

// wfcStrategy принимает несошедшийся результат как есть, но сообщает о нём
type wfcStrategy struct {
	solver  *wfc.Solver
	logger  *logging.Logger
	metrics *Metrics
}

func (s wfcStrategy) Generate(coord vec.Vec2, size int, rng *rand.Rand) ([]tile.Category, error) {
	res := s.solver.Solve(size, size, rng)

	s.metrics.ObserveWFC(res.Converged, res.Contradictions)
	if !res.Converged {
		s.logger.Warn("WFC для чанка %s не сошёлся за %d итераций, берём первые кандидаты", coord, res.Iterations)
	}
	if res.Contradictions > 0 {
		s.logger.Debug("WFC для чанка %s: противоречий %d", coord, res.Contradictions)
	}
	return res.Tiles, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
