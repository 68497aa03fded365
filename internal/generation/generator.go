// Package generation выбирает стратегию генерации чанка по настроенному
// методу и гарантирует результат: при ошибке стратегии чанк заполняется
// случайными тайлами.
package generation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/noise"
	"github.com/annel0/tileworld/internal/tile"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/wfc"
)

// ErrEmptyResult возвращается, если стратегия вернула сетку неверного размера
var ErrEmptyResult = errors.New("strategy returned wrong number of tiles")

// NoiseParams задаёт масштаб и сдвиг для шумов Перлина и симплекс
type NoiseParams struct {
	Scale  float64       `yaml:"scale"`
	Offset vec.Vec2Float `yaml:"offset"`
}

type FractalParams struct {
	Scale       float64       `yaml:"scale"`
	Offset      vec.Vec2Float `yaml:"offset"`
	Octaves     int           `yaml:"octaves"`
	Persistence float64       `yaml:"persistence"`
	Lacunarity  float64       `yaml:"lacunarity"`
}

// DiamondSquareParams: показатель меньше нужного для чанка поднимается автоматически
type DiamondSquareParams struct {
	SizeExponent int     `yaml:"size_exponent"`
	Roughness    float64 `yaml:"roughness"`
}

type MidpointParams struct {
	WidthExponent  int     `yaml:"width_exponent"`
	HeightExponent int     `yaml:"height_exponent"`
	Displacement   float64 `yaml:"displacement"`
}

type WFCParams struct {
	LoopThreshold int `yaml:"loop_threshold"`
}

// Options содержит всё, что нужно генератору
type Options struct {
	Method        Method
	Seed          Seed
	Perlin        NoiseParams
	Simplex       NoiseParams
	Fractal       FractalParams
	DiamondSquare DiamondSquareParams
	Midpoint      MidpointParams
	WFC           WFCParams

	Rules   *tile.RuleTable // nil — встроенная таблица
	Logger  *logging.Logger // nil — логгер компонента "generation"
	Metrics *Metrics        // nil — без метрик
	Tracer  trace.Tracer    // nil — трассировщик глобального провайдера
}

const tracerName = "github.com/annel0/tileworld/internal/generation"

// DefaultOptions возвращает параметры, дающие осмысленный ландшафт
func DefaultOptions() Options {
	return Options{
		Method:        PerlinNoise,
		Perlin:        NoiseParams{Scale: 0.1},
		Simplex:       NoiseParams{Scale: 0.1},
		Fractal:       FractalParams{Scale: 0.05, Octaves: 4, Persistence: 0.5, Lacunarity: 2},
		DiamondSquare: DiamondSquareParams{Roughness: 1},
		Midpoint:      MidpointParams{Displacement: 1},
		WFC:           WFCParams{LoopThreshold: wfc.DefaultLoopThreshold},
	}
}

// Generator выбирает стратегию по методу
type Generator struct {
	method     Method
	seed       int64
	strategies map[Method]Strategy
	fallback   Strategy
	logger     *logging.Logger
	metrics    *Metrics
	tracer     trace.Tracer
}

// NewGenerator собирает все стратегии. Без сида берётся время,
// выбранный сид логируется и доступен через Seed().
func NewGenerator(opts Options) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetGenerationLogger()
	}

	rules := opts.Rules
	if rules == nil {
		rules = tile.DefaultRuleTable()
	}

	seed, fromClock := opts.Seed.Resolve()
	if fromClock {
		logger.Info("Сид не задан, используется сид от времени: %d", seed)
	} else {
		logger.Info("Используется заданный сид: %d", seed)
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	sampler := noise.NewSampler(seed)

	g := &Generator{
		method:   opts.Method,
		seed:     seed,
		fallback: randomStrategy{},
		logger:   logger,
		metrics:  opts.Metrics,
		tracer:   tracer,
	}
	g.strategies = map[Method]Strategy{
		Random:               randomStrategy{},
		PerlinNoise:          perlinStrategy{sampler: sampler, params: opts.Perlin},
		SimplexNoise:         simplexStrategy{sampler: sampler, params: opts.Simplex},
		FractalNoise:         fractalStrategy{sampler: sampler, params: opts.Fractal},
		DiamondSquare:        diamondSquareStrategy{params: opts.DiamondSquare},
		MidpointDisplacement: midpointStrategy{params: opts.Midpoint},
		WaveFunctionCollapse: wfcStrategy{
			solver:  wfc.NewSolver(rules, opts.WFC.LoopThreshold),
			logger:  logger,
			metrics: opts.Metrics,
		},
	}
	return g
}

// Seed возвращает фактически используемый сид
func (g *Generator) Seed() int64 {
	return g.seed
}

// Method возвращает текущий метод генерации
func (g *Generator) Method() Method {
	return g.method
}

// SetStrategy заменяет стратегию для метода. Вызывать до начала генерации.
func (g *Generator) SetStrategy(m Method, s Strategy) {
	g.strategies[m] = s
}

// GenerateTiles всегда возвращает size*size тайлов. При ошибке стратегии
// или неверном размере результата пишет ERROR и использует Random.
func (g *Generator) GenerateTiles(coord vec.Vec2, size int) []tile.Category {
	_, span := g.tracer.Start(context.Background(), "generation.GenerateTiles",
		trace.WithAttributes(
			attribute.String("tileworld.method", g.method.String()),
			attribute.Int("tileworld.chunk.x", coord.X),
			attribute.Int("tileworld.chunk.y", coord.Y),
			attribute.Int("tileworld.chunk.size", size),
		))
	defer span.End()

	start := time.Now()
	chunkSeed := ChunkSeed(g.seed, coord)

	tiles, err := g.generate(g.method, coord, size, rand.New(rand.NewSource(chunkSeed)))
	if err != nil {
		g.logger.Error("Метод %s не сгенерировал чанк %s: %v, используется случайная генерация", g.method, coord, err)
		g.metrics.ObserveFallback(g.method)
		span.RecordError(err)
		span.SetStatus(codes.Error, "fallback to random")

		tiles, _ = g.fallback.Generate(coord, size, rand.New(rand.NewSource(chunkSeed)))
	}

	elapsed := time.Since(start)
	g.metrics.ObserveChunk(g.method, elapsed)
	logging.LogChunkGenerated(g.logger, coord.X, coord.Y, g.method.String(), elapsed)
	return tiles
}

func (g *Generator) generate(m Method, coord vec.Vec2, size int, rng *rand.Rand) ([]tile.Category, error) {
	strategy, ok := g.strategies[m]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, m)
	}

	tiles, err := strategy.Generate(coord, size, rng)
	if err != nil {
		return nil, err
	}
	if len(tiles) != size*size {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrEmptyResult, len(tiles), size*size)
	}
	return tiles, nil
}
