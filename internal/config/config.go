package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/annel0/tileworld/internal/generation"
	"github.com/annel0/tileworld/internal/heightmap"
	"github.com/annel0/tileworld/internal/observability"
	"github.com/annel0/tileworld/internal/world"
)

// ErrInvalidConfig возвращается Validate при некорректных значениях
var ErrInvalidConfig = errors.New("invalid config")

// Config корневая структура конфигурации генератора.
// Проверяется один раз при загрузке и дальше не меняется.
type Config struct {
	World         WorldConfig                    `yaml:"world"`
	Seed          generation.Seed                `yaml:"seed"`
	Perlin        generation.NoiseParams         `yaml:"perlin"`
	Simplex       generation.NoiseParams         `yaml:"simplex"`
	Fractal       generation.FractalParams       `yaml:"fractal"`
	DiamondSquare generation.DiamondSquareParams `yaml:"diamond_square"`
	Midpoint      generation.MidpointParams      `yaml:"midpoint"`
	WFC           WFCConfig                      `yaml:"wfc"`
	Storage       StorageConfig                  `yaml:"storage"`
	Metrics       MetricsConfig                  `yaml:"metrics"`
	Tracing       observability.TracingConfig    `yaml:"tracing"`
	Logging       LoggingConfig                  `yaml:"logging"`
	Viewport      world.Viewport                 `yaml:"viewport"`
}

type WorldConfig struct {
	ChunkSize            int               `yaml:"chunk_size"`
	Method               generation.Method `yaml:"method"`
	UseCustomGridSize    bool              `yaml:"use_custom_grid_size"`
	CustomGridWidth      int               `yaml:"custom_grid_width"`
	CustomGridHeight     int               `yaml:"custom_grid_height"`
	AddExtraBorderChunks bool              `yaml:"add_extra_border_chunks"`
}

type WFCConfig struct {
	LoopThreshold int    `yaml:"loop_threshold"`
	RulesFile     string `yaml:"rules_file"` // Пусто — встроенная таблица
}

// StorageConfig выбирает, где хранятся чанки сессии: memory, badger или redis
type StorageConfig struct {
	Backend   string `yaml:"backend"`
	BadgerDir string `yaml:"badger_dir"` // Пусто — Badger в памяти
	RedisAddr string `yaml:"redis_addr"`
}

// MetricsConfig: по Addr поднимается отладочный HTTP сервер с /metrics и /api
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	opts := generation.DefaultOptions()
	return &Config{
		World: WorldConfig{
			ChunkSize:         16,
			Method:            opts.Method,
			UseCustomGridSize: true,
			CustomGridWidth:   4,
			CustomGridHeight:  4,
		},
		Perlin:        opts.Perlin,
		Simplex:       opts.Simplex,
		Fractal:       opts.Fractal,
		DiamondSquare: opts.DiamondSquare,
		Midpoint:      opts.Midpoint,
		WFC:           WFCConfig{LoopThreshold: opts.WFC.LoopThreshold},
		Storage:       StorageConfig{Backend: "memory"},
		Tracing:       observability.TracingConfig{ServiceName: "tileworld"},
		Logging:       LoggingConfig{Level: "INFO"},
		Viewport:      world.Viewport{Width: 1920, Height: 1080, PixelRatio: 1, PixelsPerUnit: 16},
	}
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать из ENV TILEWORLD_CONFIG, иначе берёт Default().
// Затем применяются переменные окружения и выполняется Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("TILEWORLD_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv переопределяет сид, метод и адрес метрик из окружения
func (c *Config) applyEnv() error {
	if v := os.Getenv("TILEWORLD_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: TILEWORLD_SEED=%q: %v", ErrInvalidConfig, v, err)
		}
		c.Seed = generation.Seed{Use: true, Value: seed}
	}

	if v := os.Getenv("TILEWORLD_METHOD"); v != "" {
		m, err := generation.ParseMethod(v)
		if err != nil {
			return fmt.Errorf("%w: TILEWORLD_METHOD: %v", ErrInvalidConfig, err)
		}
		c.World.Method = m
	}

	if v := os.Getenv("TILEWORLD_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}

	if v := os.Getenv("TILEWORLD_OTLP_ENDPOINT"); v != "" {
		c.Tracing.Enabled = true
		c.Tracing.Endpoint = v
	}
	return nil
}

// Validate проверяет значения и возвращает все найденные проблемы разом
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.World.ChunkSize < 1 {
		add("world.chunk_size must be >= 1, got %d", c.World.ChunkSize)
	}
	if c.World.UseCustomGridSize {
		if c.World.CustomGridWidth < 1 || c.World.CustomGridHeight < 1 {
			add("world.custom_grid_width/height must be >= 1, got %dx%d", c.World.CustomGridWidth, c.World.CustomGridHeight)
		}
	} else if c.Viewport.Width < 1 || c.Viewport.Height < 1 {
		add("viewport must be set when use_custom_grid_size is false")
	}

	if c.Fractal.Octaves < 1 {
		add("fractal.octaves must be >= 1, got %d", c.Fractal.Octaves)
	}

	checkExp := func(name string, exp int) {
		// 0 означает "подобрать по размеру чанка"
		if exp < 0 || exp > heightmap.MaxExponent {
			add("%s must be in [0, %d], got %d", name, heightmap.MaxExponent, exp)
		}
	}
	checkExp("diamond_square.size_exponent", c.DiamondSquare.SizeExponent)
	checkExp("midpoint.width_exponent", c.Midpoint.WidthExponent)
	checkExp("midpoint.height_exponent", c.Midpoint.HeightExponent)

	if c.WFC.LoopThreshold < 1 {
		add("wfc.loop_threshold must be >= 1, got %d", c.WFC.LoopThreshold)
	}

	switch c.Storage.Backend {
	case "", "memory", "badger":
	case "redis":
		if c.Storage.RedisAddr == "" {
			add("storage.redis_addr is required for redis backend")
		}
	default:
		add("storage.backend must be memory, badger or redis, got %q", c.Storage.Backend)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// GetMetricsAddr возвращает адрес метрик с приоритетом: config -> env -> пусто (выключено)
func (c *Config) GetMetricsAddr() string {
	if c.Metrics.Addr != "" {
		return c.Metrics.Addr
	}
	return os.Getenv("TILEWORLD_METRICS_ADDR")
}

// StreamerConfig собирает конфигурацию стримера
func (c *Config) StreamerConfig() world.StreamerConfig {
	return world.StreamerConfig{
		ChunkSize:            c.World.ChunkSize,
		UseCustomGridSize:    c.World.UseCustomGridSize,
		CustomGridWidth:      c.World.CustomGridWidth,
		CustomGridHeight:     c.World.CustomGridHeight,
		AddExtraBorderChunks: c.World.AddExtraBorderChunks,
	}
}

// GenerationOptions собирает параметры генератора. Таблица правил,
// логгер и метрики задаются вызывающим кодом.
func (c *Config) GenerationOptions() generation.Options {
	return generation.Options{
		Method:        c.World.Method,
		Seed:          c.Seed,
		Perlin:        c.Perlin,
		Simplex:       c.Simplex,
		Fractal:       c.Fractal,
		DiamondSquare: c.DiamondSquare,
		Midpoint:      c.Midpoint,
		WFC:           generation.WFCParams{LoopThreshold: c.WFC.LoopThreshold},
	}
}
