package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/annel0/tileworld/internal/api"
	"github.com/annel0/tileworld/internal/cache"
	"github.com/annel0/tileworld/internal/config"
	"github.com/annel0/tileworld/internal/generation"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/observability"
	"github.com/annel0/tileworld/internal/stats"
	"github.com/annel0/tileworld/internal/storage"
	"github.com/annel0/tileworld/internal/tile"
	"github.com/annel0/tileworld/internal/world"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config path (default: $TILEWORLD_CONFIG)")
		methodFlag = flag.String("method", "", "Generation method: random, perlin, simplex, fractal, diamond_square, midpoint, wfc")
		seedFlag   = flag.Int64("seed", 0, "World seed, overrides the config when set (any value, including 0)")
		steps      = flag.Int("steps", 32, "Number of frames to simulate")
		velocity   = flag.String("velocity", "3,1", "Viewpoint movement per frame, \"dx,dy\" in tiles")
		prefetch   = flag.Int("prefetch", 0, "Ring width of chunks to prefetch around the window (0 = off)")
		workers    = flag.Int("workers", 4, "Prefetch workers")
		render     = flag.Bool("render", true, "Print the loaded tiles as ASCII at the end")
		serve      = flag.Bool("serve", false, "Keep serving /metrics and /api until SIGINT/SIGTERM")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	if *methodFlag != "" {
		m, err := generation.ParseMethod(*methodFlag)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		cfg.World.Method = m
	}
	if seed, ok := seedOverride(flag.CommandLine, *seedFlag); ok {
		cfg.Seed = seed
	}

	if err := logging.InitDefaultLogger("tilegen", cfg.Logging.Dir); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	if level, err := logging.ParseLevel(cfg.Logging.Level); err == nil {
		logging.GetLoggerManager().SetDefaultLevel(level)
	} else {
		logging.Warn("Неизвестный уровень логирования %q, используется INFO", cfg.Logging.Level)
	}

	if err := run(cfg, runOptions{
		steps:    *steps,
		velocity: *velocity,
		prefetch: *prefetch,
		workers:  *workers,
		render:   *render,
		serve:    *serve,
	}); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
}

// seedOverride возвращает сид из флага -seed, если флаг был указан явно
func seedOverride(fs *flag.FlagSet, value int64) (generation.Seed, bool) {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			set = true
		}
	})
	if !set {
		return generation.Seed{}, false
	}
	return generation.Seed{Use: true, Value: value}, true
}

type runOptions struct {
	steps    int
	velocity string
	prefetch int
	workers  int
	render   bool
	serve    bool
}

func run(cfg *config.Config, opts runOptions) error {
	session := stats.NewSessionMetrics()

	ctx := context.Background()

	// === ТРАССИРОВКА ===
	shutdownTracing, err := observability.InitTelemetry(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("инициализация трассировки: %w", err)
	}
	defer func() {
		if err := shutdownTracing(ctx); err != nil {
			logging.Error("Ошибка остановки трассировки: %v", err)
		}
	}()

	// === МЕТРИКИ ===
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := generation.NewMetrics(registry)

	// === ГЕНЕРАТОР ===
	genOpts := cfg.GenerationOptions()
	genOpts.Metrics = metrics
	if cfg.WFC.RulesFile != "" {
		rules, warnings, err := tile.LoadRuleTable(cfg.WFC.RulesFile)
		if err != nil {
			return err
		}
		logging.Info("Загружена таблица правил %s (предупреждений: %d)", cfg.WFC.RulesFile, len(warnings))
		genOpts.Rules = rules
	}
	gen := generation.NewGenerator(genOpts)

	// === ХРАНИЛИЩЕ ЧАНКОВ ===
	store, closeStore, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStore()

	sink := newASCIISink()
	streamer := world.NewStreamer(cfg.StreamerConfig(), gen, store, sink, world.StaticViewport(cfg.Viewport))

	// === ОТЛАДОЧНЫЙ API ===
	var apiServer *api.Server
	if addr := cfg.GetMetricsAddr(); addr != "" {
		apiServer = api.NewServer(api.Config{
			Addr:      addr,
			World:     streamer,
			Generator: api.GeneratorInfo{Method: gen.Method().String(), Seed: gen.Seed()},
			Session:   session,
			Registry:  registry,
		})
		go func() {
			if err := apiServer.Start(); err != nil {
				logging.Error("Ошибка отладочного API: %v", err)
			}
		}()
	}

	logging.Info("🌍 Метод генерации: %s, размер чанка: %d, хранилище: %s", gen.Method(), cfg.World.ChunkSize, backendName(cfg.Storage.Backend))

	if err := streamer.GenerateInitial(); err != nil {
		return fmt.Errorf("начальная генерация: %w", err)
	}

	// === ДВИЖЕНИЕ НАБЛЮДАТЕЛЯ ===
	v, err := parseVelocity(opts.velocity)
	if err != nil {
		return err
	}
	w := &walker{velocity: v}
	streamer.AttachViewpointSource(w)

	sw := stats.StartStopwatch()
	for i := 0; i < opts.steps; i++ {
		w.step()

		changed, err := streamer.Tick(time.Now())
		if err != nil {
			return fmt.Errorf("кадр %d: %w", i, err)
		}
		if changed {
			logging.Debug("Кадр %d: текущий чанк %s", i, streamer.CurrentChunk())

			if opts.prefetch > 0 {
				ring := world.Ring(streamer.CurrentChunk(), streamer.Extent(), opts.prefetch)
				if err := streamer.Prefetch(ctx, ring, opts.workers); err != nil {
					return fmt.Errorf("предзагрузка: %w", err)
				}
			}
		}
	}

	st := streamer.Stats()
	logging.Info("Пройдено %d кадров за %s: сгенерировано %d чанков, повторно загружено %d, выгружено %d",
		st.Frames, sw, st.Generated, st.Reloaded, st.Unloaded)
	logging.Info("Окно: %d чанков, %d тайлов; в хранилище %d чанков", st.ChunkCount, st.TileCount, store.Len())
	logging.Info("🎲 Сид мира: %d", gen.Seed())

	for k, v := range session.Report() {
		logging.Debug("session %s = %v", k, v)
	}

	if opts.render {
		fmt.Println(Legend())
		if err := sink.Render(os.Stdout); err != nil {
			return err
		}
	}

	if opts.serve && apiServer != nil {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logging.Info("📡 Получен сигнал %v, завершение работы...", sig)
	}

	if apiServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logging.Error("Ошибка остановки отладочного API: %v", err)
		}
	}
	return nil
}

// openStore создаёт хранилище чанков сессии по настройкам
func openStore(cfg config.StorageConfig) (world.ChunkStore, func(), error) {
	switch cfg.Backend {
	case "badger":
		bs, err := storage.NewBadgerStore(storage.BadgerOptions{Dir: cfg.BadgerDir})
		if err != nil {
			return nil, nil, err
		}
		return bs, func() {
			if err := bs.Close(); err != nil {
				logging.Error("Ошибка закрытия BadgerDB: %v", err)
			}
		}, nil

	case "redis":
		rs, err := cache.NewRedisStore(cache.RedisConfig{Addr: cfg.RedisAddr})
		if err != nil {
			return nil, nil, err
		}
		return rs, func() {
			// Чанки сессии не должны переживать процесс
			if err := rs.Clear(); err != nil {
				logging.Error("Ошибка очистки Redis: %v", err)
			}
			rs.Close()
		}, nil

	default:
		return world.NewMemoryStore(), func() {}, nil
	}
}

func backendName(b string) string {
	if b == "" {
		return "memory"
	}
	return b
}
