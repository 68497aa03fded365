// Package api содержит отладочный HTTP сервер: состояние окна чанков, содержимое
// сгенерированных чанков и метрики Prometheus.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/middleware"
	"github.com/annel0/tileworld/internal/stats"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
)

// WorldView описывает то, что сервер читает у стримера
type WorldView interface {
	LoadedSet() []vec.Vec2
	CurrentChunk() vec.Vec2
	Extent() world.Extent
	Stats() world.Stats
	Store() world.ChunkStore
}

// GeneratorInfo описывает генератор в ответе /api/stats
type GeneratorInfo struct {
	Method string `json:"method"`
	Seed   int64  `json:"seed"`
}

// Config содержит конфигурацию сервера
type Config struct {
	Addr      string                // адрес для запуска, по умолчанию :8080
	World     WorldView             // обязателен
	Generator GeneratorInfo
	Session   *stats.SessionMetrics // nil — создаётся новый
	Registry  *prometheus.Registry  // nil — регистр по умолчанию
	Logger    *logging.Logger       // nil — логгер компонента "http"
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Server представляет отладочный HTTP сервер
type Server struct {
	router  *gin.Engine
	httpSrv *http.Server
	world   WorldView
	gen     GeneratorInfo
	session *stats.SessionMetrics
	logger  *logging.Logger
}

// NewServer создаёт сервер и настраивает маршруты
func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Session == nil {
		cfg.Session = stats.NewSessionMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetComponentLogger("http")
	}

	var (
		reg      prometheus.Registerer
		gatherer prometheus.Gatherer
	)
	if cfg.Registry != nil {
		reg, gatherer = cfg.Registry, cfg.Registry
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	router.Use(otelgin.Middleware("tileworld_api"))
	router.Use(middleware.NewRequestLogger(cfg.Logger).Handler())

	promMw := middleware.NewPrometheusMiddleware("tileworld_api", reg)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, gatherer)

	s := &Server{
		router:  router,
		httpSrv: &http.Server{Addr: cfg.Addr, Handler: router, ReadHeaderTimeout: 5 * time.Second},
		world:   cfg.World,
		gen:     cfg.Generator,
		session: cfg.Session,
		logger:  cfg.Logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.GET("/stats", s.handleStats)
		api.GET("/chunks", s.handleLoadedChunks)
		api.GET("/chunks/:x/:y", s.handleChunk)
	}
}

// Handler возвращает http.Handler сервера (для тестов и встраивания)
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start блокируется до Shutdown. http.ErrServerClosed ошибкой не считается.
func (s *Server) Start() error {
	s.logger.Info("🌐 Отладочный API: http://localhost%s/api/stats", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown плавно останавливает сервер
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

func (s *Server) handleStats(c *gin.Context) {
	st := s.world.Stats()

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data: gin.H{
			"generator": s.gen,
			"world": gin.H{
				"chunk_count": st.ChunkCount,
				"tile_count":  st.TileCount,
				"generated":   st.Generated,
				"reloaded":    st.Reloaded,
				"unloaded":    st.Unloaded,
				"frames":      st.Frames,
				"stored":      s.world.Store().Len(),
			},
			"session": s.session.Report(),
		},
	})
}

func (s *Server) handleLoadedChunks(c *gin.Context) {
	ext := s.world.Extent()

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Загруженные чанки",
		Data: gin.H{
			"current": s.world.CurrentChunk(),
			"extent": gin.H{
				"grid_width":  ext.GridWidth,
				"grid_height": ext.GridHeight,
			},
			"loaded": s.world.LoadedSet(),
		},
	})
}

// handleChunk отдаёт чанк из хранилища. Новые чанки здесь не генерируются.
func (s *Server) handleChunk(c *gin.Context) {
	x, errX := strconv.Atoi(c.Param("x"))
	y, errY := strconv.Atoi(c.Param("y"))
	if errX != nil || errY != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Координаты чанка должны быть целыми числами",
		})
		return
	}

	coord := vec.Vec2{X: x, Y: y}
	chunk, err := world.MustGet(s.world.Store(), coord)
	switch {
	case errors.Is(err, world.ErrChunkNotFound):
		c.JSON(http.StatusNotFound, GenericResponse{
			Success: false,
			Message: "Чанк " + coord.String() + " ещё не сгенерирован",
		})
		return
	case err != nil:
		s.logger.Error("Чтение чанка %s: %v", coord, err)
		c.JSON(http.StatusInternalServerError, GenericResponse{
			Success: false,
			Message: "Ошибка хранилища",
		})
		return
	}

	names := make([]string, len(chunk.Tiles))
	for i, t := range chunk.Tiles {
		names[i] = t.String()
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Чанк " + coord.String(),
		Data: gin.H{
			"coords": chunk.Coords,
			"size":   chunk.Size,
			"tiles":  names,
		},
	})
}
