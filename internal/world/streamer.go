// Package world управляет чанками вокруг наблюдателя: решает, какие чанки
// должны быть загружены, генерирует каждый не более одного раза и сообщает
// рендеру о появлении и исчезновении тайлов.
package world

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/stats"
	"github.com/annel0/tileworld/internal/tile"
	"github.com/annel0/tileworld/internal/vec"
)

// ChunkGenerator заполняет чанк тайлами. Всегда возвращает size*size значений.
type ChunkGenerator interface {
	GenerateTiles(coord vec.Vec2, size int) []tile.Category
}

// StreamerConfig не меняется после создания стримера
type StreamerConfig struct {
	ChunkSize            int
	UseCustomGridSize    bool
	CustomGridWidth      int
	CustomGridHeight     int
	AddExtraBorderChunks bool
}

// Extent — размер окна загруженных чанков
type Extent struct {
	GridWidth, GridHeight int
	HalfWidth, HalfHeight int
}

// Stats — счётчики стримера
type Stats struct {
	ChunkCount int // Чанков в окне
	TileCount  int // Тайлов в окне

	Generated int64 // Сгенерировано за время жизни хранилища
	Reloaded  int64 // Загружено из кеша без генерации
	Unloaded  int64

	Frames    int64
	LastFrame time.Time
}

// Streamer владеет набором загруженных чанков. Методы безопасны для
// вызова из нескольких горутин, но рассчитаны на один управляющий поток.
type Streamer struct {
	mu sync.Mutex

	cfg      StreamerConfig
	gen      ChunkGenerator
	store    ChunkStore
	sink     RenderSink
	viewport ViewportProvider
	source   ViewpointSource
	logger   *logging.Logger

	// Один чанк генерируется не более одного раза даже при Prefetch
	flight singleflight.Group

	// Сгенерированные чанки, которые не удалось записать в хранилище.
	// Повторная попытка записывает их, а не генерирует заново.
	pendingMu sync.Mutex
	pending   map[vec.Vec2]*Chunk

	extent     Extent
	current    vec.Vec2
	hasCurrent bool
	dirty      bool // окно не достроено после ошибки
	loaded     map[vec.Vec2]struct{}

	stats     Stats
	generated atomic.Int64
}

// NewStreamer создаёт стример. nil store заменяется памятью, nil sink заменяется NopSink.
func NewStreamer(cfg StreamerConfig, gen ChunkGenerator, store ChunkStore, sink RenderSink, viewport ViewportProvider) *Streamer {
	if store == nil {
		store = NewMemoryStore()
	}
	if sink == nil {
		sink = NopSink{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 16
	}

	s := &Streamer{
		cfg:      cfg,
		gen:      gen,
		store:    store,
		sink:     sink,
		viewport: viewport,
		logger:   logging.GetWorldLogger(),
		loaded:   make(map[vec.Vec2]struct{}),
		pending:  make(map[vec.Vec2]*Chunk),
	}
	s.recomputeGridExtent()
	return s
}

// SetLogger заменяет логгер компонента world
func (s *Streamer) SetLogger(l *logging.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = l
}

// AttachViewpointSource задаёт источник позиции, опрашиваемый в Tick
func (s *Streamer) AttachViewpointSource(src ViewpointSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = src
}

// RecomputeGridExtent пересчитывает размер окна: из явной конфигурации или
// по размеру экрана. Размеры всегда округляются вверх до чётных.
func (s *Streamer) RecomputeGridExtent() Extent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recomputeGridExtent()
}

func (s *Streamer) recomputeGridExtent() Extent {
	var width, height int

	if s.cfg.UseCustomGridSize || s.viewport == nil {
		width, height = s.cfg.CustomGridWidth, s.cfg.CustomGridHeight
	} else {
		vp := s.viewport.Viewport()
		width = chunksAcross(vp.Width, vp, s.cfg.ChunkSize)
		height = chunksAcross(vp.Height, vp, s.cfg.ChunkSize)

		if s.cfg.AddExtraBorderChunks {
			width += 2
			height += 2
		}
	}

	width, height = roundUpEven(width), roundUpEven(height)

	s.extent = Extent{
		GridWidth:  width,
		GridHeight: height,
		HalfWidth:  width / 2,
		HalfHeight: height / 2,
	}
	s.stats.ChunkCount = width * height
	s.stats.TileCount = s.stats.ChunkCount * s.cfg.ChunkSize * s.cfg.ChunkSize
	return s.extent
}

// chunksAcross считает, сколько чанков помещается на pixels пикселей экрана
func chunksAcross(pixels int, vp Viewport, chunkSize int) int {
	ratio := vp.PixelRatio
	if ratio <= 0 {
		ratio = 1
	}
	ppu := vp.PixelsPerUnit
	if ppu <= 0 {
		ppu = 1
	}
	return int(math.Ceil(float64(pixels) / ratio / float64(ppu*chunkSize)))
}

func roundUpEven(n int) int {
	if n < 1 {
		n = 1
	}
	if n%2 != 0 {
		n++
	}
	return n
}

// SetViewpointWorldPosition переводит мировую позицию в координаты чанка и
// вызывает UpdateChunks, если чанк сменился или прошлое обновление окна
// завершилось ошибкой.
func (s *Streamer) SetViewpointWorldPosition(pos vec.Vec2Float) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setViewpoint(pos)
}

func (s *Streamer) setViewpoint(pos vec.Vec2Float) (bool, error) {
	coord := pos.ToChunkCoords(s.cfg.ChunkSize)
	if s.hasCurrent && coord == s.current && !s.dirty {
		return false, nil
	}

	s.current = coord
	s.hasCurrent = true
	return true, s.updateChunks()
}

// OnWorldMoved принимает позицию мира, который сдвигается вместо камеры:
// наблюдатель находится в противоположной точке.
func (s *Streamer) OnWorldMoved(worldPos vec.Vec2Float) (bool, error) {
	return s.SetViewpointWorldPosition(worldPos.Neg())
}

// UpdateChunks приводит набор загруженных чанков к окну
// [-halfW, halfW) × [-halfH, halfH) вокруг текущего чанка.
func (s *Streamer) UpdateChunks() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateChunks()
}

func (s *Streamer) updateChunks() error {
	s.dirty = true
	window := s.window()

	// Выгружаем то, что вышло из окна; данные чанка остаются в хранилище
	for _, coord := range sortedCoords(s.loaded) {
		if _, keep := window[coord]; keep {
			continue
		}
		s.unloadChunk(coord)
		delete(s.loaded, coord)
	}

	for _, coord := range sortedCoords(window) {
		if _, already := s.loaded[coord]; already {
			continue
		}
		if err := s.loadChunk(coord); err != nil {
			return err
		}
		s.loaded[coord] = struct{}{}
	}
	s.dirty = false
	return nil
}

func (s *Streamer) window() map[vec.Vec2]struct{} {
	w := make(map[vec.Vec2]struct{}, s.extent.GridWidth*s.extent.GridHeight)
	for dx := -s.extent.HalfWidth; dx < s.extent.HalfWidth; dx++ {
		for dy := -s.extent.HalfHeight; dy < s.extent.HalfHeight; dy++ {
			w[s.current.Add(vec.Vec2{X: dx, Y: dy})] = struct{}{}
		}
	}
	return w
}

// loadChunk генерирует чанк при первом обращении или берёт из хранилища
// и сообщает рендеру о каждом тайле.
func (s *Streamer) loadChunk(coord vec.Vec2) error {
	chunk, generated, err := s.ensureChunk(coord)
	if err != nil {
		return err
	}
	if !generated {
		s.stats.Reloaded++
	}

	chunk.forEachTile(s.sink.OnTileLoaded)
	return nil
}

// unloadChunk снимает тайлы чанка с рендера. Позиции тайлов выводятся из
// координат, поэтому хранилище не читается.
func (s *Streamer) unloadChunk(coord vec.Vec2) {
	origin := coord.ChunkOrigin(s.cfg.ChunkSize)
	for x := 0; x < s.cfg.ChunkSize; x++ {
		for y := 0; y < s.cfg.ChunkSize; y++ {
			s.sink.OnTileUnloaded(origin.Add(vec.Vec2{X: x, Y: y}))
		}
	}
	s.stats.Unloaded++
	logging.LogChunkUnloaded(s.logger, coord.X, coord.Y)
}

type ensureResult struct {
	chunk     *Chunk
	generated bool
}

// ensureChunk возвращает чанк из хранилища, генерируя его при отсутствии.
// Параллельные вызовы для одной координаты объединяются.
func (s *Streamer) ensureChunk(coord vec.Vec2) (*Chunk, bool, error) {
	key := coord.String()

	v, err, _ := s.flight.Do(key, func() (interface{}, error) {
		if c, ok, err := s.store.Get(coord); err != nil {
			return nil, fmt.Errorf("чтение чанка %s: %w", coord, err)
		} else if ok {
			return ensureResult{chunk: c}, nil
		}

		c := s.takePending(coord)
		if c == nil {
			var err error
			c, err = NewChunk(coord, s.cfg.ChunkSize, s.gen.GenerateTiles(coord, s.cfg.ChunkSize))
			if err != nil {
				return nil, err
			}
			s.generated.Add(1)
		}
		if err := s.store.Put(c); err != nil {
			s.keepPending(c)
			return nil, fmt.Errorf("запись чанка %s: %w", coord, err)
		}
		return ensureResult{chunk: c, generated: true}, nil
	})
	if err != nil {
		return nil, false, err
	}

	res := v.(ensureResult)
	return res.chunk, res.generated, nil
}

func (s *Streamer) takePending(coord vec.Vec2) *Chunk {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	c := s.pending[coord]
	delete(s.pending, coord)
	return c
}

func (s *Streamer) keepPending(c *Chunk) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	s.pending[c.Coords] = c
}

// GenerateInitial строит стартовое окно вокруг чанка (0,0)
func (s *Streamer) GenerateInitial() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sw := stats.StartStopwatch()

	s.recomputeGridExtent()
	s.resetTilemap()

	s.current = vec.Vec2{}
	s.hasCurrent = true
	if err := s.updateChunks(); err != nil {
		return err
	}

	s.logger.Info("Generated tilemap in: %s (%d chunks, %d tiles)", sw, s.stats.ChunkCount, s.stats.TileCount)
	return nil
}

// Clear очищает хранилище и набор загруженных чанков
func (s *Streamer) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("очистка хранилища чанков: %w", err)
	}
	s.resetTilemap()
	s.hasCurrent = false
	s.dirty = false

	s.pendingMu.Lock()
	s.pending = make(map[vec.Vec2]*Chunk)
	s.pendingMu.Unlock()
	return nil
}

func (s *Streamer) resetTilemap() {
	s.loaded = make(map[vec.Vec2]struct{})
	s.sink.OnTilemapCleared()
}

// Tick вызывается каждый кадр и опрашивает источник позиции, если он задан
func (s *Streamer) Tick(now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Frames++
	s.stats.LastFrame = now

	if s.source == nil {
		return false, nil
	}
	return s.setViewpoint(s.source.ViewpointPosition())
}

// LoadedSet возвращает загруженные координаты в порядке (x, y)
func (s *Streamer) LoadedSet() []vec.Vec2 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedCoords(s.loaded)
}

func (s *Streamer) CurrentChunk() vec.Vec2 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Streamer) Extent() Extent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extent
}

func (s *Streamer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stats
	st.Generated = s.generated.Load()
	return st
}

// Store возвращает хранилище чанков
func (s *Streamer) Store() ChunkStore {
	return s.store
}

func sortedCoords(set map[vec.Vec2]struct{}) []vec.Vec2 {
	out := make([]vec.Vec2, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
