package world

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/annel0/tileworld/internal/tile"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingGenerator детерминированно заполняет чанк и считает вызовы
type countingGenerator struct {
	mu    sync.Mutex
	calls map[vec.Vec2]int
	delay time.Duration
}

func newCountingGenerator() *countingGenerator {
	return &countingGenerator{calls: make(map[vec.Vec2]int)}
}

func (g *countingGenerator) GenerateTiles(coord vec.Vec2, size int) []tile.Category {
	if g.delay > 0 {
		time.Sleep(g.delay)
	}

	g.mu.Lock()
	g.calls[coord]++
	g.mu.Unlock()

	tiles := make([]tile.Category, size*size)
	for i := range tiles {
		tiles[i] = tile.Category((coord.X*7 + coord.Y*3 + i) % tile.Count)
		if tiles[i] > tile.MountainTop {
			tiles[i] = tile.WaterDeep
		}
	}
	return tiles
}

func (g *countingGenerator) count(coord vec.Vec2) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[coord]
}

func (g *countingGenerator) total() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		n += c
	}
	return n
}

// recordingSink хранит текущее состояние "экрана"
type recordingSink struct {
	tiles   map[vec.Vec2]tile.Category
	loads   int
	unloads int
	clears  int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{tiles: make(map[vec.Vec2]tile.Category)}
}

func (s *recordingSink) OnTileLoaded(pos vec.Vec2, c tile.Category) {
	s.tiles[pos] = c
	s.loads++
}

func (s *recordingSink) OnTileUnloaded(pos vec.Vec2) {
	delete(s.tiles, pos)
	s.unloads++
}

func (s *recordingSink) OnTilemapCleared() {
	s.tiles = make(map[vec.Vec2]tile.Category)
	s.clears++
}

func newTestStreamer(chunkSize, grid int) (*Streamer, *countingGenerator, *recordingSink) {
	gen := newCountingGenerator()
	sink := newRecordingSink()
	cfg := StreamerConfig{
		ChunkSize:         chunkSize,
		UseCustomGridSize: true,
		CustomGridWidth:   grid,
		CustomGridHeight:  grid,
	}
	return NewStreamer(cfg, gen, NewMemoryStore(), sink, nil), gen, sink
}

func TestStreamer_ConcreteScenario(t *testing.T) {
	s, gen, sink := newTestStreamer(4, 2)

	changed, err := s.SetViewpointWorldPosition(vec.Vec2Float{X: 0, Y: 0})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, vec.Vec2{X: 0, Y: 0}, s.CurrentChunk())
	assert.Equal(t, []vec.Vec2{{X: -1, Y: -1}, {X: -1, Y: 0}, {X: 0, Y: -1}, {X: 0, Y: 0}}, s.LoadedSet())
	assert.Len(t, sink.tiles, 4*16)
	loads, unloads := sink.loads, sink.unloads

	changed, err = s.SetViewpointWorldPosition(vec.Vec2Float{X: 5, Y: 0})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, vec.Vec2{X: 1, Y: 0}, s.CurrentChunk())
	// Оставшиеся в окне чанки рендеру повторно не отправляются
	assert.Equal(t, 2*16, sink.loads-loads)
	assert.Equal(t, 2*16, sink.unloads-unloads)
	assert.Equal(t, []vec.Vec2{{X: 0, Y: -1}, {X: 0, Y: 0}, {X: 1, Y: -1}, {X: 1, Y: 0}}, s.LoadedSet())

	// Выгружены (-1,*) и сгенерированы (1,*)
	assert.Equal(t, 6, gen.total())
	assert.Equal(t, 1, gen.count(vec.Vec2{X: 1, Y: -1}))
	assert.Len(t, sink.tiles, 4*16)
	_, stale := sink.tiles[vec.Vec2{X: -4, Y: 0}]
	assert.False(t, stale, "тайлы выгруженного чанка сняты с рендера")
	_, fresh := sink.tiles[vec.Vec2{X: 7, Y: 3}]
	assert.True(t, fresh)

	st := s.Stats()
	assert.Equal(t, int64(6), st.Generated)
	assert.Equal(t, int64(2), st.Unloaded)
}

// flakyStore отказывает в записи заданных координат указанное число раз
type flakyStore struct {
	*MemoryStore

	mu    sync.Mutex
	fails map[vec.Vec2]int
}

func (s *flakyStore) Put(c *Chunk) error {
	s.mu.Lock()
	if s.fails[c.Coords] > 0 {
		s.fails[c.Coords]--
		s.mu.Unlock()
		return errors.New("transient")
	}
	s.mu.Unlock()
	return s.MemoryStore.Put(c)
}

func TestStreamer_RetriesAfterStoreError(t *testing.T) {
	gen := newCountingGenerator()
	sink := newRecordingSink()
	store := &flakyStore{MemoryStore: NewMemoryStore(), fails: map[vec.Vec2]int{{X: 1, Y: 0}: 1}}
	s := NewStreamer(StreamerConfig{
		ChunkSize:         4,
		UseCustomGridSize: true,
		CustomGridWidth:   2,
		CustomGridHeight:  2,
	}, gen, store, sink, nil)

	_, err := s.SetViewpointWorldPosition(vec.Vec2Float{X: 0, Y: 0})
	require.NoError(t, err)

	_, err = s.SetViewpointWorldPosition(vec.Vec2Float{X: 5, Y: 0})
	require.Error(t, err)
	assert.NotContains(t, s.LoadedSet(), vec.Vec2{X: 1, Y: 0})

	// Тот же чанк (1,0): окно всё равно достраивается
	changed, err := s.SetViewpointWorldPosition(vec.Vec2Float{X: 5.5, Y: 0})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []vec.Vec2{{X: 0, Y: -1}, {X: 0, Y: 0}, {X: 1, Y: -1}, {X: 1, Y: 0}}, s.LoadedSet())
	assert.Len(t, sink.tiles, 4*16)

	assert.Equal(t, 1, gen.count(vec.Vec2{X: 1, Y: 0}), "незаписанный чанк не генерируется повторно")
	assert.Equal(t, int64(6), s.Stats().Generated)
	assert.Equal(t, 6, store.Len())

	changed, err = s.SetViewpointWorldPosition(vec.Vec2Float{X: 6, Y: 1})
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestStreamer_SameChunkDoesNotUpdate(t *testing.T) {
	s, gen, sink := newTestStreamer(4, 2)

	_, err := s.SetViewpointWorldPosition(vec.Vec2Float{X: 1, Y: 1})
	require.NoError(t, err)
	loads := sink.loads

	changed, err := s.SetViewpointWorldPosition(vec.Vec2Float{X: 3.5, Y: -2})
	require.NoError(t, err)
	assert.False(t, changed, "(3.5,-2) лежит в том же чанке (0,0)")
	assert.Equal(t, loads, sink.loads)
	assert.Equal(t, 4, gen.total())
}

func TestStreamer_ReloadReplaysWithoutRegenerating(t *testing.T) {
	s, gen, sink := newTestStreamer(4, 2)

	_, err := s.SetViewpointWorldPosition(vec.Vec2Float{})
	require.NoError(t, err)
	before := make(map[vec.Vec2]tile.Category, len(sink.tiles))
	for k, v := range sink.tiles {
		before[k] = v
	}

	// Уходим далеко и возвращаемся
	_, err = s.SetViewpointWorldPosition(vec.Vec2Float{X: 100, Y: 100})
	require.NoError(t, err)
	_, err = s.SetViewpointWorldPosition(vec.Vec2Float{})
	require.NoError(t, err)

	for _, c := range []vec.Vec2{{X: -1, Y: -1}, {X: -1, Y: 0}, {X: 0, Y: -1}, {X: 0, Y: 0}} {
		assert.Equal(t, 1, gen.count(c), "чанк %s сгенерирован не более одного раза", c)
	}
	assert.Equal(t, before, sink.tiles, "повторная загрузка воспроизводит те же тайлы")
	assert.Equal(t, int64(4), s.Stats().Reloaded)
	assert.Equal(t, 8, s.Store().Len())
}

func TestStreamer_LoadedSetMatchesWindow(t *testing.T) {
	s, _, _ := newTestStreamer(8, 4)

	path := []vec.Vec2Float{{X: 0, Y: 0}, {X: 9, Y: 0}, {X: 17, Y: -30}, {X: -8, Y: -8}, {X: -9, Y: 40}}
	for _, p := range path {
		_, err := s.SetViewpointWorldPosition(p)
		require.NoError(t, err)

		center := s.CurrentChunk()
		loaded := s.LoadedSet()
		require.Len(t, loaded, 16)
		for _, c := range loaded {
			dx, dy := c.X-center.X, c.Y-center.Y
			assert.True(t, dx >= -2 && dx < 2 && dy >= -2 && dy < 2, "%s вне окна вокруг %s", c, center)
		}
	}
}

func TestStreamer_RecomputeGridExtent(t *testing.T) {
	cases := []struct {
		name string
		cfg  StreamerConfig
		vp   Viewport
		want Extent
	}{
		{
			name: "custom odd rounds up",
			cfg:  StreamerConfig{ChunkSize: 16, UseCustomGridSize: true, CustomGridWidth: 3, CustomGridHeight: 4},
			want: Extent{GridWidth: 4, GridHeight: 4, HalfWidth: 2, HalfHeight: 2},
		},
		{
			name: "custom ignores extra border",
			cfg:  StreamerConfig{ChunkSize: 16, UseCustomGridSize: true, CustomGridWidth: 2, CustomGridHeight: 2, AddExtraBorderChunks: true},
			want: Extent{GridWidth: 2, GridHeight: 2, HalfWidth: 1, HalfHeight: 1},
		},
		{
			// 1920/1/(16*16) = 7.5 -> 8; 1080/(256) = 4.2 -> 5 -> 6
			name: "auto from viewport",
			cfg:  StreamerConfig{ChunkSize: 16},
			vp:   Viewport{Width: 1920, Height: 1080, PixelRatio: 1, PixelsPerUnit: 16},
			want: Extent{GridWidth: 8, GridHeight: 6, HalfWidth: 4, HalfHeight: 3},
		},
		{
			// 800/2/(10*4) = 10 -> +2 = 12; 600/2/40 = 7.5 -> 8 -> +2 = 10
			name: "auto with border and pixel ratio",
			cfg:  StreamerConfig{ChunkSize: 4, AddExtraBorderChunks: true},
			vp:   Viewport{Width: 800, Height: 600, PixelRatio: 2, PixelsPerUnit: 10},
			want: Extent{GridWidth: 12, GridHeight: 10, HalfWidth: 6, HalfHeight: 5},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStreamer(tc.cfg, newCountingGenerator(), nil, nil, StaticViewport(tc.vp))
			ext := s.RecomputeGridExtent()

			assert.Equal(t, tc.want, ext)
			assert.Equal(t, tc.want.GridWidth*tc.want.GridHeight, s.Stats().ChunkCount)
			assert.Equal(t, s.Stats().ChunkCount*tc.cfg.ChunkSize*tc.cfg.ChunkSize, s.Stats().TileCount)
		})
	}
}

func TestStreamer_OnWorldMovedNegatesPosition(t *testing.T) {
	s, _, _ := newTestStreamer(4, 2)

	_, err := s.OnWorldMoved(vec.Vec2Float{X: -5, Y: 9})
	require.NoError(t, err)

	assert.Equal(t, vec.Vec2{X: 1, Y: -2}, s.CurrentChunk())
}

func TestStreamer_GenerateInitialAndClear(t *testing.T) {
	s, gen, sink := newTestStreamer(4, 2)

	require.NoError(t, s.GenerateInitial())
	assert.Equal(t, vec.Vec2{}, s.CurrentChunk())
	assert.Len(t, s.LoadedSet(), 4)
	assert.Equal(t, 1, sink.clears)

	// Повторная инициализация берёт чанки из хранилища
	require.NoError(t, s.GenerateInitial())
	assert.Equal(t, 4, gen.total())
	assert.Len(t, sink.tiles, 4*16)

	require.NoError(t, s.Clear())
	assert.Empty(t, s.LoadedSet())
	assert.Empty(t, sink.tiles)
	assert.Zero(t, s.Store().Len())

	// После очистки хранилища чанки генерируются заново
	_, err := s.SetViewpointWorldPosition(vec.Vec2Float{})
	require.NoError(t, err)
	assert.Equal(t, 2, gen.count(vec.Vec2{}))
}

func TestStreamer_TickPollsViewpointSource(t *testing.T) {
	s, _, _ := newTestStreamer(4, 2)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	changed, err := s.Tick(now)
	require.NoError(t, err)
	assert.False(t, changed, "без источника позиции Tick ничего не меняет")

	pos := vec.Vec2Float{X: 9, Y: 9}
	s.AttachViewpointSource(ViewpointFunc(func() vec.Vec2Float { return pos }))

	changed, err = s.Tick(now.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, vec.Vec2{X: 2, Y: 2}, s.CurrentChunk())

	changed, err = s.Tick(now.Add(2 * time.Second))
	require.NoError(t, err)
	assert.False(t, changed)

	st := s.Stats()
	assert.Equal(t, int64(3), st.Frames)
	assert.Equal(t, now.Add(2*time.Second), st.LastFrame)
}

func TestStreamer_PrefetchGeneratesOnce(t *testing.T) {
	s, gen, sink := newTestStreamer(4, 2)
	gen.delay = 2 * time.Millisecond

	coords := []vec.Vec2{{X: 5, Y: 5}, {X: 5, Y: 6}, {X: 6, Y: 5}}
	// Каждая координата запрошена несколько раз параллельно
	var requests []vec.Vec2
	for i := 0; i < 4; i++ {
		requests = append(requests, coords...)
	}

	require.NoError(t, s.Prefetch(context.Background(), requests, 8))

	for _, c := range coords {
		assert.Equal(t, 1, gen.count(c))
	}
	assert.Empty(t, sink.tiles, "Prefetch не загружает чанки в окно")
	assert.Equal(t, 3, s.Store().Len())

	// Загрузка заранее сгенерированного чанка не вызывает генератор
	_, err := s.SetViewpointWorldPosition(vec.Vec2Float{X: 21, Y: 21})
	require.NoError(t, err)
	assert.Equal(t, 1, gen.count(vec.Vec2{X: 5, Y: 5}))
}

func TestStreamer_PrefetchCancelled(t *testing.T) {
	s, _, _ := newTestStreamer(4, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Prefetch(ctx, []vec.Vec2{{X: 1, Y: 1}}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRing(t *testing.T) {
	ext := Extent{GridWidth: 2, GridHeight: 2, HalfWidth: 1, HalfHeight: 1}

	ring := Ring(vec.Vec2{}, ext, 1)

	assert.Len(t, ring, 16-4)
	for _, c := range ring {
		inside := c.X >= -1 && c.X < 1 && c.Y >= -1 && c.Y < 1
		assert.False(t, inside)
	}
}
