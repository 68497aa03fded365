package storage

import (
	"testing"

	"github.com/annel0/tileworld/internal/tile"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *BadgerStore {
	t.Helper()

	store, err := NewBadgerStore(BadgerOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testChunk(t *testing.T, coord vec.Vec2) *world.Chunk {
	t.Helper()

	tiles := make([]tile.Category, 16)
	for i := range tiles {
		tiles[i] = tile.Category((i + coord.X*coord.X) % tile.Count)
	}
	c, err := world.NewChunk(coord, 4, tiles)
	require.NoError(t, err)
	return c
}

func TestBadgerStore_PutGet(t *testing.T) {
	store := setupTestStore(t)

	_, found, err := store.Get(vec.Vec2{X: 10, Y: 20})
	require.NoError(t, err)
	assert.False(t, found)

	chunk := testChunk(t, vec.Vec2{X: 10, Y: -20})
	require.NoError(t, store.Put(chunk))

	got, found, err := store.Get(vec.Vec2{X: 10, Y: -20})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, chunk, got)
	assert.Equal(t, 1, store.Len())
}

func TestBadgerStore_Clear(t *testing.T) {
	store := setupTestStore(t)

	for x := 0; x < 5; x++ {
		require.NoError(t, store.Put(testChunk(t, vec.Vec2{X: x, Y: 1})))
	}
	assert.Equal(t, 5, store.Len())

	require.NoError(t, store.Clear())
	assert.Zero(t, store.Len())
}

func TestBadgerStore_Closed(t *testing.T) {
	store, err := NewBadgerStore(BadgerOptions{})
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, _, err = store.Get(vec.Vec2{})
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, store.Put(testChunk(t, vec.Vec2{})), ErrClosed)
}

func TestBadgerStore_OnDisk(t *testing.T) {
	store, err := NewBadgerStore(BadgerOptions{Dir: t.TempDir()})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put(testChunk(t, vec.Vec2{X: 3, Y: 3})))
	_, found, err := store.Get(vec.Vec2{X: 3, Y: 3})
	require.NoError(t, err)
	assert.True(t, found)
}

// Стример с Badger генерирует каждый чанк один раз и перечитывает его из базы
func TestBadgerStore_WithStreamer(t *testing.T) {
	store := setupTestStore(t)

	calls := 0
	gen := generatorFunc(func(coord vec.Vec2, size int) []tile.Category {
		calls++
		return make([]tile.Category, size*size)
	})

	s := world.NewStreamer(world.StreamerConfig{
		ChunkSize:         4,
		UseCustomGridSize: true,
		CustomGridWidth:   2,
		CustomGridHeight:  2,
	}, gen, store, nil, nil)

	require.NoError(t, s.GenerateInitial())
	_, err := s.SetViewpointWorldPosition(vec.Vec2Float{X: 50, Y: 50})
	require.NoError(t, err)
	_, err = s.SetViewpointWorldPosition(vec.Vec2Float{})
	require.NoError(t, err)

	assert.Equal(t, 8, calls)
	assert.Equal(t, 8, store.Len())
}

type generatorFunc func(coord vec.Vec2, size int) []tile.Category

func (f generatorFunc) GenerateTiles(coord vec.Vec2, size int) []tile.Category {
	return f(coord, size)
}
