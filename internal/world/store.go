package world

import (
	"errors"
	"sync"

	"github.com/annel0/tileworld/internal/vec"
)

// ErrChunkNotFound возвращается MustGet при промахе
var ErrChunkNotFound = errors.New("chunk not found")

// ChunkStore хранит все чанки, сгенерированные за сессию.
// Реализации должны быть безопасны для параллельного использования.
type ChunkStore interface {
	Get(coord vec.Vec2) (*Chunk, bool, error)
	Put(c *Chunk) error
	Clear() error
	Len() int
}

// MemoryStore хранит чанки в памяти процесса
type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[vec.Vec2]*Chunk
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chunks: make(map[vec.Vec2]*Chunk)}
}

func (s *MemoryStore) Get(coord vec.Vec2) (*Chunk, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chunks[coord]
	return c, ok, nil
}

func (s *MemoryStore) Put(c *Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks[c.Coords] = c
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = make(map[vec.Vec2]*Chunk)
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.chunks)
}

// MustGet возвращает чанк или ErrChunkNotFound
func MustGet(store ChunkStore, coord vec.Vec2) (*Chunk, error) {
	c, ok, err := store.Get(coord)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrChunkNotFound
	}
	return c, nil
}
