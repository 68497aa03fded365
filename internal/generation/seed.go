package generation

import (
	"time"

	"github.com/annel0/tileworld/internal/vec"
)

// Seed — необязательный сид мира
type Seed struct {
	Use   bool  `yaml:"use_seed"`
	Value int64 `yaml:"value"`
}

// Resolve возвращает заданный сид или сид от текущего времени
func (s Seed) Resolve() (seed int64, fromClock bool) {
	if s.Use {
		return s.Value, false
	}
	return ClockSeed(), true
}

// ClockSeed возвращает сид от текущего времени
func ClockSeed() int64 {
	return time.Now().UnixNano()
}

// ChunkSeed выводит сид чанка из сида мира и координат.
// Большие нечётные константы разводят оси, финальное перемешивание
// даёт лавинный эффект, так что соседние чанки не коррелируют.
func ChunkSeed(seed int64, coord vec.Vec2) int64 {
	h := uint64(seed)
	h ^= uint64(int64(coord.X)) * 0x9e3779b97f4a7c15
	h ^= uint64(int64(coord.Y)) * 0xc2b2ae3d27d4eb4f
	return int64(mix64(h))
}

func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
