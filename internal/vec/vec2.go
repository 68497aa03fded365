package vec

import (
	"fmt"
	"math"
)

// Vec2 представляет 2D целочисленные координаты (чанк или тайл мира)
type Vec2 struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Scale умножает обе компоненты на целое число
func (v Vec2) Scale(k int) Vec2 {
	return Vec2{X: v.X * k, Y: v.Y * k}
}

// ChunkOrigin возвращает мировую позицию тайла (0,0) чанка с координатами v
func (v Vec2) ChunkOrigin(chunkSize int) Vec2 {
	return v.Scale(chunkSize)
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// Less задаёт порядок (сначала X, затем Y) для детерминированной сортировки
func (v Vec2) Less(other Vec2) bool {
	if v.X != other.X {
		return v.X < other.X
	}
	return v.Y < other.Y
}

func (v Vec2) String() string {
	return fmt.Sprintf("(%d,%d)", v.X, v.Y)
}
