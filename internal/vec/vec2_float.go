package vec

import "math"

// Vec2Float представляет 2D координаты с плавающей точкой
type Vec2Float struct {
	X, Y float64
}

// FromVec2 создает Vec2Float из Vec2
func FromVec2(v Vec2) Vec2Float {
	return Vec2Float{X: float64(v.X), Y: float64(v.Y)}
}

// Add складывает два вектора
func (v Vec2Float) Add(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X + other.X, Y: v.Y + other.Y}
}

// Neg возвращает вектор с противоположным знаком
func (v Vec2Float) Neg() Vec2Float {
	return Vec2Float{X: -v.X, Y: -v.Y}
}

// Mul умножает вектор на скаляр
func (v Vec2Float) Mul(scalar float64) Vec2Float {
	return Vec2Float{X: v.X * scalar, Y: v.Y * scalar}
}

// ToChunkCoords переводит мировую позицию в координаты чанка.
// Положительные значения округляются вниз, отрицательные вверх,
// поэтому чанк (0,0) покрывает интервал (-chunkSize, chunkSize) по каждой оси.
func (v Vec2Float) ToChunkCoords(chunkSize int) Vec2 {
	return Vec2{X: chunkAxis(v.X, chunkSize), Y: chunkAxis(v.Y, chunkSize)}
}

func chunkAxis(pos float64, chunkSize int) int {
	scaled := pos / float64(chunkSize)
	if pos > 0 {
		return int(math.Floor(scaled))
	}
	return int(math.Ceil(scaled))
}
