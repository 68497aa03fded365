// Package heightmap строит карты высот методом diamond-square:
// квадратный вариант со стороной 2^k+1 и прямоугольный вариант midpoint
// displacement с независимыми шириной и высотой. Края сворачиваются в тор,
// чтобы значения на границе повторяли противоположную сторону.
package heightmap

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/annel0/tileworld/internal/noise"
)

// MaxExponent ограничивает размер карты (2^12+1 = 4097 по стороне)
const MaxExponent = 12

// Map — карта высот со сторонами вида 2^k+1
type Map struct {
	noise.Grid
}

func newMap(width, height int) *Map {
	return &Map{Grid: *noise.NewGrid(width, height)}
}

// ErrExponent возвращается для показателя степени вне [1, MaxExponent]
var ErrExponent = errors.New("heightmap: exponent out of range")

// SideFor возвращает длину стороны 2^exponent+1
func SideFor(exponent int) int {
	return 1<<exponent + 1
}

// ExponentFor возвращает наименьший k >= 1, при котором 2^k+1 >= size
func ExponentFor(size int) int {
	k := 1
	for SideFor(k) < size && k < MaxExponent {
		k++
	}
	return k
}

func checkExponent(exponent int) error {
	if exponent < 1 || exponent > MaxExponent {
		return fmt.Errorf("%w: %d", ErrExponent, exponent)
	}
	return nil
}

// DiamondSquare строит квадратную карту высот со стороной 2^exponent+1.
// Углы получают одно значение из [0,1), амплитуда смещения начинается
// с roughness и уменьшается вдвое на каждом шаге.
func DiamondSquare(exponent int, roughness float64, rng *rand.Rand) (*Map, error) {
	if err := checkExponent(exponent); err != nil {
		return nil, err
	}

	size := SideFor(exponent)
	m := newMap(size, size)
	last := size - 1

	// На торе все четыре угла совпадают
	m.Set(0, 0, rng.Float64())
	wrapLattice(m, last)

	subdivide(m, last, roughness, rng)
	return m, nil
}

// MidpointDisplacement строит прямоугольную карту (2^widthExp+1)×(2^heightExp+1).
// Начальный шаг равен меньшей стороне. Узлы решётки этого шага получают
// случайную высоту из [0, displacement), последние строка и столбец
// копируют первые.
func MidpointDisplacement(widthExp, heightExp int, displacement float64, rng *rand.Rand) (*Map, error) {
	if err := checkExponent(widthExp); err != nil {
		return nil, err
	}
	if err := checkExponent(heightExp); err != nil {
		return nil, err
	}

	width, height := SideFor(widthExp), SideFor(heightExp)
	m := newMap(width, height)

	step := width - 1
	if height-1 < step {
		step = height - 1
	}

	for x := 0; x < width-1; x += step {
		for y := 0; y < height-1; y += step {
			m.Set(x, y, rng.Float64()*displacement)
		}
	}
	wrapLattice(m, step)

	subdivide(m, step, displacement, rng)
	return m, nil
}

// wrapLattice копирует нулевую строку и столбец решётки шага step на
// противоположные края
func wrapLattice(m *Map, step int) {
	nx, ny := m.Width-1, m.Height-1
	for x := 0; x < nx; x += step {
		m.Set(x, ny, m.At(x, 0))
	}
	for y := 0; y <= ny; y += step {
		m.Set(nx, y, m.At(0, y))
	}
}

// subdivide выполняет чередующиеся шаги diamond и square, пока шаг не станет 1.
// Соседи square-шага берутся по модулю (сторона-1), значения на нулевой
// строке/столбце дублируются на противоположный край.
func subdivide(m *Map, step int, scale float64, rng *rand.Rand) {
	nx, ny := m.Width-1, m.Height-1

	for step > 1 {
		half := step / 2

		// Diamond: центр каждого квадрата
		for x := 0; x < nx; x += step {
			for y := 0; y < ny; y += step {
				avg := (m.At(x, y) + m.At(x+step, y) + m.At(x, y+step) + m.At(x+step, y+step)) / 4
				m.Set(x+half, y+half, avg+offset(rng, scale))
			}
		}

		// Square: середины рёбер
		for x := 0; x < nx; x += half {
			for y := (x + half) % step; y < ny; y += step {
				avg := (m.At((x-half+nx)%nx, y) +
					m.At((x+half)%nx, y) +
					m.At(x, (y+half)%ny) +
					m.At(x, (y-half+ny)%ny)) / 4
				avg += offset(rng, scale)
				m.Set(x, y, avg)

				if x == 0 {
					m.Set(nx, y, avg)
				}
				if y == 0 {
					m.Set(x, ny, avg)
				}
			}
		}

		step /= 2
		scale /= 2
	}
}

func offset(rng *rand.Rand, scale float64) float64 {
	return (rng.Float64()*2 - 1) * scale
}

// Crop вырезает левый нижний угол карты размером width×height
func (m *Map) Crop(width, height int) *noise.Grid {
	if width > m.Width {
		width = m.Width
	}
	if height > m.Height {
		height = m.Height
	}

	out := noise.NewGrid(width, height)
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			out.Set(x, y, m.At(x, y))
		}
	}
	return out
}
