package heightmap

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentFor(t *testing.T) {
	cases := map[int]int{
		1:  1,
		3:  1,
		4:  2,
		5:  2,
		16: 4,
		17: 4,
		18: 5,
		32: 5,
	}
	for size, want := range cases {
		k := ExponentFor(size)
		assert.Equal(t, want, k, "size %d", size)
		assert.GreaterOrEqual(t, SideFor(k), size)
	}
}

func TestDiamondSquare_SizeAndToroidalEdges(t *testing.T) {
	m, err := DiamondSquare(5, 0.8, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Equal(t, 33, m.Width)
	require.Equal(t, 33, m.Height)
	require.Len(t, m.Values, 33*33)

	last := m.Width - 1
	for i := 0; i <= last; i++ {
		assert.Equal(t, m.At(0, i), m.At(last, i), "левый и правый край в строке %d", i)
		assert.Equal(t, m.At(i, 0), m.At(i, last), "нижний и верхний край в столбце %d", i)
	}
}

func TestDiamondSquare_Deterministic(t *testing.T) {
	a, err := DiamondSquare(4, 1, rand.New(rand.NewSource(77)))
	require.NoError(t, err)
	b, err := DiamondSquare(4, 1, rand.New(rand.NewSource(77)))
	require.NoError(t, err)

	assert.Equal(t, a.Values, b.Values)
}

func TestDiamondSquare_InvalidExponent(t *testing.T) {
	_, err := DiamondSquare(0, 1, rand.New(rand.NewSource(1)))
	assert.True(t, errors.Is(err, ErrExponent))

	_, err = DiamondSquare(MaxExponent+1, 1, rand.New(rand.NewSource(1)))
	assert.True(t, errors.Is(err, ErrExponent))
}

func assertToroidal(t *testing.T, m *Map) {
	t.Helper()

	lastX, lastY := m.Width-1, m.Height-1
	for y := 0; y <= lastY; y++ {
		assert.Equal(t, m.At(0, y), m.At(lastX, y), "левый и правый край в строке %d", y)
	}
	for x := 0; x <= lastX; x++ {
		assert.Equal(t, m.At(x, 0), m.At(x, lastY), "нижний и верхний край в столбце %d", x)
	}
}

func TestMidpointDisplacement_Rectangular(t *testing.T) {
	m, err := MidpointDisplacement(4, 2, 1.5, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	require.Equal(t, 17, m.Width)
	require.Equal(t, 5, m.Height)

	assertToroidal(t, m)

	// Все точки заполнены: решётка начального шага плюс все подразбиения
	zeros := 0
	for _, v := range m.Values {
		if v == 0 {
			zeros++
		}
	}
	assert.Less(t, zeros, 2)
}

func TestMidpointDisplacement_TallWrapsEdges(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		m, err := MidpointDisplacement(2, 4, 1, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		require.Equal(t, 5, m.Width)
		require.Equal(t, 17, m.Height)

		assertToroidal(t, m)
	}
}

func TestMidpointDisplacement_InvalidExponent(t *testing.T) {
	_, err := MidpointDisplacement(3, 0, 1, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrExponent)
}

func TestCrop(t *testing.T) {
	m, err := DiamondSquare(3, 0.5, rand.New(rand.NewSource(9)))
	require.NoError(t, err)

	g := m.Crop(4, 6)
	require.Equal(t, 4, g.Width)
	require.Equal(t, 6, g.Height)
	for x := 0; x < 4; x++ {
		for y := 0; y < 6; y++ {
			assert.Equal(t, m.At(x, y), g.At(x, y))
		}
	}

	big := m.Crop(100, 100)
	assert.Equal(t, m.Width, big.Width)
	assert.Equal(t, m.Height, big.Height)
}
