package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/annel0/tileworld/internal/tile"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestASCIISink_Render(t *testing.T) {
	sink := newASCIISink()
	sink.OnTileLoaded(vec.Vec2{X: 0, Y: 0}, tile.WaterDeep)
	sink.OnTileLoaded(vec.Vec2{X: 1, Y: 0}, tile.Desert)
	sink.OnTileLoaded(vec.Vec2{X: 0, Y: 1}, tile.MountainTop)

	var buf bytes.Buffer
	require.NoError(t, sink.Render(&buf))
	assert.Equal(t, "A \n~.\n", buf.String())

	sink.OnTileUnloaded(vec.Vec2{X: 0, Y: 1})
	buf.Reset()
	require.NoError(t, sink.Render(&buf))
	assert.Equal(t, "~.\n", buf.String())

	sink.OnTilemapCleared()
	buf.Reset()
	require.NoError(t, sink.Render(&buf))
	assert.Equal(t, "(пусто)\n", buf.String())
}

func TestASCIISink_WithStreamer(t *testing.T) {
	sink := newASCIISink()

	s := world.NewStreamer(world.StreamerConfig{
		ChunkSize:         2,
		UseCustomGridSize: true,
		CustomGridWidth:   2,
		CustomGridHeight:  2,
	}, constGenerator(tile.Grass), nil, sink, nil)
	require.NoError(t, s.GenerateInitial())

	var buf bytes.Buffer
	require.NoError(t, sink.Render(&buf))
	assert.Equal(t, strings.Repeat(",,,,\n", 4), buf.String())
}

type constGenerator tile.Category

func (c constGenerator) GenerateTiles(_ vec.Vec2, size int) []tile.Category {
	tiles := make([]tile.Category, size*size)
	for i := range tiles {
		tiles[i] = tile.Category(c)
	}
	return tiles
}

func TestParseVelocity(t *testing.T) {
	v, err := parseVelocity("1.5, -2")
	require.NoError(t, err)
	assert.Equal(t, vec.Vec2Float{X: 1.5, Y: -2}, v)

	_, err = parseVelocity("1")
	assert.Error(t, err)
	_, err = parseVelocity("a,b")
	assert.Error(t, err)
}

func TestLegend(t *testing.T) {
	legend := Legend()
	assert.Contains(t, legend, "~=WaterDeep")
	assert.Contains(t, legend, "A=MountainTop")
}

func TestWalker(t *testing.T) {
	w := &walker{velocity: vec.Vec2Float{X: 2, Y: -1}}
	w.step()
	w.step()
	assert.Equal(t, vec.Vec2Float{X: 4, Y: -2}, w.ViewpointPosition())
}
