package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/annel0/tileworld/internal/tile"
	"github.com/annel0/tileworld/internal/vec"
)

// Символы категорий от глубокой воды до вершин
var tileGlyphs = [tile.Count]byte{'~', '=', '-', '.', ',', '*', '"', ';', 'n', '^', 'A'}

// asciiSink хранит отображаемые тайлы и рисует их текстом
type asciiSink struct {
	mu      sync.Mutex
	tiles   map[vec.Vec2]tile.Category
	loaded  int
	cleared int
}

func newASCIISink() *asciiSink {
	return &asciiSink{tiles: make(map[vec.Vec2]tile.Category)}
}

func (s *asciiSink) OnTileLoaded(pos vec.Vec2, c tile.Category) {
	s.mu.Lock()
	s.tiles[pos] = c
	s.loaded++
	s.mu.Unlock()
}

func (s *asciiSink) OnTileUnloaded(pos vec.Vec2) {
	s.mu.Lock()
	delete(s.tiles, pos)
	s.mu.Unlock()
}

func (s *asciiSink) OnTilemapCleared() {
	s.mu.Lock()
	s.tiles = make(map[vec.Vec2]tile.Category)
	s.cleared++
	s.mu.Unlock()
}

// Render рисует видимые тайлы; ось Y направлена вверх
func (s *asciiSink) Render(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.tiles) == 0 {
		_, err := fmt.Fprintln(w, "(пусто)")
		return err
	}

	first := true
	var min, max vec.Vec2
	for pos := range s.tiles {
		if first {
			min, max = pos, pos
			first = false
			continue
		}
		if pos.X < min.X {
			min.X = pos.X
		}
		if pos.Y < min.Y {
			min.Y = pos.Y
		}
		if pos.X > max.X {
			max.X = pos.X
		}
		if pos.Y > max.Y {
			max.Y = pos.Y
		}
	}

	var sb strings.Builder
	for y := max.Y; y >= min.Y; y-- {
		for x := min.X; x <= max.X; x++ {
			c, ok := s.tiles[vec.Vec2{X: x, Y: y}]
			if !ok || !c.Valid() {
				sb.WriteByte(' ')
				continue
			}
			sb.WriteByte(tileGlyphs[c])
		}
		sb.WriteByte('\n')
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// Legend возвращает расшифровку символов
func Legend() string {
	parts := make([]string, 0, tile.Count)
	for _, c := range tile.All() {
		parts = append(parts, fmt.Sprintf("%c=%s", tileGlyphs[c], c))
	}
	return strings.Join(parts, " ")
}
