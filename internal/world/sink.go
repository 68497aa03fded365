package world

import (
	"github.com/annel0/tileworld/internal/tile"
	"github.com/annel0/tileworld/internal/vec"
)

// RenderSink получает уведомления о появлении и исчезновении тайлов
type RenderSink interface {
	OnTileLoaded(pos vec.Vec2, c tile.Category)
	OnTileUnloaded(pos vec.Vec2)
	OnTilemapCleared()
}

// NopSink игнорирует все уведомления
type NopSink struct{}

func (NopSink) OnTileLoaded(vec.Vec2, tile.Category) {}
func (NopSink) OnTileUnloaded(vec.Vec2)              {}
func (NopSink) OnTilemapCleared()                    {}

// Viewport — размеры экрана в пикселях и плотность
type Viewport struct {
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	PixelRatio    float64 `yaml:"pixel_ratio"`
	PixelsPerUnit int     `yaml:"pixels_per_unit"`
}

// ViewportProvider нужен только для автоматического расчёта размера сетки
type ViewportProvider interface {
	Viewport() Viewport
}

// StaticViewport возвращает неизменный Viewport
type StaticViewport Viewport

func (v StaticViewport) Viewport() Viewport {
	return Viewport(v)
}

// ViewpointSource опрашивается в Tick для получения позиции наблюдателя
type ViewpointSource interface {
	ViewpointPosition() vec.Vec2Float
}

// ViewpointFunc позволяет использовать функцию как ViewpointSource
type ViewpointFunc func() vec.Vec2Float

func (f ViewpointFunc) ViewpointPosition() vec.Vec2Float {
	return f()
}
