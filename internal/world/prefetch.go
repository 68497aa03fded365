package world

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/annel0/tileworld/internal/vec"
)

// Prefetch заранее генерирует чанки в хранилище, не загружая их в окно.
// Работает параллельно в workers горутинах; координата, уже
// генерирующаяся в другом вызове, не генерируется повторно.
func (s *Streamer) Prefetch(ctx context.Context, coords []vec.Vec2, workers int) error {
	if workers <= 0 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, coord := range coords {
		coord := coord
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, _, err := s.ensureChunk(coord)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.Debug("Prefetch: подготовлено %d чанков", len(coords))
	return nil
}

// Ring возвращает координаты кольца шириной width вокруг окна с центром
// в center: чанки, которые понадобятся при следующем сдвиге наблюдателя.
func Ring(center vec.Vec2, ext Extent, width int) []vec.Vec2 {
	var out []vec.Vec2
	for dx := -ext.HalfWidth - width; dx < ext.HalfWidth+width; dx++ {
		for dy := -ext.HalfHeight - width; dy < ext.HalfHeight+width; dy++ {
			inside := dx >= -ext.HalfWidth && dx < ext.HalfWidth && dy >= -ext.HalfHeight && dy < ext.HalfHeight
			if !inside {
				out = append(out, center.Add(vec.Vec2{X: dx, Y: dy}))
			}
		}
	}
	return out
}
