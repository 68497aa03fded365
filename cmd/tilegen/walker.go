package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/annel0/tileworld/internal/vec"
)

// walker двигает наблюдателя с постоянной скоростью; опрашивается стримером в Tick
type walker struct {
	pos      vec.Vec2Float
	velocity vec.Vec2Float
}

func (w *walker) ViewpointPosition() vec.Vec2Float {
	return w.pos
}

func (w *walker) step() {
	w.pos = w.pos.Add(w.velocity)
}

// parseVelocity разбирает строку вида "1.5,-2"
func parseVelocity(s string) (vec.Vec2Float, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return vec.Vec2Float{}, fmt.Errorf("ожидалось \"dx,dy\", получено %q", s)
	}

	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return vec.Vec2Float{}, fmt.Errorf("dx: %w", err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return vec.Vec2Float{}, fmt.Errorf("dy: %w", err)
	}
	return vec.Vec2Float{X: x, Y: y}, nil
}
