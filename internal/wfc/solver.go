// Package wfc реализует упрощённый wave function collapse: клетка с
// наименьшим доменом схлопывается в случайную категорию, а домены её
// четырёх соседей перезаписываются допустимыми по таблице правил.
package wfc

import (
	"math/rand"

	"github.com/annel0/tileworld/internal/tile"
)

// DefaultLoopThreshold ограничивает число схлопываний по умолчанию
const DefaultLoopThreshold = 10000

// Domain — множество категорий, ещё возможных для клетки
type Domain = tile.Set

// Result описывает итог одного запуска решателя
type Result struct {
	// Tiles хранится по столбцам: индекс x*height+y
	Tiles []tile.Category

	Converged      bool // все клетки схлопнуты
	Iterations     int  // число выполненных схлопываний
	Contradictions int  // сколько раз таблица правил не оставила вариантов соседу
}

// Solver не хранит состояния между вызовами Solve
type Solver struct {
	rules         *tile.RuleTable
	loopThreshold int
}

// NewSolver создаёт решатель. Неположительный loopThreshold заменяется значением по умолчанию.
func NewSolver(rules *tile.RuleTable, loopThreshold int) *Solver {
	if rules == nil {
		rules = tile.DefaultRuleTable()
	}
	if loopThreshold <= 0 {
		loopThreshold = DefaultLoopThreshold
	}
	return &Solver{rules: rules, loopThreshold: loopThreshold}
}

// LoopThreshold возвращает бюджет итераций
func (s *Solver) LoopThreshold() int {
	return s.loopThreshold
}

// Solve заполняет сетку width×height. При исчерпании бюджета результат
// всё равно возвращается: каждая клетка берёт первую категорию своего домена.
func (s *Solver) Solve(width, height int, rng *rand.Rand) Result {
	cells := make([]Domain, width*height)
	for i := range cells {
		cells[i] = tile.FullSet
	}

	res := Result{}
	for res.Iterations < s.loopThreshold {
		idx := selectCell(cells, width, height)
		if idx < 0 {
			break
		}

		candidates := cells[idx].Slice()
		chosen := candidates[rng.Intn(len(candidates))]
		cells[idx] = tile.SetOf(chosen)
		res.Iterations++

		res.Contradictions += s.propagate(cells, idx/height, idx%height, width, height, chosen)
	}

	res.Converged = selectCell(cells, width, height) < 0
	res.Tiles = make([]tile.Category, len(cells))
	for i, d := range cells {
		res.Tiles[i], _ = d.First()
	}
	return res
}

// selectCell ищет клетку с наименьшим доменом больше одного элемента.
// Обход построчный (y снаружи, x внутри), при равенстве побеждает первая.
// Возвращает -1, если все клетки схлопнуты.
func selectCell(cells []Domain, width, height int) int {
	best, bestLen := -1, tile.Count+1
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := x*height + y
			n := cells[idx].Len()
			if n > 1 && n < bestLen {
				best, bestLen = idx, n
			}
		}
	}
	return best
}

// propagate перезаписывает домены несхлопнутых соседей. Пустое множество
// допустимых категорий не применяется и считается противоречием.
func (s *Solver) propagate(cells []Domain, x, y, width, height int, collapsed tile.Category) int {
	permitted := s.rules.Permitted(collapsed)
	contradictions := 0

	neighbors := [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}}
	for _, n := range neighbors {
		nx, ny := n[0], n[1]
		if nx < 0 || ny < 0 || nx >= width || ny >= height {
			continue
		}

		idx := nx*height + ny
		if cells[idx].Singleton() {
			continue
		}
		if permitted.Empty() {
			contradictions++
			continue
		}
		cells[idx] = permitted
	}
	return contradictions
}
