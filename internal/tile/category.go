package tile

import (
	"fmt"
	"math/bits"
	"strings"
)

// Category — тип местности тайла. Порядок значим: полосы квантования
// нарезаются по этому упорядоченному набору от глубокой воды до вершин гор.
type Category uint8

const (
	WaterDeep Category = iota
	Water
	WaterShallow
	Desert
	Grass
	GrassFlowers
	GrassBush
	GrassRock
	MountainFoot
	Mountain
	MountainTop
)

// Count равен количеству категорий тайлов
const Count = int(MountainTop) + 1

var categoryNames = [Count]string{
	"WaterDeep",
	"Water",
	"WaterShallow",
	"Desert",
	"Grass",
	"GrassFlowers",
	"GrassBush",
	"GrassRock",
	"MountainFoot",
	"Mountain",
	"MountainTop",
}

// All возвращает все категории в порядке возрастания
func All() []Category {
	out := make([]Category, Count)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

// Valid проверяет, что значение входит в закрытый набор категорий
func (c Category) Valid() bool {
	return int(c) < Count
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Category(%d)", uint8(c))
	}
	return categoryNames[c]
}

// ParseCategory разбирает имя категории без учёта регистра
func ParseCategory(name string) (Category, error) {
	trimmed := strings.TrimSpace(name)
	for i, n := range categoryNames {
		if strings.EqualFold(n, trimmed) {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("неизвестная категория тайла: %q", name)
}

// UnmarshalYAML позволяет указывать категории в YAML по имени
func (c *Category) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	parsed, err := ParseCategory(name)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Set — битовое множество категорий
type Set uint32

// FullSet содержит все категории
const FullSet Set = (1 << Count) - 1

// SetOf собирает множество из перечисленных категорий
func SetOf(categories ...Category) Set {
	var s Set
	for _, c := range categories {
		s = s.With(c)
	}
	return s
}

func (s Set) With(c Category) Set { return s | 1<<c }
func (s Set) Has(c Category) bool { return s&(1<<c) != 0 }
func (s Set) Len() int { return bits.OnesCount32(uint32(s)) }
func (s Set) Empty() bool { return s == 0 }
func (s Set) Intersect(o Set) Set { return s & o }
func (s Set) Singleton() bool { return s.Len() == 1 }

// First возвращает категорию с наименьшим порядковым номером.
// Для пустого множества возвращает WaterDeep и false.
func (s Set) First() (Category, bool) {
	if s == 0 {
		return 0, false
	}
	return Category(bits.TrailingZeros32(uint32(s))), true
}

// Slice возвращает категории множества по возрастанию
func (s Set) Slice() []Category {
	out := make([]Category, 0, s.Len())
	for c := Category(0); int(c) < Count; c++ {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}
