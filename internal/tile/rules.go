package tile

import (
	"github.com/annel0/tileworld/internal/logging"
)

// Neighbor задаёт шанс (0–100) появления соседней категории
type Neighbor struct {
	Category Category `yaml:"category"`
	Chance   int      `yaml:"chance"`
}

// RuleEntry — правила соседства для одной категории
type RuleEntry struct {
	Category          Category   `yaml:"category"`
	CanBeNextToItself bool       `yaml:"can_be_next_to_itself"`
	Neighbors         []Neighbor `yaml:"neighbors"`

	// Заполняются при валидации
	CumulativeChance int `yaml:"-"`
	NextSelfChance   int `yaml:"-"`
}

// Warning описывает некритичное замечание валидации таблицы правил
type Warning struct {
	Category Category
	Message  string
}

func (w Warning) String() string {
	return w.Category.String() + ": " + w.Message
}

// RuleTable хранит правила соседства для всех категорий
type RuleTable struct {
	entries [Count]RuleEntry
}

// NewRuleTable создаёт таблицу; категории без записи получают правило
// "может соседствовать с собой" без явных соседей.
func NewRuleTable(entries []RuleEntry) *RuleTable {
	rt := &RuleTable{}
	for _, c := range All() {
		rt.entries[c] = RuleEntry{Category: c, CanBeNextToItself: true, NextSelfChance: 100}
	}
	for _, e := range entries {
		if !e.Category.Valid() {
			continue
		}
		e.Neighbors = append([]Neighbor(nil), e.Neighbors...)
		rt.entries[e.Category] = e
	}
	return rt
}

// Entry возвращает правило для категории
func (rt *RuleTable) Entry(c Category) RuleEntry {
	if !c.Valid() {
		return RuleEntry{Category: c}
	}
	return rt.entries[c]
}

// Permitted возвращает множество категорий, допустимых рядом с c:
// объявленные соседи плюс сама c, если ей разрешено соседство с собой.
func (rt *RuleTable) Permitted(c Category) Set {
	entry := rt.Entry(c)

	var s Set
	for _, n := range entry.Neighbors {
		if n.Category.Valid() {
			s = s.With(n.Category)
		}
	}
	if entry.CanBeNextToItself {
		s = s.With(c)
	}
	return s
}

// Validate проверяет суммы шансов и сохраняет CumulativeChance/NextSelfChance.
// Значения не ограничиваются; предупреждения только логируются.
func (rt *RuleTable) Validate() []Warning {
	logger := logging.GetRulesLogger()
	var warnings []Warning

	for i := range rt.entries {
		entry := &rt.entries[i]

		cumulative := 0
		for _, n := range entry.Neighbors {
			cumulative += n.Chance
		}
		entry.CumulativeChance = cumulative

		if entry.CanBeNextToItself {
			entry.NextSelfChance = 100 - cumulative
			if entry.NextSelfChance < 0 {
				warnings = append(warnings, Warning{
					Category: entry.Category,
					Message:  "next self chance is too low",
				})
			}
		} else {
			entry.NextSelfChance = 0
			if cumulative != 100 {
				warnings = append(warnings, Warning{
					Category: entry.Category,
					Message:  "cumulative chance isn't 100",
				})
			}
		}
	}

	for _, w := range warnings {
		logger.Warn("Правило тайла %s (сумма шансов %d)", w.String(), rt.entries[w.Category].CumulativeChance)
	}

	return warnings
}

// DefaultRuleTable — встроенная таблица: каждая категория может граничить
// с собой и с соседями по порядку (вода → песок → трава → горы).
func DefaultRuleTable() *RuleTable {
	entries := make([]RuleEntry, 0, Count)
	for _, c := range All() {
		entry := RuleEntry{Category: c, CanBeNextToItself: true}
		if c > 0 {
			entry.Neighbors = append(entry.Neighbors, Neighbor{Category: c - 1, Chance: 20})
		}
		if int(c) < Count-1 {
			entry.Neighbors = append(entry.Neighbors, Neighbor{Category: c + 1, Chance: 20})
		}
		entries = append(entries, entry)
	}

	rt := NewRuleTable(entries)
	rt.Validate()
	return rt
}

// UniformRuleTable разрешает соседство любой категории с любой с равными шансами
func UniformRuleTable() *RuleTable {
	entries := make([]RuleEntry, 0, Count)
	chance := 100 / Count
	for _, c := range All() {
		entry := RuleEntry{Category: c, CanBeNextToItself: true}
		for _, other := range All() {
			if other != c {
				entry.Neighbors = append(entry.Neighbors, Neighbor{Category: other, Chance: chance})
			}
		}
		entries = append(entries, entry)
	}
	return NewRuleTable(entries)
}
