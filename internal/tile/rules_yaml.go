package tile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ruleFile — формат YAML-файла с правилами соседства
type ruleFile struct {
	Tiles []RuleEntry `yaml:"tiles"`
}

// ParseRuleTable разбирает таблицу правил из YAML и валидирует её
func ParseRuleTable(data []byte) (*RuleTable, []Warning, error) {
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, nil, fmt.Errorf("ошибка разбора правил тайлов: %w", err)
	}

	seen := make(map[Category]bool, len(rf.Tiles))
	for _, entry := range rf.Tiles {
		if seen[entry.Category] {
			return nil, nil, fmt.Errorf("категория %s описана дважды", entry.Category)
		}
		seen[entry.Category] = true
	}

	rt := NewRuleTable(rf.Tiles)
	warnings := rt.Validate()
	return rt, warnings, nil
}

// LoadRuleTable читает YAML-файл правил с диска
func LoadRuleTable(path string) (*RuleTable, []Warning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка чтения файла правил %s: %w", path, err)
	}
	return ParseRuleTable(data)
}
