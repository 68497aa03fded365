package generation

import (
	"errors"
	"fmt"
	"strings"
)

// Method — способ генерации содержимого чанка
type Method int

const (
	Random Method = iota
	PerlinNoise
	SimplexNoise
	FractalNoise
	DiamondSquare
	MidpointDisplacement
	WaveFunctionCollapse
)

// ErrUnknownMethod возвращается при разборе неизвестного имени метода
var ErrUnknownMethod = errors.New("unknown generation method")

var methodNames = map[Method]string{
	Random:               "random",
	PerlinNoise:          "perlin",
	SimplexNoise:         "simplex",
	FractalNoise:         "fractal",
	DiamondSquare:        "diamond_square",
	MidpointDisplacement: "midpoint",
	WaveFunctionCollapse: "wfc",
}

// Methods возвращает все методы по порядку
func Methods() []Method {
	return []Method{Random, PerlinNoise, SimplexNoise, FractalNoise, DiamondSquare, MidpointDisplacement, WaveFunctionCollapse}
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("method(%d)", int(m))
}

// ParseMethod принимает короткие имена ("perlin", "wfc") и полные имена
// перечисления ("PerlinNoise", "WaveFunctionCollapse") без учёта регистра.
func ParseMethod(s string) (Method, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, "-", "_")

	switch name {
	case "random":
		return Random, nil
	case "perlin", "perlinnoise", "perlin_noise":
		return PerlinNoise, nil
	case "simplex", "simplexnoise", "simplex_noise":
		return SimplexNoise, nil
	case "fractal", "fractalnoise", "fractal_noise":
		return FractalNoise, nil
	case "diamond_square", "diamondsquare", "diamond":
		return DiamondSquare, nil
	case "midpoint", "midpointdisplacement", "midpoint_displacement":
		return MidpointDisplacement, nil
	case "wfc", "wavefunctioncollapse", "wave_function_collapse":
		return WaveFunctionCollapse, nil
	}
	return Random, fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// UnmarshalYAML позволяет задавать метод в конфигурации строкой
func (m *Method) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseMethod(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MarshalYAML записывает метод коротким именем
func (m Method) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}
