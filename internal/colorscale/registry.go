package colorscale

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/sells-group/choropleth/internal/geoerr"
)

// MinColors is the smallest palette size of every family.
const MinColors = 3

// Palette names per kind, best first. Rank r selects names[r-1].
var families = map[Kind][]string{
	Sequential:       {"RdPu", "YlGnBu", "YlOrRd"},
	SequentialSingle: {"Blues", "Greens", "Purples"},
	Divergent:        {"BrBG", "RdBu", "PiYG"},
	Categorical:      {"Dark2", "Set1", "Set3"},
}

var maxColors = map[Kind]int{
	Sequential:       9,
	SequentialSingle: 9,
	Divergent:        11,
	Categorical:      8,
}

// Family describes one selectable palette.
type Family struct {
	Kind      Kind   `json:"kind" yaml:"kind"`
	Name      string `json:"name" yaml:"name"`
	Rank      int    `json:"rank" yaml:"rank"`
	MinColors int    `json:"min_colors" yaml:"min_colors"`
	MaxColors int    `json:"max_colors" yaml:"max_colors"`
}

// Selector picks a palette by name or by 1-based rank within its kind. The
// zero Selector means rank 1.
type Selector struct {
	Name string
	Rank int
}

// ByName selects a palette by name.
func ByName(name string) Selector { return Selector{Name: name} }

// ByRank selects the rank-th palette of a kind.
func ByRank(rank int) Selector { return Selector{Rank: rank} }

// ParseSelector reads "2" as a rank and anything else as a name.
func ParseSelector(s string) Selector {
	s = strings.TrimSpace(s)
	if r, err := strconv.Atoi(s); err == nil {
		return ByRank(r)
	}
	return ByName(s)
}

func (s Selector) String() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Rank == 0 {
		return "1"
	}
	return strconv.Itoa(s.Rank)
}

var (
	registryOnce sync.Once
	registry     map[Kind]map[string]map[int][]string
)

// palettes returns the resolved palette table, building it on first use.
func palettes() map[Kind]map[string]map[int][]string {
	registryOnce.Do(func() {
		registry = buildRegistry()
	})
	return registry
}

func buildRegistry() map[Kind]map[string]map[int][]string {
	reg := make(map[Kind]map[string]map[int][]string, len(families))
	for kind, names := range families {
		reg[kind] = make(map[string]map[int][]string, len(names))
		for _, name := range names {
			sizes := make(map[int][]string)
			for n := MinColors; n <= maxColors[kind]; n++ {
				p := reversed(library(kind, name, n))
				if hex, ok := overrides[name]; ok {
					p[len(p)-1] = hex
				}
				for _, c := range p {
					if _, err := colorful.Hex(c); err != nil {
						panic(fmt.Sprintf("colorscale: bad color %q in %s%d", c, name, n))
					}
				}
				sizes[n] = p
			}
			reg[kind][name] = sizes
		}
	}
	return reg
}

// library returns a palette in the order the charting library ships it:
// sequential and diverging schemes dark to light, qualitative schemes in
// their published order.
func library(kind Kind, name string, n int) []string {
	if kind == Categorical {
		q := qualitative[name]
		if n > len(q) {
			return nil
		}
		return append([]string(nil), q[:n]...)
	}
	return reversed(brewer[name][n])
}

func reversed(p []string) []string {
	out := make([]string, len(p))
	for i, c := range p {
		out[len(p)-1-i] = c
	}
	return out
}

// Families lists every selectable palette grouped by kind in rank order.
func Families() []Family {
	var out []Family
	for _, kind := range Kinds() {
		for i, name := range families[kind] {
			out = append(out, Family{
				Kind:      kind,
				Name:      name,
				Rank:      i + 1,
				MinColors: MinColors,
				MaxColors: maxColors[kind],
			})
		}
	}
	return out
}

// MaxColors returns the largest palette size of kind.
func MaxColors(kind Kind) int { return maxColors[kind] }

// Palette resolves sel for kind at size n. The returned slice is a copy.
func Palette(kind Kind, sel Selector, n int) (string, []string, error) {
	names, ok := families[kind]
	if !ok {
		return "", nil, geoerr.New(geoerr.UnknownScaleKind, string(kind))
	}

	name, err := resolveName(kind, names, sel)
	if err != nil {
		return "", nil, err
	}
	if n < MinColors || n > maxColors[kind] {
		return "", nil, geoerr.Newf(geoerr.InvalidColorCount, strconv.Itoa(n),
			"%s palettes support %d to %d colors", kind, MinColors, maxColors[kind])
	}
	return name, append([]string(nil), palettes()[kind][name][n]...), nil
}

func resolveName(kind Kind, names []string, sel Selector) (string, error) {
	if sel.Name == "" {
		rank := sel.Rank
		if rank == 0 {
			rank = 1
		}
		if rank < 1 || rank > len(names) {
			return "", geoerr.Newf(geoerr.InvalidPalette, strconv.Itoa(rank),
				"%s palettes are ranked 1 to %d", kind, len(names))
		}
		return names[rank-1], nil
	}

	// "Dark2_" is accepted for the categorical names.
	want := strings.TrimSuffix(strings.TrimSpace(sel.Name), "_")
	for _, n := range names {
		if strings.EqualFold(n, want) {
			return n, nil
		}
	}
	return "", geoerr.Newf(geoerr.InvalidPalette, sel.Name, "not a %s palette", kind)
}
