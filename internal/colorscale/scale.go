// Package colorscale derives palette-indexed color scales for choropleth
// values.
package colorscale

import (
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/sells-group/choropleth/internal/geoerr"
)

// Kind is a scale kind.
type Kind string

// Scale kinds.
const (
	Sequential       Kind = "sequential"
	SequentialSingle Kind = "sequential_single"
	Divergent        Kind = "divergent"
	Categorical      Kind = "categorical"
)

// Kinds lists every scale kind.
func Kinds() []Kind {
	return []Kind{Sequential, SequentialSingle, Divergent, Categorical}
}

// ParseKind validates a scale kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := families[k]; !ok {
		return "", geoerr.New(geoerr.UnknownScaleKind, s)
	}
	return k, nil
}

// Mapping is how values map onto palette positions.
type Mapping string

// Mappings.
const (
	Linear Mapping = "lin"
	Log    Mapping = "log"
)

// ParseMapping validates a mapping. Empty means Linear.
func ParseMapping(s string) (Mapping, error) {
	switch m := Mapping(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return Linear, nil
	case Linear, Log:
		return m, nil
	}
	return "", geoerr.Newf(geoerr.UnknownScaleKind, s, "mapping must be lin or log")
}

// Defaults applied by Build for zero-valued options.
const (
	DefaultColors   = 7
	DefaultNaNColor = "#808080"
)

// Options configures Build.
type Options struct {
	Kind Kind
	// Low and High override the bounds computed from the values.
	Low  *float64
	High *float64
	// Palette selects the palette; the zero value means rank 1.
	Palette Selector
	// NColors is the palette size; zero means DefaultColors.
	NColors int
	// Mapping is lin or log; empty means lin.
	Mapping Mapping
	// NaNColor colors missing values; empty means DefaultNaNColor.
	NaNColor string
}

// Scale maps values onto a palette.
type Scale struct {
	Kind     Kind     `json:"kind" yaml:"kind"`
	Palette  string   `json:"palette" yaml:"palette"`
	Colors   []string `json:"colors" yaml:"colors"`
	Low      float64  `json:"low" yaml:"low"`
	High     float64  `json:"high" yaml:"high"`
	Mapping  Mapping  `json:"mapping" yaml:"mapping"`
	NaNColor string   `json:"nan_color" yaml:"nan_color"`
}

// Build resolves the palette and bounds for values. NaN and infinite values
// are ignored when computing bounds.
func Build(values []float64, opts Options) (*Scale, error) {
	kind, err := ParseKind(string(opts.Kind))
	if err != nil {
		return nil, err
	}
	mapping, err := ParseMapping(string(opts.Mapping))
	if err != nil {
		return nil, err
	}

	n := opts.NColors
	if n == 0 {
		n = DefaultColors
	}
	name, colors, err := Palette(kind, opts.Palette, n)
	if err != nil {
		return nil, err
	}

	nanColor := opts.NaNColor
	if nanColor == "" {
		nanColor = DefaultNaNColor
	}
	c, err := colorful.Hex(nanColor)
	if err != nil {
		return nil, geoerr.Newf(geoerr.InvalidPalette, nanColor, "nan color is not a hex color")
	}
	nanColor = c.Hex()

	low, high, ok := bounds(values)
	if opts.Low != nil {
		low = *opts.Low
	}
	if opts.High != nil {
		high = *opts.High
	}
	if !ok && (opts.Low == nil || opts.High == nil) {
		return nil, geoerr.Newf(geoerr.InvalidDomain, "", "no finite values and no explicit bounds")
	}
	if math.IsNaN(low) || math.IsNaN(high) || math.IsInf(low, 0) || math.IsInf(high, 0) {
		return nil, geoerr.Newf(geoerr.InvalidDomain, formatFloat(low)+".."+formatFloat(high), "bounds must be finite")
	}
	if low > high {
		return nil, geoerr.Newf(geoerr.InvalidDomain, formatFloat(low)+".."+formatFloat(high), "low exceeds high")
	}
	if mapping == Log && low <= 0 {
		return nil, geoerr.Newf(geoerr.InvalidDomain, formatFloat(low), "log mapping needs low > 0")
	}

	return &Scale{
		Kind:     kind,
		Palette:  name,
		Colors:   colors,
		Low:      low,
		High:     high,
		Mapping:  mapping,
		NaNColor: nanColor,
	}, nil
}

func bounds(values []float64) (low, high float64, ok bool) {
	low, high = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		low = math.Min(low, v)
		high = math.Max(high, v)
		ok = true
	}
	return low, high, ok
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Len returns the number of palette colors.
func (s *Scale) Len() int { return len(s.Colors) }

// position maps v onto [0,1] of the domain, unclamped.
func (s *Scale) position(v float64) float64 {
	lo, hi := s.Low, s.High
	if s.Mapping == Log {
		if v <= 0 {
			return math.Inf(-1)
		}
		lo, hi, v = math.Log(lo), math.Log(hi), math.Log(v)
	}
	if hi == lo {
		return 0
	}
	return (v - lo) / (hi - lo)
}

// Index returns the palette index of v, or -1 for NaN. Values outside the
// bounds clamp to the first or last color.
func (s *Scale) Index(v float64) int {
	if math.IsNaN(v) {
		return -1
	}
	n := len(s.Colors)
	p := math.Max(0, math.Min(1, s.position(v)))
	return min(int(math.Floor(p*float64(n))), n-1)
}

// Color returns the palette color of v.
func (s *Scale) Color(v float64) string {
	i := s.Index(v)
	if i < 0 {
		return s.NaNColor
	}
	return s.Colors[i]
}

// Ticks returns the Len()+1 bin edges from Low to High.
func (s *Scale) Ticks() []float64 {
	n := len(s.Colors)
	out := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		f := float64(i) / float64(n)
		if s.Mapping == Log {
			out[i] = math.Exp(math.Log(s.Low) + f*(math.Log(s.High)-math.Log(s.Low)))
		} else {
			out[i] = s.Low + (s.High-s.Low)*float64(i)/float64(n)
		}
	}
	out[0], out[n] = s.Low, s.High
	return out
}

// Blend returns a continuous color for v, interpolated in CIE L*a*b*
// between palette stops.
func (s *Scale) Blend(v float64) string {
	if math.IsNaN(v) {
		return s.NaNColor
	}
	p := math.Max(0, math.Min(1, s.position(v)))
	if len(s.Colors) == 1 {
		return s.Colors[0]
	}
	seg := p * float64(len(s.Colors)-1)
	i := int(math.Floor(seg))
	if i >= len(s.Colors)-1 {
		return s.Colors[len(s.Colors)-1]
	}
	if seg == float64(i) {
		return s.Colors[i]
	}
	a, errA := colorful.Hex(s.Colors[i])
	b, errB := colorful.Hex(s.Colors[i+1])
	if errA != nil || errB != nil {
		return s.Colors[i]
	}
	return a.BlendLab(b, seg-float64(i)).Clamped().Hex()
}
