package config

import (
	"github.com/spf13/viper"

	"github.com/sells-group/choropleth/internal/choropleth"
	"github.com/sells-group/choropleth/internal/colorscale"
	"github.com/sells-group/choropleth/internal/geojoin"
)

// Format holds the caller-level defaults for building a choropleth.
type Format struct {
	Kind      string   `yaml:"kind" mapstructure:"kind" json:"kind"`
	Mapping   string   `yaml:"mapping" mapstructure:"mapping" json:"mapping"`
	NColors   int      `yaml:"ncolors" mapstructure:"ncolors" json:"ncolors"`
	Palette   string   `yaml:"palette" mapstructure:"palette" json:"palette"`
	CbarMin   *float64 `yaml:"cbar_min" mapstructure:"cbar_min" json:"cbar_min,omitempty"`
	CbarMax   *float64 `yaml:"cbar_max" mapstructure:"cbar_max" json:"cbar_max,omitempty"`
	DropNA    bool     `yaml:"dropna" mapstructure:"dropna" json:"dropna"`
	NaNColor  string   `yaml:"nan_color" mapstructure:"nan_color" json:"nan_color"`
	How       string   `yaml:"how" mapstructure:"how" json:"how"`
	Title     string   `yaml:"title" mapstructure:"title" json:"title"`
	FillAlpha float64  `yaml:"fill_alpha" mapstructure:"fill_alpha" json:"fill_alpha"`
	LineColor string   `yaml:"line_color" mapstructure:"line_color" json:"line_color"`
	LineWidth float64  `yaml:"line_width" mapstructure:"line_width" json:"line_width"`
}

// FormatOverrides carries per-call settings. Nil fields keep the base value.
type FormatOverrides struct {
	Kind      *string  `json:"kind,omitempty"`
	Mapping   *string  `json:"mapping,omitempty"`
	NColors   *int     `json:"ncolors,omitempty"`
	Palette   *string  `json:"palette,omitempty"`
	CbarMin   *float64 `json:"cbar_min,omitempty"`
	CbarMax   *float64 `json:"cbar_max,omitempty"`
	DropNA    *bool    `json:"dropna,omitempty"`
	NaNColor  *string  `json:"nan_color,omitempty"`
	How       *string  `json:"how,omitempty"`
	Title     *string  `json:"title,omitempty"`
	FillAlpha *float64 `json:"fill_alpha,omitempty"`
	LineColor *string  `json:"line_color,omitempty"`
	LineWidth *float64 `json:"line_width,omitempty"`
}

// DefaultFormat returns the built-in format defaults.
func DefaultFormat() Format {
	return Format{
		Kind:      string(colorscale.Sequential),
		Mapping:   string(colorscale.Linear),
		NColors:   colorscale.DefaultColors,
		Palette:   "1",
		DropNA:    true,
		NaNColor:  colorscale.DefaultNaNColor,
		How:       string(geojoin.Inner),
		FillAlpha: 0.8,
		LineColor: "#d3d3d3",
		LineWidth: 0.5,
	}
}

func setFormatDefaults(v *viper.Viper) {
	d := DefaultFormat()
	v.SetDefault("format.kind", d.Kind)
	v.SetDefault("format.mapping", d.Mapping)
	v.SetDefault("format.ncolors", d.NColors)
	v.SetDefault("format.palette", d.Palette)
	v.SetDefault("format.dropna", d.DropNA)
	v.SetDefault("format.nan_color", d.NaNColor)
	v.SetDefault("format.how", d.How)
	v.SetDefault("format.title", d.Title)
	v.SetDefault("format.fill_alpha", d.FillAlpha)
	v.SetDefault("format.line_color", d.LineColor)
	v.SetDefault("format.line_width", d.LineWidth)
}

// Merge returns base with every non-nil override applied. Neither argument
// is modified.
func Merge(base Format, o FormatOverrides) Format {
	out := base
	if o.Kind != nil {
		out.Kind = *o.Kind
	}
	if o.Mapping != nil {
		out.Mapping = *o.Mapping
	}
	if o.NColors != nil {
		out.NColors = *o.NColors
	}
	if o.Palette != nil {
		out.Palette = *o.Palette
	}
	if o.CbarMin != nil {
		out.CbarMin = floatPtr(*o.CbarMin)
	} else if base.CbarMin != nil {
		out.CbarMin = floatPtr(*base.CbarMin)
	}
	if o.CbarMax != nil {
		out.CbarMax = floatPtr(*o.CbarMax)
	} else if base.CbarMax != nil {
		out.CbarMax = floatPtr(*base.CbarMax)
	}
	if o.DropNA != nil {
		out.DropNA = *o.DropNA
	}
	if o.NaNColor != nil {
		out.NaNColor = *o.NaNColor
	}
	if o.How != nil {
		out.How = *o.How
	}
	if o.Title != nil {
		out.Title = *o.Title
	}
	if o.FillAlpha != nil {
		out.FillAlpha = *o.FillAlpha
	}
	if o.LineColor != nil {
		out.LineColor = *o.LineColor
	}
	if o.LineWidth != nil {
		out.LineWidth = *o.LineWidth
	}
	return out
}

func floatPtr(f float64) *float64 { return &f }

// ScaleOptions converts the format into color scale options.
func (f Format) ScaleOptions() colorscale.Options {
	return colorscale.Options{
		Kind:     colorscale.Kind(f.Kind),
		Low:      f.CbarMin,
		High:     f.CbarMax,
		Palette:  colorscale.ParseSelector(f.Palette),
		NColors:  f.NColors,
		Mapping:  colorscale.Mapping(f.Mapping),
		NaNColor: f.NaNColor,
	}
}

// Style returns the pass-through styling values.
func (f Format) Style() choropleth.Style {
	return choropleth.Style{
		Title:     f.Title,
		FillAlpha: f.FillAlpha,
		LineColor: f.LineColor,
		LineWidth: f.LineWidth,
	}
}

// ChoroplethOptions combines join settings with the format into pipeline
// options. The join mode comes from the format when join.How is empty.
func (f Format) ChoroplethOptions(join geojoin.Options, valueColumn string) choropleth.Options {
	if join.How == "" {
		join.How = geojoin.How(f.How)
	}
	return choropleth.Options{
		Join:        join,
		ValueColumn: valueColumn,
		Scale:       f.ScaleOptions(),
		DropNA:      f.DropNA,
		Style:       f.Style(),
	}
}
