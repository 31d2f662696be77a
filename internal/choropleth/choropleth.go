// Package choropleth runs the join-then-scale pipeline and hands the result
// to renderers as GeoJSON.
package choropleth

import (
	"go.uber.org/zap"

	"github.com/sells-group/choropleth/internal/boundary"
	"github.com/sells-group/choropleth/internal/colorscale"
	"github.com/sells-group/choropleth/internal/geojoin"
	"github.com/sells-group/choropleth/internal/table"
)

// Style is passed through to renderers untouched.
type Style struct {
	Title     string  `json:"title,omitempty" yaml:"title,omitempty"`
	FillAlpha float64 `json:"fill_alpha" yaml:"fill_alpha"`
	LineColor string  `json:"line_color" yaml:"line_color"`
	LineWidth float64 `json:"line_width" yaml:"line_width"`
}

// Options configures Build.
type Options struct {
	Join        geojoin.Options
	ValueColumn string
	Scale       colorscale.Options
	// DropNA removes joined rows whose value is missing before the scale is
	// computed.
	DropNA bool
	Style  Style
}

// Result is a joined, colored table ready for rendering.
type Result struct {
	Table       *geojoin.JoinedTable
	ValueColumn string
	Scale       *colorscale.Scale
	Style       Style
	// Unmatched, UnmatchedCBSA and Blank are the join diagnostics.
	Unmatched     []string
	UnmatchedCBSA []string
	Blank         int
	// Dropped counts rows removed for a missing value.
	Dropped int
}

// Build joins attrs onto b, drops missing values when asked, and derives the
// color scale of the value column.
func Build(b *boundary.Set, attrs *table.Table, opts Options) (*Result, error) {
	if _, err := attrs.MustIndex(opts.ValueColumn); err != nil {
		return nil, err
	}

	joined, err := geojoin.Join(b, attrs, opts.Join)
	if err != nil {
		return nil, err
	}

	jt := joined.Table
	dropped := 0
	if opts.DropNA {
		kept, err := jt.DropMissing(opts.ValueColumn)
		if err != nil {
			return nil, err
		}
		dropped = jt.Len() - kept.Len()
		jt = kept
	}

	values, err := jt.Floats(opts.ValueColumn)
	if err != nil {
		return nil, err
	}
	scale, err := colorscale.Build(values, opts.Scale)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("choropleth built",
		zap.String("value", opts.ValueColumn),
		zap.Int("rows", jt.Len()),
		zap.Int("dropped", dropped),
		zap.String("palette", scale.Palette),
		zap.Float64("low", scale.Low),
		zap.Float64("high", scale.High),
	)

	return &Result{
		Table:         jt,
		ValueColumn:   opts.ValueColumn,
		Scale:         scale,
		Style:         opts.Style,
		Unmatched:     joined.Unmatched,
		UnmatchedCBSA: joined.UnmatchedCBSA,
		Blank:         joined.Blank,
		Dropped:       dropped,
	}, nil
}

// Colors returns the fill color of every row.
func (r *Result) Colors() ([]string, error) {
	values, err := r.Table.Floats(r.ValueColumn)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = r.Scale.Color(v)
	}
	return out, nil
}
