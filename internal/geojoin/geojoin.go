// Package geojoin joins caller attribute tables onto boundary sets by a
// declared geographic identifier.
package geojoin

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/choropleth/internal/boundary"
	"github.com/sells-group/choropleth/internal/crosswalk"
	"github.com/sells-group/choropleth/internal/geoerr"
	"github.com/sells-group/choropleth/internal/geoid"
	"github.com/sells-group/choropleth/internal/table"
)

// How is a relational join mode.
type How string

// Join modes.
const (
	Inner How = "inner"
	Left  How = "left"
	Right How = "right"
	Outer How = "outer"
)

// DefaultSuffix is appended to boundary columns that collide with caller
// columns.
const DefaultSuffix = "_shape"

// unmatchedSample bounds how many unmatched identifiers are logged.
const unmatchedSample = 10

// ParseHow validates a join mode.
func ParseHow(s string) (How, error) {
	switch h := How(strings.ToLower(strings.TrimSpace(s))); h {
	case Inner, Left, Right, Outer:
		return h, nil
	}
	return "", geoerr.New(geoerr.UnknownJoinMode, s)
}

// Options configures a join.
type Options struct {
	IDColumn string
	IDType   geoid.IDType
	// Level selects the boundary key. Empty uses the boundary set's level.
	Level geoid.Level
	How   How
	// Crosswalk is required when IDType is cbsa.
	Crosswalk *crosswalk.Table
	// Suffix renames colliding boundary columns. Empty means DefaultSuffix.
	Suffix string
	// NameSuffixes overrides the descriptor set stripped from names.
	NameSuffixes geoid.SuffixSet
}

// Result is a joined table plus its diagnostics.
type Result struct {
	Table *JoinedTable
	// IDColumn is the identifier column actually joined on ("fips" after a
	// CBSA expansion).
	IDColumn string
	// Unmatched holds the distinct identifier values with no boundary, sorted.
	// Right and outer joins still emit those rows, with nil geometry.
	Unmatched []string
	// UnmatchedCBSA holds CBSA codes the crosswalk did not know, sorted.
	UnmatchedCBSA []string
	// Blank counts attribute rows whose identifier was empty. They never
	// match a boundary.
	Blank int
}

// Join merges attrs onto b. An empty How means inner.
func Join(b *boundary.Set, attrs *table.Table, opts Options) (*Result, error) {
	if opts.How == "" {
		opts.How = Inner
	}
	return Merge(b, attrs, opts)
}

// Merge merges attrs onto b with an explicit join mode. Neither input is
// modified.
func Merge(b *boundary.Set, attrs *table.Table, opts Options) (*Result, error) {
	how, err := ParseHow(string(opts.How))
	if err != nil {
		return nil, err
	}
	level := opts.Level
	if level == "" {
		level = b.Level
	}
	if level, err = geoid.ParseLevel(string(level)); err != nil {
		return nil, err
	}
	if level != b.Level {
		return nil, geoerr.Newf(geoerr.UnsupportedCombination, string(level),
			"boundary set is %s level", b.Level)
	}
	idType, err := geoid.ParseIDType(string(opts.IDType))
	if err != nil {
		return nil, err
	}
	if _, err := attrs.MustIndex(opts.IDColumn); err != nil {
		return nil, err
	}

	idCol := opts.IDColumn
	var (
		unmatchedCBSA []string
		blankCBSA     int
	)
	switch idType {
	case geoid.IDName:
		suffixes := opts.NameSuffixes
		attrs, err = attrs.Map(idCol, func(s string) string { return geoid.NormalizeName(s, suffixes) })
	case geoid.IDAbbrev:
		attrs, err = attrs.Map(idCol, geoid.NormalizeAbbrev)
	case geoid.IDFIPS:
		width := level.FIPSWidth()
		attrs, err = attrs.Map(idCol, func(s string) string { return geoid.PadFIPS(s, width) })
	case geoid.IDCBSA:
		if level != geoid.LevelCounty {
			return nil, geoerr.Newf(geoerr.UnsupportedCombination, string(idType),
				"cbsa identifiers expand to counties, not %s", level)
		}
		if opts.Crosswalk == nil {
			return nil, geoerr.Newf(geoerr.UnsupportedCombination, string(idType), "no crosswalk loaded")
		}
		exp, expErr := crosswalk.Expand(opts.Crosswalk, attrs, idCol)
		if expErr != nil {
			return nil, expErr
		}
		attrs, idCol, idType = exp.Table, exp.FIPSColumn, geoid.IDFIPS
		unmatchedCBSA, blankCBSA = exp.Unmatched, exp.Blank
	}
	if err != nil {
		return nil, err
	}

	key, err := geoid.JoinKey(level, idType)
	if err != nil {
		return nil, err
	}
	if !b.Has(key) {
		return nil, geoerr.Newf(geoerr.MissingColumn, key, "boundary set has no such field")
	}

	suffix := opts.Suffix
	if suffix == "" {
		suffix = DefaultSuffix
	}

	j := newJoiner(b, attrs, key, idCol, suffix)
	joined := j.run(how)

	res := &Result{
		Table:         joined,
		IDColumn:      idCol,
		Unmatched:     j.unmatched(),
		UnmatchedCBSA: unmatchedCBSA,
		Blank:         j.blank() + blankCBSA,
	}
	logDiagnostics(res, level, idType)
	return res, nil
}

func logDiagnostics(res *Result, level geoid.Level, idType geoid.IDType) {
	log := zap.L().With(zap.String("component", "geojoin"))
	if n := len(res.Unmatched); n > 0 {
		log.Warn("areas with no shape found",
			zap.String("level", string(level)),
			zap.String("id_type", string(idType)),
			zap.Int("count", n),
			zap.Strings("sample", sample(res.Unmatched)),
		)
	}
	if res.Blank > 0 {
		log.Warn("rows with a blank identifier",
			zap.String("id_type", string(idType)),
			zap.Int("count", res.Blank),
		)
	}
	if n := len(res.UnmatchedCBSA); n > 0 {
		log.Warn("cbsa codes missing from crosswalk",
			zap.Int("count", n),
			zap.Strings("sample", sample(res.UnmatchedCBSA)),
		)
	}
}

func sample(s []string) []string {
	if len(s) > unmatchedSample {
		return s[:unmatchedSample]
	}
	return s
}

// joiner holds the column plan of one join.
type joiner struct {
	b     *boundary.Set
	attrs *table.Table

	key    string
	idIdx  int
	shared bool // boundary key and identifier column share a name
	keyPos int  // position of key within boundary columns

	columns []string
	matched []bool // per attribute row
}

func newJoiner(b *boundary.Set, attrs *table.Table, key, idCol, suffix string) *joiner {
	j := &joiner{
		b:       b,
		attrs:   attrs,
		key:     key,
		idIdx:   attrs.Index(idCol),
		shared:  key == idCol,
		matched: make([]bool, attrs.Len()),
	}

	bcols := b.Columns()
	taken := make(map[string]bool, len(bcols)+len(attrs.Columns))
	for _, c := range bcols {
		taken[c] = true
	}
	for _, c := range attrs.Columns {
		taken[c] = true
	}
	for i, c := range bcols {
		if c == key {
			j.keyPos = i
		}
		switch {
		case j.shared && c == key:
			j.columns = append(j.columns, c)
		case attrs.Has(c):
			name := c + suffix
			for taken[name] {
				name += suffix
			}
			taken[name] = true
			j.columns = append(j.columns, name)
		default:
			j.columns = append(j.columns, c)
		}
	}
	for i, c := range attrs.Columns {
		if j.shared && i == j.idIdx {
			continue
		}
		j.columns = append(j.columns, c)
	}
	return j
}

func (j *joiner) run(how How) *JoinedTable {
	out := &JoinedTable{Columns: j.columns}

	byID := make(map[string][]int)
	for r, row := range j.attrs.Rows {
		if id := row[j.idIdx]; id != "" {
			byID[id] = append(byID[id], r)
		}
	}
	byKey := make(map[string][]int)
	for i := range j.b.Records {
		k := j.b.Value(i, j.key)
		byKey[k] = append(byKey[k], i)
	}
	for id := range byID {
		if _, ok := byKey[id]; ok {
			for _, r := range byID[id] {
				j.matched[r] = true
			}
		}
	}

	switch how {
	case Inner, Left, Outer:
		for i := range j.b.Records {
			rows := byID[j.b.Value(i, j.key)]
			for _, r := range rows {
				out.Rows = append(out.Rows, j.row(i, r))
			}
			if len(rows) == 0 && how != Inner {
				out.Rows = append(out.Rows, j.row(i, -1))
			}
		}
		if how == Outer {
			for r := range j.attrs.Rows {
				if !j.matched[r] {
					out.Rows = append(out.Rows, j.row(-1, r))
				}
			}
		}
	case Right:
		for r, row := range j.attrs.Rows {
			matches := byKey[row[j.idIdx]]
			if row[j.idIdx] == "" {
				matches = nil
			}
			for _, i := range matches {
				out.Rows = append(out.Rows, j.row(i, r))
			}
			if len(matches) == 0 {
				out.Rows = append(out.Rows, j.row(-1, r))
			}
		}
	}
	return out
}

// row builds one output row from boundary record i and attribute row r;
// either may be -1.
func (j *joiner) row(i, r int) Row {
	nb := len(j.b.Columns())
	vals := make([]string, 0, len(j.columns))
	var out Row

	if i >= 0 {
		out.Geometry = j.b.Records[i].Geometry
		vals = append(vals, j.b.Values(i)...)
	} else {
		vals = append(vals, make([]string, nb)...)
	}

	if r >= 0 {
		attr := j.attrs.Rows[r]
		if j.shared && i < 0 {
			vals[j.keyPos] = attr[j.idIdx]
		}
		for c, v := range attr {
			if j.shared && c == j.idIdx {
				continue
			}
			vals = append(vals, v)
		}
	} else {
		vals = append(vals, make([]string, len(j.columns)-nb)...)
	}

	out.Values = vals
	return out
}

// blank counts attribute rows with an empty identifier.
func (j *joiner) blank() int {
	n := 0
	for _, row := range j.attrs.Rows {
		if row[j.idIdx] == "" {
			n++
		}
	}
	return n
}

// unmatched returns the distinct identifiers of attribute rows that found no
// boundary.
func (j *joiner) unmatched() []string {
	set := make(map[string]bool)
	for r, ok := range j.matched {
		if ok {
			continue
		}
		if id := j.attrs.Rows[r][j.idIdx]; id != "" {
			set[id] = true
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
