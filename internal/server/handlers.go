package server

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/choropleth/internal/choropleth"
	"github.com/sells-group/choropleth/internal/colorscale"
	"github.com/sells-group/choropleth/internal/config"
	"github.com/sells-group/choropleth/internal/geoid"
	"github.com/sells-group/choropleth/internal/geojoin"
	"github.com/sells-group/choropleth/internal/table"
)

type healthResponse struct {
	Status    string   `json:"status"`
	Levels    []string `json:"levels"`
	Crosswalk int      `json:"crosswalk_rows"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	levels := make([]string, 0, len(s.refs.Boundaries))
	for l, set := range s.refs.Boundaries {
		if set != nil {
			levels = append(levels, string(l))
		}
	}
	sort.Strings(levels)
	n := 0
	if s.refs.Crosswalk != nil {
		n = s.refs.Crosswalk.Len()
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Levels: levels, Crosswalk: n})
}

func (s *Server) handlePalettes(w http.ResponseWriter, r *http.Request) {
	families := colorscale.Families()
	if k := r.URL.Query().Get("kind"); k != "" {
		kind, err := colorscale.ParseKind(k)
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		out := families[:0:0]
		for _, f := range families {
			if f.Kind == kind {
				out = append(out, f)
			}
		}
		families = out
	}
	writeJSON(w, http.StatusOK, families)
}

type scaleRequest struct {
	// Values may contain nulls for missing values.
	Values []*float64              `json:"values"`
	Format config.FormatOverrides `json:"format"`
}

type scaleResponse struct {
	Scale  *colorscale.Scale `json:"scale"`
	Ticks  []float64         `json:"ticks"`
	Colors []string          `json:"colors"`
}

func (s *Server) handleScale(w http.ResponseWriter, r *http.Request) {
	var req scaleRequest
	if !s.decode(w, r, &req) {
		return
	}

	values := make([]float64, len(req.Values))
	for i, v := range req.Values {
		if v == nil {
			values[i] = math.NaN()
			continue
		}
		values[i] = *v
	}

	f := config.Merge(s.format, req.Format)
	scale, err := colorscale.Build(values, f.ScaleOptions())
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	colors := make([]string, len(values))
	for i, v := range values {
		colors[i] = scale.Color(v)
	}
	writeJSON(w, http.StatusOK, scaleResponse{Scale: scale, Ticks: scale.Ticks(), Colors: colors})
}

type choroplethRequest struct {
	// CSV is a headered CSV document; Records is a JSON array of flat
	// objects. Exactly one is required.
	CSV         string                 `json:"csv,omitempty"`
	Records     json.RawMessage        `json:"records,omitempty"`
	IDColumn    string                 `json:"id_column"`
	IDType      string                 `json:"id_type"`
	Level       string                 `json:"level,omitempty"`
	ValueColumn string                 `json:"value_column"`
	Format      config.FormatOverrides `json:"format"`
}

type choroplethResponse struct {
	Features      *geojson.FeatureCollection `json:"features"`
	Scale         *colorscale.Scale          `json:"scale"`
	Ticks         []float64                  `json:"ticks"`
	Style         choropleth.Style           `json:"style"`
	Unmatched     []string                   `json:"unmatched"`
	UnmatchedCBSA []string                   `json:"unmatched_cbsa,omitempty"`
	Blank         int                        `json:"blank_ids"`
	Dropped       int                        `json:"dropped"`
}

func (s *Server) handleChoropleth(w http.ResponseWriter, r *http.Request) {
	var req choroplethRequest
	if !s.decode(w, r, &req) {
		return
	}

	attrs, ok := s.readAttributes(w, r, req)
	if !ok {
		return
	}

	level := geoid.LevelCounty
	if req.Level != "" {
		l, err := geoid.ParseLevel(req.Level)
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		level = l
	}
	set := s.refs.Boundaries[level]
	if set == nil {
		writeError(w, http.StatusServiceUnavailable, "reference_missing",
			"no boundaries loaded for level", map[string]any{"level": string(level)})
		return
	}

	f := config.Merge(s.format, req.Format)
	opts := f.ChoroplethOptions(geojoin.Options{
		IDColumn:  req.IDColumn,
		IDType:    geoid.IDType(req.IDType),
		Level:     level,
		Crosswalk: s.refs.Crosswalk,
	}, req.ValueColumn)

	res, err := choropleth.Build(set, attrs, opts)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	fc, err := res.FeatureCollection()
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, choroplethResponse{
		Features:      fc,
		Scale:         res.Scale,
		Ticks:         res.Scale.Ticks(),
		Style:         res.Style,
		Unmatched:     nonNil(res.Unmatched),
		UnmatchedCBSA: res.UnmatchedCBSA,
		Blank:         res.Blank,
		Dropped:       res.Dropped,
	})
}

func (s *Server) readAttributes(w http.ResponseWriter, r *http.Request, req choroplethRequest) (*table.Table, bool) {
	hasCSV := strings.TrimSpace(req.CSV) != ""
	hasRecords := len(req.Records) > 0 && string(req.Records) != "null"
	if hasCSV == hasRecords {
		writeError(w, http.StatusBadRequest, "invalid_body", "exactly one of csv or records is required", nil)
		return nil, false
	}

	var (
		attrs *table.Table
		err   error
	)
	if hasCSV {
		attrs, err = table.ReadCSV(r.Context(), strings.NewReader(req.CSV))
	} else {
		attrs, err = table.ReadJSON(r.Context(), bytes.NewReader(req.Records))
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "unreadable attribute table", map[string]any{"error": err.Error()})
		return nil, false
	}
	return attrs, true
}

type normalizeRequest struct {
	Names []string `json:"names"`
	// Suffixes replaces the default LSAD descriptor set when non-empty.
	Suffixes []string `json:"suffixes,omitempty"`
}

type normalizeResponse struct {
	Names []string `json:"names"`
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	var req normalizeRequest
	if !s.decode(w, r, &req) {
		return
	}
	var suffixes geoid.SuffixSet
	if len(req.Suffixes) > 0 {
		suffixes = geoid.NewSuffixSet(req.Suffixes...)
	}
	out := make([]string, len(req.Names))
	for i, n := range req.Names {
		out[i] = geoid.NormalizeName(n, suffixes)
	}
	writeJSON(w, http.StatusOK, normalizeResponse{Names: out})
}

func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	level, err := geoid.ParseLevel(chi.URLParam(r, "level"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	set := s.refs.Boundaries[level]
	if set == nil {
		writeError(w, http.StatusServiceUnavailable, "reference_missing",
			"no boundaries loaded for level", map[string]any{"level": string(level)})
		return
	}
	writeJSON(w, http.StatusOK, choropleth.Outline(set, s.format.Style()))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
