package crosswalk

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/choropleth/internal/fetcher"
	"github.com/sells-group/choropleth/internal/geoid"
)

// headerScan bounds how many leading rows are searched for the header.
// OMB delineation workbooks carry two title rows.
const headerScan = 10

// Accepted header spellings, lower-cased. The first group is the compact
// omb_msa CSV layout, the rest are OMB delineation file headings.
var (
	cbsaHeaders       = []string{"cbsa", "cbsa code", "cbsa_code"}
	cbsaNameHeaders   = []string{"cbsa_name", "cbsa title", "cbsa_title"}
	countyNameHeaders = []string{"county_name", "county/county equivalent", "county"}
	fipsHeaders       = []string{"fips", "fips_county", "geoid"}
	stateFIPSHeaders  = []string{"fips state code", "fips_state_code", "statefp"}
	countyFIPSHeaders = []string{"fips county code", "fips_county_code", "countyfp"}
)

type layout struct {
	header     int
	cbsa       int
	cbsaName   int
	countyName int
	fips       int
	stateFIPS  int
	countyFIPS int
}

// Load reads a crosswalk from a CSV or XLSX file chosen by extension.
func Load(ctx context.Context, path string) (*Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadXLSX(path)
	}
	return ReadCSV(ctx, path)
}

// ReadCSV reads a crosswalk CSV. Both the compact layout
// (cbsa,cbsa_name,county_name,fips) and the OMB delineation columns are
// recognized.
func ReadCSV(ctx context.Context, path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "crosswalk: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	stream, err := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{TrimSpace: true})
	if err != nil {
		return nil, eris.Wrapf(err, "crosswalk: read %s", path)
	}
	rows, err := stream.Collect()
	if err != nil {
		return nil, eris.Wrapf(err, "crosswalk: read %s", path)
	}
	return fromRows(rows, path)
}

// ReadXLSX reads the first sheet of an OMB delineation workbook.
func ReadXLSX(path string) (*Table, error) {
	rows, err := fetcher.ReadSheet(path, "")
	if err != nil {
		return nil, eris.Wrapf(err, "crosswalk: read %s", path)
	}
	return fromRows(rows, path)
}

func fromRows(rows [][]string, source string) (*Table, error) {
	l, err := findLayout(rows)
	if err != nil {
		return nil, eris.Wrapf(err, "crosswalk: %s", source)
	}

	log := zap.L().With(zap.String("component", "crosswalk"), zap.String("source", source))

	var records []Record
	skipped := 0
	for _, r := range rows[l.header+1:] {
		rec, ok := l.record(r)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if skipped > 0 {
		log.Debug("skipped rows without cbsa or county code", zap.Int("rows", skipped))
	}
	if len(records) == 0 {
		return nil, eris.Errorf("crosswalk: %s has no memberships", source)
	}

	t, err := New(records)
	if err != nil {
		return nil, err
	}
	log.Info("crosswalk loaded", zap.Int("memberships", t.Len()), zap.Int("cbsas", len(t.byCBSA)))
	return t, nil
}

func findLayout(rows [][]string) (layout, error) {
	for i := 0; i < len(rows) && i < headerScan; i++ {
		h := rows[i]
		l := layout{
			header:     i,
			cbsa:       lookup(h, cbsaHeaders),
			cbsaName:   lookup(h, cbsaNameHeaders),
			countyName: lookup(h, countyNameHeaders),
			fips:       lookup(h, fipsHeaders),
			stateFIPS:  lookup(h, stateFIPSHeaders),
			countyFIPS: lookup(h, countyFIPSHeaders),
		}
		if l.cbsa < 0 {
			continue
		}
		if l.fips < 0 && (l.stateFIPS < 0 || l.countyFIPS < 0) {
			return layout{}, eris.New("header has a cbsa column but no county fips columns")
		}
		return l, nil
	}
	return layout{}, eris.New("no header row with a cbsa column")
}

func lookup(header []string, names []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, n := range names {
			if h == n {
				return i
			}
		}
	}
	return -1
}

func cell(r []string, i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[i])
}

func (l layout) record(r []string) (Record, bool) {
	rec := Record{
		CBSA:       cell(r, l.cbsa),
		CBSAName:   cell(r, l.cbsaName),
		CountyName: cell(r, l.countyName),
	}
	if l.fips >= 0 {
		rec.FIPS = geoid.PadFIPS(cell(r, l.fips), 5)
	} else {
		st := geoid.PadFIPS(cell(r, l.stateFIPS), 2)
		co := geoid.PadFIPS(cell(r, l.countyFIPS), 3)
		if st != "" && co != "" {
			rec.FIPS = st + co
		}
	}
	if rec.CBSA == "" || !isDigits(rec.CBSA) || len(rec.FIPS) != 5 {
		return Record{}, false
	}
	return rec, true
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}
