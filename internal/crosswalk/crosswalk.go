// Package crosswalk maps CBSA (metropolitan/micropolitan statistical area)
// codes onto their member county FIPS codes and expands CBSA-keyed tables
// into county-keyed ones.
package crosswalk

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/choropleth/internal/geoid"
)

// Columns contributed by the crosswalk to an expansion, in output order.
const (
	ColCBSA       = "cbsa"
	ColCBSAName   = "cbsa_name"
	ColCountyName = "county_name"
	ColFIPS       = "fips"
)

// Columns lists the crosswalk columns in expansion order.
var Columns = []string{ColCBSA, ColCBSAName, ColCountyName, ColFIPS}

// Record is one CBSA to county membership.
type Record struct {
	CBSA       string
	CBSAName   string
	FIPS       string
	CountyName string
}

// Table is a read-only CBSA crosswalk. Build one with New.
type Table struct {
	records []Record
	byCBSA  map[string][]int
}

// New validates and indexes records. FIPS codes are left-padded to five
// digits; records without a CBSA or FIPS code are rejected.
func New(records []Record) (*Table, error) {
	t := &Table{
		records: make([]Record, 0, len(records)),
		byCBSA:  make(map[string][]int),
	}
	for i, r := range records {
		if r.CBSA == "" || r.FIPS == "" {
			return nil, eris.Errorf("crosswalk: record %d missing cbsa or fips", i)
		}
		r.FIPS = geoid.PadFIPS(r.FIPS, 5)
		t.byCBSA[r.CBSA] = append(t.byCBSA[r.CBSA], len(t.records))
		t.records = append(t.records, r)
	}
	return t, nil
}

// Len returns the number of memberships.
func (t *Table) Len() int { return len(t.records) }

// Records returns a copy of every membership in load order.
func (t *Table) Records() []Record {
	return append([]Record(nil), t.records...)
}

// Members returns the county memberships of a CBSA in load order.
func (t *Table) Members(cbsa string) []Record {
	idx := t.byCBSA[cbsa]
	out := make([]Record, len(idx))
	for i, j := range idx {
		out[i] = t.records[j]
	}
	return out
}

// CBSAs returns the distinct CBSA codes, sorted.
func (t *Table) CBSAs() []string {
	out := make([]string, 0, len(t.byCBSA))
	for c := range t.byCBSA {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (r Record) values() []string {
	return []string{r.CBSA, r.CBSAName, r.CountyName, r.FIPS}
}
