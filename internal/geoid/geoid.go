// Package geoid resolves geographic identifier schemes: geography levels,
// identifier types, place-name normalization, and the boundary field each
// (level, identifier type) pair joins on.
package geoid

import (
	"strings"

	"github.com/sells-group/choropleth/internal/geoerr"
)

// Level is a geography level of a boundary set.
type Level string

// Geography levels.
const (
	LevelState  Level = "state"
	LevelCounty Level = "county"
)

// IDType declares the semantic type of an identifier column.
type IDType string

// Identifier types.
const (
	IDFIPS   IDType = "fips"
	IDName   IDType = "name"
	IDAbbrev IDType = "abbrev"
	IDCBSA   IDType = "cbsa"
)

// Boundary field names exposed to joins.
const (
	FieldName      = "name"
	FieldFIPS      = "fips"
	FieldStateFIPS = "fips_state"
	FieldISO       = "iso_3166_2"
)

// ParseLevel validates a geography level.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelState, LevelCounty:
		return l, nil
	}
	return "", geoerr.New(geoerr.UnknownGeoLevel, s)
}

// ParseIDType validates an identifier type.
func ParseIDType(s string) (IDType, error) {
	switch t := IDType(strings.ToLower(strings.TrimSpace(s))); t {
	case IDFIPS, IDName, IDAbbrev, IDCBSA:
		return t, nil
	}
	return "", geoerr.New(geoerr.UnknownIdentifierType, s)
}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	return l == LevelState || l == LevelCounty
}

// Valid reports whether t is a known identifier type.
func (t IDType) Valid() bool {
	switch t {
	case IDFIPS, IDName, IDAbbrev, IDCBSA:
		return true
	}
	return false
}

// FIPSWidth returns the zero-padded width of a FIPS code at this level.
func (l Level) FIPSWidth() int {
	if l == LevelCounty {
		return 5
	}
	return 2
}

type keyPair struct {
	level  Level
	idType IDType
}

// joinKeys is the boundary field each (level, identifier type) joins on.
// county/abbrev is intentionally absent.
var joinKeys = map[keyPair]string{
	{LevelState, IDFIPS}:   FieldStateFIPS,
	{LevelState, IDName}:   FieldName,
	{LevelState, IDAbbrev}: FieldISO,
	{LevelCounty, IDFIPS}:  FieldFIPS,
	{LevelCounty, IDName}:  FieldName,
}

// JoinKey returns the boundary field to join on for the given geography level
// and identifier type. CBSA identifiers must be expanded to FIPS before a key
// can be resolved.
func JoinKey(level Level, idType IDType) (string, error) {
	if !level.Valid() {
		return "", geoerr.New(geoerr.UnknownGeoLevel, string(level))
	}
	if !idType.Valid() {
		return "", geoerr.New(geoerr.UnknownIdentifierType, string(idType))
	}
	field, ok := joinKeys[keyPair{level, idType}]
	if !ok {
		return "", geoerr.Newf(geoerr.UnsupportedCombination, string(level)+"/"+string(idType),
			"no boundary field for %s identifiers at %s level", idType, level)
	}
	return field, nil
}
