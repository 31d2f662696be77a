package geoid

import (
	"sort"
	"strings"
)

// StateFIPSCodes maps USPS state abbreviation to 2-digit FIPS code for the
// 50 states, DC, and the inhabited territories.
var StateFIPSCodes = map[string]string{
	"AL": "01", "AK": "02", "AZ": "04", "AR": "05", "CA": "06",
	"CO": "08", "CT": "09", "DE": "10", "DC": "11", "FL": "12",
	"GA": "13", "HI": "15", "ID": "16", "IL": "17", "IN": "18",
	"IA": "19", "KS": "20", "KY": "21", "LA": "22", "ME": "23",
	"MD": "24", "MA": "25", "MI": "26", "MN": "27", "MS": "28",
	"MO": "29", "MT": "30", "NE": "31", "NV": "32", "NH": "33",
	"NJ": "34", "NM": "35", "NY": "36", "NC": "37", "ND": "38",
	"OH": "39", "OK": "40", "OR": "41", "PA": "42", "RI": "44",
	"SC": "45", "SD": "46", "TN": "47", "TX": "48", "UT": "49",
	"VT": "50", "VA": "51", "WA": "53", "WV": "54", "WI": "55",
	"WY": "56", "AS": "60", "GU": "66", "MP": "69", "PR": "72",
	"VI": "78",
}

// abbrByFIPS is a reverse lookup from FIPS code to state abbreviation.
var abbrByFIPS map[string]string

func init() {
	abbrByFIPS = make(map[string]string, len(StateFIPSCodes))
	for abbr, fips := range StateFIPSCodes {
		abbrByFIPS[fips] = abbr
	}
}

// StateAbbr returns the USPS abbreviation for a 2-digit state FIPS code.
func StateAbbr(stateFIPS string) (string, bool) {
	abbr, ok := abbrByFIPS[stateFIPS]
	return abbr, ok
}

// ISOCode returns the ISO 3166-2 subdivision code ("US-TX") for a USPS
// abbreviation, or "" when abbr is empty.
func ISOCode(abbr string) string {
	abbr = strings.ToUpper(strings.TrimSpace(abbr))
	if abbr == "" {
		return ""
	}
	return "US-" + abbr
}

// ISOCodeForFIPS returns the ISO 3166-2 code of the state owning a state or
// county FIPS code.
func ISOCodeForFIPS(fips string) string {
	if len(fips) < 2 {
		return ""
	}
	abbr, ok := StateAbbr(fips[:2])
	if !ok {
		return ""
	}
	return ISOCode(abbr)
}

// PadFIPS left-pads an all-digit code with zeros to width. Codes that carry
// anything other than ASCII digits, or are already at least width long, are
// returned trimmed but otherwise untouched.
func PadFIPS(code string, width int) string {
	code = strings.TrimSpace(code)
	if code == "" || len(code) >= width {
		return code
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return code
		}
	}
	return strings.Repeat("0", width-len(code)) + code
}

// AllStateFIPS returns a sorted list of all state FIPS codes.
func AllStateFIPS() []string {
	codes := make([]string, 0, len(StateFIPSCodes))
	for _, fips := range StateFIPSCodes {
		codes = append(codes, fips)
	}
	sort.Strings(codes)
	return codes
}

// NormalizeAbbrev maps a state abbreviation ("tx", "TX") or ISO 3166-2 code
// ("US-TX") onto the ISO form boundary records carry. Other values are
// returned trimmed and upper-cased.
func NormalizeAbbrev(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) == 2 {
		return ISOCode(s)
	}
	return s
}
