package geoid

import (
	"strings"

	"golang.org/x/text/cases"
)

// SuffixSet is a case-insensitive set of trailing name tokens.
type SuffixSet map[string]struct{}

// NewSuffixSet builds a SuffixSet from the given tokens.
func NewSuffixSet(tokens ...string) SuffixSet {
	s := make(SuffixSet, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		s[fold(t)] = struct{}{}
	}
	return s
}

// Has reports whether token is in the set, ignoring case.
func (s SuffixSet) Has(token string) bool {
	_, ok := s[fold(token)]
	return ok
}

// Tokens returns the folded tokens in the set.
func (s SuffixSet) Tokens() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	return out
}

// LSAD holds the legal/statistical area description suffixes that Census
// place names carry, e.g. "Cook County" or "Orleans Parish".
var LSAD = NewSuffixSet(
	"county",
	"parish",
	"borough",
	"municipality",
	"city",
	"municipio",
	"cty&bor",
	"muny",
)

// NormalizeName drops the final whitespace-separated token of raw when it is
// a member of suffixes, rejoining the remaining tokens with single spaces.
// Names whose last token is not a suffix are returned unchanged. Only the
// last token is examined, so multi-word suffixes never match as a unit.
// A name that is only a suffix normalizes to "".
// A nil suffixes uses LSAD.
func NormalizeName(raw string, suffixes SuffixSet) string {
	if suffixes == nil {
		suffixes = LSAD
	}
	words := strings.Fields(raw)
	if len(words) == 0 {
		return raw
	}
	if !suffixes.Has(words[len(words)-1]) {
		return raw
	}
	return strings.Join(words[:len(words)-1], " ")
}

func fold(s string) string {
	return cases.Fold().String(s)
}
