// Package geoerr defines the validation errors raised by the join and
// color-scale engines.
package geoerr

import (
	"errors"
	"fmt"
)

// Kind classifies a validation failure.
type Kind int

// Validation failure kinds.
const (
	MissingColumn Kind = iota + 1
	UnknownGeoLevel
	UnknownIdentifierType
	UnsupportedCombination
	UnknownJoinMode
	UnknownScaleKind
	InvalidPalette
	InvalidDomain
	InvalidColorCount
)

var kindNames = map[Kind]string{
	MissingColumn:          "missing column",
	UnknownGeoLevel:        "unknown geo level",
	UnknownIdentifierType:  "unknown identifier type",
	UnsupportedCombination: "unsupported combination",
	UnknownJoinMode:        "unknown join mode",
	UnknownScaleKind:       "unknown scale kind",
	InvalidPalette:         "invalid palette",
	InvalidDomain:          "invalid domain",
	InvalidColorCount:      "invalid color count",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a validation failure carrying the offending value.
type Error struct {
	Kind   Kind
	Value  string
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %q", e.Kind, e.Value)
	}
	return fmt.Sprintf("%s: %q: %s", e.Kind, e.Value, e.Detail)
}

// Is matches another *Error of the same kind, so sentinels built with
// New(kind, "") can be used with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New returns a validation error of the given kind.
func New(kind Kind, value string) *Error {
	return &Error{Kind: kind, Value: value}
}

// Newf returns a validation error with a formatted detail message.
func Newf(kind Kind, value, format string, args ...any) *Error {
	return &Error{Kind: kind, Value: value, Detail: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is checks.
var (
	ErrMissingColumn          = New(MissingColumn, "")
	ErrUnknownGeoLevel        = New(UnknownGeoLevel, "")
	ErrUnknownIdentifierType  = New(UnknownIdentifierType, "")
	ErrUnsupportedCombination = New(UnsupportedCombination, "")
	ErrUnknownJoinMode        = New(UnknownJoinMode, "")
	ErrUnknownScaleKind       = New(UnknownScaleKind, "")
	ErrInvalidPalette         = New(InvalidPalette, "")
	ErrInvalidDomain          = New(InvalidDomain, "")
	ErrInvalidColorCount      = New(InvalidColorCount, "")
)

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsValidation reports whether err (or any error in its chain) is a
// validation error.
func IsValidation(err error) bool {
	return KindOf(err) != 0
}
