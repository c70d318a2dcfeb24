// Package numbering contains the pure rules for human-readable record identifiers.
// This is part of the Functional Core - no I/O, only pure functions.
//
// Identifiers have the form <PREFIX>-<YEAR>-<SEQ6>, e.g. INT-2025-000042.
// The sequence restarts every calendar year and is scoped by prefix.
package numbering

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/example/gendbuntu/internal/core/record"
)

// SequenceWidth is the zero-padded width of the sequence part.
const SequenceWidth = 6

// Identifier is a parsed record identifier.
type Identifier struct {
	Prefix   string
	Year     int
	Sequence int
}

// String formats the identifier.
func (id Identifier) String() string {
	return Format(id.Prefix, id.Year, id.Sequence)
}

// Format builds an identifier from its parts.
// Sequences wider than SequenceWidth digits are kept in full.
func Format(prefix string, year, seq int) string {
	return fmt.Sprintf("%s-%d-%0*d", prefix, year, SequenceWidth, seq)
}

// NextFromCount returns the identifier following count existing ones.
// This is the row-count numbering rule: it does not reserve the number and
// reuses slots freed by deletions.
func NextFromCount(prefix string, year, count int) string {
	return Format(prefix, year, count+1)
}

// YearPattern returns the SQL LIKE pattern matching every identifier of
// prefix in year. "PV-2025-%" does not match "PVE-2025-..." identifiers.
func YearPattern(prefix string, year int) string {
	return fmt.Sprintf("%s-%d-%%", prefix, year)
}

var identifierRe = regexp.MustCompile(`^([A-Z]+)-(\d{4})-(\d{6,})$`)

// Parse extracts the parts of an identifier.
func Parse(s string) (Identifier, error) {
	m := identifierRe.FindStringSubmatch(s)
	if m == nil {
		return Identifier{}, fmt.Errorf("invalid identifier %q", s)
	}
	year, _ := strconv.Atoi(m[2])
	seq, err := strconv.Atoi(m[3])
	if err != nil {
		return Identifier{}, fmt.Errorf("invalid identifier %q: %w", s, err)
	}
	return Identifier{Prefix: m[1], Year: year, Sequence: seq}, nil
}

// IsIdentifier reports whether s is a well-formed identifier.
func IsIdentifier(s string) bool {
	return identifierRe.MatchString(s)
}

// Prefix returns the identifier prefix of a new record.
// Legal PVs take their prefix from their sub-type (PV or PVE).
func Prefix(kind record.Kind, fields record.Fields) (string, error) {
	spec, ok := record.Lookup(kind)
	if !ok {
		return "", fmt.Errorf("unknown record kind %q", kind)
	}
	if kind == record.KindLegalPV {
		t := strings.ToLower(strings.TrimSpace(fields["type"]))
		if t != "pv" && t != "pve" {
			return "", &record.ValidationError{Fields: []string{"type"}, Reason: `type must be "pv" or "pve"`}
		}
		return strings.ToUpper(t), nil
	}
	return spec.Prefix, nil
}
