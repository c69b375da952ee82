// Package grading maps grade tokens to grade points under the supported regulations.
package grading

import "strings"

type (
	// Grade is a letter grade token as printed on a grade card.
	Grade string

	// Regulation names a grading-policy version.
	Regulation string
)

// Grades
const (
	GradeS  Grade = "S"
	GradeA  Grade = "A"
	GradeB  Grade = "B"
	GradeC  Grade = "C"
	GradeD  Grade = "D"
	GradeE  Grade = "E"
	GradeU  Grade = "U"
	GradeAB Grade = "AB" // absent

	// legacy tokens
	GradeP Grade = "P"
	GradeW Grade = "W" // withdrawn
)

// Regulations
const (
	Regulation2021 Regulation = "2021"
	Regulation2025 Regulation = "2025"

	DefaultRegulation = Regulation2021
)

var (
	Regulations = []Regulation{Regulation2021, Regulation2025}

	points = map[Regulation]map[Grade]float64{
		Regulation2021: {GradeS: 10, GradeA: 9, GradeB: 8, GradeC: 7, GradeD: 6, GradeE: 5, GradeU: 0},
		Regulation2025: {GradeS: 10, GradeA: 8, GradeB: 7, GradeC: 6, GradeD: 5, GradeE: 4, GradeU: 0},
	}

	options       = []Grade{GradeS, GradeA, GradeB, GradeC, GradeD, GradeE, GradeU, GradeAB}
	legacyOptions = []Grade{GradeS, GradeA, GradeB, GradeC, GradeD, GradeE, GradeP, GradeU, GradeW}
)

// Normalize upper-cases and trims a grade token.
func (g Grade) Normalize() Grade {
	return Grade(strings.ToUpper(strings.TrimSpace(string(g))))
}

// IsSupported reports whether r has its own points table.
func (r Regulation) IsSupported() bool {
	_, ok := points[r]
	return ok
}

// OrDefault returns r, or DefaultRegulation when r is not supported.
func (r Regulation) OrDefault() Regulation {
	if r.IsSupported() {
		return r
	}
	return DefaultRegulation
}

// Resolve returns the grade point of g under regulation r.
// It never fails: unknown regulations use the 2021 table and unknown tokens are worth 0.
func Resolve(g Grade, r Regulation) float64 {
	g = g.Normalize()
	switch g {
	case GradeS:
		return 10
	case GradeU, GradeW, GradeAB:
		return 0
	}
	return points[r.OrDefault()][g]
}

// Options returns the canonical grade tokens, in display order.
func Options() []Grade {
	return append([]Grade(nil), options...)
}

// LegacyOptions returns the grade tokens of the older single-regulation alphabet.
// P and W are accepted but resolve to 0 points.
func LegacyOptions() []Grade {
	return append([]Grade(nil), legacyOptions...)
}

// IsKnown reports whether g belongs to the canonical or the legacy alphabet.
func IsKnown(g Grade) bool {
	g = g.Normalize()
	for _, o := range options {
		if o == g {
			return true
		}
	}
	for _, o := range legacyOptions {
		if o == g {
			return true
		}
	}
	return false
}

// Detail is one row of a regulation's grading table.
type Detail struct {
	Grade  Grade   `json:"grade"`
	Points float64 `json:"points"`
	Result string  `json:"result"`
}

// Details returns the grading table of r (the 2021 table for unsupported regulations).
func Details(r Regulation) []Detail {
	r = r.OrDefault()
	details := make([]Detail, 0, 7)
	for _, g := range []Grade{GradeS, GradeA, GradeB, GradeC, GradeD, GradeE, GradeU} {
		result := "Pass"
		if g == GradeU {
			result = "Fail"
		}
		details = append(details, Detail{Grade: g, Points: Resolve(g, r), Result: result})
	}
	return details
}
