package ledger

import (
	"github.com/trezcool/gradeledger/core"
	"github.com/trezcool/gradeledger/core/grading"
)

// Result is a weighted grade point average.
type Result struct {
	Value        float64 `json:"value"` // rounded to 2 decimals
	TotalCredits float64 `json:"total_credits"`
}

func average(points, credits float64) Result {
	if credits == 0 {
		return Result{}
	}
	return Result{Value: core.Round2(points / credits), TotalCredits: credits}
}

// ComputeSGPA averages the grade points of courses weighted by credits.
// Courses without a numeric, strictly positive credit value are skipped.
func ComputeSGPA(courses []Course, reg grading.Regulation) Result {
	var points, credits float64
	for _, c := range courses {
		credit, ok := c.Credits.Float()
		if !ok || credit <= 0 {
			continue
		}
		points += credit * grading.Resolve(c.Grade, reg)
		credits += credit
	}
	return average(points, credits)
}

// ComputeCGPA averages semester SGPAs weighted by credits.
// The prior transcript counts as one more semester when both of its values are numeric;
// semesters missing either value are skipped.
func ComputeCGPA(priorCredits, priorCGPA core.Numeric, semesters []Semester) Result {
	points, credits := standing(priorCredits, priorCGPA, semesters, false)
	return average(points, credits)
}

// standing totals points and credits. With lenientPrior, unparseable prior values count as 0.
func standing(priorCredits, priorCGPA core.Numeric, semesters []Semester, lenientPrior bool) (points, credits float64) {
	pc, pcOk := priorCredits.Float()
	pg, pgOk := priorCGPA.Float()
	if pcOk && pgOk {
		points += pc * pg
		credits += pc
	} else if lenientPrior && pcOk {
		credits += pc
	}
	for _, s := range semesters {
		c, g, ok := s.Standing()
		if !ok {
			continue
		}
		points += c * g
		credits += c
	}
	return points, credits
}

// Summary is the at-a-glance state of a ledger.
type Summary struct {
	SGPA            Result  `json:"sgpa"` // of the open buffer
	CGPA            Result  `json:"cgpa"`
	SemesterCount   int     `json:"semester_count"` // semesters with positive credits and an SGPA
	SemesterCredits float64 `json:"semester_credits"`
	AverageSGPA     float64 `json:"average_sgpa"`
}

func summarize(snap Snapshot, reg grading.Regulation) Summary {
	sum := Summary{
		SGPA: ComputeSGPA(snap.Courses, reg),
		CGPA: ComputeCGPA(snap.PriorCredits, snap.PriorCGPA, snap.Semesters),
	}
	var sgpaTotal float64
	for _, s := range snap.Semesters {
		c, g, ok := s.Standing()
		if !ok || c <= 0 {
			continue
		}
		sum.SemesterCount++
		sum.SemesterCredits += c
		sgpaTotal += g
	}
	if sum.SemesterCount > 0 {
		sum.AverageSGPA = core.Round2(sgpaTotal / float64(sum.SemesterCount))
	}
	return sum
}
