package ledger

import "github.com/trezcool/gradeledger/core"

// Target is the SGPA needed in every remaining semester to reach a CGPA goal.
type Target struct {
	RequiredSGPA  float64 `json:"required_sgpa"` // not clamped: may exceed 10 or be negative
	FutureCredits float64 `json:"future_credits"`
	Achievable    bool    `json:"achievable"` // 0 <= RequiredSGPA <= 10
}

// SolveTarget returns the SGPA required over the remaining semesters.
// It fails with ErrInvalidTargetInput when an input is not numeric, or when
// remaining semesters or average credits per semester are not positive.
func SolveTarget(target, remaining, avgCredits, currentCredits, currentCGPA core.Numeric) (Target, error) {
	cc, ok := currentCredits.Float()
	if !ok {
		return Target{}, ErrInvalidTargetInput
	}
	cg, ok := currentCGPA.Float()
	if !ok {
		return Target{}, ErrInvalidTargetInput
	}
	return solve(target, remaining, avgCredits, cc, cc*cg)
}

func solve(target, remaining, avgCredits core.Numeric, currentCredits, currentPoints float64) (Target, error) {
	tgt, ok := target.Float()
	if !ok {
		return Target{}, ErrInvalidTargetInput
	}
	rem, ok := core.ParseInt(string(remaining))
	if !ok || rem <= 0 {
		return Target{}, ErrInvalidTargetInput
	}
	avg, ok := avgCredits.Float()
	if !ok || avg <= 0 {
		return Target{}, ErrInvalidTargetInput
	}

	futureCredits := float64(rem) * avg
	requiredPoints := tgt*(currentCredits+futureCredits) - currentPoints
	required := core.Round2(requiredPoints / futureCredits)
	return Target{
		RequiredSGPA:  required,
		FutureCredits: futureCredits,
		Achievable:    required >= 0 && required <= 10,
	}, nil
}

// Difficulty grades how hard a required SGPA is to reach.
type Difficulty string

const (
	DifficultyOutOfReach      Difficulty = "out_of_reach"
	DifficultyVeryChallenging Difficulty = "very_challenging" // nearly all S grades
	DifficultyChallenging     Difficulty = "challenging"      // a mix of S and A grades
	DifficultyComfortable     Difficulty = "comfortable"
)

func (t Target) Difficulty() Difficulty {
	switch {
	case t.RequiredSGPA > 10:
		return DifficultyOutOfReach
	case t.RequiredSGPA >= 9.5:
		return DifficultyVeryChallenging
	case t.RequiredSGPA >= 8.5:
		return DifficultyChallenging
	}
	return DifficultyComfortable
}
