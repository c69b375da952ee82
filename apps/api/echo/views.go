package echoapi

import (
	"time"

	"github.com/trezcool/gradeledger/core"
	"github.com/trezcool/gradeledger/core/grading"
	"github.com/trezcool/gradeledger/core/ledger"
)

type (
	TokenResponse struct {
		Key   ledger.ID `json:"key"`
		Token string    `json:"token"`
	}

	SemesterView struct {
		ID      ledger.ID           `json:"id"`
		Kind    ledger.SemesterKind `json:"kind"`
		Credits core.Numeric        `json:"credits"`
		SGPA    core.Numeric        `json:"sgpa"`
		Courses []ledger.Course     `json:"courses,omitempty"`
	}

	LedgerView struct {
		Key               ledger.ID          `json:"key"`
		StudentName       string             `json:"student_name"`
		RegNo             string             `json:"reg_no"`
		PriorCredits      core.Numeric       `json:"prior_credits"`
		PriorCGPA         core.Numeric       `json:"prior_cgpa"`
		Regulation        grading.Regulation `json:"regulation"`
		Semesters         []SemesterView     `json:"semesters"`
		Courses           []ledger.Course    `json:"courses"`
		EditingSemesterID ledger.ID          `json:"editing_semester_id"`
		UndoDepth         int                `json:"undo_depth"`
		Summary           ledger.Summary     `json:"summary"`
	}

	ProposalView struct {
		StudentName       string          `json:"student_name"`
		Courses           []ledger.Course `json:"courses"`
		EditingSemesterID ledger.ID       `json:"editing_semester_id"`
		Semesters         []SemesterView  `json:"semesters"`
		ReportedCGPA      *float64        `json:"reported_cgpa,omitempty"`
		Diff              string          `json:"diff"`
	}

	UndoView struct {
		Kind       ledger.UndoKind `json:"kind"`
		RecordedAt time.Time       `json:"recorded_at"`
		Ledger     LedgerView      `json:"ledger"`
	}

	TargetView struct {
		ledger.Target
		Difficulty ledger.Difficulty `json:"difficulty"`
	}

	AppliedView struct {
		Applied bool       `json:"applied"`
		Ledger  LedgerView `json:"ledger"`
	}
)

func newSemesterView(sem ledger.Semester) SemesterView {
	switch s := sem.(type) {
	case *ledger.DetailedSemester:
		courses := s.Courses
		if courses == nil {
			courses = []ledger.Course{}
		}
		credits, sgpa := s.Values()
		return SemesterView{
			ID:      s.ID,
			Kind:    ledger.KindDetailed,
			Credits: credits,
			SGPA:    sgpa,
			Courses: courses,
		}
	case *ledger.CondensedSemester:
		return SemesterView{ID: s.ID, Kind: ledger.KindCondensed, Credits: s.Credits, SGPA: s.SGPA}
	}
	return SemesterView{ID: sem.Key(), Kind: sem.Kind()}
}

func newSemesterViews(sems []ledger.Semester) []SemesterView {
	views := make([]SemesterView, 0, len(sems))
	for _, s := range sems {
		views = append(views, newSemesterView(s))
	}
	return views
}

func newLedgerView(key ledger.ID, s *ledger.Session) LedgerView {
	snap := s.Snapshot()
	courses := snap.Courses
	if courses == nil {
		courses = []ledger.Course{}
	}
	return LedgerView{
		Key:               key,
		StudentName:       snap.StudentName,
		RegNo:             snap.RegNo,
		PriorCredits:      snap.PriorCredits,
		PriorCGPA:         snap.PriorCGPA,
		Regulation:        snap.Regulation,
		Semesters:         newSemesterViews(snap.Semesters),
		Courses:           courses,
		EditingSemesterID: snap.EditingSemesterID,
		UndoDepth:         s.UndoDepth(),
		Summary:           s.Summary(),
	}
}

func newProposalView(p ledger.Proposal) ProposalView {
	courses := p.Courses
	if courses == nil {
		courses = []ledger.Course{}
	}
	return ProposalView{
		StudentName:       p.StudentName,
		Courses:           courses,
		EditingSemesterID: p.EditingSemesterID,
		Semesters:         newSemesterViews(p.Semesters),
		ReportedCGPA:      p.ReportedCGPA,
		Diff:              p.Diff(),
	}
}
