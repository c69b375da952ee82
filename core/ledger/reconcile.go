package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/gradeledger/core"
	"github.com/trezcool/gradeledger/core/extraction"
	"github.com/trezcool/gradeledger/core/grading"
)

// Proposal is the ledger state an extraction result would produce.
// Nothing changes until it is applied with Session.ApplyProposal.
type Proposal struct {
	StudentName       string     `json:"student_name,omitempty"`
	Courses           []Course   `json:"courses"`             // new open buffer
	EditingSemesterID ID         `json:"editing_semester_id"` // edit target of the new buffer
	Semesters         []Semester `json:"-"`
	ReportedCGPA      *float64   `json:"reported_cgpa,omitempty"`

	current Snapshot
}

// IsEmpty reports whether the extraction held no semester at all.
func (p Proposal) IsEmpty() bool {
	return p.EditingSemesterID == ""
}

// Reconcile maps an extraction result onto the current ledger.
// The first extracted semester becomes the open buffer; the others become
// detailed semesters, their SGPA and credits recomputed under reg.
func Reconcile(ex extraction.Result, current Snapshot, reg grading.Regulation) Proposal {
	p := Proposal{
		StudentName:  core.CleanString(ex.StudentName),
		ReportedCGPA: ex.TotalCGPA,
		current:      current.clone(),
	}
	if len(ex.Semesters) == 0 {
		return p
	}

	first := ex.Semesters[0]
	p.Courses = toCourses(first.Courses)
	if n, ok := first.Ordinal(); ok {
		p.EditingSemesterID = ID(strconv.Itoa(n))
	} else {
		p.EditingSemesterID = NewID()
	}

	p.Semesters = make([]Semester, 0, len(ex.Semesters)-1)
	for _, es := range ex.Semesters[1:] {
		courses := toCourses(es.Courses)
		res := ComputeSGPA(courses, reg)
		p.Semesters = append(p.Semesters, &DetailedSemester{
			ID:      NewID(),
			Credits: res.TotalCredits,
			SGPA:    res.Value,
			Courses: courses,
		})
	}
	return p
}

func toCourses(in []extraction.Course) []Course {
	out := make([]Course, 0, len(in))
	for _, c := range in {
		out = append(out, Course{
			ID:      NewID(),
			Code:    c.Code,
			Name:    c.Name,
			Credits: c.Credits,
			Grade:   c.Grade.Normalize(),
		})
	}
	return out
}

// Snapshot returns the ledger the proposal would leave behind.
func (p Proposal) Snapshot() Snapshot {
	snap := p.current.clone()
	if p.IsEmpty() {
		return snap
	}
	if p.StudentName != "" {
		snap.StudentName = p.StudentName
	}
	snap.Semesters = cloneSemesters(p.Semesters)
	snap.Courses = cloneCourses(p.Courses)
	snap.EditingSemesterID = p.EditingSemesterID
	return snap
}

// Diff renders a unified diff between the current ledger and the proposed one.
func (p Proposal) Diff() string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(renderSnapshot(p.current)),
		B:        difflib.SplitLines(renderSnapshot(p.Snapshot())),
		FromFile: "current",
		ToFile:   "proposed",
		Context:  2,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return text
}

// renderSnapshot prints a ledger one fact per line, ids left out so that unchanged courses compare equal.
func renderSnapshot(snap Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "student: %s\n", snap.StudentName)
	for i, s := range snap.Semesters {
		switch sem := s.(type) {
		case *DetailedSemester:
			if credits, sgpa := sem.Values(); sem.Unread != nil {
				fmt.Fprintf(&b, "semester %d: %s credits, sgpa %s\n", i+1, credits, sgpa)
			} else {
				fmt.Fprintf(&b, "semester %d: %s credits, sgpa %.2f\n", i+1, credits, sem.SGPA)
			}
			for _, c := range sem.Courses {
				b.WriteString("  " + renderCourse(c) + "\n")
			}
		case *CondensedSemester:
			fmt.Fprintf(&b, "semester %d: %s credits, sgpa %s (condensed)\n", i+1, sem.Credits, sem.SGPA)
		}
	}
	b.WriteString("open:\n")
	for _, c := range snap.Courses {
		b.WriteString("  " + renderCourse(c) + "\n")
	}
	return b.String()
}

func renderCourse(c Course) string {
	title := strings.TrimSpace(c.Code + " " + c.Name)
	return fmt.Sprintf("%s | %s | %s", title, c.Credits, c.Grade)
}

// ApplyProposal replaces the semester history and the open buffer with p,
// recording the previous state for undo. The student name is replaced only
// when the extraction found one; the registration number and the prior
// transcript are kept. Empty proposals change nothing and report false.
func (s *Session) ApplyProposal(p Proposal) bool {
	if p.IsEmpty() {
		return false
	}
	s.recordClearedAll()
	if p.StudentName != "" {
		s.studentName = p.StudentName
	}
	s.semesters = cloneSemesters(p.Semesters)
	s.buffer = cloneCourses(p.Courses)
	if len(s.buffer) == 0 {
		s.buffer = []Course{NewCourse()}
	}
	s.editTarget = p.EditingSemesterID
	return true
}
