// Package ledger holds a student's semester history, the course list being
// edited, the undo history and the arithmetic over them.
package ledger

import (
	"time"

	"github.com/trezcool/gradeledger/core"
	"github.com/trezcool/gradeledger/core/grading"
)

const maxCourseCount = 15

// Session owns one student's ledger: the finalized semesters, the open buffer
// (courses of the semester being edited) and the undo history.
// A Session is not safe for concurrent use.
type Session struct {
	regulation   grading.Regulation
	studentName  string
	regNo        string
	priorCredits core.Numeric
	priorCGPA    core.Numeric
	semesters    []Semester
	buffer       []Course
	editTarget   ID // semester the buffer will be finalized into; empty for a new semester

	undo    *UndoLog
	nowFunc func() time.Time
}

// NewSession returns an empty ledger graded under reg.
func NewSession(reg grading.Regulation) *Session {
	return &Session{
		regulation: reg.OrDefault(),
		buffer:     []Course{NewCourse()},
		undo:       NewUndoLog(MaxUndo),
		nowFunc:    time.Now,
	}
}

// FromSnapshot returns a session holding snap. The undo history starts empty.
func FromSnapshot(snap Snapshot, reg grading.Regulation) *Session {
	s := NewSession(reg)
	s.restore(snap.clone())
	return s
}

// Snapshot returns a deep copy of the ledger state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		StudentName:       s.studentName,
		RegNo:             s.regNo,
		PriorCredits:      s.priorCredits,
		PriorCGPA:         s.priorCGPA,
		Regulation:        s.regulation,
		Semesters:         s.semesters,
		Courses:           s.buffer,
		EditingSemesterID: s.editTarget,
	}
	return snap.clone()
}

func (s *Session) restore(snap Snapshot) {
	s.studentName = snap.StudentName
	s.regNo = snap.RegNo
	s.priorCredits = snap.PriorCredits
	s.priorCGPA = snap.PriorCGPA
	if snap.Regulation != "" {
		s.regulation = snap.Regulation.OrDefault()
	}
	s.semesters = snap.Semesters
	s.buffer = snap.Courses
	s.editTarget = snap.EditingSemesterID
	if len(s.buffer) == 0 {
		s.buffer = []Course{NewCourse()}
	}
}

// checkpoint is a session's state at a point in time, undo history included.
type checkpoint struct {
	snap Snapshot
	undo []UndoRecord
}

func (s *Session) checkpoint() checkpoint {
	return checkpoint{snap: s.Snapshot(), undo: append([]UndoRecord(nil), s.undo.records...)}
}

// rollback returns the session to cp, discarding every change made since.
func (s *Session) rollback(cp checkpoint) {
	s.restore(cp.snap.clone())
	s.undo.records = append([]UndoRecord(nil), cp.undo...)
}

func (s *Session) now() time.Time {
	return s.nowFunc().UTC()
}

// Profile

func (s *Session) Regulation() grading.Regulation { return s.regulation }

// SetRegulation switches the grade point table. Finalized semesters keep the SGPA they were finalized with.
func (s *Session) SetRegulation(reg grading.Regulation) {
	s.regulation = reg.OrDefault()
}

func (s *Session) StudentName() string { return s.studentName }
func (s *Session) RegNo() string       { return s.regNo }

func (s *Session) SetProfile(studentName, regNo string) {
	s.studentName = core.CleanString(studentName)
	s.regNo = core.CleanString(regNo)
}

// SetPriorTranscript records coursework completed outside of this ledger.
func (s *Session) SetPriorTranscript(credits, cgpa core.Numeric) {
	s.priorCredits = credits
	s.priorCGPA = cgpa
}

// Open buffer

// Courses returns a copy of the open buffer.
func (s *Session) Courses() []Course {
	return cloneCourses(s.buffer)
}

// EditingSemesterID returns the semester the buffer was reopened from, if any.
func (s *Session) EditingSemesterID() ID { return s.editTarget }

// AddCourseRow appends an empty course row and returns it.
func (s *Session) AddCourseRow() Course {
	c := NewCourse()
	s.buffer = append(s.buffer, c)
	return c
}

// RemoveCourseRow removes a row. Removing the last row leaves a fresh empty one.
func (s *Session) RemoveCourseRow(id ID) error {
	idx := s.courseIndex(id)
	if idx < 0 {
		return ErrCourseNotFound
	}
	buf := make([]Course, 0, len(s.buffer))
	buf = append(buf, s.buffer[:idx]...)
	buf = append(buf, s.buffer[idx+1:]...)
	if len(buf) == 0 {
		buf = append(buf, NewCourse())
	}
	s.buffer = buf
	return nil
}

// SetCourseField edits one field of a row. Values are not validated.
func (s *Session) SetCourseField(id ID, field CourseField, value string) (Course, error) {
	idx := s.courseIndex(id)
	if idx < 0 {
		return Course{}, ErrCourseNotFound
	}
	c := s.buffer[idx]
	if err := c.set(field, value); err != nil {
		return Course{}, err
	}
	s.buffer[idx] = c
	return c, nil
}

// SetCourseCount replaces the buffer with n empty rows. Counts outside 1..15 are ignored.
func (s *Session) SetCourseCount(n int) bool {
	if n <= 0 || n > maxCourseCount {
		return false
	}
	buf := make([]Course, n)
	for i := range buf {
		buf[i] = NewCourse()
	}
	s.buffer = buf
	return true
}

func (s *Session) courseIndex(id ID) int {
	for i, c := range s.buffer {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) resetBuffer() {
	s.buffer = []Course{NewCourse()}
	s.editTarget = ""
}

// Semester history

// Semesters returns a copy of the semester history, in order.
func (s *Session) Semesters() []Semester {
	return cloneSemesters(s.semesters)
}

// Semester returns a copy of one semester and its position in the history.
func (s *Session) Semester(id ID) (Semester, int, error) {
	idx := indexOf(s.semesters, id)
	if idx < 0 {
		return nil, -1, ErrSemesterNotFound
	}
	return s.semesters[idx].clone(), idx, nil
}

// FinalizeOpenBuffer commits the open buffer as a semester.
// A reopened semester is replaced in place; otherwise the semester is appended.
// It fails with ErrNoQualifyingCredits, leaving the ledger untouched, when no
// course has positive credits.
func (s *Session) FinalizeOpenBuffer() (*DetailedSemester, error) {
	res := ComputeSGPA(s.buffer, s.regulation)
	if res.TotalCredits == 0 {
		return nil, ErrNoQualifyingCredits
	}

	sem := &DetailedSemester{
		ID:      s.editTarget,
		Credits: res.TotalCredits,
		SGPA:    res.Value,
		Courses: cloneCourses(s.buffer),
	}
	if sem.ID == "" {
		sem.ID = NewID()
	}

	switch idx := indexOf(s.semesters, sem.ID); {
	case idx >= 0:
		s.semesters[idx] = sem
	case s.editTarget == "" && s.onlyBlankPlaceholder():
		s.semesters = []Semester{sem}
	default:
		// new semester, or the reopened one was deleted meanwhile
		s.semesters = append(s.semesters, sem)
	}

	s.resetBuffer()
	return sem.clone().(*DetailedSemester), nil
}

func (s *Session) onlyBlankPlaceholder() bool {
	if len(s.semesters) != 1 {
		return false
	}
	cs, ok := s.semesters[0].(*CondensedSemester)
	return ok && cs.isBlank()
}

// ReopenSemester loads a semester's courses into the open buffer for editing.
// Condensed semesters have no courses and fail with ErrCondensedSemester.
func (s *Session) ReopenSemester(id ID) error {
	idx := indexOf(s.semesters, id)
	if idx < 0 {
		return ErrSemesterNotFound
	}
	ds, ok := s.semesters[idx].(*DetailedSemester)
	if !ok {
		return ErrCondensedSemester
	}
	s.buffer = cloneCourses(ds.Courses)
	if len(s.buffer) == 0 {
		s.buffer = []Course{NewCourse()}
	}
	s.editTarget = ds.ID
	return nil
}

// DeleteSemester removes a semester and records it for undo.
func (s *Session) DeleteSemester(id ID) error {
	idx := indexOf(s.semesters, id)
	if idx < 0 {
		return ErrSemesterNotFound
	}
	deleted := s.semesters[idx]
	s.undo.Record(DeletedSemester{Semester: deleted.clone(), Index: idx, At: s.now()})

	sems := make([]Semester, 0, len(s.semesters)-1)
	sems = append(sems, s.semesters[:idx]...)
	sems = append(sems, s.semesters[idx+1:]...)
	s.semesters = sems

	if s.editTarget == id {
		s.resetBuffer()
	}
	return nil
}

// Condensed semesters

// AddBareSemester appends a condensed semester holding credits and sgpa as entered.
func (s *Session) AddBareSemester(credits, sgpa core.Numeric) *CondensedSemester {
	sem := &CondensedSemester{ID: NewID(), Credits: credits, SGPA: sgpa}
	s.semesters = append(s.semesters, sem)
	return sem.clone().(*CondensedSemester)
}

// SetBareSemester edits a condensed semester. Detailed semesters fail with ErrDetailedSemester.
func (s *Session) SetBareSemester(id ID, credits, sgpa core.Numeric) (*CondensedSemester, error) {
	idx := indexOf(s.semesters, id)
	if idx < 0 {
		return nil, ErrSemesterNotFound
	}
	cs, ok := s.semesters[idx].(*CondensedSemester)
	if !ok {
		return nil, ErrDetailedSemester
	}
	cs.Credits = credits
	cs.SGPA = sgpa
	return cs.clone().(*CondensedSemester), nil
}

// RemoveBareSemester drops a condensed semester. It is not recorded for undo.
func (s *Session) RemoveBareSemester(id ID) error {
	idx := indexOf(s.semesters, id)
	if idx < 0 {
		return ErrSemesterNotFound
	}
	if _, ok := s.semesters[idx].(*CondensedSemester); !ok {
		return ErrDetailedSemester
	}
	sems := make([]Semester, 0, len(s.semesters)-1)
	sems = append(sems, s.semesters[:idx]...)
	sems = append(sems, s.semesters[idx+1:]...)
	s.semesters = sems
	return nil
}

// Whole ledger

// ClearAll resets the ledger, keeping the regulation, and records the previous state for undo.
func (s *Session) ClearAll() {
	s.recordClearedAll()
	s.restore(Snapshot{Regulation: s.regulation})
}

func (s *Session) recordClearedAll() {
	s.undo.Record(ClearedAll{Snapshot: s.Snapshot(), At: s.now()})
}

// Undo reverts the most recent undoable operation.
func (s *Session) Undo() (UndoRecord, error) {
	r, ok := s.undo.Pop()
	if !ok {
		return nil, ErrNothingToUndo
	}
	r.revert(s)
	return r, nil
}

// UndoDepth returns how many operations can be undone.
func (s *Session) UndoDepth() int { return s.undo.Len() }

// Computations

// SGPA of the open buffer.
func (s *Session) SGPA() Result {
	return ComputeSGPA(s.buffer, s.regulation)
}

// CGPA over the prior transcript and the semester history.
func (s *Session) CGPA() Result {
	return ComputeCGPA(s.priorCredits, s.priorCGPA, s.semesters)
}

func (s *Session) Summary() Summary {
	return summarize(Snapshot{
		PriorCredits: s.priorCredits,
		PriorCGPA:    s.priorCGPA,
		Semesters:    s.semesters,
		Courses:      s.buffer,
	}, s.regulation)
}

// SolveTarget solves for the SGPA needed to reach target from the current standing.
// Unparseable prior transcript values count as 0.
func (s *Session) SolveTarget(target, remaining, avgCredits core.Numeric) (Target, error) {
	points, credits := standing(s.priorCredits, s.priorCGPA, s.semesters, true)
	return solve(target, remaining, avgCredits, credits, points)
}
