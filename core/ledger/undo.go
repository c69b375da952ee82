package ledger

import "time"

// MaxUndo is how many undo records a session keeps; older ones are evicted first.
const MaxUndo = 10

// UndoKind tags the UndoRecord variants.
type UndoKind string

const (
	UndoDeletedSemester UndoKind = "DELETE_SEMESTER"
	UndoClearedAll      UndoKind = "CLEAR_DATA"
)

// UndoRecord is either a DeletedSemester or a ClearedAll.
type UndoRecord interface {
	Kind() UndoKind
	RecordedAt() time.Time
	revert(s *Session)
}

// DeletedSemester is recorded when a semester is deleted from the history.
type DeletedSemester struct {
	Semester Semester
	Index    int // position the semester held before deletion
	At       time.Time
}

// ClearedAll is recorded before the whole ledger is replaced (clear, import, reconciliation).
type ClearedAll struct {
	Snapshot Snapshot
	At       time.Time
}

var (
	_ UndoRecord = DeletedSemester{}
	_ UndoRecord = ClearedAll{}
)

func (r DeletedSemester) Kind() UndoKind        { return UndoDeletedSemester }
func (r DeletedSemester) RecordedAt() time.Time { return r.At }

// revert puts the semester back where it was, or at the end if the history has since shrunk.
func (r DeletedSemester) revert(s *Session) {
	idx := r.Index
	if idx < 0 {
		idx = 0
	}
	if idx > len(s.semesters) {
		idx = len(s.semesters)
	}
	sems := make([]Semester, 0, len(s.semesters)+1)
	sems = append(sems, s.semesters[:idx]...)
	sems = append(sems, r.Semester.clone())
	sems = append(sems, s.semesters[idx:]...)
	s.semesters = sems
}

func (r ClearedAll) Kind() UndoKind        { return UndoClearedAll }
func (r ClearedAll) RecordedAt() time.Time { return r.At }

func (r ClearedAll) revert(s *Session) {
	s.restore(r.Snapshot.clone())
}

// UndoLog is a bounded LIFO stack of UndoRecords.
type UndoLog struct {
	records []UndoRecord
	max     int
}

func NewUndoLog(max int) *UndoLog {
	if max <= 0 {
		max = MaxUndo
	}
	return &UndoLog{max: max}
}

// Record pushes r, evicting the oldest record past the limit.
func (l *UndoLog) Record(r UndoRecord) {
	l.records = append(l.records, r)
	if over := len(l.records) - l.max; over > 0 {
		l.records = append([]UndoRecord(nil), l.records[over:]...)
	}
}

// Pop removes and returns the most recent record.
func (l *UndoLog) Pop() (UndoRecord, bool) {
	n := len(l.records)
	if n == 0 {
		return nil, false
	}
	r := l.records[n-1]
	l.records[n-1] = nil
	l.records = l.records[:n-1]
	return r, true
}

// Peek returns the most recent record without removing it.
func (l *UndoLog) Peek() (UndoRecord, bool) {
	if len(l.records) == 0 {
		return nil, false
	}
	return l.records[len(l.records)-1], true
}

func (l *UndoLog) Len() int { return len(l.records) }
