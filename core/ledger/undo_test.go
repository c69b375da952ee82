package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Undo(t *testing.T) {
	s := newTestSession()
	a := s.AddBareSemester("20", "8")
	b := s.AddBareSemester("22", "9")
	c := s.AddBareSemester("18", "7")

	require.NoError(t, s.DeleteSemester(a.ID))
	require.NoError(t, s.DeleteSemester(b.ID))
	assert.Equal(t, []ID{c.ID}, keys(s.Semesters()))

	rec, err := s.Undo()
	require.NoError(t, err)
	assert.Equal(t, UndoDeletedSemester, rec.Kind())
	assert.Equal(t, b.ID, rec.(DeletedSemester).Semester.Key())
	assert.Equal(t, []ID{b.ID, c.ID}, keys(s.Semesters()))

	_, err = s.Undo()
	require.NoError(t, err)
	assert.Equal(t, []ID{a.ID, b.ID, c.ID}, keys(s.Semesters()))

	before := s.Snapshot()
	_, err = s.Undo()
	assert.Equal(t, ErrNothingToUndo, err)
	assert.Equal(t, before, s.Snapshot())
}

func TestSession_Undo_restoresAtRecordedPosition(t *testing.T) {
	s := newTestSession()
	a := s.AddBareSemester("20", "8")
	b := s.AddBareSemester("22", "9")
	c := s.AddBareSemester("18", "7")

	require.NoError(t, s.DeleteSemester(b.ID))
	d := s.AddBareSemester("10", "6")
	_, err := s.Undo()
	require.NoError(t, err)
	assert.Equal(t, []ID{a.ID, b.ID, c.ID, d.ID}, keys(s.Semesters()))

	// the history shrank below the recorded position
	require.NoError(t, s.DeleteSemester(d.ID))
	require.NoError(t, s.RemoveBareSemester(a.ID))
	require.NoError(t, s.RemoveBareSemester(b.ID))
	require.NoError(t, s.RemoveBareSemester(c.ID))
	_, err = s.Undo()
	require.NoError(t, err)
	assert.Equal(t, []ID{d.ID}, keys(s.Semesters()))
}

func TestSession_Undo_mixedRecords(t *testing.T) {
	s := newTestSession()
	a := s.AddBareSemester("20", "8")
	s.ClearAll()
	b := s.AddBareSemester("22", "9")
	require.NoError(t, s.DeleteSemester(b.ID))

	_, err := s.Undo()
	require.NoError(t, err)
	assert.Equal(t, []ID{b.ID}, keys(s.Semesters()))

	rec, err := s.Undo()
	require.NoError(t, err)
	assert.Equal(t, UndoClearedAll, rec.Kind())
	assert.Equal(t, []ID{a.ID}, keys(s.Semesters()))
	assert.Equal(t, 0, s.UndoDepth())
}

func TestUndoLog(t *testing.T) {
	log := NewUndoLog(0)
	assert.Equal(t, 0, log.Len())
	_, ok := log.Pop()
	assert.False(t, ok)
	_, ok = log.Peek()
	assert.False(t, ok)

	for i := 0; i < MaxUndo+3; i++ {
		log.Record(DeletedSemester{Index: i})
	}
	assert.Equal(t, MaxUndo, log.Len())

	top, ok := log.Peek()
	require.True(t, ok)
	assert.Equal(t, MaxUndo+2, top.(DeletedSemester).Index)

	var last DeletedSemester
	for log.Len() > 0 {
		r, _ := log.Pop()
		last = r.(DeletedSemester)
	}
	// the three oldest were evicted
	assert.Equal(t, 3, last.Index)
}

func keys(sems []Semester) []ID {
	ids := make([]ID, 0, len(sems))
	for _, s := range sems {
		ids = append(ids, s.Key())
	}
	return ids
}
