package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradeledger/core"
	"github.com/trezcool/gradeledger/core/extraction"
	"github.com/trezcool/gradeledger/core/grading"
)

func extracted(ordinal core.Numeric, rows ...string) extraction.Semester {
	sem := extraction.Semester{Semester: ordinal, Courses: []extraction.Course{}}
	for i := 0; i+1 < len(rows); i += 2 {
		sem.Courses = append(sem.Courses, extraction.Course{
			Code:    "CS" + string(rune('A'+i/2)),
			Name:    "Course",
			Credits: core.Numeric(rows[i]),
			Grade:   grading.Grade(rows[i+1]),
		})
	}
	return sem
}

func TestReconcile(t *testing.T) {
	cgpa := 8.1
	ex := extraction.Result{
		StudentName: "Ada Lovelace",
		TotalCGPA:   &cgpa,
		Semesters: []extraction.Semester{
			extracted("3", "4", "A", "3", "b"),
			extracted("1", "3", "C", "4", "S"),
			extracted("2", "2", "A", "0", "S", "", "U"),
		},
	}

	s := newTestSession()
	s.SetProfile("old name", "REG-1")
	s.SetPriorTranscript("40", "7.5")
	p := Reconcile(ex, s.Snapshot(), s.Regulation())

	require.False(t, p.IsEmpty())
	assert.Equal(t, "Ada Lovelace", p.StudentName)
	assert.Equal(t, ID("3"), p.EditingSemesterID)
	assert.Equal(t, &cgpa, p.ReportedCGPA)
	if assert.Len(t, p.Courses, 2) {
		assert.Equal(t, grading.GradeB, p.Courses[1].Grade)
		assert.NotEmpty(t, p.Courses[0].ID)
		assert.NotEqual(t, p.Courses[0].ID, p.Courses[1].ID)
	}

	require.Len(t, p.Semesters, 2)
	first := p.Semesters[0].(*DetailedSemester)
	assert.Equal(t, 8.71, first.SGPA)
	assert.Equal(t, float64(7), first.Credits)
	second := p.Semesters[1].(*DetailedSemester)
	assert.Equal(t, float64(9), second.SGPA)
	assert.Equal(t, float64(2), second.Credits)
	assert.Len(t, second.Courses, 3)

	// nothing changes until applied
	assert.Equal(t, "old name", s.StudentName())
	assert.Empty(t, s.Semesters())

	require.True(t, s.ApplyProposal(p))
	assert.Equal(t, "Ada Lovelace", s.StudentName())
	assert.Equal(t, "REG-1", s.RegNo())
	assert.Equal(t, p.Courses, s.Courses())
	assert.Equal(t, ID("3"), s.EditingSemesterID())
	assert.Len(t, s.Semesters(), 2)
	assert.Equal(t, Result{Value: 7.73, TotalCredits: 49}, s.CGPA())
	assert.Equal(t, 1, s.UndoDepth())

	// finalizing the buffer appends it under its ordinal
	sem, err := s.FinalizeOpenBuffer()
	require.NoError(t, err)
	assert.Equal(t, ID("3"), sem.ID)
	assert.Len(t, s.Semesters(), 3)

	_, err = s.Undo()
	require.NoError(t, err)
	assert.Equal(t, "old name", s.StudentName())
	assert.Empty(t, s.Semesters())
}

func TestReconcile_splitsEverySize(t *testing.T) {
	for n := 1; n <= 4; n++ {
		ex := extraction.Result{}
		for i := 0; i < n; i++ {
			ex.Semesters = append(ex.Semesters, extracted("", "3", "A", "2", "C"))
		}
		p := Reconcile(ex, Snapshot{}, grading.Regulation2021)

		assert.Len(t, p.Courses, 2, "n=%d", n)
		assert.NotEmpty(t, p.EditingSemesterID, "n=%d", n)
		if assert.Len(t, p.Semesters, n-1, "n=%d", n) {
			for _, sem := range p.Semesters {
				assert.Equal(t, 8.2, sem.(*DetailedSemester).SGPA)
			}
		}
	}
}

func TestReconcile_empty(t *testing.T) {
	s := newTestSession()
	s.SetProfile("Ada", "")
	s.AddBareSemester("20", "8")
	before := s.Snapshot()

	p := Reconcile(extraction.Result{StudentName: "Someone"}, s.Snapshot(), s.Regulation())
	assert.True(t, p.IsEmpty())
	assert.Empty(t, p.Diff())
	assert.False(t, s.ApplyProposal(p))
	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, 0, s.UndoDepth())
}

func TestReconcile_firstSemesterWithoutCourses(t *testing.T) {
	ex := extraction.Result{Semesters: []extraction.Semester{extracted("1")}}
	p := Reconcile(ex, Snapshot{}, grading.Regulation2021)
	assert.False(t, p.IsEmpty())

	s := newTestSession()
	require.True(t, s.ApplyProposal(p))
	assert.Len(t, s.Courses(), 1)
	assert.Equal(t, ID("1"), s.EditingSemesterID())
}

func TestProposal_Diff(t *testing.T) {
	s := newTestSession()
	s.SetProfile("Ada", "")
	fillBuffer(t, s, "3", "C")

	ex := extraction.Result{Semesters: []extraction.Semester{extracted("2", "4", "S"), extracted("1", "3", "C")}}
	diff := Reconcile(ex, s.Snapshot(), s.Regulation()).Diff()

	assert.Contains(t, diff, "--- current")
	assert.Contains(t, diff, "+++ proposed")
	assert.Contains(t, diff, "+semester 1: 3 credits, sgpa 7.00")
	assert.Contains(t, diff, "-   | 3 | C")
	assert.Contains(t, diff, "+  CSA Course | 4 | S")
}
