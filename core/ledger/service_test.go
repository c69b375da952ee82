package ledger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradeledger/core/extraction"
	"github.com/trezcool/gradeledger/core/grading"
	"github.com/trezcool/gradeledger/core/ledger"
	"github.com/trezcool/gradeledger/tests"
)

// failingRepository fails every save while err is set.
type failingRepository struct {
	ledger.Repository
	err error
}

func (r *failingRepository) SaveSnapshot(ctx context.Context, key ledger.ID, snap ledger.Snapshot) error {
	if r.err != nil {
		return r.err
	}
	return r.Repository.SaveSnapshot(ctx, key, snap)
}

func TestService_persistsChanges(t *testing.T) {
	ctx := context.Background()
	svc, repo := testutil.NewLedgerService(t)

	key := testutil.CreateLedger(t, svc, func(s *ledger.Session) error {
		s.SetProfile("Ada", "REG-1")
		_, err := testutil.Semester(s, "3", "C", "4", "S")
		return err
	})

	snap, err := repo.LoadSnapshot(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "Ada", snap.StudentName)
	require.Len(t, snap.Semesters, 1)

	// a fresh service loads the ledger from the repository, without its undo history
	other := ledger.NewService(repo, testutil.NewLogger(), grading.DefaultRegulation)
	err = other.View(ctx, key, func(s *ledger.Session) error {
		assert.Equal(t, 8.71, s.CGPA().Value)
		assert.Equal(t, 0, s.UndoDepth())
		return nil
	})
	require.NoError(t, err)
}

func TestService_failedChangeIsNotSaved(t *testing.T) {
	ctx := context.Background()
	svc, repo := testutil.NewLedgerService(t)
	key := testutil.CreateLedger(t, svc, nil)

	err := svc.Do(ctx, key, func(s *ledger.Session) error {
		s.SetProfile("Ada", "")
		_, err := s.FinalizeOpenBuffer() // buffer has no credits
		return err
	})
	assert.Equal(t, ledger.ErrNoQualifyingCredits, errors.Cause(err))

	snap, err := repo.LoadSnapshot(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, snap.StudentName)

	// the live session was rolled back too
	err = svc.View(ctx, key, func(s *ledger.Session) error {
		assert.Empty(t, s.StudentName())
		return nil
	})
	require.NoError(t, err)

	// and the next change does not carry the failed one along
	require.NoError(t, svc.Do(ctx, key, func(s *ledger.Session) error {
		s.AddCourseRow()
		return nil
	}))
	snap, err = repo.LoadSnapshot(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, snap.StudentName)
	assert.Len(t, snap.Courses, 2)
}

func TestService_failedChangeKeepsUndoHistory(t *testing.T) {
	ctx := context.Background()
	svc, _ := testutil.NewLedgerService(t)
	var semID ledger.ID
	key := testutil.CreateLedger(t, svc, func(s *ledger.Session) error {
		semID = s.AddBareSemester("20", "8").ID
		return nil
	})

	err := svc.Do(ctx, key, func(s *ledger.Session) error {
		if err := s.DeleteSemester(semID); err != nil {
			return err
		}
		return s.DeleteSemester("nope")
	})
	assert.Equal(t, ledger.ErrSemesterNotFound, errors.Cause(err))

	err = svc.View(ctx, key, func(s *ledger.Session) error {
		assert.Len(t, s.Semesters(), 1)
		assert.Equal(t, 0, s.UndoDepth())
		return nil
	})
	require.NoError(t, err)
}

func TestService_saveFailure(t *testing.T) {
	boom := errors.New("disk full")
	repo := testutil.NewRepository(t)
	svc := ledger.NewService(repo, testutil.NewLogger(), grading.DefaultRegulation)
	key := testutil.CreateLedger(t, svc, nil)

	ctx := context.Background()
	flaky := &failingRepository{Repository: repo, err: boom}
	broken := ledger.NewService(flaky, testutil.NewLogger(), "")
	err := broken.Do(ctx, key, func(s *ledger.Session) error {
		s.AddBareSemester("20", "8")
		s.ClearAll()
		return nil
	})
	assert.Equal(t, boom, errors.Cause(err))

	err = broken.View(ctx, key, func(s *ledger.Session) error {
		assert.Empty(t, s.Semesters())
		assert.Equal(t, 0, s.UndoDepth())
		return nil
	})
	require.NoError(t, err)

	// a staged proposal survives a failed apply
	ex := extraction.Result{Semesters: []extraction.Semester{
		{Semester: "1", Courses: []extraction.Course{{Name: "Maths", Credits: "3", Grade: grading.GradeC}}},
	}}
	_, err = broken.Propose(ctx, key, ex)
	require.NoError(t, err)
	applied, err := broken.ApplyProposal(ctx, key)
	assert.Equal(t, boom, errors.Cause(err))
	assert.False(t, applied)

	flaky.err = nil
	applied, err = broken.ApplyProposal(ctx, key)
	require.NoError(t, err)
	assert.True(t, applied)
	snap, err := repo.LoadSnapshot(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, ledger.ID("1"), snap.EditingSemesterID)
}

func TestService_Prune(t *testing.T) {
	ctx := context.Background()
	svc, _ := testutil.NewLedgerService(t)
	key := testutil.CreateLedger(t, svc, func(s *ledger.Session) error {
		s.AddBareSemester("20", "8")
		s.ClearAll()
		return nil
	})

	assert.Equal(t, 0, svc.Prune(time.Hour))
	err := svc.View(ctx, key, func(s *ledger.Session) error {
		assert.Equal(t, 1, s.UndoDepth())
		return nil
	})
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	assert.Equal(t, 1, svc.Prune(time.Millisecond))

	// the ledger is reloaded from the repository, without its undo history
	err = svc.View(ctx, key, func(s *ledger.Session) error {
		assert.Empty(t, s.Semesters())
		assert.Equal(t, 0, s.UndoDepth())
		return nil
	})
	require.NoError(t, err)
}

func TestService_unknownKey(t *testing.T) {
	svc, _ := testutil.NewLedgerService(t)
	ctx := context.Background()

	err := svc.View(ctx, "nope", func(*ledger.Session) error { return nil })
	assert.Equal(t, ledger.ErrNotFound, errors.Cause(err))
	_, err = svc.ApplyProposal(ctx, "nope")
	assert.Equal(t, ledger.ErrNotFound, errors.Cause(err))
	assert.Equal(t, ledger.ErrNotFound, errors.Cause(svc.Delete(ctx, "nope")))
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, repo := testutil.NewLedgerService(t)
	key := testutil.CreateLedger(t, svc, nil)

	require.NoError(t, svc.Delete(ctx, key))
	_, err := repo.LoadSnapshot(ctx, key)
	assert.Equal(t, ledger.ErrNotFound, err)

	err = svc.Do(ctx, key, func(*ledger.Session) error { return nil })
	assert.Equal(t, ledger.ErrNotFound, errors.Cause(err))
}

func TestService_proposals(t *testing.T) {
	ctx := context.Background()
	svc, _ := testutil.NewLedgerService(t)
	key := testutil.CreateLedger(t, svc, func(s *ledger.Session) error {
		s.AddBareSemester("20", "8")
		return nil
	})

	applied, err := svc.ApplyProposal(ctx, key)
	require.NoError(t, err)
	assert.False(t, applied, "nothing staged")

	ex := extraction.Result{
		StudentName: "Ada",
		Semesters: []extraction.Semester{
			{Semester: "2", Courses: []extraction.Course{{Name: "Compilers", Credits: "4", Grade: grading.GradeA}}},
			{Semester: "1", Courses: []extraction.Course{{Name: "Maths", Credits: "3", Grade: grading.GradeC}}},
		},
	}
	p, err := svc.Propose(ctx, key, ex)
	require.NoError(t, err)
	assert.Equal(t, ledger.ID("2"), p.EditingSemesterID)

	// staging leaves the ledger untouched
	err = svc.View(ctx, key, func(s *ledger.Session) error {
		assert.Len(t, s.Semesters(), 1)
		return nil
	})
	require.NoError(t, err)

	applied, err = svc.ApplyProposal(ctx, key)
	require.NoError(t, err)
	assert.True(t, applied)
	err = svc.View(ctx, key, func(s *ledger.Session) error {
		assert.Equal(t, "Ada", s.StudentName())
		assert.Len(t, s.Semesters(), 1)
		assert.Equal(t, 1, s.UndoDepth())
		return nil
	})
	require.NoError(t, err)

	// a proposal is applied once
	applied, err = svc.ApplyProposal(ctx, key)
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestService_concurrentChanges(t *testing.T) {
	ctx := context.Background()
	svc, repo := testutil.NewLedgerService(t)
	key := testutil.CreateLedger(t, svc, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.Do(ctx, key, func(s *ledger.Session) error {
				s.AddBareSemester("1", "9")
				return nil
			})
		}()
	}
	wg.Wait()

	snap, err := repo.LoadSnapshot(ctx, key)
	require.NoError(t, err)
	assert.Len(t, snap.Semesters, 20)
}
