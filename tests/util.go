package testutil

import (
	"context"
	"io/ioutil"
	"log"
	"testing"

	"github.com/trezcool/gradeledger/core"
	"github.com/trezcool/gradeledger/core/grading"
	"github.com/trezcool/gradeledger/core/ledger"
	"github.com/trezcool/gradeledger/services/logger"
	"github.com/trezcool/gradeledger/storage/database/inmem"
)

// NewLogger returns a console logger that discards its output.
func NewLogger() core.Logger {
	return logsvc.NewConsoleLogger(log.New(ioutil.Discard, "", 0), true)
}

// NewRepository returns an empty in-memory snapshot repository.
func NewRepository(t *testing.T) ledger.Repository {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}
	return inmemdb.NewSnapshotRepository(db)
}

// NewLedgerService returns a Service over a fresh in-memory repository.
func NewLedgerService(t *testing.T) (*ledger.Service, ledger.Repository) {
	repo := NewRepository(t)
	return ledger.NewService(repo, NewLogger(), grading.DefaultRegulation), repo
}

// CreateLedger creates a ledger and lets fill populate it.
func CreateLedger(t *testing.T, svc *ledger.Service, fill func(*ledger.Session) error) ledger.ID {
	ctx := context.Background()
	key, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("CreateLedger() failed: %v", err)
	}
	if fill != nil {
		if err = svc.Do(ctx, key, fill); err != nil {
			t.Fatalf("CreateLedger() failed: %v", err)
		}
	}
	return key
}

// FillBuffer replaces the open buffer with one course per credits/grade pair.
func FillBuffer(s *ledger.Session, rows ...string) error {
	s.SetCourseCount(len(rows) / 2)
	for i, c := range s.Courses() {
		if _, err := s.SetCourseField(c.ID, ledger.FieldCredits, rows[2*i]); err != nil {
			return err
		}
		if _, err := s.SetCourseField(c.ID, ledger.FieldGrade, rows[2*i+1]); err != nil {
			return err
		}
	}
	return nil
}

// Semester finalizes a semester made of the credits/grade pairs.
func Semester(s *ledger.Session, rows ...string) (*ledger.DetailedSemester, error) {
	if err := FillBuffer(s, rows...); err != nil {
		return nil, err
	}
	return s.FinalizeOpenBuffer()
}
