package ledger

import "errors"

var (
	ErrNotFound            = errors.New("ledger not found")
	ErrSemesterNotFound    = errors.New("semester not found")
	ErrCourseNotFound      = errors.New("course not found")
	ErrUnknownField        = errors.New("unknown course field")
	ErrNoQualifyingCredits = errors.New("add at least one course with credits")
	ErrCondensedSemester   = errors.New("no course data saved for this semester")
	ErrDetailedSemester    = errors.New("semester credits and SGPA are derived from its courses")
	ErrNothingToUndo       = errors.New("nothing to undo")
	ErrInvalidTargetInput  = errors.New("fill all fields with valid values")
	ErrInvalidExport       = errors.New("invalid data file format")
)
