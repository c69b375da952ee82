package ledger

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/trezcool/gradeledger/core"
	"github.com/trezcool/gradeledger/core/grading"
)

// ID identifies courses and semesters. It is opaque and stable across edits.
// Older exports used numeric ids; those are read as their decimal text.
type ID string

func NewID() ID { return ID(uuid.New().String()) }

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

type Course struct {
	ID      ID            `json:"id" yaml:"id"`
	Code    string        `json:"code,omitempty" yaml:"code,omitempty"`
	Name    string        `json:"name" yaml:"name"`
	Credits core.Numeric  `json:"credits" yaml:"credits"`
	Grade   grading.Grade `json:"grade" yaml:"grade"`
}

// NewCourse returns an empty course row.
func NewCourse() Course {
	return Course{ID: NewID(), Grade: grading.GradeS}
}

// CourseField names an editable Course field.
type CourseField string

const (
	FieldCode    CourseField = "code"
	FieldName    CourseField = "name"
	FieldCredits CourseField = "credits"
	FieldGrade   CourseField = "grade"
)

func (c *Course) set(field CourseField, value string) error {
	switch field {
	case FieldCode:
		c.Code = value
	case FieldName:
		c.Name = value
	case FieldCredits:
		c.Credits = core.Numeric(value)
	case FieldGrade:
		c.Grade = grading.Grade(value).Normalize()
	default:
		return ErrUnknownField
	}
	return nil
}

func cloneCourses(courses []Course) []Course {
	if courses == nil {
		return nil
	}
	return append([]Course(nil), courses...)
}

// SemesterKind tags the two Semester variants.
type SemesterKind string

const (
	KindDetailed  SemesterKind = "detailed"
	KindCondensed SemesterKind = "condensed"
)

// Semester is either a *DetailedSemester or a *CondensedSemester.
type Semester interface {
	Key() ID
	Kind() SemesterKind
	// Standing returns the credits and SGPA the semester contributes to the CGPA.
	// ok is false when either value is missing.
	Standing() (credits, sgpa float64, ok bool)
	clone() Semester
}

// DetailedSemester was finalized from a course list; Credits and SGPA are derived from Courses.
type DetailedSemester struct {
	ID      ID
	Credits float64
	SGPA    float64
	Courses []Course
	// Unread keeps imported credits/SGPA text that is not a number.
	// Such a semester does not count towards the CGPA until it is finalized again.
	Unread *RawStanding
}

// RawStanding is credits and SGPA as written in an imported document.
type RawStanding struct {
	Credits core.Numeric
	SGPA    core.Numeric
}

// CondensedSemester only holds the credits and SGPA as entered; they are authoritative.
type CondensedSemester struct {
	ID      ID
	Credits core.Numeric
	SGPA    core.Numeric
}

var (
	_ Semester = (*DetailedSemester)(nil)
	_ Semester = (*CondensedSemester)(nil)
)

func (s *DetailedSemester) Key() ID            { return s.ID }
func (s *DetailedSemester) Kind() SemesterKind { return KindDetailed }

func (s *DetailedSemester) Standing() (float64, float64, bool) {
	if s.Unread != nil {
		return 0, 0, false
	}
	return s.Credits, s.SGPA, true
}

// Values returns credits and SGPA as text, the imported text when it could not be read.
func (s *DetailedSemester) Values() (credits, sgpa core.Numeric) {
	if s.Unread != nil {
		return s.Unread.Credits, s.Unread.SGPA
	}
	return core.NumericOf(s.Credits), core.NumericOf(s.SGPA)
}

func (s *DetailedSemester) clone() Semester {
	c := *s
	c.Courses = cloneCourses(s.Courses)
	if s.Unread != nil {
		raw := *s.Unread
		c.Unread = &raw
	}
	return &c
}

func (s *CondensedSemester) Key() ID            { return s.ID }
func (s *CondensedSemester) Kind() SemesterKind { return KindCondensed }

func (s *CondensedSemester) Standing() (float64, float64, bool) {
	credits, ok := s.Credits.Float()
	if !ok {
		return 0, 0, false
	}
	sgpa, ok := s.SGPA.Float()
	if !ok {
		return 0, 0, false
	}
	return credits, sgpa, true
}

func (s *CondensedSemester) clone() Semester {
	c := *s
	return &c
}

// isBlank reports whether nothing was entered yet.
func (s *CondensedSemester) isBlank() bool {
	return s.Credits.IsEmpty() && s.SGPA.IsEmpty()
}

func cloneSemesters(sems []Semester) []Semester {
	if sems == nil {
		return nil
	}
	out := make([]Semester, len(sems))
	for i, s := range sems {
		out[i] = s.clone()
	}
	return out
}

func indexOf(sems []Semester, id ID) int {
	for i, s := range sems {
		if s.Key() == id {
			return i
		}
	}
	return -1
}

// Snapshot is the full serializable ledger state.
type Snapshot struct {
	StudentName       string
	RegNo             string
	PriorCredits      core.Numeric
	PriorCGPA         core.Numeric
	Regulation        grading.Regulation
	Semesters         []Semester
	Courses           []Course // open buffer
	EditingSemesterID ID
}

func (s Snapshot) clone() Snapshot {
	s.Semesters = cloneSemesters(s.Semesters)
	s.Courses = cloneCourses(s.Courses)
	return s
}
