package ledger

import (
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/gradeledger/core"
	"github.com/trezcool/gradeledger/core/grading"
)

// Format is an interchange document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat reads a format name or file extension; anything unknown is JSON.
func ParseFormat(s string) Format {
	switch strings.TrimPrefix(strings.ToLower(core.CleanString(s)), ".") {
	case "yaml", "yml":
		return FormatYAML
	}
	return FormatJSON
}

// Export is an interchange document: a snapshot plus the time it was taken.
type Export struct {
	Snapshot   Snapshot
	ExportDate time.Time
}

// The document keys follow the calculator's historic export files so those can still be imported.
type (
	exportDoc struct {
		StudentName       string         `json:"studentName" yaml:"studentName"`
		RegNo             string         `json:"regNo" yaml:"regNo"`
		PrevCGPA          core.Numeric   `json:"prevCgpa" yaml:"prevCgpa"`
		PrevCredits       core.Numeric   `json:"prevCredits" yaml:"prevCredits"`
		Regulation        string         `json:"regulation,omitempty" yaml:"regulation,omitempty"`
		Semesters         *[]semesterDoc `json:"semesters" yaml:"semesters"`
		Courses           *[]Course      `json:"courses" yaml:"courses"`
		EditingSemesterID ID             `json:"editingSemesterId,omitempty" yaml:"editingSemesterId,omitempty"`
		ExportDate        *time.Time     `json:"exportDate,omitempty" yaml:"exportDate,omitempty"`
	}

	semesterDoc struct {
		ID      ID           `json:"id" yaml:"id"`
		Kind    SemesterKind `json:"kind,omitempty" yaml:"kind,omitempty"`
		Credits core.Numeric `json:"credits" yaml:"credits"`
		SGPA    core.Numeric `json:"sgpa" yaml:"sgpa"`
		Courses *[]Course    `json:"courses,omitempty" yaml:"courses,omitempty"`
	}
)

func toSemesterDoc(s Semester) semesterDoc {
	switch sem := s.(type) {
	case *DetailedSemester:
		courses := cloneCourses(sem.Courses)
		if courses == nil {
			courses = []Course{}
		}
		credits, sgpa := sem.Values()
		return semesterDoc{
			ID:      sem.ID,
			Kind:    KindDetailed,
			Credits: credits,
			SGPA:    sgpa,
			Courses: &courses,
		}
	case *CondensedSemester:
		return semesterDoc{ID: sem.ID, Kind: KindCondensed, Credits: sem.Credits, SGPA: sem.SGPA}
	}
	return semesterDoc{}
}

// fromSemesterDoc rebuilds a Semester. Documents without a kind are detailed when they carry courses.
// Unreadable detailed values are kept as text, never zero-filled.
func fromSemesterDoc(d semesterDoc) Semester {
	kind := d.Kind
	if kind == "" {
		kind = KindCondensed
		if d.Courses != nil {
			kind = KindDetailed
		}
	}
	if d.ID == "" {
		d.ID = NewID()
	}

	if kind == KindDetailed {
		sem := &DetailedSemester{ID: d.ID, Courses: []Course{}}
		if d.Courses != nil {
			sem.Courses = cloneCourses(*d.Courses)
		}
		credits, okCredits := d.Credits.Float()
		sgpa, okSGPA := d.SGPA.Float()
		if !okCredits || !okSGPA {
			sem.Unread = &RawStanding{Credits: d.Credits, SGPA: d.SGPA}
			return sem
		}
		sem.Credits, sem.SGPA = credits, sgpa
		return sem
	}
	return &CondensedSemester{ID: d.ID, Credits: d.Credits, SGPA: d.SGPA}
}

func toExportDoc(e Export) exportDoc {
	snap := e.Snapshot
	sems := make([]semesterDoc, 0, len(snap.Semesters))
	for _, s := range snap.Semesters {
		sems = append(sems, toSemesterDoc(s))
	}
	courses := cloneCourses(snap.Courses)
	if courses == nil {
		courses = []Course{}
	}
	doc := exportDoc{
		StudentName:       snap.StudentName,
		RegNo:             snap.RegNo,
		PrevCGPA:          snap.PriorCGPA,
		PrevCredits:       snap.PriorCredits,
		Regulation:        string(snap.Regulation),
		Semesters:         &sems,
		Courses:           &courses,
		EditingSemesterID: snap.EditingSemesterID,
	}
	if !e.ExportDate.IsZero() {
		date := e.ExportDate.UTC()
		doc.ExportDate = &date
	}
	return doc
}

func fromExportDoc(doc exportDoc) (Export, error) {
	var missing []core.FieldError
	if doc.Semesters == nil {
		missing = append(missing, core.FieldError{Field: "semesters", Error: "this field is required"})
	}
	if doc.Courses == nil {
		missing = append(missing, core.FieldError{Field: "courses", Error: "this field is required"})
	}
	if len(missing) > 0 {
		return Export{}, core.NewValidationError(ErrInvalidExport, missing...)
	}
	snap := Snapshot{
		StudentName:       doc.StudentName,
		RegNo:             doc.RegNo,
		PriorCredits:      doc.PrevCredits,
		PriorCGPA:         doc.PrevCGPA,
		Regulation:        grading.Regulation(doc.Regulation),
		Semesters:         make([]Semester, 0, len(*doc.Semesters)),
		Courses:           cloneCourses(*doc.Courses),
		EditingSemesterID: doc.EditingSemesterID,
	}
	for _, d := range *doc.Semesters {
		snap.Semesters = append(snap.Semesters, fromSemesterDoc(d))
	}
	for i := range snap.Courses {
		if snap.Courses[i].ID == "" {
			snap.Courses[i].ID = NewID()
		}
	}

	exp := Export{Snapshot: snap}
	if doc.ExportDate != nil {
		exp.ExportDate = *doc.ExportDate
	}
	return exp, nil
}

// MarshalJSON encodes the snapshot in the interchange layout (without an export date).
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(toExportDoc(Export{Snapshot: s}))
}

// UnmarshalJSON decodes the interchange layout. Absent fields default to empty.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var doc exportDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.Semesters == nil {
		doc.Semesters = &[]semesterDoc{}
	}
	if doc.Courses == nil {
		doc.Courses = &[]Course{}
	}
	exp, err := fromExportDoc(doc)
	if err != nil {
		return err
	}
	*s = exp.Snapshot
	return nil
}

// Encode writes e to w.
func (e Export) Encode(w io.Writer, format Format) error {
	doc := toExportDoc(e)
	if format == FormatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return errors.Wrap(err, "encoding yaml export")
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(doc), "encoding json export")
}

// DecodeExport reads an interchange document. Undecodable documents fail with ErrInvalidExport;
// documents missing `semesters` or `courses` fail with a *core.ValidationError naming them.
func DecodeExport(r io.Reader, format Format) (Export, error) {
	var doc exportDoc
	if format == FormatYAML {
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return Export{}, errors.Wrap(ErrInvalidExport, err.Error())
		}
	} else {
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return Export{}, errors.Wrap(ErrInvalidExport, err.Error())
		}
	}
	return fromExportDoc(doc)
}

// Export returns the current ledger as an interchange document.
func (s *Session) Export() Export {
	return Export{Snapshot: s.Snapshot(), ExportDate: s.now()}
}

// Import replaces the ledger with e, recording the previous state for undo.
func (s *Session) Import(e Export) {
	s.recordClearedAll()
	s.restore(e.Snapshot.clone())
}
