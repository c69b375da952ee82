// Package extraction defines the contract of the transcript recognition service:
// what it returns, how its payload is read and how its failures are reported.
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/trezcool/gradeledger/core"
	"github.com/trezcool/gradeledger/core/grading"
)

type (
	// Result is the structured grade data read from one or more grade card images.
	Result struct {
		StudentName string     `json:"studentName,omitempty"`
		Semesters   []Semester `json:"semesters"`
		TotalCGPA   *float64   `json:"totalCGPA,omitempty"` // as printed on the card, informational only
	}

	Semester struct {
		Semester core.Numeric `json:"semester"` // ordinal
		Courses  []Course     `json:"courses"`
	}

	Course struct {
		Code    string        `json:"code"`
		Name    string        `json:"name"`
		Credits core.Numeric  `json:"credits"`
		Grade   grading.Grade `json:"grade"`
	}

	Image struct {
		Filename string
		MimeType string
		Data     []byte
	}

	// Recognizer turns grade card images into a Result.
	Recognizer interface {
		Extract(ctx context.Context, images ...Image) (Result, error)
	}
)

// Ordinal returns the semester number, if the card printed a usable one.
func (s Semester) Ordinal() (int, bool) {
	n, ok := core.ParseInt(string(s.Semester))
	if !ok || n <= 0 {
		return 0, false
	}
	return n, true
}

// CheckImages rejects uploads that are not images.
func CheckImages(images ...Image) error {
	if len(images) == 0 {
		return NewFailure(CategoryUnreadableInput, errNoImages)
	}
	for _, img := range images {
		if !strings.HasPrefix(img.MimeType, "image/") {
			return NewFailure(CategoryUnreadableInput, errNotAnImage(img.Filename))
		}
		if len(img.Data) == 0 {
			return NewFailure(CategoryUnreadableInput, errEmptyImage(img.Filename))
		}
	}
	return nil
}

// ParseResult reads a recognition payload.
// Markdown code fences around the JSON are tolerated. A missing or non-array
// `semesters` member yields an empty semester list instead of a failure;
// anything that is not a JSON object is an unreadable-input Failure.
func ParseResult(data []byte) (Result, error) {
	data = stripCodeFence(data)

	var raw struct {
		StudentName json.RawMessage `json:"studentName"`
		Semesters   json.RawMessage `json:"semesters"`
		TotalCGPA   json.RawMessage `json:"totalCGPA"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Result{}, NewFailure(CategoryUnreadableInput, err)
	}

	res := Result{Semesters: []Semester{}}
	var name string
	if err := json.Unmarshal(raw.StudentName, &name); err == nil {
		res.StudentName = core.CleanString(name)
	}
	var cgpa core.Numeric
	if err := json.Unmarshal(raw.TotalCGPA, &cgpa); err == nil {
		if f, ok := cgpa.Float(); ok {
			res.TotalCGPA = &f
		}
	}

	trimmed := bytes.TrimSpace(raw.Semesters)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return res, nil
	}
	var sems []Semester
	if err := json.Unmarshal(trimmed, &sems); err != nil {
		return Result{}, NewFailure(CategoryUnreadableInput, err)
	}
	for i := range sems {
		if sems[i].Courses == nil {
			sems[i].Courses = []Course{}
		}
		for j := range sems[i].Courses {
			c := &sems[i].Courses[j]
			c.Code = core.CleanString(c.Code)
			c.Name = core.CleanString(c.Name)
			c.Grade = c.Grade.Normalize()
		}
	}
	res.Semesters = sems
	return res, nil
}

func stripCodeFence(data []byte) []byte {
	s := strings.TrimSpace(string(data))
	if !strings.HasPrefix(s, "```") {
		return []byte(s)
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return []byte(strings.TrimSpace(s))
}
