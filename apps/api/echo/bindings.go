package echoapi

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradeledger/core"
	"github.com/trezcool/gradeledger/core/grading"
	"github.com/trezcool/gradeledger/core/ledger"
)

const (
	formatParam = "format"
	filesField  = "file"
)

type (
	ProfileRequest struct {
		StudentName  *string       `json:"student_name"`
		RegNo        *string       `json:"reg_no"`
		PriorCredits *core.Numeric `json:"prior_credits"`
		PriorCGPA    *core.Numeric `json:"prior_cgpa"`
		Regulation   string        `json:"regulation" validate:"omitempty,regulation"`
	}

	CourseFieldRequest struct {
		Field string `json:"field" validate:"required,oneof=code name credits grade"`
		Value string `json:"value"`
	}

	CourseCountRequest struct {
		Count int `json:"count" validate:"min=1,max=15"`
	}

	BareSemesterRequest struct {
		Credits core.Numeric `json:"credits"`
		SGPA    core.Numeric `json:"sgpa"`
	}

	TargetRequest struct {
		Target     core.Numeric `json:"target" validate:"required,numeric_"`
		Remaining  core.Numeric `json:"remaining" validate:"required,numeric_"`
		AvgCredits core.Numeric `json:"avg_credits" validate:"required,numeric_"`
	}

	// StandingTargetRequest carries the current standing instead of reading it from a ledger.
	StandingTargetRequest struct {
		TargetRequest
		CurrentCredits core.Numeric `json:"current_credits" validate:"required,numeric_"`
		CurrentCGPA    core.Numeric `json:"current_cgpa" validate:"required,numeric_"`
	}

	CourseInput struct {
		Code    string        `json:"code"`
		Name    string        `json:"name"`
		Credits core.Numeric  `json:"credits"`
		Grade   grading.Grade `json:"grade" validate:"required,grade"`
	}

	SGPARequest struct {
		Regulation string        `json:"regulation" validate:"omitempty,regulation"`
		Courses    []CourseInput `json:"courses" validate:"required,min=1,dive"`
	}
)

func (pr *ProfileRequest) Validate(validate *validator.Validate) error {
	pr.Regulation = core.CleanString(pr.Regulation)
	return validate.Struct(pr)
}

func (cr *CourseFieldRequest) Validate(validate *validator.Validate) error {
	cr.Field = core.CleanString(cr.Field, true /* lower */)
	return validate.Struct(cr)
}

func (cr *CourseCountRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(cr)
}

func (tr *TargetRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(tr)
}

func (tr *StandingTargetRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(tr)
}

func (sr *SGPARequest) Validate(validate *validator.Validate) error {
	sr.Regulation = core.CleanString(sr.Regulation)
	for i := range sr.Courses {
		sr.Courses[i].Grade = sr.Courses[i].Grade.Normalize()
	}
	return validate.Struct(sr)
}

func (sr SGPARequest) courses() []ledger.Course {
	courses := make([]ledger.Course, 0, len(sr.Courses))
	for _, c := range sr.Courses {
		courses = append(courses, ledger.Course{Code: c.Code, Name: c.Name, Credits: c.Credits, Grade: c.Grade})
	}
	return courses
}
