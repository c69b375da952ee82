package core

import (
	"reflect"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/trezcool/gradeledger/core/grading"
)

var (
	// custom validation tags & texts
	gradeTag  = "grade"
	gradeText = "{0} is not a recognized grade"

	regulationTag  = "regulation"
	regulationText = "{0} must be one of " + strings.Join(regulationNames(), ", ")

	numericTag  = "numeric_"
	numericText = "{0} must be a number"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(gradeTag, gradeValidation)
	RegisterCustomTranslation(validate, translator, gradeTag, gradeText)

	_ = validate.RegisterValidation(regulationTag, regulationValidation)
	RegisterCustomTranslation(validate, translator, regulationTag, regulationText)

	_ = validate.RegisterValidation(numericTag, numericValidation)
	RegisterCustomTranslation(validate, translator, numericTag, numericText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

// gradeValidation accepts any canonical or legacy grade token (case-insensitive).
func gradeValidation(fl validator.FieldLevel) bool {
	return grading.IsKnown(grading.Grade(fl.Field().String()))
}

// regulationValidation accepts the supported regulation names.
func regulationValidation(fl validator.FieldLevel) bool {
	return grading.Regulation(fl.Field().String()).IsSupported()
}

// numericValidation accepts anything ParseNumber can read.
func numericValidation(fl validator.FieldLevel) bool {
	_, ok := ParseNumber(fl.Field().String())
	return ok
}

func regulationNames() []string {
	names := make([]string, 0, len(grading.Regulations))
	for _, r := range grading.Regulations {
		names = append(names, string(r))
	}
	return names
}
