package extraction

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Category classifies recognition failures so callers can suggest a fallback.
type Category string

const (
	CategoryBadCredentials  Category = "bad_credentials"
	CategoryQuotaExhausted  Category = "quota_exhausted"
	CategoryUnreadableInput Category = "unreadable_input"
	CategoryGeneric         Category = "generic"
)

var (
	errNoImages = errors.New("no files provided")

	messages = map[Category]string{
		CategoryBadCredentials:  "Invalid API key. Please check the recognition service API key.",
		CategoryQuotaExhausted:  "Recognition service quota exceeded.",
		CategoryUnreadableInput: "Failed to parse grade card. The image might be unclear.",
		CategoryGeneric:         "Failed to extract grades from the image.",
	}
	suggestions = map[Category]string{
		CategoryBadCredentials:  "Enter the semesters manually or import a previously exported file.",
		CategoryQuotaExhausted:  "Try again later, or enter the semesters manually.",
		CategoryUnreadableInput: "Try uploading a clearer image.",
		CategoryGeneric:         "Try again, or enter the semesters manually.",
	}
)

func errNotAnImage(name string) error {
	return fmt.Errorf("%q is not an image (PNG/JPG expected)", name)
}

func errEmptyImage(name string) error {
	return fmt.Errorf("%q is empty", name)
}

// Failure is the categorized error every Recognizer returns.
type Failure struct {
	Category   Category
	Message    string
	Suggestion string
	Err        error
}

func NewFailure(cat Category, err error) *Failure {
	if _, ok := messages[cat]; !ok {
		cat = CategoryGeneric
	}
	return &Failure{
		Category:   cat,
		Message:    messages[cat],
		Suggestion: suggestions[cat],
		Err:        err,
	}
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Message
	}
	return f.Message + ": " + f.Err.Error()
}

func (f *Failure) Cause() error  { return f.Err }
func (f *Failure) Unwrap() error { return f.Err }

// Categorize wraps err in a Failure, guessing the category from the error text
// when err is not already a Failure.
func Categorize(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key"), strings.Contains(msg, "401"), strings.Contains(msg, "unauthorized"):
		return NewFailure(CategoryBadCredentials, err)
	case strings.Contains(msg, "quota"), strings.Contains(msg, "429"), strings.Contains(msg, "resource_exhausted"), strings.Contains(msg, "rate limit"):
		return NewFailure(CategoryQuotaExhausted, err)
	case strings.Contains(msg, "invalid character"), strings.Contains(msg, "unexpected end of json"), strings.Contains(msg, "cannot unmarshal"):
		return NewFailure(CategoryUnreadableInput, err)
	}
	return NewFailure(CategoryGeneric, err)
}

// IsFailure reports whether err carries a recognition Failure of any of the given categories
// (any category when none are given).
func IsFailure(err error, cats ...Category) bool {
	var f *Failure
	if !errors.As(err, &f) {
		return false
	}
	if len(cats) == 0 {
		return true
	}
	for _, c := range cats {
		if f.Category == c {
			return true
		}
	}
	return false
}
