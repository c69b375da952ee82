package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/gradeledger/core"
	"github.com/trezcool/gradeledger/core/extraction"
	"github.com/trezcool/gradeledger/core/ledger"
)

var (
	errHttpNotFound = echo.NewHTTPError(http.StatusNotFound, "not found")
	errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "ledger not authenticated")
	errNoFiles      = echo.NewHTTPError(http.StatusBadRequest, "upload at least one grade card image")
)

// ledgerErrorCodes maps ledger sentinel errors to HTTP status codes.
var ledgerErrorCodes = map[error]int{
	ledger.ErrNotFound:            http.StatusNotFound,
	ledger.ErrSemesterNotFound:    http.StatusNotFound,
	ledger.ErrCourseNotFound:      http.StatusNotFound,
	ledger.ErrUnknownField:        http.StatusBadRequest,
	ledger.ErrNoQualifyingCredits: http.StatusBadRequest,
	ledger.ErrInvalidTargetInput:  http.StatusBadRequest,
	ledger.ErrInvalidExport:       http.StatusBadRequest,
	ledger.ErrCondensedSemester:   http.StatusConflict,
	ledger.ErrDetailedSemester:    http.StatusConflict,
	ledger.ErrNothingToUndo:       http.StatusConflict,
}

var failureCodes = map[extraction.Category]int{
	extraction.CategoryBadCredentials:  http.StatusBadGateway,
	extraction.CategoryQuotaExhausted:  http.StatusServiceUnavailable,
	extraction.CategoryUnreadableInput: http.StatusUnprocessableEntity,
	extraction.CategoryGeneric:         http.StatusBadGateway,
}

// statusOf returns the status code the error handler answers err with.
func statusOf(err error) int {
	var f *extraction.Failure
	if errors.As(err, &f) {
		return failureCodes[f.Category]
	}
	var vErr *core.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusBadRequest
	}
	cause := errors.Cause(err)
	if code, ok := ledgerErrorCodes[cause]; ok {
		return code
	}
	switch origErr := cause.(type) {
	case *echo.HTTPError:
		if origErr == middleware.ErrJWTMissing {
			return http.StatusUnauthorized
		}
		if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
			return herr.Code
		}
		return origErr.Code
	case validator.ValidationErrors:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, m *metrics, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code := statusOf(err)
		var message interface{}

		// recognition failures carry their own cause, so check them before errors.Cause
		var failure *extraction.Failure
		var vErr *core.ValidationError
		if errors.As(err, &failure) {
			m.recognitionFailure(failure.Category)
			message = echo.Map{
				"error":      failure.Message,
				"category":   failure.Category,
				"suggestion": failure.Suggestion,
			}
		} else if errors.As(err, &vErr) {
			if vErr.Fields != nil {
				fldErrs := make(map[string]string, len(vErr.Fields))
				for _, fErr := range vErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = vErr.Error()
			}
		} else {
			cause := errors.Cause(err)
			if _, ok := ledgerErrorCodes[cause]; ok {
				message = cause.Error()
			} else {
				switch origErr := cause.(type) {
				case *echo.HTTPError:
					if herr, ok := origErr.Internal.(*echo.HTTPError); ok && origErr != middleware.ErrJWTMissing {
						origErr = herr
					}
					message = origErr.Message
				case validator.ValidationErrors:
					fldErrs := make(map[string]string, len(origErr))
					for _, vErr := range origErr {
						fldErrs[vErr.Field()] = vErr.Translate(translator)
					}
					message = fldErrs
				default: // any other error is a server error
					msg := http.StatusText(http.StatusInternalServerError)
					message = msg

					var owner core.Owner
					if claims, cErr := getContextClaims(ctx); cErr == nil {
						owner.SessionID = claims.Subject
					}
					logger.Error(msg, errors.Wrap(err, msg), owner)

					// shutting down...
					if core.IsShutdown(err) {
						signalShutdown()
					}
				}
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if msg, ok := message.(string); ok {
			message = echo.Map{"error": msg}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
