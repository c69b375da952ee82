package tests

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/gradeledger/apps/api/echo"
	"github.com/trezcool/gradeledger/core/extraction"
	"github.com/trezcool/gradeledger/core/grading"
	"github.com/trezcool/gradeledger/core/ledger"
	"github.com/trezcool/gradeledger/tests"
)

func createLedger(t *testing.T, fill func(*ledger.Session) error) (ledger.ID, string) {
	key := testutil.CreateLedger(t, ledgerSvc, fill)
	return key, getToken(t, key)
}

func Test_ledgerApi_create(t *testing.T) {
	req, rec := newRequest(http.MethodPost, "/v1/ledgers")
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created TokenResponse
	unmarshallObj(t, rec, &created)
	assert.NotEmpty(t, created.Key)

	req, rec = newAuthRequest(http.MethodGet, "/v1/ledger", created.Token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var view LedgerView
	unmarshallObj(t, rec, &view)
	assert.Equal(t, created.Key, view.Key)
	assert.Equal(t, grading.Regulation2021, view.Regulation)
	assert.Len(t, view.Courses, 1)
	assert.Empty(t, view.Semesters)
	assert.Equal(t, 0, view.UndoDepth)
}

func Test_ledgerApi_stateless(t *testing.T) {
	details := []grading.Detail{
		{Grade: grading.GradeS, Points: 10, Result: "Pass"},
		{Grade: grading.GradeA, Points: 8, Result: "Pass"},
		{Grade: grading.GradeB, Points: 7, Result: "Pass"},
		{Grade: grading.GradeC, Points: 6, Result: "Pass"},
		{Grade: grading.GradeD, Points: 5, Result: "Pass"},
		{Grade: grading.GradeE, Points: 4, Result: "Pass"},
		{Grade: grading.GradeU, Points: 0, Result: "Fail"},
	}

	tests := []httpTest{
		{
			name: "sgpa", method: http.MethodPost, path: "/v1/sgpa",
			body:     []byte(`{"courses": [{"credits": "3", "grade": "c"}, {"credits": 4, "grade": "S"}]}`),
			wantCode: http.StatusOK, wantData: []byte(`{"value": 8.71, "total_credits": 7}`),
		},
		{
			name: "sgpa (2025)", method: http.MethodPost, path: "/v1/sgpa",
			body:     []byte(`{"regulation": "2025", "courses": [{"credits": "3", "grade": "C"}, {"credits": "4", "grade": "S"}]}`),
			wantCode: http.StatusOK, wantData: []byte(`{"value": 8.29, "total_credits": 7}`),
		},
		{
			name: "sgpa without credits", method: http.MethodPost, path: "/v1/sgpa",
			body:     []byte(`{"courses": [{"credits": "", "grade": "S"}]}`),
			wantCode: http.StatusOK, wantData: []byte(`{"value": 0, "total_credits": 0}`),
		},
		{
			name: "sgpa unknown grade", method: http.MethodPost, path: "/v1/sgpa",
			body:     []byte(`{"courses": [{"credits": "3", "grade": "Z"}]}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"grade": "grade is not a recognized grade"}`),
		},
		{
			name: "sgpa unknown regulation", method: http.MethodPost, path: "/v1/sgpa",
			body:     []byte(`{"regulation": "1999", "courses": [{"credits": "3", "grade": "S"}]}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"regulation": "regulation must be one of 2021, 2025"}`),
		},
		{
			name: "sgpa no courses", method: http.MethodPost, path: "/v1/sgpa", body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"courses": "this field is required"}`),
		},
		{
			name: "target", method: http.MethodPost, path: "/v1/target",
			body:     []byte(`{"target": "8.50", "remaining": "2", "avg_credits": "20", "current_credits": "60", "current_cgpa": "7.80"}`),
			wantCode: http.StatusOK, wantData: []byte(`{"required_sgpa": 9.55, "future_credits": 40, "achievable": true, "difficulty": "very_challenging"}`),
		},
		{
			name: "target missing", method: http.MethodPost, path: "/v1/target",
			body:     []byte(`{"remaining": "2", "avg_credits": "20", "current_credits": "60", "current_cgpa": "7.8"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"target": "this field is required"}`),
		},
		{
			name: "target no remaining semester", method: http.MethodPost, path: "/v1/target",
			body:     []byte(`{"target": "8", "remaining": "0", "avg_credits": "20", "current_credits": "60", "current_cgpa": "7.8"}`),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, httpErr{Error: ledger.ErrInvalidTargetInput.Error()}),
		},
		{name: "grades", path: "/v1/regulations/2025/grades", wantCode: http.StatusOK, wantData: marshallObj(t, details)},
		{name: "grades (unknown regulation)", path: "/v1/regulations/1999/grades", wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "not found"})},
		{name: "auth required", path: "/v1/ledger", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{
			name: "invalid token", path: "/v1/ledger", token: "abc",
			wantCode: http.StatusUnauthorized, wantData: marshallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
	}
	runHTTPTests(t, tests)
}

func Test_ledgerApi_semesters(t *testing.T) {
	_, token := createLedger(t, nil)

	send := func(method, path string, body string, wantCode int) LedgerView {
		t.Helper()
		req, rec := newAuthRequest(method, path, token, []byte(body))
		app.ServeHTTP(rec, req)
		require.Equal(t, wantCode, rec.Code, rec.Body.String())

		var view LedgerView
		if wantCode < http.StatusBadRequest {
			unmarshallObj(t, rec, &view)
		}
		return view
	}

	view := send(http.MethodPut, "/v1/ledger/profile", `{"student_name": "Ada", "reg_no": "REG-1", "prior_credits": "40", "prior_cgpa": 7.5}`, http.StatusOK)
	assert.Equal(t, "Ada", view.StudentName)
	assert.Equal(t, "7.5", view.PriorCGPA.String())

	// partial updates keep the other fields
	view = send(http.MethodPut, "/v1/ledger/profile", `{"reg_no": "REG-2"}`, http.StatusOK)
	assert.Equal(t, "Ada", view.StudentName)
	assert.Equal(t, "REG-2", view.RegNo)
	send(http.MethodPut, "/v1/ledger/profile", `{"regulation": "1999"}`, http.StatusBadRequest)

	view = send(http.MethodPut, "/v1/ledger/courses/count", `{"count": 2}`, http.StatusOK)
	require.Len(t, view.Courses, 2)
	send(http.MethodPut, "/v1/ledger/courses/count", `{"count": 16}`, http.StatusBadRequest)

	for i, row := range [][2]string{{"3", "C"}, {"4", "s"}} {
		path := "/v1/ledger/courses/" + string(view.Courses[i].ID)
		send(http.MethodPatch, path, `{"field": "credits", "value": "`+row[0]+`"}`, http.StatusOK)
		send(http.MethodPatch, path, `{"field": "grade", "value": "`+row[1]+`"}`, http.StatusOK)
	}
	send(http.MethodPatch, "/v1/ledger/courses/"+string(view.Courses[0].ID), `{"field": "room", "value": "x"}`, http.StatusBadRequest)
	send(http.MethodPatch, "/v1/ledger/courses/nope", `{"field": "name", "value": "x"}`, http.StatusNotFound)

	view = send(http.MethodPost, "/v1/ledger/semesters/finalize", "", http.StatusOK)
	require.Len(t, view.Semesters, 1)
	detailed := view.Semesters[0]
	assert.Equal(t, ledger.KindDetailed, detailed.Kind)
	assert.Equal(t, "8.71", detailed.SGPA.String())
	assert.Equal(t, "7", detailed.Credits.String())
	assert.Equal(t, 7.68, view.Summary.CGPA.Value)
	assert.Len(t, view.Courses, 1)

	// the fresh buffer has no credits
	send(http.MethodPost, "/v1/ledger/semesters/finalize", "", http.StatusBadRequest)

	view = send(http.MethodPost, "/v1/ledger/semesters/bare", `{"credits": "20", "sgpa": "8"}`, http.StatusCreated)
	require.Len(t, view.Semesters, 2)
	bare := view.Semesters[1]
	assert.Equal(t, ledger.KindCondensed, bare.Kind)

	send(http.MethodPost, "/v1/ledger/semesters/"+string(bare.ID)+"/reopen", "", http.StatusConflict)
	send(http.MethodPost, "/v1/ledger/semesters/nope/reopen", "", http.StatusNotFound)
	send(http.MethodPut, "/v1/ledger/semesters/"+string(detailed.ID)+"/bare", `{"credits": "1", "sgpa": "1"}`, http.StatusConflict)
	view = send(http.MethodPut, "/v1/ledger/semesters/"+string(bare.ID)+"/bare", `{"credits": "20", "sgpa": "9.29"}`, http.StatusOK)
	assert.Equal(t, "9.29", view.Semesters[1].SGPA.String())

	view = send(http.MethodPost, "/v1/ledger/semesters/"+string(detailed.ID)+"/reopen", "", http.StatusOK)
	assert.Equal(t, detailed.ID, view.EditingSemesterID)
	assert.Equal(t, detailed.Courses, view.Courses)

	view = send(http.MethodDelete, "/v1/ledger/semesters/"+string(detailed.ID), "", http.StatusOK)
	assert.Len(t, view.Semesters, 1)
	assert.Empty(t, view.EditingSemesterID)
	assert.Equal(t, 1, view.UndoDepth)

	req, rec := newAuthRequest(http.MethodPost, "/v1/ledger/undo", token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var undone UndoView
	unmarshallObj(t, rec, &undone)
	assert.Equal(t, ledger.UndoDeletedSemester, undone.Kind)
	if assert.Len(t, undone.Ledger.Semesters, 2) {
		assert.Equal(t, detailed.ID, undone.Ledger.Semesters[0].ID)
	}

	runHTTPTests(t, []httpTest{
		{
			name: "nothing to undo", method: http.MethodPost, path: "/v1/ledger/undo", token: token,
			wantCode: http.StatusConflict, wantData: marshallObj(t, httpErr{Error: ledger.ErrNothingToUndo.Error()}),
		},
		{
			name: "summary", path: "/v1/ledger/summary", token: token, wantCode: http.StatusOK,
			wantData: []byte(`{
				"sgpa": {"value": 0, "total_credits": 0},
				"cgpa": {"value": 8.16, "total_credits": 67},
				"semester_count": 2,
				"semester_credits": 27,
				"average_sgpa": 9
			}`),
		},
		{
			name: "target", method: http.MethodPost, path: "/v1/ledger/target", token: token,
			body:     []byte(`{"target": "8.5", "remaining": "2", "avg_credits": "20"}`),
			wantCode: http.StatusOK, wantData: []byte(`{"required_sgpa": 9.07, "future_credits": 40, "achievable": true, "difficulty": "challenging"}`),
		},
	})

	view = send(http.MethodPost, "/v1/ledger/clear", "", http.StatusOK)
	assert.Empty(t, view.StudentName)
	assert.Empty(t, view.Semesters)
	assert.Equal(t, 1, view.UndoDepth)
}

func Test_ledgerApi_courseRows(t *testing.T) {
	_, token := createLedger(t, nil)

	req, rec := newAuthRequest(http.MethodPost, "/v1/ledger/courses", token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var view LedgerView
	unmarshallObj(t, rec, &view)
	require.Len(t, view.Courses, 2)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/ledger/courses/"+string(view.Courses[0].ID), token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	unmarshallObj(t, rec, &view)
	assert.Len(t, view.Courses, 1)
}

func Test_ledgerApi_extraction(t *testing.T) {
	_, token := createLedger(t, func(s *ledger.Session) error {
		s.AddBareSemester("20", "8")
		return nil
	})
	recognizer.Result = extraction.Result{
		StudentName: "Grace",
		Semesters: []extraction.Semester{
			{Semester: "2", Courses: []extraction.Course{{Code: "CS201", Name: "Compilers", Credits: "4", Grade: grading.GradeA}}},
			{Semester: "1", Courses: []extraction.Course{{Name: "Maths", Credits: "3", Grade: grading.GradeC}}},
		},
	}
	recognizer.Err = nil
	defer func() { recognizer.Err = nil }()
	calls := len(recognizer.Calls())

	t.Run("no files", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/ledger/extraction", token, nil)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "upload at least one grade card image"}),
		}, rec)
	})

	t.Run("not an image", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/ledger/extraction", token, map[string][]byte{"notes.txt": []byte("hello")})
		app.ServeHTTP(rec, req)
		failure := extraction.NewFailure(extraction.CategoryUnreadableInput, nil)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusUnprocessableEntity,
			wantData: marshallObj(t, map[string]string{
				"error":      failure.Message,
				"category":   string(failure.Category),
				"suggestion": failure.Suggestion,
			}),
		}, rec)
	})

	t.Run("propose and apply", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/ledger/extraction", token, map[string][]byte{"card.png": pngMagic})
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var p ProposalView
		unmarshallObj(t, rec, &p)
		assert.Equal(t, ledger.ID("2"), p.EditingSemesterID)
		assert.Len(t, p.Courses, 1)
		assert.Len(t, p.Semesters, 1)
		assert.Contains(t, p.Diff, "+student: Grace")

		images := recognizer.Calls()
		require.Len(t, images, calls+1)
		assert.Equal(t, "image/png", images[calls][0].MimeType)

		// nothing changes until applied
		req, rec = newAuthRequest(http.MethodGet, "/v1/ledger", token)
		app.ServeHTTP(rec, req)
		var view LedgerView
		unmarshallObj(t, rec, &view)
		assert.Empty(t, view.StudentName)

		req, rec = newAuthRequest(http.MethodPost, "/v1/ledger/extraction/apply", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var applied AppliedView
		unmarshallObj(t, rec, &applied)
		assert.True(t, applied.Applied)
		assert.Equal(t, "Grace", applied.Ledger.StudentName)
		assert.Equal(t, ledger.ID("2"), applied.Ledger.EditingSemesterID)
		assert.Equal(t, 1, applied.Ledger.UndoDepth)

		req, rec = newAuthRequest(http.MethodPost, "/v1/ledger/extraction/apply", token)
		app.ServeHTTP(rec, req)
		unmarshallObj(t, rec, &applied)
		assert.False(t, applied.Applied)
	})

	t.Run("quota exhausted", func(t *testing.T) {
		recognizer.Err = errors.New("You exceeded your current quota")
		req, rec := newUploadRequest(t, "/v1/ledger/extraction", token, map[string][]byte{"card.png": pngMagic})
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"category":"quota_exhausted"`)
	})
}

func Test_ledgerApi_exportImport(t *testing.T) {
	_, srcToken := createLedger(t, func(s *ledger.Session) error {
		s.SetProfile("Ada", "REG-1")
		s.AddBareSemester("20", "8")
		_, err := testutil.Semester(s, "3", "C", "4", "S")
		return err
	})
	dstKey, dstToken := createLedger(t, nil)

	req, rec := newAuthRequest(http.MethodGet, "/v1/ledger/export?format=yaml", srcToken)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".yaml")
	doc := rec.Body.Bytes()

	exp, err := ledger.DecodeExport(bytes.NewReader(doc), ledger.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "Ada", exp.Snapshot.StudentName)

	req, rec = newAuthRequest(http.MethodPost, "/v1/ledger/import?format=yaml", dstToken, doc)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view LedgerView
	unmarshallObj(t, rec, &view)
	assert.Equal(t, dstKey, view.Key)
	assert.Equal(t, "Ada", view.StudentName)
	assert.Len(t, view.Semesters, 2)
	assert.Equal(t, 8.18, view.Summary.CGPA.Value)
	assert.Equal(t, 1, view.UndoDepth)

	t.Run("multipart file", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/ledger/import", dstToken, map[string][]byte{"backup.yaml": doc})
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	runHTTPTests(t, []httpTest{
		{
			name: "invalid document", method: http.MethodPost, path: "/v1/ledger/import", token: dstToken,
			body:     []byte(`{"courses": []}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"semesters": "this field is required"}`),
		},
		{
			name: "undecodable document", method: http.MethodPost, path: "/v1/ledger/import", token: dstToken,
			body:     []byte(`not json`),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, httpErr{Error: ledger.ErrInvalidExport.Error()}),
		},
	})
}

func Test_ledgerApi_destroy(t *testing.T) {
	_, token := createLedger(t, nil)

	req, rec := newAuthRequest(http.MethodPost, "/v1/ledger/token-refresh", token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/ledger", token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	notFound := marshallObj(t, httpErr{Error: ledger.ErrNotFound.Error()})
	runHTTPTests(t, []httpTest{
		{name: "retrieve", path: "/v1/ledger", token: token, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "refresh", method: http.MethodPost, path: "/v1/ledger/token-refresh", token: token, wantCode: http.StatusNotFound, wantData: notFound},
	})
}

func Test_metrics(t *testing.T) {
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req, rec = newRequest(http.MethodGet, "/metrics")
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `gradeledger_http_requests_total{code="200",method="GET",route="/"}`), body)
	assert.Contains(t, body, "gradeledger_ledger_operations_total")
	assert.Contains(t, body, fmt.Sprintf("gradeledger_recognition_failures_total{category=%q}", extraction.CategoryUnreadableInput))
}
