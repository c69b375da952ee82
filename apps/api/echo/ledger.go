package echoapi

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"mime/multipart"
	"net/http"
	"path/filepath"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/gradeledger/core/extraction"
	"github.com/trezcool/gradeledger/core/grading"
	"github.com/trezcool/gradeledger/core/ledger"
)

var errNoRecognizer = errors.New("no recognition service configured")

type ledgerApi struct {
	svc        *ledger.Service
	recognizer extraction.Recognizer
	auth       *authenticator
	validate   *validator.Validate
	translator ut.Translator
	metrics    *metrics
	regulation grading.Regulation
}

func registerLedgerAPI(g *echo.Group, auth *authenticator, deps ServerDeps, m *metrics) {
	api := ledgerApi{
		svc:        deps.LedgerSvc,
		recognizer: deps.Recognizer,
		auth:       auth,
		validate:   deps.Validate,
		translator: deps.Translator,
		metrics:    m,
		regulation: grading.Regulation(deps.Conf.Regulation).OrDefault(),
	}

	// un-authed endpoints
	g.POST("/ledgers", api.create)
	g.POST("/sgpa", api.computeSGPA)
	g.POST("/target", api.solveTarget)
	g.GET("/regulations/:reg/grades", api.regulationDetails)

	// authed endpoints
	lg := g.Group("/ledger", auth.middleware(), ledgerKeyMiddleware())
	lg.GET("", api.retrieve)
	lg.DELETE("", api.destroy)
	lg.POST("/token-refresh", api.refreshToken)
	lg.PUT("/profile", api.updateProfile)
	lg.GET("/summary", api.summary)
	lg.POST("/target", api.solveLedgerTarget)
	lg.POST("/undo", api.undo)
	lg.POST("/clear", api.clear)

	// open buffer
	lg.POST("/courses", api.addCourse)
	lg.PUT("/courses/count", api.setCourseCount)
	lg.PATCH("/courses/:id", api.setCourseField)
	lg.DELETE("/courses/:id", api.removeCourse)

	// semester history
	lg.POST("/semesters/finalize", api.finalize)
	lg.POST("/semesters/bare", api.addBareSemester)
	lg.POST("/semesters/:id/reopen", api.reopen)
	lg.DELETE("/semesters/:id", api.deleteSemester)
	lg.PUT("/semesters/:id/bare", api.setBareSemester)
	lg.DELETE("/semesters/:id/bare", api.removeBareSemester)

	// interchange
	uploadLimit := middleware.BodyLimit(deps.Conf.Server.MaxUploadSize)
	lg.POST("/extraction", api.extract, uploadLimit)
	lg.POST("/extraction/apply", api.applyProposal)
	lg.GET("/export", api.export)
	lg.POST("/import", api.importLedger, uploadLimit)
}

// do runs fn on the context ledger, saves it and responds with its view.
func (api *ledgerApi) do(ctx echo.Context, op string, code int, fn func(*ledger.Session) error) error {
	key := ledgerKey(ctx)
	var view LedgerView
	err := api.svc.Do(ctx.Request().Context(), key, func(s *ledger.Session) error {
		if err := fn(s); err != nil {
			return err
		}
		view = newLedgerView(key, s)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, op)
	}
	api.metrics.op(op)
	return ctx.JSON(code, view)
}

// Handlers

func (api *ledgerApi) create(ctx echo.Context) error {
	key, err := api.svc.Create(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "creating ledger")
	}
	token, err := api.auth.GenerateToken(api.auth.claims(key))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	api.metrics.op("create")
	return ctx.JSON(http.StatusCreated, TokenResponse{Key: key, Token: token})
}

func (api *ledgerApi) refreshToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	key := ledgerKey(ctx)
	// the ledger may have been deleted since the token was issued
	if err := api.svc.View(ctx.Request().Context(), key, func(*ledger.Session) error { return nil }); err != nil {
		return errors.Wrap(err, "finding ledger")
	}
	token, err := api.auth.GenerateToken(api.auth.claims(key, claims.OrigIssuedAt))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Key: key, Token: token})
}

func (api *ledgerApi) computeSGPA(ctx echo.Context) error {
	var data SGPARequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SGPARequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	reg := api.regulation
	if data.Regulation != "" {
		reg = grading.Regulation(data.Regulation)
	}
	return ctx.JSON(http.StatusOK, ledger.ComputeSGPA(data.courses(), reg))
}

func (api *ledgerApi) solveTarget(ctx echo.Context) error {
	var data StandingTargetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StandingTargetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	target, err := ledger.SolveTarget(data.Target, data.Remaining, data.AvgCredits, data.CurrentCredits, data.CurrentCGPA)
	if err != nil {
		return errors.Wrap(err, "solving target")
	}
	return ctx.JSON(http.StatusOK, TargetView{Target: target, Difficulty: target.Difficulty()})
}

func (api *ledgerApi) regulationDetails(ctx echo.Context) error {
	reg := grading.Regulation(ctx.Param("reg"))
	if !reg.IsSupported() {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, grading.Details(reg))
}

func (api *ledgerApi) retrieve(ctx echo.Context) error {
	key := ledgerKey(ctx)
	var view LedgerView
	err := api.svc.View(ctx.Request().Context(), key, func(s *ledger.Session) error {
		view = newLedgerView(key, s)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "retrieving ledger")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *ledgerApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ledgerKey(ctx)); err != nil {
		return errors.Wrap(err, "deleting ledger")
	}
	api.metrics.op("delete")
	return ctx.NoContent(http.StatusNoContent)
}

func (api *ledgerApi) updateProfile(ctx echo.Context) error {
	var data ProfileRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProfileRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	return api.do(ctx, "profile", http.StatusOK, func(s *ledger.Session) error {
		name, regNo := s.StudentName(), s.RegNo()
		if data.StudentName != nil {
			name = *data.StudentName
		}
		if data.RegNo != nil {
			regNo = *data.RegNo
		}
		s.SetProfile(name, regNo)

		if data.PriorCredits != nil || data.PriorCGPA != nil {
			snap := s.Snapshot()
			credits, cgpa := snap.PriorCredits, snap.PriorCGPA
			if data.PriorCredits != nil {
				credits = *data.PriorCredits
			}
			if data.PriorCGPA != nil {
				cgpa = *data.PriorCGPA
			}
			s.SetPriorTranscript(credits, cgpa)
		}
		if data.Regulation != "" {
			s.SetRegulation(grading.Regulation(data.Regulation))
		}
		return nil
	})
}

func (api *ledgerApi) summary(ctx echo.Context) error {
	var sum ledger.Summary
	err := api.svc.View(ctx.Request().Context(), ledgerKey(ctx), func(s *ledger.Session) error {
		sum = s.Summary()
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "summarizing ledger")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *ledgerApi) solveLedgerTarget(ctx echo.Context) error {
	var data TargetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TargetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	var target ledger.Target
	err := api.svc.View(ctx.Request().Context(), ledgerKey(ctx), func(s *ledger.Session) (err error) {
		target, err = s.SolveTarget(data.Target, data.Remaining, data.AvgCredits)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "solving target")
	}
	return ctx.JSON(http.StatusOK, TargetView{Target: target, Difficulty: target.Difficulty()})
}

func (api *ledgerApi) undo(ctx echo.Context) error {
	key := ledgerKey(ctx)
	var view UndoView
	err := api.svc.Do(ctx.Request().Context(), key, func(s *ledger.Session) error {
		rec, err := s.Undo()
		if err != nil {
			return err
		}
		view = UndoView{Kind: rec.Kind(), RecordedAt: rec.RecordedAt(), Ledger: newLedgerView(key, s)}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "undoing")
	}
	api.metrics.op("undo")
	return ctx.JSON(http.StatusOK, view)
}

func (api *ledgerApi) clear(ctx echo.Context) error {
	return api.do(ctx, "clear", http.StatusOK, func(s *ledger.Session) error {
		s.ClearAll()
		return nil
	})
}

func (api *ledgerApi) addCourse(ctx echo.Context) error {
	return api.do(ctx, "add_course", http.StatusCreated, func(s *ledger.Session) error {
		s.AddCourseRow()
		return nil
	})
}

func (api *ledgerApi) setCourseCount(ctx echo.Context) error {
	var data CourseCountRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CourseCountRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	return api.do(ctx, "course_count", http.StatusOK, func(s *ledger.Session) error {
		s.SetCourseCount(data.Count)
		return nil
	})
}

func (api *ledgerApi) setCourseField(ctx echo.Context) error {
	var data CourseFieldRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CourseFieldRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	id := ledger.ID(ctx.Param("id"))
	return api.do(ctx, "set_course_field", http.StatusOK, func(s *ledger.Session) error {
		_, err := s.SetCourseField(id, ledger.CourseField(data.Field), data.Value)
		return err
	})
}

func (api *ledgerApi) removeCourse(ctx echo.Context) error {
	id := ledger.ID(ctx.Param("id"))
	return api.do(ctx, "remove_course", http.StatusOK, func(s *ledger.Session) error {
		return s.RemoveCourseRow(id)
	})
}

func (api *ledgerApi) finalize(ctx echo.Context) error {
	return api.do(ctx, "finalize", http.StatusOK, func(s *ledger.Session) error {
		_, err := s.FinalizeOpenBuffer()
		return err
	})
}

func (api *ledgerApi) reopen(ctx echo.Context) error {
	id := ledger.ID(ctx.Param("id"))
	return api.do(ctx, "reopen", http.StatusOK, func(s *ledger.Session) error {
		return s.ReopenSemester(id)
	})
}

func (api *ledgerApi) deleteSemester(ctx echo.Context) error {
	id := ledger.ID(ctx.Param("id"))
	return api.do(ctx, "delete_semester", http.StatusOK, func(s *ledger.Session) error {
		return s.DeleteSemester(id)
	})
}

func (api *ledgerApi) addBareSemester(ctx echo.Context) error {
	var data BareSemesterRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BareSemesterRequest")
	}
	return api.do(ctx, "add_bare_semester", http.StatusCreated, func(s *ledger.Session) error {
		s.AddBareSemester(data.Credits, data.SGPA)
		return nil
	})
}

func (api *ledgerApi) setBareSemester(ctx echo.Context) error {
	var data BareSemesterRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BareSemesterRequest")
	}
	id := ledger.ID(ctx.Param("id"))
	return api.do(ctx, "set_bare_semester", http.StatusOK, func(s *ledger.Session) error {
		_, err := s.SetBareSemester(id, data.Credits, data.SGPA)
		return err
	})
}

func (api *ledgerApi) removeBareSemester(ctx echo.Context) error {
	id := ledger.ID(ctx.Param("id"))
	return api.do(ctx, "remove_bare_semester", http.StatusOK, func(s *ledger.Session) error {
		return s.RemoveBareSemester(id)
	})
}

func (api *ledgerApi) extract(ctx echo.Context) error {
	images, err := formImages(ctx)
	if err != nil {
		return err
	}

	if api.recognizer == nil {
		return extraction.NewFailure(extraction.CategoryBadCredentials, errNoRecognizer)
	}
	res, err := api.recognizer.Extract(ctx.Request().Context(), images...)
	if err != nil {
		return errors.Wrap(err, "extracting grades")
	}

	p, err := api.svc.Propose(ctx.Request().Context(), ledgerKey(ctx), res)
	if err != nil {
		return errors.Wrap(err, "reconciling extraction")
	}
	api.metrics.op("extract")
	return ctx.JSON(http.StatusOK, newProposalView(p))
}

func (api *ledgerApi) applyProposal(ctx echo.Context) error {
	key := ledgerKey(ctx)
	applied, err := api.svc.ApplyProposal(ctx.Request().Context(), key)
	if err != nil {
		return errors.Wrap(err, "applying proposal")
	}
	if applied {
		api.metrics.op("apply_proposal")
	}

	var view LedgerView
	err = api.svc.View(ctx.Request().Context(), key, func(s *ledger.Session) error {
		view = newLedgerView(key, s)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "retrieving ledger")
	}
	return ctx.JSON(http.StatusOK, AppliedView{Applied: applied, Ledger: view})
}

func (api *ledgerApi) export(ctx echo.Context) error {
	format := ledger.ParseFormat(ctx.QueryParam(formatParam))

	var exp ledger.Export
	err := api.svc.View(ctx.Request().Context(), ledgerKey(ctx), func(s *ledger.Session) error {
		exp = s.Export()
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "exporting ledger")
	}

	var buf bytes.Buffer
	if err := exp.Encode(&buf, format); err != nil {
		return errors.Wrap(err, "encoding export")
	}

	contentType, ext := echo.MIMEApplicationJSONCharsetUTF8, "json"
	if format == ledger.FormatYAML {
		contentType, ext = "application/x-yaml", "yaml"
	}
	filename := fmt.Sprintf("grades-%s.%s", exp.ExportDate.Format("2006-01-02"), ext)
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	api.metrics.op("export")
	return ctx.Blob(http.StatusOK, contentType, buf.Bytes())
}

// importLedger reads the document from a multipart "file" part (format from its
// extension) or from the raw request body (format from the query).
func (api *ledgerApi) importLedger(ctx echo.Context) error {
	format := ledger.ParseFormat(ctx.QueryParam(formatParam))

	var data []byte
	if fh, err := ctx.FormFile(filesField); err == nil {
		if ctx.QueryParam(formatParam) == "" {
			format = ledger.ParseFormat(filepath.Ext(fh.Filename))
		}
		if data, err = readFormFile(fh); err != nil {
			return errors.Wrap(err, "reading import file")
		}
	} else {
		if data, err = ioutil.ReadAll(ctx.Request().Body); err != nil {
			return errors.Wrap(err, "reading request body")
		}
	}

	exp, err := ledger.DecodeExport(bytes.NewReader(data), format)
	if err != nil {
		return errors.Wrap(err, "decoding import")
	}
	return api.do(ctx, "import", http.StatusOK, func(s *ledger.Session) error {
		s.Import(exp)
		return nil
	})
}

func formImages(ctx echo.Context) ([]extraction.Image, error) {
	form, err := ctx.MultipartForm()
	if err != nil {
		return nil, errNoFiles
	}
	files := form.File[filesField]
	if len(files) == 0 {
		return nil, errNoFiles
	}

	images := make([]extraction.Image, 0, len(files))
	for _, fh := range files {
		data, err := readFormFile(fh)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", fh.Filename)
		}
		mime := fh.Header.Get(echo.HeaderContentType)
		if mime == "" || mime == echo.MIMEOctetStream {
			mime = http.DetectContentType(data)
		}
		images = append(images, extraction.Image{Filename: fh.Filename, MimeType: mime, Data: data})
	}
	return images, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ioutil.ReadAll(f)
}
