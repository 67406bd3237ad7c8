package reportservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/facebookgo/grace/gracehttp"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/wardrep/internal/pkg/api"
	"github.com/airenas/wardrep/internal/pkg/period"
	"github.com/airenas/wardrep/internal/pkg/persistence"
	"github.com/airenas/wardrep/internal/pkg/review"
	"github.com/airenas/wardrep/internal/pkg/submission"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Submitter handles drafts and submissions of a ward
type Submitter interface {
	Info() period.Window
	Finalize(ctx context.Context, req *submission.FinalizeRequest) (*submission.Result, error)
	SaveDraft(ctx context.Context, req *submission.DraftRequest) (*persistence.Report, error)
	GetDraft(ctx context.Context, wardID int64, p string) (*persistence.Report, error)
	DeleteDraft(ctx context.Context, id, wardID int64) error
	CheckSubmitted(ctx context.Context, wardID int64, p string) (*persistence.Report, error)
	Get(ctx context.Context, id, wardID int64) (*persistence.Report, []*persistence.VoiceArtifact, error)
	List(ctx context.Context, wardID int64, p, st string) ([]*persistence.Report, error)
	GetVoice(ctx context.Context, id string) (*persistence.VoiceArtifact, error)
}

// Reviewer applies review decisions
type Reviewer interface {
	Review(ctx context.Context, req *review.Request) (*persistence.Report, error)
}

// FileReader loads file by name
type FileReader interface {
	LoadFile(ctx context.Context, name string) (io.ReadSeekCloser, error)
}

// Liver checks dependencies
type Liver interface {
	Live(ctx context.Context) error
}

// Data keeps data required for service work
type Data struct {
	Port      int
	Submitter Submitter
	Reviewer  Reviewer
	Forms     FormManager
	Reader    FileReader
	Liver     Liver
	// MaxUpload is a max request body size of a submission, e.g. 50M
	MaxUpload string
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Int("port", data.Port).Msg("Starting HTTP ward report service")
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 180 * time.Second
	e.Server.WriteTimeout = 5 * time.Minute

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.Submitter == nil {
		return errors.New("no submitter")
	}
	if data.Reviewer == nil {
		return errors.New("no reviewer")
	}
	if data.Forms == nil {
		return errors.New("no forms manager")
	}
	if data.Reader == nil {
		return errors.New("no file reader")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("wardrep_report", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	promMdlw.Use(e)
	e.Validator = newValidator()

	maxUpload := data.MaxUpload
	if maxUpload == "" {
		maxUpload = "50M"
	}

	r := e.Group("/reports")
	r.GET("/submission-info", submissionInfo(data))
	r.GET("/check-submitted", checkSubmitted(data))
	r.POST("", submit(data), middleware.BodyLimit(maxUpload))
	r.POST("/draft", saveDraft(data))
	r.GET("/draft", getDraft(data))
	r.DELETE("/draft/:id", deleteDraft(data))
	r.GET("/:id", getReport(data))
	r.GET("", listReports(data))
	r.PATCH("/:id/review", reviewReport(data))

	e.GET("/voice-notes/:id", getVoice(data))
	e.GET("/voice-notes/:id/audio", downloadVoice(data))
	e.HEAD("/voice-notes/:id/audio", downloadVoice(data))

	f := e.Group("/forms")
	f.POST("", createForm(data))
	f.GET("", listForms(data))
	f.GET("/active", activeForm(data))
	f.GET("/:id", getForm(data))
	f.PUT("/:id", updateForm(data))
	f.POST("/:id/deploy", deployForm(data))
	f.POST("/:id/archive", archiveForm(data))

	e.GET("/live", live(data))

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		if data.Liver != nil {
			if err := data.Liver.Live(c.Request().Context()); err != nil {
				goapp.Log.Error().Err(err).Msg("not live")
				return c.JSONBlob(http.StatusServiceUnavailable, []byte(`{"service":"OK","db":"FAIL"}`))
			}
		}
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}

// errorResponse puts details at the top level next to kind and message
func errorResponse(e *api.Error) map[string]interface{} {
	res := make(map[string]interface{}, len(e.Details)+2)
	for k, v := range e.Details {
		res[k] = v
	}
	res["kind"] = e.Kind.String()
	res["message"] = e.Msg
	return res
}

var kindCode = map[api.ErrKind]int{
	api.KindInvalidPeriod:        http.StatusBadRequest,
	api.KindMissingDeclineReason: http.StatusBadRequest,
	api.KindValidation:           http.StatusBadRequest,
	api.KindDuplicateSubmission:  http.StatusConflict,
	api.KindInvalidTransition:    http.StatusConflict,
	api.KindNotFound:             http.StatusNotFound,
}

// writeErr writes a structured rejection or a plain 500
func writeErr(c echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	var ae *api.Error
	if errors.As(err, &ae) {
		code, ok := kindCode[ae.Kind]
		if !ok {
			code = http.StatusBadRequest
		}
		goapp.Log.Info().Str("kind", ae.Kind.String()).Msg(ae.Msg)
		return c.JSON(code, errorResponse(ae))
	}
	goapp.Log.Error().Err(err).Send()
	return echo.NewHTTPError(http.StatusInternalServerError)
}

func wardID(c echo.Context) (int64, error) {
	return headerID(c, api.HeaderWardID)
}

func userID(c echo.Context) (int64, error) {
	return headerID(c, api.HeaderUserID)
}

func headerID(c echo.Context, name string) (int64, error) {
	v := c.Request().Header.Get(name)
	if v == "" {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, fmt.Sprintf("no %s", name))
	}
	res, err := strconv.ParseInt(v, 10, 64)
	if err != nil || res <= 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, fmt.Sprintf("wrong %s", name))
	}
	return res, nil
}

func pathID(c echo.Context) (int64, error) {
	res, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || res <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "wrong ID")
	}
	return res, nil
}
