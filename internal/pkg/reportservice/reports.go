package reportservice

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/wardrep/internal/pkg/api"
	"github.com/airenas/wardrep/internal/pkg/persistence"
	"github.com/airenas/wardrep/internal/pkg/review"
	"github.com/airenas/wardrep/internal/pkg/submission"
	"github.com/labstack/echo/v4"
)

type infoResult struct {
	TargetMonth      string `json:"target_month"`
	MonthName        string `json:"month_name"`
	IsWindow         bool   `json:"is_submission_window"`
	CurrentDay       int    `json:"current_day"`
	CutoffDay        int    `json:"cutoff_day"`
	AlreadySubmitted bool   `json:"already_submitted"`
	ExistingReportID int64  `json:"existing_report_id,omitempty"`
}

type checkResult struct {
	Submitted bool   `json:"submitted"`
	ReportID  int64  `json:"report_id,omitempty"`
	Status    string `json:"status,omitempty"`
}

type draftInput struct {
	Period string `json:"report_period" validate:"omitempty,len=7"`
	// Data nil on finalize means copy the draft
	Data *persistence.Fields `json:"report_data"`
}

type reviewInput struct {
	Action string `json:"action" validate:"required,oneof=approve decline"`
	Reason string `json:"reason" validate:"max=2000"`
}

func submissionInfo(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ward, err := wardID(c)
		if err != nil {
			return err
		}
		w := data.Submitter.Info()
		res := infoResult{TargetMonth: w.Period, MonthName: w.MonthName, IsWindow: w.Encouraged,
			CurrentDay: w.CurrentDay, CutoffDay: w.Cutoff}
		r, err := data.Submitter.CheckSubmitted(c.Request().Context(), ward, w.Period)
		if err != nil {
			return writeErr(c, err)
		}
		if r != nil {
			res.AlreadySubmitted = true
			res.ExistingReportID = r.ID
		}
		return c.JSON(http.StatusOK, res)
	}
}

func checkSubmitted(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ward, err := wardID(c)
		if err != nil {
			return err
		}
		r, err := data.Submitter.CheckSubmitted(c.Request().Context(), ward, c.QueryParam("month"))
		if err != nil {
			return writeErr(c, err)
		}
		res := checkResult{}
		if r != nil {
			res = checkResult{Submitted: true, ReportID: r.ID, Status: r.Status.String()}
		}
		return c.JSON(http.StatusOK, res)
	}
}

func submit(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("submit method")()
		ward, err := wardID(c)
		if err != nil {
			return err
		}
		user, err := userID(c)
		if err != nil {
			return err
		}
		req := &submission.FinalizeRequest{WardID: ward, UserID: user,
			SubmissionKey: strings.TrimSpace(c.Request().Header.Get(api.HeaderSubmissionID))}

		if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
			var in draftInput
			if err := c.Bind(&in); err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "wrong input")
			}
			if err := c.Validate(&in); err != nil {
				return writeErr(c, err)
			}
			req.Period, req.Fields = in.Period, in.Data
		} else {
			form, err := c.MultipartForm()
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "no multipart form data")
			}
			defer cleanFiles(form)
			req.Period = strings.TrimSpace(c.FormValue(api.PrmPeriod))
			if req.Fields, err = takeFields(c.FormValue(api.PrmData)); err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "wrong "+api.PrmData)
			}
			notes, closeF, err := takeVoice(form)
			defer closeF()
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "can't read voice notes")
			}
			req.Voice = notes
		}

		res, err := data.Submitter.Finalize(c.Request().Context(), req)
		if err != nil {
			return writeErr(c, err)
		}
		out := toReportResult(res.Report, res.Voice)
		if !res.Created() {
			out.Replayed = true
			return c.JSON(http.StatusOK, out)
		}
		return c.JSON(http.StatusCreated, out)
	}
}

// takeFields returns nil for an empty value, nil means copy the draft
func takeFields(s string) (*persistence.Fields, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var res persistence.Fields
	if err := json.Unmarshal([]byte(s), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func takeVoice(form *multipart.Form) ([]*submission.VoiceNote, func(), error) {
	var res []*submission.VoiceNote
	var files []multipart.File
	closeF := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	keys := make([]string, 0, len(form.File))
	for k := range form.File {
		if strings.HasPrefix(k, api.PrmVoicePrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		field := strings.TrimPrefix(k, api.PrmVoicePrefix)
		for _, fh := range form.File[k] {
			f, err := fh.Open()
			if err != nil {
				return nil, closeF, err
			}
			files = append(files, f)
			res = append(res, &submission.VoiceNote{FieldName: field, FileName: fh.Filename, Size: fh.Size,
				DurationSeconds: takeDuration(form, field), Reader: f})
		}
	}
	return res, closeF, nil
}

func takeDuration(form *multipart.Form, field string) int32 {
	v := form.Value[api.PrmDurationPrefix+field]
	if len(v) == 0 {
		return 0
	}
	res, err := strconv.ParseFloat(strings.TrimSpace(v[0]), 64)
	if err != nil || res < 0 {
		return 0
	}
	return int32(res + 0.5)
}

func cleanFiles(f *multipart.Form) {
	if f != nil {
		if err := f.RemoveAll(); err != nil {
			goapp.Log.Warn().Err(err).Msg("can't clean multipart files")
		}
	}
}

func saveDraft(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ward, err := wardID(c)
		if err != nil {
			return err
		}
		user, err := userID(c)
		if err != nil {
			return err
		}
		var in draftInput
		if err := c.Bind(&in); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong input")
		}
		if err := c.Validate(&in); err != nil {
			return writeErr(c, err)
		}
		dr := &submission.DraftRequest{WardID: ward, UserID: user, Period: in.Period}
		if in.Data != nil {
			dr.Fields = *in.Data
		}
		r, err := data.Submitter.SaveDraft(c.Request().Context(), dr)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusOK, toReportResult(r, nil))
	}
}

func getDraft(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ward, err := wardID(c)
		if err != nil {
			return err
		}
		r, err := data.Submitter.GetDraft(c.Request().Context(), ward, c.QueryParam(api.PrmPeriod))
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusOK, toReportResult(r, nil))
	}
}

func deleteDraft(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ward, err := wardID(c)
		if err != nil {
			return err
		}
		id, err := pathID(c)
		if err != nil {
			return err
		}
		if err := data.Submitter.DeleteDraft(c.Request().Context(), id, ward); err != nil {
			return writeErr(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func getReport(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ward, err := wardID(c)
		if err != nil {
			return err
		}
		id, err := pathID(c)
		if err != nil {
			return err
		}
		r, va, err := data.Submitter.Get(c.Request().Context(), id, ward)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusOK, toReportResult(r, va))
	}
}

func listReports(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ward, err := wardID(c)
		if err != nil {
			return err
		}
		rs, err := data.Submitter.List(c.Request().Context(), ward, c.QueryParam("period"), c.QueryParam("status"))
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusOK, toReportResults(rs))
	}
}

func reviewReport(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("review method")()
		user, err := userID(c)
		if err != nil {
			return err
		}
		id, err := pathID(c)
		if err != nil {
			return err
		}
		var in reviewInput
		if err := c.Bind(&in); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong input")
		}
		if err := c.Validate(&in); err != nil {
			return writeErr(c, err)
		}
		r, err := data.Reviewer.Review(c.Request().Context(), &review.Request{ReportID: id,
			Action: review.ActionFrom(in.Action), Reason: in.Reason, ReviewerID: user})
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(http.StatusOK, toReportResult(r, nil))
	}
}
