package submission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/wardrep/internal/pkg/api"
	"github.com/airenas/wardrep/internal/pkg/locker"
	"github.com/airenas/wardrep/internal/pkg/messages"
	"github.com/airenas/wardrep/internal/pkg/period"
	"github.com/airenas/wardrep/internal/pkg/persistence"
	"github.com/airenas/wardrep/internal/pkg/reconcile"
	"github.com/airenas/wardrep/internal/pkg/status"
	"github.com/airenas/wardrep/internal/pkg/utils"
	"github.com/google/uuid"
)

// DB is a report storage
type DB interface {
	LoadFinal(ctx context.Context, wardID int64, period string) (*persistence.Report, error)
	LoadDraft(ctx context.Context, wardID int64, period string) (*persistence.Report, error)
	LoadReport(ctx context.Context, id int64) (*persistence.Report, error)
	LoadBySubmissionKey(ctx context.Context, key string) (*persistence.Report, error)
	ListReports(ctx context.Context, wardID int64, period string, st status.Report) ([]*persistence.Report, error)
	InsertReport(ctx context.Context, r *persistence.Report) error
	SetSubmissionKey(ctx context.Context, id int64, key string) (bool, error)
	UpsertDraft(ctx context.Context, r *persistence.Report) error
	DeleteDraft(ctx context.Context, wardID int64, period string) (int64, error)
	DeleteDraftByID(ctx context.Context, id, wardID int64) (bool, error)
	InsertVoiceArtifact(ctx context.Context, va *persistence.VoiceArtifact) error
	LoadVoiceArtifact(ctx context.Context, id string) (*persistence.VoiceArtifact, error)
	LoadVoiceArtifacts(ctx context.Context, reportID int64) ([]*persistence.VoiceArtifact, error)
	UpdateVoiceArtifact(ctx context.Context, va *persistence.VoiceArtifact) error
}

// FileSaver provides save file functionality
type FileSaver interface {
	SaveFile(ctx context.Context, name string, r io.Reader, fileSize int64) error
}

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, amessages.Message, string) error
}

// Locker serializes finalize calls of the same ward and period
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Data keeps dependencies of the service
type Data struct {
	DB        DB
	Saver     FileSaver
	MsgSender MsgSender
	// Locker is optional, storage constraints guard duplicates anyway
	Locker   Locker
	Resolver *period.Resolver
	Now      func() time.Time
}

// Service implements draft and finalize flows
type Service struct {
	db        DB
	saver     FileSaver
	sender    MsgSender
	locker    Locker
	resolver  *period.Resolver
	validator *period.Validator
	now       func() time.Time
}

// VoiceNote is an uploaded audio for a report field
type VoiceNote struct {
	FieldName       string
	FileName        string
	Size            int64
	DurationSeconds int32
	Reader          io.Reader
}

// FinalizeRequest is a submit request of a ward secretary
type FinalizeRequest struct {
	WardID        int64
	UserID        int64
	Period        string
	SubmissionKey string
	// Fields nil means take the fields of the draft
	Fields *persistence.Fields
	Voice  []*VoiceNote
}

// Result of finalize
type Result struct {
	Report  *persistence.Report
	Outcome reconcile.Outcome
	Voice   []*persistence.VoiceArtifact
}

// Created returns true if a new report row was written
func (r *Result) Created() bool {
	return r.Outcome == reconcile.ProceedToCreate
}

// NewService creates submission service
func NewService(data *Data) (*Service, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	res := &Service{db: data.DB, saver: data.Saver, sender: data.MsgSender, locker: data.Locker,
		resolver: data.Resolver, now: data.Now}
	if res.resolver == nil {
		res.resolver = period.NewDefaultResolver()
	}
	if res.now == nil {
		res.now = time.Now
	}
	res.validator = period.NewValidator(res.resolver)
	return res, nil
}

func validate(data *Data) error {
	if data == nil {
		return fmt.Errorf("no data")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.Saver == nil {
		return fmt.Errorf("no file saver")
	}
	if data.MsgSender == nil {
		return fmt.Errorf("no msg sender")
	}
	return nil
}

// Info returns the active submission window
func (s *Service) Info() period.Window {
	return s.resolver.Resolve(s.now())
}

// Finalize creates a SUBMITTED report or reconciles the request with the existing one
func (s *Service) Finalize(ctx context.Context, req *FinalizeRequest) (*Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.validator.Validate(req.Period, now); err != nil {
		if api.IsKind(err, api.KindInvalidPeriod) {
			if res := s.lateReplay(ctx, req); res != nil {
				return res, nil
			}
		}
		return nil, err
	}

	unlock := s.lock(ctx, req.WardID, req.Period)
	defer unlock()

	res, err := s.finalize(ctx, req, now)
	if err != nil {
		return nil, err
	}
	goapp.Log.Info().Int64("ward", req.WardID).Str("period", req.Period).Int64("report", res.Report.ID).
		Str("outcome", res.Outcome.String()).Msg("finalized")
	if !res.Created() {
		return res, nil
	}
	if err := s.PromoteDraft(ctx, req.WardID, req.Period); err != nil {
		goapp.Log.Warn().Err(err).Int64("ward", req.WardID).Str("period", req.Period).Msg("draft left")
	}
	res.Voice = s.attachVoice(ctx, res.Report.ID, req.Voice)
	return res, nil
}

func (s *Service) finalize(ctx context.Context, req *FinalizeRequest, now time.Time) (*Result, error) {
	existing, err := s.db.LoadFinal(ctx, req.WardID, req.Period)
	if err != nil {
		return nil, err
	}
	if res, err := s.reconcile(ctx, existing, req.SubmissionKey); res != nil || err != nil {
		return res, err
	}
	fields, err := s.fieldsFor(ctx, req)
	if err != nil {
		return nil, err
	}
	r := &persistence.Report{WardID: req.WardID, UserID: req.UserID, Period: req.Period, Status: status.Submitted,
		SubmissionKey: utils.ToSQLStr(req.SubmissionKey), Fields: *fields, Created: now, Updated: now}
	err = s.db.InsertReport(ctx, r)
	if err == nil {
		return &Result{Report: r, Outcome: reconcile.ProceedToCreate}, nil
	}
	if !errors.Is(err, api.ErrDuplicate) {
		return nil, err
	}
	goapp.Log.Warn().Err(err).Int64("ward", req.WardID).Str("period", req.Period).Msg("lost create race")
	return s.afterDuplicate(ctx, req, err)
}

// afterDuplicate re-decides once the storage rejected the insert, the first writer wins
func (s *Service) afterDuplicate(ctx context.Context, req *FinalizeRequest, insertErr error) (*Result, error) {
	existing, err := s.db.LoadFinal(ctx, req.WardID, req.Period)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.reconcile(ctx, existing, req.SubmissionKey)
	}
	if req.SubmissionKey != "" && errors.Is(insertErr, api.ErrDuplicateKey) {
		other, err := s.db.LoadBySubmissionKey(ctx, req.SubmissionKey)
		if err != nil {
			return nil, err
		}
		if other != nil && other.WardID == req.WardID {
			return nil, reconcile.NewConflict(other)
		}
	}
	// never expose a report of another ward
	return nil, reconcile.NewConflict(nil)
}

func (s *Service) reconcile(ctx context.Context, existing *persistence.Report, key string) (*Result, error) {
	switch o := reconcile.Decide(existing, key); o {
	case reconcile.ProceedToCreate:
		return nil, nil
	case reconcile.Replay:
		return &Result{Report: existing, Outcome: o}, nil
	case reconcile.Backfill:
		return s.backfill(ctx, existing, key)
	default:
		return nil, reconcile.NewConflict(existing)
	}
}

func (s *Service) backfill(ctx context.Context, existing *persistence.Report, key string) (*Result, error) {
	ok, err := s.db.SetSubmissionKey(ctx, existing.ID, key)
	if err != nil {
		if !errors.Is(err, api.ErrDuplicateKey) {
			return nil, err
		}
		// the key belongs to another report
		return nil, reconcile.NewConflict(existing)
	}
	if !ok {
		// someone attached a key in between
		reloaded, err := s.db.LoadReport(ctx, existing.ID)
		if err != nil {
			return nil, err
		}
		if reloaded == nil {
			return nil, reconcile.NewConflict(existing)
		}
		if utils.FromSQLStr(reloaded.SubmissionKey) == key {
			return &Result{Report: reloaded, Outcome: reconcile.Replay}, nil
		}
		return nil, reconcile.NewConflict(reloaded)
	}
	existing.SubmissionKey = utils.ToSQLStr(key)
	existing.Version++
	goapp.Log.Info().Int64("report", existing.ID).Msg("submission key attached")
	return &Result{Report: existing, Outcome: reconcile.Backfill}, nil
}

// lateReplay lets a client retrying after the window moved get its report back
func (s *Service) lateReplay(ctx context.Context, req *FinalizeRequest) *Result {
	if req.SubmissionKey == "" {
		return nil
	}
	r, err := s.db.LoadBySubmissionKey(ctx, req.SubmissionKey)
	if err != nil {
		goapp.Log.Warn().Err(err).Msg("can't load by key")
		return nil
	}
	if r == nil || r.WardID != req.WardID || r.Period != req.Period || r.Status == status.Draft {
		return nil
	}
	return &Result{Report: r, Outcome: reconcile.Replay}
}

func (s *Service) lock(ctx context.Context, wardID int64, period string) func() {
	if s.locker == nil {
		return func() {}
	}
	unlock, err := s.locker.Lock(ctx, locker.ReportKey(wardID, period))
	if err != nil {
		goapp.Log.Warn().Err(err).Int64("ward", wardID).Str("period", period).Msg("continue without lock")
		return func() {}
	}
	return unlock
}

func (s *Service) fieldsFor(ctx context.Context, req *FinalizeRequest) (*persistence.Fields, error) {
	if req.Fields != nil {
		return req.Fields, nil
	}
	d, err := s.db.LoadDraft(ctx, req.WardID, req.Period)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return &persistence.Fields{}, nil
	}
	return &d.Fields, nil
}

func (s *Service) attachVoice(ctx context.Context, reportID int64, notes []*VoiceNote) []*persistence.VoiceArtifact {
	res := make([]*persistence.VoiceArtifact, 0, len(notes))
	for _, n := range notes {
		va, err := s.attach(ctx, reportID, n)
		if err != nil {
			goapp.Log.Error().Err(err).Int64("report", reportID).Str("field", n.FieldName).Msg("can't attach voice note")
		}
		if va != nil {
			res = append(res, va)
		}
	}
	return res
}

func (s *Service) attach(ctx context.Context, reportID int64, n *VoiceNote) (*persistence.VoiceArtifact, error) {
	id := uuid.New().String()
	fp, err := utils.MakeValidateFileName(fmt.Sprintf("%d/%s", reportID, id), n.FileName)
	if err != nil {
		return nil, err
	}
	if err := s.saver.SaveFile(ctx, fp, n.Reader, n.Size); err != nil {
		return nil, fmt.Errorf("can't save file: %w", err)
	}
	va := &persistence.VoiceArtifact{ID: id, ReportID: reportID, FieldName: n.FieldName, FileName: filepath.Base(fp),
		FilePath: fp, FileSize: n.Size, DurationSeconds: utils.ToSQLInt32(n.DurationSeconds),
		Status: status.Pending, Uploaded: s.now()}
	if err := s.db.InsertVoiceArtifact(ctx, va); err != nil {
		return nil, err
	}
	err = s.sender.SendMessage(ctx, messages.NewTranscribeMessage(id, reportID, n.FieldName, fp), messages.Transcribe)
	if err != nil {
		va.Status = status.Failed
		va.Error = utils.ToSQLStr("can't enqueue transcription")
		if uErr := s.db.UpdateVoiceArtifact(ctx, va); uErr != nil {
			goapp.Log.Error().Err(uErr).Str("artifact", id).Msg("can't mark failed")
		}
		return va, fmt.Errorf("can't send message: %w", err)
	}
	return va, nil
}

func validateRequest(req *FinalizeRequest) error {
	if req == nil {
		return api.NewError(api.KindValidation, "no request")
	}
	if err := validateWho(req.WardID, req.UserID); err != nil {
		return err
	}
	if _, err := period.Parse(req.Period); err != nil {
		return api.NewError(api.KindValidation, fmt.Sprintf("wrong report_period '%s', expected YYYY-MM", req.Period))
	}
	if len(req.SubmissionKey) > 255 {
		return api.NewError(api.KindValidation, "submission key too long")
	}
	for _, v := range req.Voice {
		if v.FieldName == "" {
			return api.NewError(api.KindValidation, "no voice note field name")
		}
		if !utils.SupportAudioExt(filepath.Ext(v.FileName)) {
			return api.NewError(api.KindValidation, fmt.Sprintf("unsupported audio file '%s'", v.FileName)).
				With("field", v.FieldName)
		}
	}
	return nil
}

func validateWho(wardID, userID int64) error {
	if wardID <= 0 {
		return api.NewError(api.KindValidation, "no ward")
	}
	if userID <= 0 {
		return api.NewError(api.KindValidation, "no user")
	}
	return nil
}
