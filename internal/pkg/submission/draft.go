package submission

import (
	"context"
	"fmt"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/wardrep/internal/pkg/api"
	"github.com/airenas/wardrep/internal/pkg/period"
	"github.com/airenas/wardrep/internal/pkg/persistence"
	"github.com/airenas/wardrep/internal/pkg/status"
)

// DraftRequest is a save draft request
type DraftRequest struct {
	WardID int64
	UserID int64
	// Period empty means the active window period
	Period string
	Fields persistence.Fields
}

// SaveDraft inserts or overwrites the draft of a ward and period.
// The submission window is not checked for drafts.
func (s *Service) SaveDraft(ctx context.Context, req *DraftRequest) (*persistence.Report, error) {
	if req == nil {
		return nil, api.NewError(api.KindValidation, "no request")
	}
	if err := validateWho(req.WardID, req.UserID); err != nil {
		return nil, err
	}
	p, err := s.periodOrActive(req.Period)
	if err != nil {
		return nil, err
	}
	r := &persistence.Report{WardID: req.WardID, UserID: req.UserID, Period: p, Status: status.Draft,
		Fields: req.Fields, Updated: s.now()}
	if err := s.db.UpsertDraft(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// GetDraft returns the draft of a ward and period
func (s *Service) GetDraft(ctx context.Context, wardID int64, p string) (*persistence.Report, error) {
	p, err := s.periodOrActive(p)
	if err != nil {
		return nil, err
	}
	res, err := s.db.LoadDraft(ctx, wardID, p)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, api.NewError(api.KindNotFound, "no draft").With("report_period", p)
	}
	return res, nil
}

// DeleteDraft removes a draft of the ward, fails for a non draft record
func (s *Service) DeleteDraft(ctx context.Context, id, wardID int64) error {
	ok, err := s.db.DeleteDraftByID(ctx, id, wardID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	r, err := s.db.LoadReport(ctx, id)
	if err != nil {
		return err
	}
	if r == nil || r.WardID != wardID {
		return api.NewError(api.KindNotFound, "no draft").With("id", id)
	}
	return api.NewError(api.KindInvalidTransition, fmt.Sprintf("report is %s, only a draft can be deleted", r.Status)).
		With("id", id).With("status", r.Status.String())
}

// PromoteDraft drops the draft after the final report of the same ward and period is created
func (s *Service) PromoteDraft(ctx context.Context, wardID int64, p string) error {
	n, err := s.db.DeleteDraft(ctx, wardID, p)
	if err != nil {
		return err
	}
	if n > 0 {
		goapp.Log.Info().Int64("ward", wardID).Str("period", p).Msg("draft promoted")
	}
	return nil
}

func (s *Service) periodOrActive(p string) (string, error) {
	if p == "" {
		return s.resolver.Resolve(s.now()).Period, nil
	}
	if _, err := period.Parse(p); err != nil {
		return "", api.NewError(api.KindValidation, fmt.Sprintf("wrong report_period '%s', expected YYYY-MM", p))
	}
	return p, nil
}
