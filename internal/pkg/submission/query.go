package submission

import (
	"context"
	"strings"

	"github.com/airenas/wardrep/internal/pkg/api"
	"github.com/airenas/wardrep/internal/pkg/persistence"
	"github.com/airenas/wardrep/internal/pkg/status"
)

// CheckSubmitted returns the final report of a ward and period or nil
func (s *Service) CheckSubmitted(ctx context.Context, wardID int64, p string) (*persistence.Report, error) {
	p, err := s.periodOrActive(p)
	if err != nil {
		return nil, err
	}
	return s.db.LoadFinal(ctx, wardID, p)
}

// Get returns report with its voice notes. wardID 0 skips the ward check.
func (s *Service) Get(ctx context.Context, id, wardID int64) (*persistence.Report, []*persistence.VoiceArtifact, error) {
	r, err := s.db.LoadReport(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if r == nil || (wardID > 0 && r.WardID != wardID) {
		return nil, nil, api.NewError(api.KindNotFound, "no report").With("id", id)
	}
	va, err := s.db.LoadVoiceArtifacts(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return r, va, nil
}

// List returns reports of a ward
func (s *Service) List(ctx context.Context, wardID int64, p string, st string) ([]*persistence.Report, error) {
	if p != "" {
		if _, err := s.periodOrActive(p); err != nil {
			return nil, err
		}
	}
	var rs status.Report
	if st != "" {
		rs = status.ReportFrom(strings.ToUpper(st))
		if rs == 0 {
			return nil, api.NewError(api.KindValidation, "wrong status '"+st+"'")
		}
	}
	return s.db.ListReports(ctx, wardID, p, rs)
}

// GetVoice returns voice note
func (s *Service) GetVoice(ctx context.Context, id string) (*persistence.VoiceArtifact, error) {
	res, err := s.db.LoadVoiceArtifact(ctx, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, api.NewError(api.KindNotFound, "no voice note").With("id", id)
	}
	return res, nil
}
