package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/wardrep/internal/pkg/api"
	"github.com/airenas/wardrep/internal/pkg/persistence"
	"github.com/airenas/wardrep/internal/pkg/status"
	"github.com/airenas/wardrep/internal/pkg/utils"
)

// Action is a reviewer decision
type Action int

const (
	// Approve moves report to REVIEWED
	Approve Action = iota + 1
	// Decline moves report to DECLINED, requires reason
	Decline
)

var (
	actionName = map[Action]string{Approve: "approve", Decline: "decline"}
	nameAction = map[string]Action{"approve": Approve, "decline": Decline}
)

func (a Action) String() string {
	return actionName[a]
}

// ActionFrom parses action, returns 0 if unknown
func ActionFrom(s string) Action {
	return nameAction[strings.ToLower(strings.TrimSpace(s))]
}

// transitions is the closed table of legal review moves
var transitions = map[status.Report]map[Action]status.Report{
	status.Submitted: {Approve: status.Reviewed, Decline: status.Declined},
	status.Declined:  {Approve: status.Reviewed},
	status.Reviewed:  {Decline: status.Declined},
}

// Next returns the target status, false if the move is not allowed
func Next(from status.Report, a Action) (status.Report, bool) {
	res, ok := transitions[from][a]
	return res, ok
}

// DB is a report storage
type DB interface {
	LoadReport(ctx context.Context, id int64) (*persistence.Report, error)
	UpdateReview(ctx context.Context, r *persistence.Report) error
}

// Request is a reviewer decision for a report
type Request struct {
	ReportID   int64
	Action     Action
	Reason     string
	ReviewerID int64
}

// Service applies review decisions
type Service struct {
	db  DB
	now func() time.Time
}

// NewService creates review service
func NewService(db DB, now func() time.Time) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("no DB")
	}
	if now == nil {
		now = time.Now
	}
	return &Service{db: db, now: now}, nil
}

// Review moves the report by the action and stamps reviewer fields.
// Nothing is written if the request is rejected.
func (s *Service) Review(ctx context.Context, req *Request) (*persistence.Report, error) {
	if req == nil || req.Action == 0 {
		return nil, api.NewError(api.KindValidation, "wrong action, expected approve or decline")
	}
	if req.ReviewerID <= 0 {
		return nil, api.NewError(api.KindValidation, "no reviewer")
	}
	reason := strings.TrimSpace(req.Reason)
	if req.Action == Decline && reason == "" {
		return nil, api.NewError(api.KindMissingDeclineReason, "A reason is required to decline a report").
			With("report_id", req.ReportID)
	}
	r, err := s.db.LoadReport(ctx, req.ReportID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, api.NewError(api.KindNotFound, "no report").With("id", req.ReportID)
	}
	to, ok := Next(r.Status, req.Action)
	if !ok {
		return nil, api.NewError(api.KindInvalidTransition, fmt.Sprintf("can't %s a %s report", req.Action, r.Status)).
			With("id", r.ID).With("status", r.Status.String())
	}
	now := s.now()
	r.Status = to
	r.ReviewedBy = utils.ToSQLInt64(req.ReviewerID)
	r.ReviewedAt = utils.ToSQLTime(now)
	r.Updated = now
	if to == status.Declined {
		r.DeclineReason = utils.ToSQLStr(reason)
	} else {
		r.DeclineReason = utils.ToSQLStr("")
	}
	if err := s.db.UpdateReview(ctx, r); err != nil {
		if errors.Is(err, api.ErrConcurrentUpdate) {
			return nil, api.NewError(api.KindInvalidTransition, "report was changed by someone else, reload and retry").
				With("id", r.ID)
		}
		return nil, err
	}
	goapp.Log.Info().Int64("report", r.ID).Str("action", req.Action.String()).Str("status", r.Status.String()).
		Int64("reviewer", req.ReviewerID).Msg("reviewed")
	return r, nil
}
