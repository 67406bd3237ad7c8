package forms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/wardrep/internal/pkg/api"
	"github.com/airenas/wardrep/internal/pkg/persistence"
	"github.com/airenas/wardrep/internal/pkg/status"
	"github.com/airenas/wardrep/internal/pkg/utils"
)

// DB is a form definitions storage
type DB interface {
	InsertForm(ctx context.Context, f *persistence.Form) error
	LoadForm(ctx context.Context, id int64) (*persistence.Form, error)
	ListForms(ctx context.Context) ([]*persistence.Form, error)
	LoadDeployedForms(ctx context.Context) ([]*persistence.Form, error)
	UpdateFormDraft(ctx context.Context, f *persistence.Form) (bool, error)
	DeployForm(ctx context.Context, id int64, at time.Time) (bool, error)
	ArchiveForm(ctx context.Context, id int64, at time.Time) (bool, error)
}

// Input is an editable part of a form
type Input struct {
	Name        string
	Description string
	Definition  json.RawMessage
	UserID      int64
}

// Service handles form versions: DRAFT -> DEPLOYED -> ARCHIVED
type Service struct {
	db  DB
	now func() time.Time
}

// NewService creates forms service
func NewService(db DB, now func() time.Time) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("no DB")
	}
	if now == nil {
		now = time.Now
	}
	return &Service{db: db, now: now}, nil
}

// Create adds a new DRAFT form
func (s *Service) Create(ctx context.Context, in *Input) (*persistence.Form, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	now := s.now()
	res := &persistence.Form{Name: strings.TrimSpace(in.Name), Description: utils.ToSQLStr(in.Description),
		Version: 1, Status: status.FormDraft, Definition: in.Definition, CreatedBy: in.UserID, Created: now, Updated: now}
	if err := s.db.InsertForm(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Update changes a DRAFT form
func (s *Service) Update(ctx context.Context, id int64, in *Input) (*persistence.Form, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	f, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.Status != status.FormDraft {
		return nil, notEditable(f)
	}
	f.Name = strings.TrimSpace(in.Name)
	f.Description = utils.ToSQLStr(in.Description)
	f.Definition = in.Definition
	f.Updated = s.now()
	ok, err := s.db.UpdateFormDraft(ctx, f)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notEditable(f)
	}
	return f, nil
}

// Deploy makes a DRAFT form the only active one, the deployed one is archived
func (s *Service) Deploy(ctx context.Context, id int64) (*persistence.Form, error) {
	f, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !f.Status.CanMoveTo(status.FormDeployed) {
		return nil, wrongMove(f, status.FormDeployed)
	}
	ok, err := s.db.DeployForm(ctx, id, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, wrongMove(f, status.FormDeployed)
	}
	goapp.Log.Info().Int64("form", id).Msg("deployed")
	return s.load(ctx, id)
}

// Archive retires a DEPLOYED form
func (s *Service) Archive(ctx context.Context, id int64) (*persistence.Form, error) {
	f, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !f.Status.CanMoveTo(status.FormArchived) {
		return nil, wrongMove(f, status.FormArchived)
	}
	ok, err := s.db.ArchiveForm(ctx, id, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, wrongMove(f, status.FormArchived)
	}
	return s.load(ctx, id)
}

// GetActive returns the deployed form or nil if there is none
func (s *Service) GetActive(ctx context.Context) (*persistence.Form, error) {
	fs, err := s.db.LoadDeployedForms(ctx)
	if err != nil {
		return nil, err
	}
	switch len(fs) {
	case 0:
		return nil, nil
	case 1:
		return fs[0], nil
	default:
		return nil, fmt.Errorf("found %d deployed forms", len(fs))
	}
}

// Get returns form by ID
func (s *Service) Get(ctx context.Context, id int64) (*persistence.Form, error) {
	return s.load(ctx, id)
}

// List returns all forms
func (s *Service) List(ctx context.Context) ([]*persistence.Form, error) {
	return s.db.ListForms(ctx)
}

func (s *Service) load(ctx context.Context, id int64) (*persistence.Form, error) {
	res, err := s.db.LoadForm(ctx, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, api.NewError(api.KindNotFound, "no form").With("id", id)
	}
	return res, nil
}

func validateInput(in *Input) error {
	if in == nil {
		return api.NewError(api.KindValidation, "no form")
	}
	if strings.TrimSpace(in.Name) == "" {
		return api.NewError(api.KindValidation, "no form name")
	}
	d := bytes.TrimSpace(in.Definition)
	if len(d) == 0 || d[0] != '{' || !json.Valid(d) {
		return api.NewError(api.KindValidation, "form definition must be a JSON object")
	}
	return nil
}

func notEditable(f *persistence.Form) error {
	return api.NewError(api.KindInvalidTransition, fmt.Sprintf("form is %s, only a draft can be edited", f.Status)).
		With("id", f.ID).With("status", f.Status.String())
}

func wrongMove(f *persistence.Form, to status.Form) error {
	return api.NewError(api.KindInvalidTransition, fmt.Sprintf("can't move form from %s to %s", f.Status, to)).
		With("id", f.ID).With("status", f.Status.String())
}
