package reportservice

import (
	"context"

	"github.com/airenas/wardrep/internal/pkg/forms"
	"github.com/airenas/wardrep/internal/pkg/period"
	"github.com/airenas/wardrep/internal/pkg/persistence"
	"github.com/airenas/wardrep/internal/pkg/review"
	"github.com/airenas/wardrep/internal/pkg/submission"
	"github.com/stretchr/testify/mock"
)

type submitterMock struct{ mock.Mock }

func (m *submitterMock) Info() period.Window {
	args := m.Called()
	return args.Get(0).(period.Window)
}

func (m *submitterMock) Finalize(ctx context.Context, req *submission.FinalizeRequest) (*submission.Result, error) {
	args := m.Called(ctx, req)
	return to[*submission.Result](args.Get(0)), args.Error(1)
}

func (m *submitterMock) SaveDraft(ctx context.Context, req *submission.DraftRequest) (*persistence.Report, error) {
	args := m.Called(ctx, req)
	return to[*persistence.Report](args.Get(0)), args.Error(1)
}

func (m *submitterMock) GetDraft(ctx context.Context, wardID int64, p string) (*persistence.Report, error) {
	args := m.Called(ctx, wardID, p)
	return to[*persistence.Report](args.Get(0)), args.Error(1)
}

func (m *submitterMock) DeleteDraft(ctx context.Context, id, wardID int64) error {
	args := m.Called(ctx, id, wardID)
	return args.Error(0)
}

func (m *submitterMock) CheckSubmitted(ctx context.Context, wardID int64, p string) (*persistence.Report, error) {
	args := m.Called(ctx, wardID, p)
	return to[*persistence.Report](args.Get(0)), args.Error(1)
}

func (m *submitterMock) Get(ctx context.Context, id, wardID int64) (*persistence.Report, []*persistence.VoiceArtifact, error) {
	args := m.Called(ctx, id, wardID)
	return to[*persistence.Report](args.Get(0)), to[[]*persistence.VoiceArtifact](args.Get(1)), args.Error(2)
}

func (m *submitterMock) List(ctx context.Context, wardID int64, p, st string) ([]*persistence.Report, error) {
	args := m.Called(ctx, wardID, p, st)
	return to[[]*persistence.Report](args.Get(0)), args.Error(1)
}

func (m *submitterMock) GetVoice(ctx context.Context, id string) (*persistence.VoiceArtifact, error) {
	args := m.Called(ctx, id)
	return to[*persistence.VoiceArtifact](args.Get(0)), args.Error(1)
}

type reviewerMock struct{ mock.Mock }

func (m *reviewerMock) Review(ctx context.Context, req *review.Request) (*persistence.Report, error) {
	args := m.Called(ctx, req)
	return to[*persistence.Report](args.Get(0)), args.Error(1)
}

type formsMock struct{ mock.Mock }

func (m *formsMock) Create(ctx context.Context, in *forms.Input) (*persistence.Form, error) {
	args := m.Called(ctx, in)
	return to[*persistence.Form](args.Get(0)), args.Error(1)
}

func (m *formsMock) Update(ctx context.Context, id int64, in *forms.Input) (*persistence.Form, error) {
	args := m.Called(ctx, id, in)
	return to[*persistence.Form](args.Get(0)), args.Error(1)
}

func (m *formsMock) Deploy(ctx context.Context, id int64) (*persistence.Form, error) {
	args := m.Called(ctx, id)
	return to[*persistence.Form](args.Get(0)), args.Error(1)
}

func (m *formsMock) Archive(ctx context.Context, id int64) (*persistence.Form, error) {
	args := m.Called(ctx, id)
	return to[*persistence.Form](args.Get(0)), args.Error(1)
}

func (m *formsMock) GetActive(ctx context.Context) (*persistence.Form, error) {
	args := m.Called(ctx)
	return to[*persistence.Form](args.Get(0)), args.Error(1)
}

func (m *formsMock) Get(ctx context.Context, id int64) (*persistence.Form, error) {
	args := m.Called(ctx, id)
	return to[*persistence.Form](args.Get(0)), args.Error(1)
}

func (m *formsMock) List(ctx context.Context) ([]*persistence.Form, error) {
	args := m.Called(ctx)
	return to[[]*persistence.Form](args.Get(0)), args.Error(1)
}

func to[T interface{}](val interface{}) T {
	if val == nil {
		var res T
		return res
	}
	return val.(T)
}
