package mocks

import (
	"context"
	"io"
	"time"

	"github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/wardrep/internal/pkg/persistence"
	"github.com/airenas/wardrep/internal/pkg/status"
	"github.com/airenas/wardrep/internal/pkg/transcriber/api"
	"github.com/stretchr/testify/mock"
)

// Filer is minio mock
type Filer struct{ mock.Mock }

func (m *Filer) SaveFile(ctx context.Context, name string, r io.Reader, fileSize int64) error {
	args := m.Called(ctx, name, r, fileSize)
	return args.Error(0)
}

// LoadFile func mock
func (m *Filer) LoadFile(ctx context.Context, fileName string) (io.ReadSeekCloser, error) {
	args := m.Called(ctx, fileName)
	return to[io.ReadSeekCloser](args.Get(0)), args.Error(1)
}

// DB is postgres DB mock
type DB struct{ mock.Mock }

func (m *DB) Live(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *DB) LoadFinal(ctx context.Context, wardID int64, period string) (*persistence.Report, error) {
	args := m.Called(ctx, wardID, period)
	return to[*persistence.Report](args.Get(0)), args.Error(1)
}

func (m *DB) LoadDraft(ctx context.Context, wardID int64, period string) (*persistence.Report, error) {
	args := m.Called(ctx, wardID, period)
	return to[*persistence.Report](args.Get(0)), args.Error(1)
}

func (m *DB) LoadReport(ctx context.Context, id int64) (*persistence.Report, error) {
	args := m.Called(ctx, id)
	return to[*persistence.Report](args.Get(0)), args.Error(1)
}

func (m *DB) LoadBySubmissionKey(ctx context.Context, key string) (*persistence.Report, error) {
	args := m.Called(ctx, key)
	return to[*persistence.Report](args.Get(0)), args.Error(1)
}

func (m *DB) ListReports(ctx context.Context, wardID int64, period string, st status.Report) ([]*persistence.Report, error) {
	args := m.Called(ctx, wardID, period, st)
	return to[[]*persistence.Report](args.Get(0)), args.Error(1)
}

func (m *DB) InsertReport(ctx context.Context, r *persistence.Report) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *DB) SetSubmissionKey(ctx context.Context, id int64, key string) (bool, error) {
	args := m.Called(ctx, id, key)
	return args.Bool(0), args.Error(1)
}

func (m *DB) UpsertDraft(ctx context.Context, r *persistence.Report) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *DB) DeleteDraft(ctx context.Context, wardID int64, period string) (int64, error) {
	args := m.Called(ctx, wardID, period)
	return to[int64](args.Get(0)), args.Error(1)
}

func (m *DB) DeleteDraftByID(ctx context.Context, id, wardID int64) (bool, error) {
	args := m.Called(ctx, id, wardID)
	return args.Bool(0), args.Error(1)
}

func (m *DB) UpdateReview(ctx context.Context, r *persistence.Report) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *DB) UpdateFields(ctx context.Context, r *persistence.Report) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *DB) InsertVoiceArtifact(ctx context.Context, va *persistence.VoiceArtifact) error {
	args := m.Called(ctx, va)
	return args.Error(0)
}

func (m *DB) LoadVoiceArtifact(ctx context.Context, id string) (*persistence.VoiceArtifact, error) {
	args := m.Called(ctx, id)
	return to[*persistence.VoiceArtifact](args.Get(0)), args.Error(1)
}

func (m *DB) LoadVoiceArtifacts(ctx context.Context, reportID int64) ([]*persistence.VoiceArtifact, error) {
	args := m.Called(ctx, reportID)
	return to[[]*persistence.VoiceArtifact](args.Get(0)), args.Error(1)
}

func (m *DB) UpdateVoiceArtifact(ctx context.Context, va *persistence.VoiceArtifact) error {
	args := m.Called(ctx, va)
	return args.Error(0)
}

func (m *DB) InsertForm(ctx context.Context, f *persistence.Form) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *DB) LoadForm(ctx context.Context, id int64) (*persistence.Form, error) {
	args := m.Called(ctx, id)
	return to[*persistence.Form](args.Get(0)), args.Error(1)
}

func (m *DB) ListForms(ctx context.Context) ([]*persistence.Form, error) {
	args := m.Called(ctx)
	return to[[]*persistence.Form](args.Get(0)), args.Error(1)
}

func (m *DB) LoadDeployedForms(ctx context.Context) ([]*persistence.Form, error) {
	args := m.Called(ctx)
	return to[[]*persistence.Form](args.Get(0)), args.Error(1)
}

func (m *DB) UpdateFormDraft(ctx context.Context, f *persistence.Form) (bool, error) {
	args := m.Called(ctx, f)
	return args.Bool(0), args.Error(1)
}

func (m *DB) DeployForm(ctx context.Context, id int64, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *DB) ArchiveForm(ctx context.Context, id int64, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

// Sender is postgres queue mock
type Sender struct{ mock.Mock }

func (m *Sender) SendMessage(ctx context.Context, msg messages.Message, queue string) error {
	args := m.Called(ctx, msg, queue)
	return args.Error(0)
}

// Transcriber is transcription client mock
type Transcriber struct{ mock.Mock }

func (m *Transcriber) Transcribe(ctx context.Context, fileName string, audio io.Reader) (string, error) {
	args := m.Called(ctx, fileName, audio)
	return args.String(0), args.Error(1)
}

// Provider is transcriber provider mock
type Provider struct{ mock.Mock }

func (m *Provider) Get() (api.Transcriber, error) {
	args := m.Called()
	return to[api.Transcriber](args.Get(0)), args.Error(1)
}

// Locker is redis lock mock
type Locker struct{ mock.Mock }

func (m *Locker) Lock(ctx context.Context, key string) (func(), error) {
	args := m.Called(ctx, key)
	return to[func()](args.Get(0)), args.Error(1)
}

func to[T interface{}](val interface{}) T {
	if val == nil {
		var res T
		return res
	}
	return val.(T)
}
