package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/wardrep/internal/pkg/api"
	"github.com/airenas/wardrep/internal/pkg/messages"
	"github.com/airenas/wardrep/internal/pkg/persistence"
	"github.com/airenas/wardrep/internal/pkg/status"
	tapi "github.com/airenas/wardrep/internal/pkg/transcriber/api"
	"github.com/airenas/wardrep/internal/pkg/utils"
	"github.com/airenas/wardrep/internal/pkg/utils/handler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vgarvardt/gue/v5"
)

// DB provides persistence functionality
type DB interface {
	LoadVoiceArtifact(ctx context.Context, id string) (*persistence.VoiceArtifact, error)
	UpdateVoiceArtifact(ctx context.Context, va *persistence.VoiceArtifact) error
	LoadReport(ctx context.Context, id int64) (*persistence.Report, error)
	UpdateFields(ctx context.Context, r *persistence.Report) error
}

// Filer retrieves files
type Filer interface {
	LoadFile(ctx context.Context, fileName string) (io.ReadSeekCloser, error)
}

// ServiceData keeps data required for service work
type ServiceData struct {
	GueClient     *gue.Client
	WorkerCount   int
	DB            DB
	Filer         Filer
	TranscriberPr tapi.Provider
	Timeout       time.Duration
	Testing       bool

	now func() time.Time
}

const (
	failWriteTimeout = time.Second * 10
	fieldWriteTries  = 3
	maxErrLen        = 500
	loadRetries      = 5
)

var errLoad = errors.New("can't load voice note")

var transcriptionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "wardrep",
	Name:      "transcription_total",
	Help:      "Finished voice note transcriptions by outcome",
}, []string{"outcome"})

var transcriptionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: "wardrep",
	Name:      "transcription_duration_seconds",
	Help:      "Duration of calls to the transcription backend",
	Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
})

func init() {
	prometheus.MustRegister(transcriptionTotal, transcriptionDuration)
}

// StartWorkerService starts the event queue listener service to listen for events
// returns channel for tracking if all jobs are finished
func StartWorkerService(ctx context.Context, data *ServiceData) (chan struct{}, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	goapp.Log.Info().Int("workers", data.WorkerCount).Msg("Starting listen for messages")
	if data.Testing {
		goapp.Log.Warn().Msg("SERVICE IN TEST MODE")
	}

	wm := gue.WorkMap{
		messages.Transcribe: handler.Create(data, handleTranscribe,
			handler.DefaultOpts[messages.TranscribeMessage]().WithFailure(retryOnLoad).WithTimeout(data.Timeout).
				WithBackoff(handler.DefaultBackoffOrTest(data.Testing))),
	}

	pool, err := gue.NewWorkerPool(
		data.GueClient, wm, data.WorkerCount,
		gue.WithPoolQueue(messages.Work),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter()),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("transcribe-worker"),
	)
	if err != nil {
		return nil, fmt.Errorf("could not build gue workers pool: %w", err)
	}
	res := make(chan struct{}, 1)
	go func() {
		goapp.Log.Info().Msg("Starting workers")
		if err := pool.Run(ctx); err != nil {
			goapp.Log.Error().Err(err).Msg("pool error")
		}
		goapp.Log.Info().Msg("Pool workers finished")
		res <- struct{}{}
	}()
	return res, nil
}

func validate(data *ServiceData) error {
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.WorkerCount < 1 {
		return fmt.Errorf("no worker count provided")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.Filer == nil {
		return fmt.Errorf("no Filer")
	}
	if data.TranscriberPr == nil {
		return fmt.Errorf("no transcriber provider")
	}
	if data.now == nil {
		data.now = time.Now
	}
	return nil
}

// handleTranscribe moves voice note PENDING -> PROCESSING -> DONE|FAILED.
// Any failure after the note is loaded ends as FAILED on the note.
func handleTranscribe(ctx context.Context, m *messages.TranscribeMessage, data *ServiceData) (err error) {
	goapp.Log.Info().Str("ID", m.ID).Int64("report", m.ReportID).Str("field", m.FieldName).Msg("handling transcribe")
	va, err := data.DB.LoadVoiceArtifact(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("%w: %w", errLoad, err)
	}
	if va == nil {
		goapp.Log.Info().Str("ID", m.ID).Msg("no voice note, skip")
		return nil
	}
	if va.Status.IsFinal() {
		goapp.Log.Info().Str("ID", m.ID).Str("status", va.Status.String()).Msg("already finished, skip")
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			markFailed(ctx, va, err.Error(), data)
			transcriptionTotal.WithLabelValues("failed").Inc()
		}
	}()
	return transcribe(ctx, va, data)
}

// retryOnLoad retries jobs that failed before the note was loaded,
// other failures are already written to the note as FAILED
func retryOnLoad(ctx context.Context, m *messages.TranscribeMessage, err error, j *gue.Job) (bool, time.Duration, error) {
	if !errors.Is(err, errLoad) {
		return false, 0, nil
	}
	if j.ErrorCount >= loadRetries {
		goapp.Log.Error().Str("ID", m.ID).Int32("errCount", j.ErrorCount).Msg("voice note left unprocessed")
		return false, 0, nil
	}
	return true, 0, nil
}

func transcribe(ctx context.Context, va *persistence.VoiceArtifact, data *ServiceData) error {
	tr, err := data.TranscriberPr.Get()
	if err != nil {
		return fmt.Errorf("can't get transcriber: %w", err)
	}
	if tr == nil {
		goapp.Log.Warn().Str("ID", va.ID).Msg("no transcriber configured")
		transcriptionTotal.WithLabelValues("unconfigured").Inc()
		return save(ctx, va, status.Failed, data, func(upd *persistence.VoiceArtifact) {
			upd.Error = utils.ToSQLStr("transcription backend is not configured")
		})
	}
	if va.Status != status.Processing {
		if err := save(ctx, va, status.Processing, data, nil); err != nil {
			return fmt.Errorf("can't save status: %w", err)
		}
	}
	text, err := invokeTranscriber(ctx, tr, va, data)
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		goapp.Log.Warn().Str("ID", va.ID).Msg("empty transcription")
		transcriptionTotal.WithLabelValues("empty").Inc()
		return save(ctx, va, status.Failed, data, func(upd *persistence.VoiceArtifact) {
			upd.Error = utils.ToSQLStr("transcription returned no text")
		})
	}
	err = save(ctx, va, status.Done, data, func(upd *persistence.VoiceArtifact) {
		upd.Text = utils.ToSQLStr(text)
		upd.Error = utils.ToSQLStr("")
		upd.Transcribed = utils.ToSQLTime(data.now())
	})
	if err != nil {
		return fmt.Errorf("can't save result: %w", err)
	}
	transcriptionTotal.WithLabelValues("done").Inc()
	goapp.Log.Info().Str("ID", va.ID).Int("len", len(text)).Msg("transcribed")
	if err := fillField(ctx, va, text, data); err != nil {
		goapp.Log.Error().Err(err).Str("ID", va.ID).Int64("report", va.ReportID).Msg("can't fill report field")
	}
	return nil
}

func invokeTranscriber(ctx context.Context, tr tapi.Transcriber, va *persistence.VoiceArtifact, data *ServiceData) (string, error) {
	f, err := data.Filer.LoadFile(ctx, va.FilePath)
	if err != nil {
		return "", fmt.Errorf("can't load audio: %w", err)
	}
	defer f.Close()
	defer goapp.Estimate("transcribe")()
	start := time.Now()
	res, err := tr.Transcribe(ctx, va.FileName, f)
	transcriptionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("can't transcribe: %w", err)
	}
	return res, nil
}

// fillField writes text to the report field only if the field is empty
func fillField(ctx context.Context, va *persistence.VoiceArtifact, text string, data *ServiceData) error {
	for i := 0; i < fieldWriteTries; i++ {
		r, err := data.DB.LoadReport(ctx, va.ReportID)
		if err != nil {
			return fmt.Errorf("can't load report: %w", err)
		}
		if r == nil {
			goapp.Log.Info().Int64("report", va.ReportID).Msg("no report, skip field")
			return nil
		}
		ok, err := r.Fields.FillText(va.FieldName, text)
		if err != nil {
			goapp.Log.Warn().Err(err).Str("field", va.FieldName).Msg("skip field")
			return nil
		}
		if !ok {
			goapp.Log.Info().Str("field", va.FieldName).Int64("report", r.ID).Msg("field has a value, keep it")
			return nil
		}
		err = data.DB.UpdateFields(ctx, r)
		if err == nil {
			goapp.Log.Info().Str("field", va.FieldName).Int64("report", r.ID).Msg("field filled")
			return nil
		}
		if !errors.Is(err, api.ErrConcurrentUpdate) {
			return err
		}
		goapp.Log.Warn().Int64("report", r.ID).Int("try", i+1).Msg("report changed, retry")
	}
	return fmt.Errorf("report %d changed %d times", va.ReportID, fieldWriteTries)
}

// save persists a copy and applies it to va only on success
func save(ctx context.Context, va *persistence.VoiceArtifact, st status.Transcription, data *ServiceData,
	mod func(*persistence.VoiceArtifact)) error {
	if !va.Status.CanMoveTo(st) {
		return fmt.Errorf("can't move voice note %s from %s to %s", va.ID, va.Status, st)
	}
	upd := *va
	upd.Status = st
	if mod != nil {
		mod(&upd)
	}
	if err := data.DB.UpdateVoiceArtifact(ctx, &upd); err != nil {
		return err
	}
	*va = upd
	return nil
}

func markFailed(ctx context.Context, va *persistence.VoiceArtifact, cause string, data *ServiceData) {
	defer func() {
		if r := recover(); r != nil {
			goapp.Log.Error().Str("ID", va.ID).Msgf("panic on fail write: %v", r)
		}
	}()
	if va.Status.IsFinal() {
		return
	}
	ctx, cf := context.WithTimeout(context.WithoutCancel(ctx), failWriteTimeout)
	defer cf()
	if len(cause) > maxErrLen {
		cause = cause[:maxErrLen]
	}
	err := save(ctx, va, status.Failed, data, func(upd *persistence.VoiceArtifact) {
		upd.Error = utils.ToSQLStr(cause)
	})
	if err != nil {
		goapp.Log.Error().Err(err).Str("ID", va.ID).Msg("can't mark failed")
	}
}
