//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/airenas/wardrep/internal/pkg/api"
	"github.com/airenas/wardrep/internal/pkg/messages"
	"github.com/airenas/wardrep/internal/pkg/persistence"
	"github.com/airenas/wardrep/internal/pkg/status"
	"github.com/airenas/wardrep/internal/pkg/test"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startDB(t *testing.T) (*pgxpool.Pool, *DB) {
	t.Helper()
	ctx := context.Background()
	c, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("wardrep"),
		tcpostgres.WithUsername("wardrep"),
		tcpostgres.WithPassword("wardrep"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.Nil(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })
	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	require.Nil(t, err)
	require.Nil(t, RunMigrations(dsn))
	// second run is a no change
	require.Nil(t, RunMigrations(dsn))

	pool, err := pgxpool.New(ctx, dsn)
	require.Nil(t, err)
	t.Cleanup(pool.Close)
	db, err := NewDB(pool)
	require.Nil(t, err)
	return pool, db
}

func newReport(ward int64, p string, st status.Report, key string) *persistence.Report {
	now := time.Now()
	res := &persistence.Report{WardID: ward, UserID: 10, Period: p, Status: st, Created: now, Updated: now,
		Fields: persistence.Fields{MeetingsHeld: 1}}
	if key != "" {
		res.SubmissionKey = sql.NullString{String: key, Valid: true}
	}
	return res
}

func TestDB(t *testing.T) {
	pool, db := startDB(t)

	t.Run("Live", func(t *testing.T) {
		assert.Nil(t, db.Live(test.Ctx(t)))
	})

	t.Run("Final unique per ward period", func(t *testing.T) {
		ctx := test.Ctx(t)
		require.Nil(t, db.InsertReport(ctx, newReport(1, "2024-02", status.Submitted, "k1")))
		err := db.InsertReport(ctx, newReport(1, "2024-02", status.Submitted, "k2"))
		assert.True(t, errors.Is(err, api.ErrDuplicatePeriod), err)
		assert.True(t, errors.Is(err, api.ErrDuplicate))
		// draft of the same period can coexist
		d := newReport(1, "2024-02", status.Draft, "")
		assert.Nil(t, db.UpsertDraft(ctx, d))
	})

	t.Run("Key unique", func(t *testing.T) {
		ctx := test.Ctx(t)
		require.Nil(t, db.InsertReport(ctx, newReport(2, "2024-02", status.Submitted, "k3")))
		err := db.InsertReport(ctx, newReport(3, "2024-02", status.Submitted, "k3"))
		assert.True(t, errors.Is(err, api.ErrDuplicateKey), err)
	})

	t.Run("Concurrent insert", func(t *testing.T) {
		ctx := test.Ctx(t)
		var wg sync.WaitGroup
		errs := make([]error, 10)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = db.InsertReport(ctx, newReport(4, "2024-02", status.Submitted, ""))
			}(i)
		}
		wg.Wait()
		ok := 0
		for _, err := range errs {
			if err == nil {
				ok++
			} else {
				assert.True(t, errors.Is(err, api.ErrDuplicatePeriod), err)
			}
		}
		assert.Equal(t, 1, ok)
		r, err := db.LoadFinal(ctx, 4, "2024-02")
		require.Nil(t, err)
		require.NotNil(t, r)
		assert.Equal(t, 1, r.Fields.MeetingsHeld)
	})

	t.Run("Draft upsert", func(t *testing.T) {
		ctx := test.Ctx(t)
		d := newReport(5, "2024-02", status.Draft, "")
		require.Nil(t, db.UpsertDraft(ctx, d))
		d2 := newReport(5, "2024-02", status.Draft, "")
		d2.Fields.MeetingsHeld = 3
		require.Nil(t, db.UpsertDraft(ctx, d2))
		assert.Equal(t, d.ID, d2.ID)
		l, err := db.LoadDraft(ctx, 5, "2024-02")
		require.Nil(t, err)
		assert.Equal(t, 3, l.Fields.MeetingsHeld)
		n, err := db.DeleteDraft(ctx, 5, "2024-02")
		require.Nil(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("Submission key backfill", func(t *testing.T) {
		ctx := test.Ctx(t)
		r := newReport(6, "2024-02", status.Submitted, "")
		require.Nil(t, db.InsertReport(ctx, r))
		ok, err := db.SetSubmissionKey(ctx, r.ID, "k6")
		require.Nil(t, err)
		assert.True(t, ok)
		ok, err = db.SetSubmissionKey(ctx, r.ID, "k7")
		require.Nil(t, err)
		assert.False(t, ok)
		l, err := db.LoadBySubmissionKey(ctx, "k6")
		require.Nil(t, err)
		assert.Equal(t, r.ID, l.ID)
	})

	t.Run("Review version", func(t *testing.T) {
		ctx := test.Ctx(t)
		r := newReport(7, "2024-02", status.Submitted, "")
		require.Nil(t, db.InsertReport(ctx, r))
		stale := *r
		r.Status = status.Reviewed
		require.Nil(t, db.UpdateReview(ctx, r))
		stale.Status = status.Declined
		stale.DeclineReason = sql.NullString{String: "olia", Valid: true}
		err := db.UpdateReview(ctx, &stale)
		assert.True(t, errors.Is(err, api.ErrConcurrentUpdate), err)
	})

	t.Run("Declined needs reason", func(t *testing.T) {
		ctx := test.Ctx(t)
		r := newReport(8, "2024-02", status.Submitted, "")
		require.Nil(t, db.InsertReport(ctx, r))
		r.Status = status.Declined
		assert.NotNil(t, db.UpdateReview(ctx, r))
	})

	t.Run("Voice artifacts", func(t *testing.T) {
		ctx := test.Ctx(t)
		r := newReport(9, "2024-02", status.Submitted, "")
		require.Nil(t, db.InsertReport(ctx, r))
		va := &persistence.VoiceArtifact{ID: "va9", ReportID: r.ID, FieldName: "challenges", FileName: "a.wav",
			FilePath: "9/va9.wav", FileSize: 10, Status: status.Pending, Uploaded: time.Now()}
		require.Nil(t, db.InsertVoiceArtifact(ctx, va))
		va.Status = status.Done
		va.Text = sql.NullString{String: "text", Valid: true}
		require.Nil(t, db.UpdateVoiceArtifact(ctx, va))
		l, err := db.LoadVoiceArtifacts(ctx, r.ID)
		require.Nil(t, err)
		require.Equal(t, 1, len(l))
		assert.Equal(t, status.Done, l[0].Status)
		assert.Equal(t, "text", l[0].Text.String)
	})

	t.Run("List", func(t *testing.T) {
		ctx := test.Ctx(t)
		require.Nil(t, db.InsertReport(ctx, newReport(10, "2024-01", status.Submitted, "")))
		require.Nil(t, db.InsertReport(ctx, newReport(10, "2024-02", status.Submitted, "")))
		l, err := db.ListReports(ctx, 10, "", 0)
		require.Nil(t, err)
		require.Equal(t, 2, len(l))
		assert.Equal(t, "2024-02", l[0].Period)
		l, err = db.ListReports(ctx, 10, "2024-01", status.Submitted)
		require.Nil(t, err)
		assert.Equal(t, 1, len(l))
	})

	t.Run("Forms one deployed", func(t *testing.T) {
		ctx := test.Ctx(t)
		f1 := &persistence.Form{Name: "f1", Version: 1, Status: status.FormDraft, Definition: json.RawMessage(`{}`),
			CreatedBy: 1, Created: time.Now(), Updated: time.Now()}
		f2 := &persistence.Form{Name: "f2", Version: 1, Status: status.FormDraft, Definition: json.RawMessage(`{}`),
			CreatedBy: 1, Created: time.Now(), Updated: time.Now()}
		require.Nil(t, db.InsertForm(ctx, f1))
		require.Nil(t, db.InsertForm(ctx, f2))
		ok, err := db.DeployForm(ctx, f1.ID, time.Now())
		require.Nil(t, err)
		assert.True(t, ok)
		ok, err = db.DeployForm(ctx, f2.ID, time.Now())
		require.Nil(t, err)
		assert.True(t, ok)
		d, err := db.LoadDeployedForms(ctx)
		require.Nil(t, err)
		require.Equal(t, 1, len(d))
		assert.Equal(t, f2.ID, d[0].ID)
		l, err := db.LoadForm(ctx, f1.ID)
		require.Nil(t, err)
		assert.Equal(t, status.FormArchived, l.Status)
		ok, err = db.DeployForm(ctx, f1.ID, time.Now())
		require.Nil(t, err)
		assert.False(t, ok)
	})

	t.Run("Stale drafts", func(t *testing.T) {
		ctx := test.Ctx(t)
		require.Nil(t, db.InsertReport(ctx, newReport(11, "2024-02", status.Submitted, "")))
		d := newReport(11, "2024-02", status.Draft, "")
		require.Nil(t, db.UpsertDraft(ctx, d))
		fresh := newReport(12, "2024-02", status.Draft, "")
		require.Nil(t, db.UpsertDraft(ctx, fresh))
		old := newReport(13, "2024-02", status.Draft, "")
		require.Nil(t, db.UpsertDraft(ctx, old))
		_, err := pool.Exec(ctx, `UPDATE reports SET updated = $1 WHERE id = $2`, time.Now().AddDate(-1, 0, 0), old.ID)
		require.Nil(t, err)

		pr, err := NewStaleDraftProvider(pool)
		require.Nil(t, err)
		ids, err := pr.GetExpired(ctx)
		require.Nil(t, err)
		assert.Contains(t, ids, asID(d.ID))
		assert.NotContains(t, ids, asID(fresh.ID))
		// untouched drafts stay until finalized or deleted by the ward
		assert.NotContains(t, ids, asID(old.ID))

		cl, err := NewDraftCleaner(pool)
		require.Nil(t, err)
		require.Nil(t, cl.Clean(ctx, asID(d.ID)))
		l, err := db.LoadDraft(ctx, 11, "2024-02")
		require.Nil(t, err)
		assert.Nil(t, l)
		require.Nil(t, cl.Clean(ctx, asID(old.ID)))
		l, err = db.LoadDraft(ctx, 13, "2024-02")
		require.Nil(t, err)
		assert.NotNil(t, l)
		r, err := db.LoadFinal(ctx, 11, "2024-02")
		require.Nil(t, err)
		require.NotNil(t, r)
		// final reports are never cleaned
		require.Nil(t, cl.Clean(ctx, asID(r.ID)))
		r, err = db.LoadFinal(ctx, 11, "2024-02")
		require.Nil(t, err)
		assert.NotNil(t, r)
	})

	t.Run("Sender", func(t *testing.T) {
		ctx := test.Ctx(t)
		s, err := NewSender(pool, "test-queue")
		require.Nil(t, err)
		require.Nil(t, s.SendMessage(ctx, messages.NewTranscribeMessage("m1", 1, "challenges", "1/m1.wav"), messages.Transcribe))
		var n int
		require.Nil(t, pool.QueryRow(ctx, `SELECT count(*) FROM gue_jobs WHERE queue = 'test-queue'`).Scan(&n))
		assert.Equal(t, 1, n)
	})
}

func asID(id int64) string {
	return strconv.FormatInt(id, 10)
}
