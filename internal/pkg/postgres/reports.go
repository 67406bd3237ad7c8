package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/airenas/wardrep/internal/pkg/api"
	"github.com/airenas/wardrep/internal/pkg/persistence"
	"github.com/airenas/wardrep/internal/pkg/status"
	"github.com/jackc/pgx/v5"
)

const reportColumns = `id, ward_id, user_id, report_period, status, submission_key, decline_reason,
	reviewed_by, reviewed_at, fields, version, created, updated`

// LoadFinal loads non draft report of a ward and period, returns nil if none
func (db *DB) LoadFinal(ctx context.Context, wardID int64, period string) (*persistence.Report, error) {
	return db.loadReport(ctx, `WHERE ward_id = $1 AND report_period = $2 AND status <> 'DRAFT'`, wardID, period)
}

// LoadDraft loads draft of a ward and period, returns nil if none
func (db *DB) LoadDraft(ctx context.Context, wardID int64, period string) (*persistence.Report, error) {
	return db.loadReport(ctx, `WHERE ward_id = $1 AND report_period = $2 AND status = 'DRAFT'`, wardID, period)
}

// LoadReport loads report by ID, returns nil if none
func (db *DB) LoadReport(ctx context.Context, id int64) (*persistence.Report, error) {
	return db.loadReport(ctx, `WHERE id = $1`, id)
}

// LoadBySubmissionKey loads report by submission key, returns nil if none
func (db *DB) LoadBySubmissionKey(ctx context.Context, key string) (*persistence.Report, error) {
	return db.loadReport(ctx, `WHERE submission_key = $1`, key)
}

func (db *DB) loadReport(ctx context.Context, where string, args ...any) (*persistence.Report, error) {
	res, err := scanReport(db.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports `+where, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load report: %w", err)
	}
	return res, nil
}

// ListReports returns reports of a ward, newest first. Empty period or status means any.
func (db *DB) ListReports(ctx context.Context, wardID int64, period string, st status.Report) ([]*persistence.Report, error) {
	where := []string{"ward_id = $1"}
	args := []any{wardID}
	if period != "" {
		args = append(args, period)
		where = append(where, fmt.Sprintf("report_period = $%d", len(args)))
	}
	if st != 0 {
		args = append(args, st.String())
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	rows, err := db.pool.Query(ctx, `SELECT `+reportColumns+` FROM reports WHERE `+strings.Join(where, " AND ")+
		fmt.Sprintf(` ORDER BY report_period DESC, id DESC LIMIT %d`, defaultListLimit), args...)
	if err != nil {
		return nil, fmt.Errorf("can't list reports: %w", err)
	}
	defer rows.Close()
	res := []*persistence.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("can't read report: %w", err)
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("can't list reports: %w", err)
	}
	return res, nil
}

// InsertReport inserts report, sets ID and version.
// Returns api.ErrDuplicatePeriod or api.ErrDuplicateKey on a uniqueness violation.
func (db *DB) InsertReport(ctx context.Context, r *persistence.Report) error {
	fields, err := json.Marshal(r.Fields)
	if err != nil {
		return fmt.Errorf("can't marshal fields: %w", err)
	}
	err = db.pool.QueryRow(ctx, `INSERT INTO reports(ward_id, user_id, report_period, status, submission_key,
		fields, created, updated) 
	VALUES($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, version`, r.WardID, r.UserID, r.Period, r.Status.String(),
		r.SubmissionKey, fields, r.Created, r.Updated).Scan(&r.ID, &r.Version)
	if err != nil {
		return fmt.Errorf("can't insert report: %w", mapErr(err))
	}
	return nil
}

// SetSubmissionKey attaches key to a report that has none, returns false if the report already has a key
func (db *DB) SetSubmissionKey(ctx context.Context, id int64, key string) (bool, error) {
	res, err := db.pool.Exec(ctx, `UPDATE reports SET submission_key = $2, updated = $3, version = version + 1
		WHERE id = $1 AND submission_key IS NULL`, id, key, time.Now())
	if err != nil {
		return false, fmt.Errorf("can't set submission key: %w", mapErr(err))
	}
	return res.RowsAffected() == 1, nil
}

// UpsertDraft inserts a draft or overwrites fields of the existing draft of the ward and period
func (db *DB) UpsertDraft(ctx context.Context, r *persistence.Report) error {
	fields, err := json.Marshal(r.Fields)
	if err != nil {
		return fmt.Errorf("can't marshal fields: %w", err)
	}
	err = db.pool.QueryRow(ctx, `INSERT INTO reports(ward_id, user_id, report_period, status, fields, created, updated)
	VALUES($1, $2, $3, 'DRAFT', $4, $5, $5)
	ON CONFLICT (ward_id, report_period) WHERE status = 'DRAFT'
	DO UPDATE SET fields = EXCLUDED.fields, user_id = EXCLUDED.user_id, updated = EXCLUDED.updated,
		version = reports.version + 1
	RETURNING id, created, updated, version`, r.WardID, r.UserID, r.Period, fields, r.Updated).
		Scan(&r.ID, &r.Created, &r.Updated, &r.Version)
	if err != nil {
		return fmt.Errorf("can't save draft: %w", err)
	}
	r.Status = status.Draft
	return nil
}

// DeleteDraft removes the draft of a ward and period, returns deleted count
func (db *DB) DeleteDraft(ctx context.Context, wardID int64, period string) (int64, error) {
	res, err := db.pool.Exec(ctx, `DELETE FROM reports WHERE ward_id = $1 AND report_period = $2 AND status = 'DRAFT'`,
		wardID, period)
	if err != nil {
		return 0, fmt.Errorf("can't delete draft: %w", err)
	}
	return res.RowsAffected(), nil
}

// DeleteDraftByID removes a draft record, non draft records are never deleted
func (db *DB) DeleteDraftByID(ctx context.Context, id, wardID int64) (bool, error) {
	res, err := db.pool.Exec(ctx, `DELETE FROM reports WHERE id = $1 AND ward_id = $2 AND status = 'DRAFT'`, id, wardID)
	if err != nil {
		return false, fmt.Errorf("can't delete draft: %w", err)
	}
	return res.RowsAffected() == 1, nil
}

// UpdateReview writes review fields if the version has not changed
func (db *DB) UpdateReview(ctx context.Context, r *persistence.Report) error {
	res, err := db.pool.Exec(ctx, `UPDATE reports SET 
	status = $3,
	decline_reason = $4,
	reviewed_by = $5,
	reviewed_at = $6,
	updated = $7,
	version = $2 + 1
	WHERE id = $1 AND version = $2`, r.ID, r.Version, r.Status.String(), r.DeclineReason, r.ReviewedBy,
		r.ReviewedAt, r.Updated)
	if err != nil {
		return fmt.Errorf("can't update review: %w", err)
	}
	if res.RowsAffected() != 1 {
		return fmt.Errorf("can't update review of %d: %w", r.ID, api.ErrConcurrentUpdate)
	}
	r.Version++
	return nil
}

// UpdateFields writes report fields if the version has not changed
func (db *DB) UpdateFields(ctx context.Context, r *persistence.Report) error {
	fields, err := json.Marshal(r.Fields)
	if err != nil {
		return fmt.Errorf("can't marshal fields: %w", err)
	}
	res, err := db.pool.Exec(ctx, `UPDATE reports SET fields = $3, updated = $4, version = $2 + 1
	WHERE id = $1 AND version = $2`, r.ID, r.Version, fields, time.Now())
	if err != nil {
		return fmt.Errorf("can't update fields: %w", err)
	}
	if res.RowsAffected() != 1 {
		return fmt.Errorf("can't update fields of %d: %w", r.ID, api.ErrConcurrentUpdate)
	}
	r.Version++
	return nil
}

func scanReport(row pgx.Row) (*persistence.Report, error) {
	var res persistence.Report
	var st string
	var fields []byte
	if err := row.Scan(&res.ID, &res.WardID, &res.UserID, &res.Period, &st, &res.SubmissionKey, &res.DeclineReason,
		&res.ReviewedBy, &res.ReviewedAt, &fields, &res.Version, &res.Created, &res.Updated); err != nil {
		return nil, err
	}
	res.Status = status.ReportFrom(st)
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &res.Fields); err != nil {
			return nil, fmt.Errorf("can't unmarshal fields of %d: %w", res.ID, err)
		}
	}
	return &res, nil
}
