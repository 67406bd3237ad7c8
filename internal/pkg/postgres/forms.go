package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/wardrep/internal/pkg/persistence"
	"github.com/airenas/wardrep/internal/pkg/status"
	"github.com/jackc/pgx/v5"
)

const formColumns = `id, name, description, version, status, definition, created_by, created, updated, deployed`

// deployLockKey serializes deploys, see pg_advisory_xact_lock
const deployLockKey = 7_201_001

// InsertForm inserts a form definition, sets ID
func (db *DB) InsertForm(ctx context.Context, f *persistence.Form) error {
	err := db.pool.QueryRow(ctx, `INSERT INTO form_definitions(name, description, version, status, definition,
		created_by, created, updated) 
	VALUES($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`, f.Name, f.Description, f.Version, f.Status.String(),
		[]byte(f.Definition), f.CreatedBy, f.Created, f.Updated).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("can't insert form: %w", err)
	}
	return nil
}

// LoadForm loads form by ID, returns nil if none
func (db *DB) LoadForm(ctx context.Context, id int64) (*persistence.Form, error) {
	res, err := scanForm(db.pool.QueryRow(ctx, `SELECT `+formColumns+` FROM form_definitions WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load form: %w", err)
	}
	return res, nil
}

// ListForms returns all forms, newest first
func (db *DB) ListForms(ctx context.Context) ([]*persistence.Form, error) {
	return db.loadForms(ctx, `ORDER BY id DESC`)
}

// LoadDeployedForms returns forms with DEPLOYED status
func (db *DB) LoadDeployedForms(ctx context.Context) ([]*persistence.Form, error) {
	return db.loadForms(ctx, `WHERE status = 'DEPLOYED'`)
}

func (db *DB) loadForms(ctx context.Context, where string) ([]*persistence.Form, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+formColumns+` FROM form_definitions `+where)
	if err != nil {
		return nil, fmt.Errorf("can't load forms: %w", err)
	}
	defer rows.Close()
	res := []*persistence.Form{}
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, fmt.Errorf("can't read form: %w", err)
		}
		res = append(res, f)
	}
	return res, rows.Err()
}

// UpdateFormDraft updates an editable form, returns false if the form is not DRAFT
func (db *DB) UpdateFormDraft(ctx context.Context, f *persistence.Form) (bool, error) {
	res, err := db.pool.Exec(ctx, `UPDATE form_definitions SET name = $2, description = $3, definition = $4, 
		updated = $5 WHERE id = $1 AND status = 'DRAFT'`, f.ID, f.Name, f.Description, []byte(f.Definition), f.Updated)
	if err != nil {
		return false, fmt.Errorf("can't update form: %w", err)
	}
	return res.RowsAffected() == 1, nil
}

// DeployForm archives all deployed forms and deploys the target in one transaction.
// Returns false if the target is not DRAFT.
func (db *DB) DeployForm(ctx context.Context, id int64, at time.Time) (bool, error) {
	deployed := false
	err := WithTransaction(ctx, db.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, deployLockKey); err != nil {
			return fmt.Errorf("can't lock: %w", err)
		}
		var st string
		err := tx.QueryRow(ctx, `SELECT status FROM form_definitions WHERE id = $1 FOR UPDATE`, id).Scan(&st)
		if err != nil {
			if err == pgx.ErrNoRows {
				return nil
			}
			return fmt.Errorf("can't load form: %w", err)
		}
		if status.FormFrom(st) != status.FormDraft {
			return nil
		}
		if _, err := tx.Exec(ctx, `UPDATE form_definitions SET status = 'ARCHIVED', updated = $1 
			WHERE status = 'DEPLOYED'`, at); err != nil {
			return fmt.Errorf("can't archive forms: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE form_definitions SET status = 'DEPLOYED', version = version + 1, 
			deployed = $2, updated = $2 WHERE id = $1`, id, at); err != nil {
			return fmt.Errorf("can't deploy form: %w", err)
		}
		deployed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return deployed, nil
}

// ArchiveForm archives a deployed form, returns false if the form is not DEPLOYED
func (db *DB) ArchiveForm(ctx context.Context, id int64, at time.Time) (bool, error) {
	res, err := db.pool.Exec(ctx, `UPDATE form_definitions SET status = 'ARCHIVED', updated = $2 
		WHERE id = $1 AND status = 'DEPLOYED'`, id, at)
	if err != nil {
		return false, fmt.Errorf("can't archive form: %w", err)
	}
	return res.RowsAffected() == 1, nil
}

func scanForm(row pgx.Row) (*persistence.Form, error) {
	var res persistence.Form
	var st string
	var def []byte
	if err := row.Scan(&res.ID, &res.Name, &res.Description, &res.Version, &st, &def, &res.CreatedBy,
		&res.Created, &res.Updated, &res.Deployed); err != nil {
		return nil, err
	}
	res.Status = status.FormFrom(st)
	res.Definition = def
	return &res, nil
}
