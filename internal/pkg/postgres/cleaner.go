package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DraftCleaner deletes drafts superseded by a final report, final reports are never touched
type DraftCleaner struct {
	pool *pgxpool.Pool
}

// NewDraftCleaner creates cleaner
func NewDraftCleaner(pool *pgxpool.Pool) (*DraftCleaner, error) {
	res := &DraftCleaner{pool: pool}
	return res, nil
}

// Clean deletes the superseded draft by ID
func (db *DraftCleaner) Clean(ctx context.Context, id string) error {
	rID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("wrong ID '%s': %w", id, err)
	}
	cmd, err := db.pool.Exec(ctx, `DELETE FROM reports d WHERE d.id = $1 AND d.status = 'DRAFT' 
		AND EXISTS (SELECT 1 FROM reports f WHERE f.ward_id = d.ward_id AND f.report_period = d.report_period 
			AND f.status <> 'DRAFT')`, rID)
	if err != nil {
		return fmt.Errorf("can't delete draft %s: %w", id, err)
	}
	goapp.Log.Info().Str("ID", id).Int64("rows", cmd.RowsAffected()).Msg("deleted")
	return nil
}
