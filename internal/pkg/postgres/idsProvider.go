package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StaleDraftProvider finds drafts left behind a final report of the same ward and period
type StaleDraftProvider struct {
	pool *pgxpool.Pool
}

// NewStaleDraftProvider creates provider
func NewStaleDraftProvider(pool *pgxpool.Pool) (*StaleDraftProvider, error) {
	if pool == nil {
		return nil, fmt.Errorf("no pool")
	}
	return &StaleDraftProvider{pool: pool}, nil
}

// GetExpired returns IDs of superseded drafts
func (db *StaleDraftProvider) GetExpired(ctx context.Context) ([]string, error) {
	goapp.Log.Info().Msg("selecting superseded drafts...")
	rows, err := db.pool.Query(ctx, `SELECT d.id FROM reports d WHERE d.status = 'DRAFT' 
		AND EXISTS (SELECT 1 FROM reports f WHERE f.ward_id = d.ward_id AND f.report_period = d.report_period 
			AND f.status <> 'DRAFT')`)
	if err != nil {
		return nil, fmt.Errorf("can't select IDs: %w", err)
	}
	defer rows.Close()

	res := []string{}
	for rows.Next() {
		var id int64
		err := rows.Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("can't retrieve IDs: %w", err)
		}
		res = append(res, strconv.FormatInt(id, 10))
	}
	return res, rows.Err()
}
