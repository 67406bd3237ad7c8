package submission

import (
	"context"
	"fmt"
	"sync"

	"github.com/airenas/wardrep/internal/pkg/api"
	"github.com/airenas/wardrep/internal/pkg/persistence"
	"github.com/airenas/wardrep/internal/pkg/status"
	"github.com/airenas/wardrep/internal/pkg/utils"
)

// memDB keeps the same uniqueness rules as the reports table
type memDB struct {
	lock    sync.Mutex
	nextID  int64
	reports map[int64]*persistence.Report
	voice   map[string]*persistence.VoiceArtifact
	inserts int

	barrierLeft int
	barrier     chan struct{}
}

func newMemDB() *memDB {
	return &memDB{reports: map[int64]*persistence.Report{}, voice: map[string]*persistence.VoiceArtifact{}}
}

// holdLoads makes the first n LoadFinal calls wait for each other
func (db *memDB) holdLoads(n int) {
	db.barrierLeft = n
	db.barrier = make(chan struct{})
}

func (db *memDB) hitBarrier() {
	db.lock.Lock()
	if db.barrierLeft <= 0 {
		db.lock.Unlock()
		return
	}
	db.barrierLeft--
	if db.barrierLeft == 0 {
		close(db.barrier)
	}
	ch := db.barrier
	db.lock.Unlock()
	<-ch
}

func cp(r *persistence.Report) *persistence.Report {
	res := *r
	return &res
}

func (db *memDB) find(f func(r *persistence.Report) bool) *persistence.Report {
	for _, r := range db.reports {
		if f(r) {
			return cp(r)
		}
	}
	return nil
}

func (db *memDB) finals() []*persistence.Report {
	db.lock.Lock()
	defer db.lock.Unlock()
	res := []*persistence.Report{}
	for _, r := range db.reports {
		if r.Status != status.Draft {
			res = append(res, cp(r))
		}
	}
	return res
}

func (db *memDB) LoadFinal(ctx context.Context, wardID int64, period string) (*persistence.Report, error) {
	db.hitBarrier()
	db.lock.Lock()
	defer db.lock.Unlock()
	return db.find(func(r *persistence.Report) bool {
		return r.WardID == wardID && r.Period == period && r.Status != status.Draft
	}), nil
}

func (db *memDB) LoadDraft(ctx context.Context, wardID int64, period string) (*persistence.Report, error) {
	db.lock.Lock()
	defer db.lock.Unlock()
	return db.find(func(r *persistence.Report) bool {
		return r.WardID == wardID && r.Period == period && r.Status == status.Draft
	}), nil
}

func (db *memDB) LoadReport(ctx context.Context, id int64) (*persistence.Report, error) {
	db.lock.Lock()
	defer db.lock.Unlock()
	if r, ok := db.reports[id]; ok {
		return cp(r), nil
	}
	return nil, nil
}

func (db *memDB) LoadBySubmissionKey(ctx context.Context, key string) (*persistence.Report, error) {
	db.lock.Lock()
	defer db.lock.Unlock()
	return db.find(func(r *persistence.Report) bool { return utils.FromSQLStr(r.SubmissionKey) == key }), nil
}

func (db *memDB) ListReports(ctx context.Context, wardID int64, period string, st status.Report) ([]*persistence.Report, error) {
	db.lock.Lock()
	defer db.lock.Unlock()
	res := []*persistence.Report{}
	for _, r := range db.reports {
		if r.WardID == wardID && (period == "" || r.Period == period) && (st == 0 || r.Status == st) {
			res = append(res, cp(r))
		}
	}
	return res, nil
}

func (db *memDB) InsertReport(ctx context.Context, r *persistence.Report) error {
	db.lock.Lock()
	defer db.lock.Unlock()
	if r.Status != status.Draft && db.find(func(e *persistence.Report) bool {
		return e.WardID == r.WardID && e.Period == r.Period && e.Status != status.Draft
	}) != nil {
		return fmt.Errorf("can't insert report: %w", api.ErrDuplicatePeriod)
	}
	if key := utils.FromSQLStr(r.SubmissionKey); key != "" && db.find(func(e *persistence.Report) bool {
		return utils.FromSQLStr(e.SubmissionKey) == key
	}) != nil {
		return fmt.Errorf("can't insert report: %w", api.ErrDuplicateKey)
	}
	db.nextID++
	db.inserts++
	r.ID = db.nextID
	r.Version = 1
	db.reports[r.ID] = cp(r)
	return nil
}

func (db *memDB) SetSubmissionKey(ctx context.Context, id int64, key string) (bool, error) {
	db.lock.Lock()
	defer db.lock.Unlock()
	if db.find(func(e *persistence.Report) bool { return utils.FromSQLStr(e.SubmissionKey) == key && e.ID != id }) != nil {
		return false, fmt.Errorf("can't set submission key: %w", api.ErrDuplicateKey)
	}
	r, ok := db.reports[id]
	if !ok || r.SubmissionKey.Valid {
		return false, nil
	}
	r.SubmissionKey = utils.ToSQLStr(key)
	r.Version++
	return true, nil
}

func (db *memDB) UpsertDraft(ctx context.Context, r *persistence.Report) error {
	db.lock.Lock()
	defer db.lock.Unlock()
	for _, e := range db.reports {
		if e.WardID == r.WardID && e.Period == r.Period && e.Status == status.Draft {
			e.Fields = r.Fields
			e.UserID = r.UserID
			e.Updated = r.Updated
			e.Version++
			r.ID, r.Created, r.Version = e.ID, e.Created, e.Version
			r.Status = status.Draft
			return nil
		}
	}
	db.nextID++
	r.ID = db.nextID
	r.Version = 1
	r.Created = r.Updated
	r.Status = status.Draft
	db.reports[r.ID] = cp(r)
	return nil
}

func (db *memDB) DeleteDraft(ctx context.Context, wardID int64, period string) (int64, error) {
	db.lock.Lock()
	defer db.lock.Unlock()
	var res int64
	for id, e := range db.reports {
		if e.WardID == wardID && e.Period == period && e.Status == status.Draft {
			delete(db.reports, id)
			res++
		}
	}
	return res, nil
}

func (db *memDB) DeleteDraftByID(ctx context.Context, id, wardID int64) (bool, error) {
	db.lock.Lock()
	defer db.lock.Unlock()
	if e, ok := db.reports[id]; ok && e.WardID == wardID && e.Status == status.Draft {
		delete(db.reports, id)
		return true, nil
	}
	return false, nil
}

func (db *memDB) InsertVoiceArtifact(ctx context.Context, va *persistence.VoiceArtifact) error {
	db.lock.Lock()
	defer db.lock.Unlock()
	c := *va
	db.voice[va.ID] = &c
	return nil
}

func (db *memDB) LoadVoiceArtifact(ctx context.Context, id string) (*persistence.VoiceArtifact, error) {
	db.lock.Lock()
	defer db.lock.Unlock()
	if va, ok := db.voice[id]; ok {
		c := *va
		return &c, nil
	}
	return nil, nil
}

func (db *memDB) LoadVoiceArtifacts(ctx context.Context, reportID int64) ([]*persistence.VoiceArtifact, error) {
	db.lock.Lock()
	defer db.lock.Unlock()
	res := []*persistence.VoiceArtifact{}
	for _, va := range db.voice {
		if va.ReportID == reportID {
			c := *va
			res = append(res, &c)
		}
	}
	return res, nil
}

func (db *memDB) UpdateVoiceArtifact(ctx context.Context, va *persistence.VoiceArtifact) error {
	db.lock.Lock()
	defer db.lock.Unlock()
	c := *va
	db.voice[va.ID] = &c
	return nil
}
