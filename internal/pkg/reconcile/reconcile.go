package reconcile

import (
	"time"

	"github.com/airenas/wardrep/internal/pkg/api"
	"github.com/airenas/wardrep/internal/pkg/persistence"
	"github.com/airenas/wardrep/internal/pkg/utils"
)

// Outcome is a finalize decision for an optional submission key
type Outcome int

const (
	// ProceedToCreate - no final report yet
	ProceedToCreate Outcome = iota + 1
	// Replay - the same key was already used, return existing report
	Replay
	// Backfill - existing report has no key, attach the key and return the report
	Backfill
	// Conflict - the period is already submitted by another request
	Conflict
)

var outcomeName = map[Outcome]string{ProceedToCreate: "ProceedToCreate", Replay: "Replay",
	Backfill: "Backfill", Conflict: "Conflict"}

func (o Outcome) String() string {
	return outcomeName[o]
}

// Decide picks outcome given the non draft report of a ward and period (may be nil)
func Decide(existing *persistence.Report, key string) Outcome {
	if existing == nil {
		return ProceedToCreate
	}
	if key == "" {
		return Conflict
	}
	existingKey := utils.FromSQLStr(existing.SubmissionKey)
	switch {
	case existingKey == key:
		return Replay
	case existingKey == "":
		return Backfill
	default:
		return Conflict
	}
}

// NewConflict creates DuplicateSubmission error with details of the existing report
func NewConflict(existing *persistence.Report) *api.Error {
	res := api.NewError(api.KindDuplicateSubmission, "A report for this period has already been submitted")
	if existing != nil {
		res.With("existing_report_id", existing.ID).
			With("report_period", existing.Period).
			With("submitted_at", existing.Created.UTC().Format(time.RFC3339))
	}
	return res
}
