package period

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultCutoff - up to this day of month reports are submitted for the previous month
	DefaultCutoff = 23
	// DefaultEncouragedUntil - first days of a month when submission is encouraged
	DefaultEncouragedUntil = 7
	// DefaultEncouragedFrom - days from this one to the month end are encouraged too
	DefaultEncouragedFrom = 24

	layout     = "2006-01"
	nameLayout = "January 2006"
)

// Window describes submission window at some moment
type Window struct {
	Period     string
	MonthName  string
	CurrentDay int
	Cutoff     int
	// Encouraged is used for UI messages only
	Encouraged bool
	// Previous is true when the previous month is expected
	Previous bool
}

// Resolver maps time to the active reporting period
type Resolver struct {
	cutoff          int
	encouragedUntil int
	encouragedFrom  int
}

// NewResolver creates resolver
func NewResolver(cutoff, encouragedUntil, encouragedFrom int) (*Resolver, error) {
	if cutoff < 1 || cutoff > 27 {
		return nil, errors.Errorf("wrong cutoff %d, expected [1, 27]", cutoff)
	}
	if encouragedUntil < 0 || encouragedUntil > 31 {
		return nil, errors.Errorf("wrong encouraged until day %d", encouragedUntil)
	}
	if encouragedFrom < 1 || encouragedFrom > 32 {
		return nil, errors.Errorf("wrong encouraged from day %d", encouragedFrom)
	}
	return &Resolver{cutoff: cutoff, encouragedUntil: encouragedUntil, encouragedFrom: encouragedFrom}, nil
}

// NewDefaultResolver creates resolver with cutoff 23 and encouraged band <= 7 or >= 24
func NewDefaultResolver() *Resolver {
	return &Resolver{cutoff: DefaultCutoff, encouragedUntil: DefaultEncouragedUntil, encouragedFrom: DefaultEncouragedFrom}
}

// Cutoff returns configured cutoff day
func (r *Resolver) Cutoff() int {
	return r.cutoff
}

// Resolve returns the active period for now
func (r *Resolver) Resolve(now time.Time) Window {
	now = now.UTC()
	day := now.Day()
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	previous := day <= r.cutoff
	if previous {
		month = month.AddDate(0, -1, 0)
	}
	return Window{
		Period:     month.Format(layout),
		MonthName:  month.Format(nameLayout),
		CurrentDay: day,
		Cutoff:     r.cutoff,
		Encouraged: day <= r.encouragedUntil || day >= r.encouragedFrom,
		Previous:   previous,
	}
}

// Parse validates YYYY-MM token
func Parse(period string) (time.Time, error) {
	res, err := time.Parse(layout, period)
	if err != nil {
		return time.Time{}, fmt.Errorf("wrong period '%s', expected YYYY-MM", period)
	}
	return res, nil
}

// MonthName returns human readable month, e.g. January 2026.
// Returns the token itself if it is not a valid period.
func MonthName(period string) string {
	t, err := Parse(period)
	if err != nil {
		return period
	}
	return t.Format(nameLayout)
}
