package period

import (
	"fmt"
	"time"

	"github.com/airenas/wardrep/internal/pkg/api"
)

// Validator checks a finalize request period against the active window
type Validator struct {
	resolver *Resolver
}

// NewValidator creates validator
func NewValidator(resolver *Resolver) *Validator {
	return &Validator{resolver: resolver}
}

// Validate returns *api.Error of KindInvalidPeriod if submitted period is not the expected one
func (v *Validator) Validate(submitted string, now time.Time) error {
	w := v.resolver.Resolve(now)
	if submitted == w.Period {
		return nil
	}
	var msg string
	if w.Previous {
		msg = fmt.Sprintf("Invalid report month. During days 1-%d, you must submit reports for the previous month (%s). You submitted for %s.",
			w.Cutoff, w.MonthName, MonthName(submitted))
	} else {
		msg = fmt.Sprintf("Invalid report month. During days %d-end, you must submit reports for the current month (%s). You submitted for %s.",
			w.Cutoff+1, w.MonthName, MonthName(submitted))
	}
	return api.NewError(api.KindInvalidPeriod, msg).With("expected_period", w.Period).With("submitted_period", submitted)
}
