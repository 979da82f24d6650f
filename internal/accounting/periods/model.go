package periods

import (
	"fmt"
	"time"
)

// PeriodStatus enumerates valid period states.
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "OPEN"
	PeriodStatusClosed PeriodStatus = "CLOSED"
	PeriodStatusLocked PeriodStatus = "LOCKED"
)

// Period represents a fiscal period window. The interval is closed on both
// ends. Status only moves forward: OPEN -> CLOSED -> LOCKED.
type Period struct {
	ID        int64
	Code      string
	StartDate time.Time
	EndDate   time.Time
	Status    PeriodStatus
	ClosedAt  *time.Time
	LockedBy  *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Contains reports whether date falls inside the period window.
func (p Period) Contains(date time.Time) bool {
	return !date.Before(p.StartDate) && !date.After(p.EndDate)
}

// LockedError rejects a write whose effective date falls inside a closed or
// locked period. Every gated operation fails identically; history inside a
// closed period cannot be created, edited, or reversed.
type LockedError struct {
	PeriodCode string
	Status     PeriodStatus
	Date       time.Time
	Operation  string
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("accounting: period %s is %s, %s on %s refused",
		e.PeriodCode, e.Status, e.Operation, e.Date.Format("2006-01-02"))
}

// Code identifies the rejection for API consumers.
func (e *LockedError) Code() string { return "PERIOD_LOCKED" }

// ErrInvalidPeriodTransition indicates status change not allowed.
var ErrInvalidPeriodTransition = fmt.Errorf("accounting: period transition invalid")

// ValidateTransition enforces the one-way lifecycle. Reopening is never
// allowed; published history stays published.
func ValidateTransition(current, target PeriodStatus) error {
	if current == target {
		return nil
	}
	switch current {
	case PeriodStatusOpen:
		if target == PeriodStatusClosed || target == PeriodStatusLocked {
			return nil
		}
	case PeriodStatusClosed:
		if target == PeriodStatusLocked {
			return nil
		}
	}
	return ErrInvalidPeriodTransition
}
