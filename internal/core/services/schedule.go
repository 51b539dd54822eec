package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/apperrors"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	"github.com/robfig/cron/v3"
)

var errCronNoOccurrence = errors.New("cron pattern has no upcoming occurrence")

// ParseCronPattern parses a standard five-field cron expression or a
// descriptor such as @monthly.
func ParseCronPattern(pattern string) (cron.Schedule, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, fmt.Errorf("%w: cronPattern is required for %s", apperrors.ErrValidation, domain.FrequencyCustomCron)
	}
	sched, err := cron.ParseStandard(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid cronPattern %q: %v", apperrors.ErrValidation, pattern, err)
	}
	return sched, nil
}

// ValidateSchedule checks that the schedule fields of a rule are usable.
func ValidateSchedule(frequency domain.Frequency, cronPattern *string, dayOfMonth *int) error {
	if !frequency.IsValid() {
		return fmt.Errorf("%w: unknown frequency %q", apperrors.ErrValidation, frequency)
	}
	if dayOfMonth != nil && (*dayOfMonth < 1 || *dayOfMonth > 31) {
		return fmt.Errorf("%w: dayOfMonth must be between 1 and 31", apperrors.ErrValidation)
	}
	if frequency != domain.FrequencyCustomCron {
		return nil
	}
	if cronPattern == nil {
		return fmt.Errorf("%w: cronPattern is required for %s", apperrors.ErrValidation, frequency)
	}
	_, err := ParseCronPattern(*cronPattern)
	return err
}

// CalculateNextRun returns the first run strictly after now.
//
// Fixed frequencies step whole calendar months from lastRunAt (or now when the
// rule never ran), on dayOfMonth when set and on the anchor's day otherwise.
// The day is clamped to the target month's length. Steps are repeated until
// the result lies in the future, so a rule that missed several periods is
// rescheduled once instead of replaying them.
func CalculateNextRun(frequency domain.Frequency, cronPattern *string, dayOfMonth *int, lastRunAt *time.Time, now time.Time) (time.Time, error) {
	if frequency == domain.FrequencyCustomCron {
		if cronPattern == nil {
			return time.Time{}, fmt.Errorf("%w: cronPattern is required for %s", apperrors.ErrValidation, frequency)
		}
		sched, err := ParseCronPattern(*cronPattern)
		if err != nil {
			return time.Time{}, err
		}
		base := now
		if lastRunAt != nil && lastRunAt.After(now) {
			base = *lastRunAt
		}
		next := sched.Next(base)
		if next.IsZero() {
			return time.Time{}, errCronNoOccurrence
		}
		return next, nil
	}

	step := frequency.MonthsPerPeriod()
	if step == 0 {
		return time.Time{}, fmt.Errorf("%w: unknown frequency %q", apperrors.ErrValidation, frequency)
	}

	anchor := now
	if lastRunAt != nil {
		anchor = *lastRunAt
	}
	day := anchor.Day()
	if dayOfMonth != nil {
		day = *dayOfMonth
	}

	// Skip periods that are certainly in the past before stepping.
	elapsed := (now.Year()-anchor.Year())*12 + int(now.Month()) - int(anchor.Month())
	k := elapsed/step - 1
	if k < 1 {
		k = 1
	}
	for ; ; k++ {
		next := addMonthsClamped(anchor, k*step, day)
		if next.After(now) {
			return next, nil
		}
	}
}

// addMonthsClamped moves t by n calendar months onto day, clamped to the
// length of the target month. The time of day is kept.
func addMonthsClamped(t time.Time, n, day int) time.Time {
	total := int(t.Month()) - 1 + n
	year := t.Year() + total/12
	month := time.Month(total%12 + 1)
	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), 0, t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
