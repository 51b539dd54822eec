package services_test

import (
	"errors"
	"testing"
	"time"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/apperrors"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 6, 0, 0, 0, time.UTC)
}

func TestCalculateNextRun(t *testing.T) {
	tests := []struct {
		name       string
		frequency  domain.Frequency
		dayOfMonth *int
		lastRunAt  *time.Time
		now        time.Time
		want       time.Time
	}{
		{
			name:       "monthly on day 31 lands on month end",
			frequency:  domain.FrequencyMonthly,
			dayOfMonth: intPtr(31),
			lastRunAt:  timePtr(date(2024, time.February, 15)),
			now:        date(2024, time.February, 15),
			want:       date(2024, time.March, 31),
		},
		{
			name:       "monthly on day 31 clamps to 30-day month",
			frequency:  domain.FrequencyMonthly,
			dayOfMonth: intPtr(31),
			lastRunAt:  timePtr(date(2024, time.March, 31)),
			now:        date(2024, time.March, 31),
			want:       date(2024, time.April, 30),
		},
		{
			name:       "monthly on day 31 clamps to leap february",
			frequency:  domain.FrequencyMonthly,
			dayOfMonth: intPtr(31),
			lastRunAt:  timePtr(date(2024, time.January, 31)),
			now:        date(2024, time.January, 31),
			want:       date(2024, time.February, 29),
		},
		{
			name:      "monthly without day keeps anchor day",
			frequency: domain.FrequencyMonthly,
			lastRunAt: timePtr(date(2025, time.May, 12)),
			now:       date(2025, time.May, 12),
			want:      date(2025, time.June, 12),
		},
		{
			name:       "never run anchors on now",
			frequency:  domain.FrequencyQuarterly,
			dayOfMonth: intPtr(1),
			now:        date(2025, time.October, 19),
			want:       date(2026, time.January, 1),
		},
		{
			name:       "quarterly seven months late heals into the future",
			frequency:  domain.FrequencyQuarterly,
			dayOfMonth: intPtr(5),
			lastRunAt:  timePtr(date(2025, time.March, 5)),
			now:        date(2025, time.October, 19),
			want:       date(2025, time.December, 5),
		},
		{
			name:       "annual crosses year boundary",
			frequency:  domain.FrequencyAnnual,
			dayOfMonth: intPtr(15),
			lastRunAt:  timePtr(date(2024, time.November, 15)),
			now:        date(2024, time.November, 15),
			want:       date(2025, time.November, 15),
		},
		{
			name:       "semi-annual years behind",
			frequency:  domain.FrequencySemiAnnual,
			dayOfMonth: intPtr(1),
			lastRunAt:  timePtr(date(2019, time.January, 1)),
			now:        date(2025, time.February, 10),
			want:       date(2025, time.July, 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := services.CalculateNextRun(tt.frequency, nil, tt.dayOfMonth, tt.lastRunAt, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.After(tt.now))
			if tt.lastRunAt != nil {
				assert.True(t, got.After(*tt.lastRunAt))
			}
		})
	}
}

func TestCalculateNextRun_Cron(t *testing.T) {
	now := time.Date(2025, time.October, 19, 10, 30, 0, 0, time.UTC)

	got, err := services.CalculateNextRun(domain.FrequencyCustomCron, strPtr("0 6 1 * *"), nil, nil, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.November, 1, 6, 0, 0, 0, time.UTC), got)

	got, err = services.CalculateNextRun(domain.FrequencyCustomCron, strPtr("@daily"), nil, timePtr(now.AddDate(0, 0, -3)), now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.October, 20, 0, 0, 0, 0, time.UTC), got)

	_, err = services.CalculateNextRun(domain.FrequencyCustomCron, strPtr("not a cron"), nil, nil, now)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = services.CalculateNextRun(domain.FrequencyCustomCron, nil, nil, nil, now)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, services.ValidateSchedule(domain.FrequencyMonthly, nil, intPtr(28)))
	assert.NoError(t, services.ValidateSchedule(domain.FrequencyCustomCron, strPtr("*/15 * * * *"), nil))
	assert.ErrorIs(t, services.ValidateSchedule(domain.FrequencyCustomCron, nil, nil), apperrors.ErrValidation)
	assert.ErrorIs(t, services.ValidateSchedule("WEEKLY", nil, nil), apperrors.ErrValidation)
	assert.ErrorIs(t, services.ValidateSchedule(domain.FrequencyMonthly, nil, intPtr(0)), apperrors.ErrValidation)
}
