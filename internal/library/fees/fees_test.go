package fees_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Adam-Likogiannis/cisc327-library-management-a3-8089/internal/library/fees"
)

func Test_CalculateLateFee(t *testing.T) {
	due := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		returned time.Time
		rate     float64
		want     float64
	}{
		{
			name:     "returned_on_due_date_is_free",
			returned: due,
			rate:     1.0,
			want:     0,
		},
		{
			name:     "returned_early_is_free",
			returned: due.AddDate(0, 0, -3),
			rate:     1.0,
			want:     0,
		},
		{
			name:     "five_days_late_at_two_dollars",
			returned: due.AddDate(0, 0, 5),
			rate:     2.0,
			want:     10,
		},
		{
			name:     "one_day_late",
			returned: due.AddDate(0, 0, 1),
			rate:     0.5,
			want:     0.5,
		},
		{
			name:     "late_same_calendar_day_is_free",
			returned: due.Add(9 * time.Hour),
			rate:     1.0,
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fees.CalculateLateFee(due, tt.returned, tt.rate)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func Test_DaysOverdue_IgnoresTimeOfDay(t *testing.T) {
	due := time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)
	at := time.Date(2025, 3, 11, 0, 30, 0, 0, time.UTC)

	// 1時間しか経っていないが日付は1日進んでいる
	assert.Equal(t, 1, fees.DaysOverdue(due, at))
	assert.Equal(t, 0, fees.DaysOverdue(due, due))
	assert.Equal(t, 0, fees.DaysOverdue(due, due.AddDate(0, 0, -5)))
}

func Test_DaysUntil(t *testing.T) {
	due := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 5, fees.DaysUntil(due, due.AddDate(0, 0, -5)))
	assert.Equal(t, 0, fees.DaysUntil(due, due))
	assert.Equal(t, 0, fees.DaysUntil(due, due.AddDate(0, 0, 2)))
}

func Test_Schedule_Amount(t *testing.T) {
	s := fees.DefaultSchedule()

	tests := []struct {
		name string
		days int
		want float64
	}{
		{"not_overdue", 0, 0},
		{"negative_days", -3, 0},
		{"within_first_week", 3, 1.50},
		{"exactly_one_week", 7, 3.50},
		{"eighth_day_at_higher_rate", 8, 4.50},
		{"ten_days", 10, 6.50},
		{"capped_at_fifteen", 30, 15.00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.Amount(tt.days), 0.001)
		})
	}
}
