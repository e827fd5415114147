package fees

import (
	"math"
	"time"

	platformdb "github.com/Adam-Likogiannis/cisc327-library-management-a3-8089/internal/platform/db"
)

// DaysOverdue は返却期限からの超過日数を返す。日付単位で比較する
// （時刻まで見ると返却処理の時間帯によって1日ずれるため）
func DaysOverdue(due, at time.Time) int {
	d := dateOf(at).Sub(dateOf(due)) / (24 * time.Hour)
	if d < 0 {
		return 0
	}
	return int(d)
}

// DaysUntil は返却期限までの残日数を返す（期限超過なら 0）
func DaysUntil(due, at time.Time) int {
	d := dateOf(due).Sub(dateOf(at)) / (24 * time.Hour)
	if d < 0 {
		return 0
	}
	return int(d)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CalculateLateFee は固定日額での延滞料金を計算する純粋関数。
// fee = max(0, date(returned) - date(due)) * ratePerDay
func CalculateLateFee(due, returned time.Time, ratePerDay float64) float64 {
	return roundCents(float64(DaysOverdue(due, returned)) * ratePerDay)
}

// Schedule は実運用の延滞料金表。
// 最初の1週間は FirstWeekRate/日、以降は AfterRate/日、総額は Cap まで
type Schedule struct {
	FirstWeekRate float64
	AfterRate     float64
	Cap           float64
}

const firstWeekDays = 7

func DefaultSchedule() Schedule {
	return Schedule{FirstWeekRate: 0.50, AfterRate: 1.00, Cap: 15.00}
}

func ScheduleFromConfig(c platformdb.FeeConfig) Schedule {
	return Schedule{FirstWeekRate: c.FirstWeekRate, AfterRate: c.AfterRate, Cap: c.Cap}
}

// Amount は超過日数に対する請求額を返す
func (s Schedule) Amount(daysOverdue int) float64 {
	if daysOverdue <= 0 {
		return 0
	}
	first := float64(min(daysOverdue, firstWeekDays)) * s.FirstWeekRate
	rest := float64(max(daysOverdue-firstWeekDays, 0)) * s.AfterRate
	return roundCents(math.Min(first+rest, s.Cap))
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
