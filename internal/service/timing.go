package service

import (
	"math"
	"time"

	"pulse/internal/model"
)

const (
	MinPromptInterval = 10 * time.Minute
	MaxPromptInterval = 240 * time.Minute
)

// PromptInterval draws the wait until the next intraday prompt from an
// exponential distribution with mean workingMinutes/averagePromptsPerDay,
// clamped to [MinPromptInterval, MaxPromptInterval]. u is a uniform draw.
func PromptInterval(u float64, settings model.Settings) time.Duration {
	minutes := promptMinutes(u, settings)
	if minutes > MaxPromptInterval.Minutes() {
		return MaxPromptInterval
	}
	interval := time.Duration(minutes * float64(time.Minute))
	if interval < MinPromptInterval {
		return MinPromptInterval
	}
	return interval
}

func promptMinutes(u float64, settings model.Settings) float64 {
	if u <= 0 {
		u = math.SmallestNonzeroFloat64
	}
	if u >= 1 {
		u = math.Nextafter(1, 0)
	}
	workingMinutes := float64(settings.WorkingMinutes())
	if workingMinutes <= 0 || settings.AveragePromptsPerDay <= 0 {
		return math.Inf(1)
	}
	lambda := settings.AveragePromptsPerDay / workingMinutes
	return -math.Log(u) / lambda
}

func withinWorkingHours(now time.Time, settings model.Settings) bool {
	hour := now.Hour()
	return hour >= settings.WorkingHoursStart && hour < settings.WorkingHoursEnd
}

// nextHourOccurrence returns the next instant at hour:00 strictly after now.
func nextHourOccurrence(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func sameCalendarDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
