package model

import "time"

const (
	DefaultWorkingHoursStart    = 9
	DefaultWorkingHoursEnd      = 17
	DefaultAveragePromptsPerDay = 3.0
	DefaultWorkMinutes          = 25
	DefaultShortBreakMinutes    = 5
	DefaultLongBreakMinutes     = 15
	DefaultSnoozeMinutes        = 30
	DefaultBreakSnoozeMinutes   = 5
)

type Settings struct {
	WorkingHoursStart    int       `json:"workingHoursStart"`
	WorkingHoursEnd      int       `json:"workingHoursEnd"`
	AveragePromptsPerDay float64   `json:"averagePromptsPerDay"`
	WorkMinutes          int       `json:"workMinutes"`
	ShortBreakMinutes    int       `json:"shortBreakMinutes"`
	LongBreakMinutes     int       `json:"longBreakMinutes"`
	SnoozeMinutes        int       `json:"snoozeMinutes"`
	BreakSnoozeMinutes   int       `json:"breakSnoozeMinutes"`
	UpdatedAt            time.Time `json:"updatedAt,omitempty"`
}

func DefaultSettings() Settings {
	return Settings{}.WithDefaults()
}

// WithDefaults replaces every zero-valued field with its default.
func (s Settings) WithDefaults() Settings {
	if s.WorkingHoursStart == 0 {
		s.WorkingHoursStart = DefaultWorkingHoursStart
	}
	if s.WorkingHoursEnd == 0 {
		s.WorkingHoursEnd = DefaultWorkingHoursEnd
	}
	if s.AveragePromptsPerDay == 0 {
		s.AveragePromptsPerDay = DefaultAveragePromptsPerDay
	}
	if s.WorkMinutes == 0 {
		s.WorkMinutes = DefaultWorkMinutes
	}
	if s.ShortBreakMinutes == 0 {
		s.ShortBreakMinutes = DefaultShortBreakMinutes
	}
	if s.LongBreakMinutes == 0 {
		s.LongBreakMinutes = DefaultLongBreakMinutes
	}
	if s.SnoozeMinutes == 0 {
		s.SnoozeMinutes = DefaultSnoozeMinutes
	}
	if s.BreakSnoozeMinutes == 0 {
		s.BreakSnoozeMinutes = DefaultBreakSnoozeMinutes
	}
	return s
}

func (s Settings) WorkingMinutes() int {
	return (s.WorkingHoursEnd - s.WorkingHoursStart) * 60
}

func (s Settings) PhaseSeconds(phase Phase) int {
	switch phase {
	case PhaseShortBreak:
		return s.ShortBreakMinutes * 60
	case PhaseLongBreak:
		return s.LongBreakMinutes * 60
	default:
		return s.WorkMinutes * 60
	}
}

func (s Settings) SnoozeDuration() time.Duration {
	return time.Duration(s.SnoozeMinutes) * time.Minute
}

func (s Settings) BreakSnoozeDuration() time.Duration {
	return time.Duration(s.BreakSnoozeMinutes) * time.Minute
}
