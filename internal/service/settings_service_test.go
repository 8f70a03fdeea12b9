package service

import (
	"testing"

	"pulse/internal/model"
)

func TestValidateSettings(t *testing.T) {
	cases := []struct {
		name  string
		input model.Settings
		code  string
	}{
		{name: "defaults", input: model.Settings{}},
		{name: "hour out of range", input: model.Settings{WorkingHoursEnd: 24}, code: "invalid_working_hours"},
		{name: "end before start", input: model.Settings{WorkingHoursStart: 18, WorkingHoursEnd: 8}, code: "invalid_working_hours"},
		{name: "negative prompts", input: model.Settings{AveragePromptsPerDay: -1}, code: "invalid_prompts_per_day"},
		{name: "negative snooze", input: model.Settings{SnoozeMinutes: -5}, code: "invalid_duration"},
	}
	for _, tc := range cases {
		apiErr := validateSettings(tc.input)
		switch {
		case tc.code == "" && apiErr != nil:
			t.Fatalf("%s: unexpected error %v", tc.name, apiErr)
		case tc.code != "" && (apiErr == nil || apiErr.Code != tc.code):
			t.Fatalf("%s: expected %s, got %v", tc.name, tc.code, apiErr)
		}
	}
}
