package models

import (
	"testing"
	"time"
)

func TestExpectedPoints(t *testing.T) {
	tests := []struct {
		name string
		step time.Duration
		days int
		want int
	}{
		{name: "hourly over a day", step: time.Hour, days: 1, want: 24},
		{name: "hourly over a week", step: time.Hour, days: 7, want: 168},
		{name: "five minutes over a month", step: 5 * time.Minute, days: 30, want: 8640},
		{name: "daily over five years", step: 24 * time.Hour, days: 1825, want: 1825},
		{name: "weekly over a day", step: 7 * 24 * time.Hour, days: 1, want: 0},
		{name: "zero step", step: 0, days: 10, want: 0},
		{name: "no days", step: time.Hour, days: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpectedPoints(tt.step, tt.days); got != tt.want {
				t.Errorf("ExpectedPoints(%v, %d) = %d, want %d", tt.step, tt.days, got, tt.want)
			}
		})
	}
}

func TestRangeStart(t *testing.T) {
	end := time.Date(2025, 8, 28, 0, 0, 0, 0, time.UTC)
	got := RangeStart(end, 7)
	want := time.Date(2025, 8, 21, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("RangeStart() = %v, want %v", got, want)
	}
}
