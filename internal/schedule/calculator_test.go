package schedule

import (
	"testing"
	"time"

	"github.com/arnavsood/statuspulse/internal/core"
)

func mustUTC(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return ts
}

func TestNextFiring_SpecificWeekdaysTimezone(t *testing.T) {
	spec := core.ScheduleSpec{
		Kind: core.ScheduleSpecificWeekdays,
		Config: core.ScheduleConfig{
			Weekdays: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
		},
		Time:     "09:00",
		Timezone: "America/New_York",
		IsActive: true,
	}
	now := mustUTC(t, "2024-06-01T00:00:00Z")

	got, err := NextFiring(spec, now)
	if err != nil {
		t.Fatalf("NextFiring: %v", err)
	}
	want := mustUTC(t, "2024-06-03T13:00:00Z")
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNextFiring_DSTGap(t *testing.T) {
	spec := core.ScheduleSpec{
		Kind:     core.ScheduleDaily,
		Time:     "02:30",
		Timezone: "America/New_York",
		IsActive: true,
	}
	now := mustUTC(t, "2024-03-10T06:00:00Z")

	got, err := NextFiring(spec, now)
	if err != nil {
		t.Fatalf("NextFiring: %v", err)
	}
	want := mustUTC(t, "2024-03-10T07:00:00Z")
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNextFiring_FixedInterval(t *testing.T) {
	spec := core.ScheduleSpec{
		Kind:     core.ScheduleFixedInterval,
		Config:   core.ScheduleConfig{IntervalDays: 3},
		Time:     "10:00",
		Timezone: "UTC",
		IsActive: true,
	}
	now := mustUTC(t, "2024-01-01T00:00:00Z")

	got, err := NextFiring(spec, now)
	if err != nil {
		t.Fatalf("NextFiring: %v", err)
	}
	want := mustUTC(t, "2024-01-04T10:00:00Z")
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNextFiring_MonthlyDateClampsToLastDay(t *testing.T) {
	spec := core.ScheduleSpec{
		Kind:     core.ScheduleMonthlyDate,
		Config:   core.ScheduleConfig{DayOfMonth: 31},
		Time:     "00:00",
		Timezone: "UTC",
		IsActive: true,
	}
	now := mustUTC(t, "2024-02-01T00:00:00Z")

	got, err := NextFiring(spec, now)
	if err != nil {
		t.Fatalf("NextFiring: %v", err)
	}
	want := mustUTC(t, "2024-02-29T00:00:00Z") // 2024 is a leap year
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNextFiring_Yearly(t *testing.T) {
	spec := core.ScheduleSpec{
		Kind:     core.ScheduleYearly,
		Config:   core.ScheduleConfig{Month: time.December, Day: 25},
		Time:     "08:00",
		Timezone: "UTC",
		IsActive: true,
	}
	now := mustUTC(t, "2024-12-26T00:00:00Z")

	got, err := NextFiring(spec, now)
	if err != nil {
		t.Fatalf("NextFiring: %v", err)
	}
	want := mustUTC(t, "2025-12-25T08:00:00Z")
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNextFiring_OneTimePast(t *testing.T) {
	past := mustUTC(t, "2020-01-01T00:00:00Z")
	spec := core.ScheduleSpec{
		Kind:     core.ScheduleOneTime,
		Config:   core.ScheduleConfig{Date: &past},
		Time:     "00:00",
		Timezone: "UTC",
		IsActive: true,
	}
	now := mustUTC(t, "2024-01-01T00:00:00Z")

	got, err := NextFiring(spec, now)
	if err != nil {
		t.Fatalf("NextFiring: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for a lapsed one_time schedule, got %v", got)
	}
}

func TestNextFiring_TieBreakRejectsExactNow(t *testing.T) {
	spec := core.ScheduleSpec{
		Kind:     core.ScheduleDaily,
		Time:     "09:00",
		Timezone: "UTC",
		IsActive: true,
	}
	now := mustUTC(t, "2024-01-01T09:00:00Z")

	got, err := NextFiring(spec, now)
	if err != nil {
		t.Fatalf("NextFiring: %v", err)
	}
	want := mustUTC(t, "2024-01-02T09:00:00Z")
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNextFiring_InvalidTimezoneFallsBackToUTC(t *testing.T) {
	spec := core.ScheduleSpec{
		Kind:     core.ScheduleDaily,
		Time:     "09:00",
		Timezone: "Not/AZone",
		IsActive: true,
	}
	now := mustUTC(t, "2024-01-01T00:00:00Z")

	got, err := NextFiring(spec, now)
	if err != nil {
		t.Fatalf("NextFiring: %v", err)
	}
	want := mustUTC(t, "2024-01-01T09:00:00Z")
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
