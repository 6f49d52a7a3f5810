package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/dusk/internal/model"
)

type Comparison string

const (
	ExactMinute Comparison = "exact"
	AtOrAfter   Comparison = "at_or_after"
)

func ParseComparison(raw string) (Comparison, error) {
	switch Comparison(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExactMinute:
		return ExactMinute, nil
	case AtOrAfter, ">=":
		return AtOrAfter, nil
	default:
		return "", fmt.Errorf("scheduler: unknown comparison %q", raw)
	}
}

type Reason string

const (
	ReasonFire        Reason = "fire"
	ReasonDisabled    Reason = "disabled"
	ReasonFiredToday  Reason = "fired_today"
	ReasonNotDue      Reason = "not_due"
	ReasonInvalidTime Reason = "invalid_time"
	ReasonError       Reason = "error"
)

type Decision struct {
	Fire   bool
	Reason Reason
	Today  string
}

func Decide(s model.ReminderSettings, now time.Time, cmp Comparison) Decision {
	today := model.DateString(now)
	if !s.Enabled {
		return Decision{Reason: ReasonDisabled, Today: today}
	}
	if s.FiredOn(today) {
		return Decision{Reason: ReasonFiredToday, Today: today}
	}
	target, err := model.ParseClock(s.TargetTime)
	if err != nil {
		return Decision{Reason: ReasonInvalidTime, Today: today}
	}
	current := model.ClockOf(now)

	due := current.Minutes() == target.Minutes()
	if cmp == AtOrAfter {
		due = current.Minutes() >= target.Minutes()
	}
	if !due {
		return Decision{Reason: ReasonNotDue, Today: today}
	}
	return Decision{Fire: true, Reason: ReasonFire, Today: today}
}
