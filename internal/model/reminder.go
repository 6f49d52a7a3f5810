package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidTargetTime = errors.New("model: invalid target time")
	ErrInvalidDate       = errors.New("model: invalid calendar date")
)

const (
	SettingsKey       = "dusk-reminder"
	DefaultTargetTime = "21:00"
	DateLayout        = "2006-01-02"
)

// ReminderSettings is the single shared record both contexts read before
// deciding to fire. LastFiredDate is a local calendar date or empty.
type ReminderSettings struct {
	Enabled       bool   `json:"enabled"`
	TargetTime    string `json:"targetTime"`
	LastFiredDate string `json:"lastFiredDate"`
}

func DefaultReminderSettings() ReminderSettings {
	return ReminderSettings{
		Enabled:    false,
		TargetTime: DefaultTargetTime,
	}
}

func (r ReminderSettings) Validate() error {
	if _, err := ParseClock(r.TargetTime); err != nil {
		return err
	}
	if r.LastFiredDate != "" {
		if _, err := ParseDate(r.LastFiredDate); err != nil {
			return err
		}
	}
	return nil
}

// Normalize repairs fields a corrupt or partial record may carry.
func (r ReminderSettings) Normalize() ReminderSettings {
	out := r
	if _, err := ParseClock(out.TargetTime); err != nil {
		out.TargetTime = DefaultTargetTime
	}
	if out.LastFiredDate != "" {
		if _, err := ParseDate(out.LastFiredDate); err != nil {
			out.LastFiredDate = ""
		}
	}
	return out
}

// WithTargetTime moves the target and clears LastFiredDate so the new time
// can still fire on the current day.
func (r ReminderSettings) WithTargetTime(target string) (ReminderSettings, error) {
	clock, err := ParseClock(target)
	if err != nil {
		return r, err
	}
	out := r
	out.TargetTime = clock.String()
	out.LastFiredDate = ""
	return out, nil
}

func (r ReminderSettings) FiredOn(date string) bool {
	return date != "" && r.LastFiredDate == date
}

func (r ReminderSettings) Clock() Clock {
	clock, err := ParseClock(r.TargetTime)
	if err != nil {
		clock, _ = ParseClock(DefaultTargetTime)
	}
	return clock
}

// Clock is a minute-granularity local time of day.
type Clock struct {
	Hour   int
	Minute int
}

func ParseClock(raw string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidTargetTime, raw)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidTargetTime, raw)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || len(parts[1]) != 2 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidTargetTime, raw)
	}
	return Clock{Hour: h, Minute: m}, nil
}

func ClockOf(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Format12h renders the clock the way the reminder panel shows it, e.g. "9:05 PM".
func (c Clock) Format12h() string {
	period := "AM"
	if c.Hour >= 12 {
		period = "PM"
	}
	h := c.Hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, c.Minute, period)
}

func Format12h(target string) string {
	clock, err := ParseClock(target)
	if err != nil {
		return target
	}
	return clock.Format12h()
}

func DateString(t time.Time) string {
	return t.Format(DateLayout)
}

func ParseDate(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return t, nil
}
