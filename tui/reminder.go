package tui

import (
	"errors"
	"strings"
	"time"
)

var errReminderFormat = errors.New(`use "10m call mom" or "18:30 call mom"`)

// parseReminder reads "<when> <body>". when is a Go duration from now or a
// wall-clock time, rolled to tomorrow once it has passed today.
func parseReminder(input string, now time.Time) (time.Time, string, error) {
	whenText, body, _ := strings.Cut(strings.TrimSpace(input), " ")
	body = strings.TrimSpace(body)
	if whenText == "" || body == "" {
		return time.Time{}, "", errReminderFormat
	}

	if d, err := time.ParseDuration(whenText); err == nil {
		if d <= 0 {
			return time.Time{}, "", errReminderFormat
		}
		return now.Add(d), body, nil
	}

	clock, err := time.ParseInLocation("15:04", whenText, now.Location())
	if err != nil {
		return time.Time{}, "", errReminderFormat
	}
	when := time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, now.Location())
	if !when.After(now) {
		when = when.AddDate(0, 0, 1)
	}
	return when, body, nil
}
