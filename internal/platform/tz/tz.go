// Package tz converts between UTC instants and store-local calendar time.
package tz

import (
	"fmt"
	"sync"
	"time"
)

var (
	mu    sync.RWMutex
	cache = map[string]*time.Location{}
)

// Load resolves an IANA zone name, caching the result. An empty name is UTC.
func Load(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	mu.RLock()
	loc, ok := cache[name]
	mu.RUnlock()
	if ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", name, err)
	}
	mu.Lock()
	cache[name] = loc
	mu.Unlock()
	return loc, nil
}

// ToLocal expresses t in loc.
func ToLocal(t time.Time, loc *time.Location) time.Time {
	return t.In(loc)
}

// ToUTC expresses t in UTC.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// LocalDate returns the calendar date of t in loc as midnight UTC, the
// representation used for DATE columns.
func LocalDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := ToLocal(t, loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StartOfDay returns the first instant whose calendar date in loc is date's
// year, month and day. Where the clocks change at midnight, local 00:00
// either does not exist or maps to the previous day, and the start moves
// forward to the first wall time of the day, e.g. 01:00 in America/Santiago
// on the September change.
func StartOfDay(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	want := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	for i := 0; i < 3 && LocalDate(start, loc).Before(want); i++ {
		start = start.Add(24*time.Hour - sinceMidnight(ToLocal(start, loc)))
	}
	for i := 0; i < 3; i++ {
		prev := start.Add(-sinceMidnight(ToLocal(start, loc)))
		if prev.Equal(start) || !LocalDate(prev, loc).Equal(want) {
			break
		}
		start = prev
	}
	return start
}

func sinceMidnight(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(t.Nanosecond())
}

// DayBounds returns [start, end) of the local calendar day containing t,
// both expressed in UTC. Every instant in the window has the same LocalDate
// as t. The span is 23 or 25 hours on DST change days.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	date := LocalDate(t, loc)
	return ToUTC(StartOfDay(date, loc)), ToUTC(StartOfDay(date.AddDate(0, 0, 1), loc))
}
