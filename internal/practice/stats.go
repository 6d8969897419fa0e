// Package practice holds the pure calculations over practice history: totals,
// the current week broken down by day, the day streak, and the stopwatch used
// while recording a session.
package practice

import (
	"sort"
	"time"
)

// Entry is one logged session reduced to what the aggregates need.
type Entry struct {
	At      time.Time
	Seconds int64
}

// DayTotal is the practice time of one weekday, in hours.
type DayTotal struct {
	Day   string  `json:"day"`
	Hours float64 `json:"hours"`
}

// Weekdays in bucket order. Weeks start on Monday.
var Weekdays = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// TotalDuration sums every entry.
func TotalDuration(entries []Entry) time.Duration {
	var total int64
	for _, e := range entries {
		total += e.Seconds
	}
	return time.Duration(total) * time.Second
}

// WeekStart returns Monday 00:00 of the week containing now, in now's location.
func WeekStart(now time.Time) time.Time {
	offset := (int(now.Weekday()) + 6) % 7
	y, m, d := now.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, now.Location())
}

// WeeklyPracticeTime returns the seconds practiced in [WeekStart(now), now).
func WeeklyPracticeTime(entries []Entry, now time.Time) int64 {
	start := WeekStart(now)
	var total int64
	for _, e := range entries {
		if inWeek(e.At, start, now) {
			total += e.Seconds
		}
	}
	return total
}

// WeeklyPracticeByDay buckets this week's entries by weekday. All seven days
// are present; days without practice report zero.
func WeeklyPracticeByDay(entries []Entry, now time.Time) []DayTotal {
	start := WeekStart(now)
	out := make([]DayTotal, len(Weekdays))
	for i, day := range Weekdays {
		out[i].Day = day
	}
	for _, e := range entries {
		if !inWeek(e.At, start, now) {
			continue
		}
		at := e.At.In(now.Location())
		idx := (int(at.Weekday()) + 6) % 7
		out[idx].Hours += float64(e.Seconds) / 3600
	}
	return out
}

// ByDayMap is WeeklyPracticeByDay keyed by weekday name.
func ByDayMap(days []DayTotal) map[string]float64 {
	m := make(map[string]float64, len(days))
	for _, d := range days {
		m[d.Day] = d.Hours
	}
	return m
}

// Streak counts consecutive calendar days with practice ending today or
// yesterday. Several sessions on one day count once; a day with no practice
// before yesterday breaks the streak.
func Streak(entries []Entry, now time.Time) int {
	loc := now.Location()
	today := midnight(now, loc)

	set := make(map[time.Time]struct{}, len(entries))
	for _, e := range entries {
		day := midnight(e.At, loc)
		if day.After(today) {
			continue
		}
		set[day] = struct{}{}
	}
	if len(set) == 0 {
		return 0
	}

	days := make([]time.Time, 0, len(set))
	for d := range set {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	if days[0].Before(today.AddDate(0, 0, -1)) {
		return 0
	}
	streak := 1
	for i := 1; i < len(days); i++ {
		if !days[i-1].AddDate(0, 0, -1).Equal(days[i]) {
			break
		}
		streak++
	}
	return streak
}

func inWeek(at, start, now time.Time) bool {
	return !at.Before(start) && at.Before(now)
}

func midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
