package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Window restricts proactive sends to a daily hour range and a weekday
// set, so users are not nudged at 3am or over the weekend.
type Window struct {
	fromHour int // inclusive
	toHour   int // exclusive
	days     map[time.Weekday]bool
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// ParseWindow parses expressions like "9-18", "9-18 mon-fri" or
// "8-20 mon,wed,fri". Hours are 0-24 local time; the range is
// half-open. An omitted day part means every day.
func ParseWindow(expr string) (*Window, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(expr)))
	if len(fields) == 0 || len(fields) > 2 {
		return nil, fmt.Errorf("invalid window %q", expr)
	}

	from, to, err := parseHourRange(fields[0])
	if err != nil {
		return nil, fmt.Errorf("invalid window %q: %w", expr, err)
	}

	days := map[time.Weekday]bool{}
	if len(fields) == 2 {
		if err := parseDays(fields[1], days); err != nil {
			return nil, fmt.Errorf("invalid window %q: %w", expr, err)
		}
	} else {
		for d := time.Sunday; d <= time.Saturday; d++ {
			days[d] = true
		}
	}
	return &Window{fromHour: from, toHour: to, days: days}, nil
}

// Contains reports whether t falls inside the window.
func (w *Window) Contains(t time.Time) bool {
	if !w.days[t.Weekday()] {
		return false
	}
	h := t.Hour()
	if w.fromHour <= w.toHour {
		return h >= w.fromHour && h < w.toHour
	}
	// Overnight range, e.g. 22-6.
	return h >= w.fromHour || h < w.toHour
}

func parseHourRange(s string) (int, int, error) {
	from, toStr, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, fmt.Errorf("hour range %q must be from-to", s)
	}
	f, err := parseHour(from)
	if err != nil {
		return 0, 0, err
	}
	t, err := parseHour(toStr)
	if err != nil {
		return 0, 0, err
	}
	return f, t, nil
}

func parseHour(s string) (int, error) {
	h, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("bad hour %q", s)
	}
	return h, nil
}

func parseDays(s string, days map[time.Weekday]bool) error {
	for _, part := range strings.Split(s, ",") {
		if from, to, ok := strings.Cut(part, "-"); ok {
			f, okF := weekdayNames[from]
			t, okT := weekdayNames[to]
			if !okF || !okT {
				return fmt.Errorf("bad day range %q", part)
			}
			for d := f; ; d = (d + 1) % 7 {
				days[d] = true
				if d == t {
					break
				}
			}
			continue
		}
		d, ok := weekdayNames[part]
		if !ok {
			return fmt.Errorf("bad day %q", part)
		}
		days[d] = true
	}
	return nil
}
