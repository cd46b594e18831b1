package filter

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type timeWindowFilter struct {
	startMin, endMin int // minutes since midnight
	daysOfWeek       map[time.Weekday]bool
	now              func() time.Time
}

func newTimeWindowFilter(params map[string]any) (Filter, error) {
	start, _ := params["start_time"].(string)
	end, _ := params["end_time"].(string)
	startMin, err := parseHHMM(start)
	if err != nil {
		return nil, fmt.Errorf("time_window filter: start_time: %w", err)
	}
	endMin, err := parseHHMM(end)
	if err != nil {
		return nil, fmt.Errorf("time_window filter: end_time: %w", err)
	}

	days := map[time.Weekday]bool{}
	if raw, ok := params["days_of_week"].([]any); ok {
		for _, d := range raw {
			wd, err := toWeekday(d)
			if err != nil {
				return nil, fmt.Errorf("time_window filter: days_of_week: %w", err)
			}
			days[wd] = true
		}
	}

	return &timeWindowFilter{startMin: startMin, endMin: endMin, daysOfWeek: days, now: time.Now}, nil
}

func parseHHMM(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}

func toWeekday(v any) (time.Weekday, error) {
	switch d := v.(type) {
	case string:
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			if strings.EqualFold(wd.String(), d) {
				return wd, nil
			}
		}
		return 0, fmt.Errorf("unknown weekday %q", d)
	case float64:
		return time.Weekday(int(d) % 7), nil
	default:
		return 0, fmt.Errorf("unsupported weekday value %v", v)
	}
}

// Evaluate reports whether the current time falls inside the configured
// window and, if any days_of_week were configured, whether today is one
// of them. An overnight window (start > end, e.g. 22:00-06:00) wraps
// across midnight.
func (f *timeWindowFilter) Evaluate(map[string]any) bool {
	now := f.now()
	if len(f.daysOfWeek) > 0 && !f.daysOfWeek[now.Weekday()] {
		return false
	}
	minute := now.Hour()*60 + now.Minute()
	if f.startMin <= f.endMin {
		return minute >= f.startMin && minute <= f.endMin
	}
	// Overnight wrap.
	return minute >= f.startMin || minute <= f.endMin
}
