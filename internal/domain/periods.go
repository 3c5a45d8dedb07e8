package domain

import "strconv"

// PeriodIndex returns the position of period in periods, or -1.
func PeriodIndex(periods []string, period string) int {
	for i, p := range periods {
		if p == period {
			return i
		}
	}
	return -1
}

// DefaultPeriod is the first discovered period, shown before any navigation.
func DefaultPeriod(periods []string) (string, bool) {
	if len(periods) == 0 {
		return "", false
	}
	return periods[0], true
}

// PeriodForYear maps a slider year onto a period by its offset from the first
// period, which must itself be a year. Offsets outside the period list wrap to
// the first period, as the map slider does.
func PeriodForYear(periods []string, year int) (string, bool) {
	first, ok := DefaultPeriod(periods)
	if !ok {
		return "", false
	}
	start, err := strconv.Atoi(first)
	if err != nil {
		return "", false
	}
	offset := year - start
	if offset < 0 || offset >= len(periods) {
		return first, true
	}
	return periods[offset], true
}
