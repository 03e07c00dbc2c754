// Package windows produces the sequence of [begin, end] date windows a
// card-aggregation run slides over a date range, per the window_size/
// step_size (months) configuration.
package windows

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/healthrisk/cardagg-engine/pkg/models"
)

// Window is one [begin, end] date pair, inclusive, formatted "YYYY-MM-DD".
type Window struct {
	Begin string
	End   string
}

var nonDigitDash = regexp.MustCompile(`\s`)

// ymd is a parsed (year, month, day) with day possibly unset (nil).
type ymd struct {
	year, month int
	day         *int
}

// parseYMD accepts "YYYY-MM-DD", "YYYYMMDD", "YYYY-MM" or "YYYYMM" and
// validates month/day ranges. It mirrors the original to_ymd()/assert
// pair: validation happens before any calendar normalization so invalid
// dates (month 13, Feb 30) are rejected rather than silently carried
// forward the way time.Date would.
func parseYMD(dateStr string) (ymd, error) {
	s := nonDigitDash.ReplaceAllString(strings.TrimSpace(dateStr), "")

	var y, m int
	var d *int

	switch {
	case strings.ContainsAny(s, "-/"):
		parts := splitAny(s, "-/")
		if len(parts) < 2 {
			return ymd{}, fmt.Errorf("%w: %q", models.ErrInvalidDate, dateStr)
		}
		yy, err := strconv.Atoi(parts[0])
		if err != nil {
			return ymd{}, fmt.Errorf("%w: %q", models.ErrInvalidDate, dateStr)
		}
		mm, err := strconv.Atoi(parts[1])
		if err != nil {
			return ymd{}, fmt.Errorf("%w: %q", models.ErrInvalidDate, dateStr)
		}
		y, m = yy, mm
		if len(parts) >= 3 {
			dd, err := strconv.Atoi(parts[2])
			if err != nil {
				return ymd{}, fmt.Errorf("%w: %q", models.ErrInvalidDate, dateStr)
			}
			d = &dd
		}
	case isDigits(s) && (len(s) == 6 || len(s) == 8):
		yy, err := strconv.Atoi(s[:4])
		if err != nil {
			return ymd{}, fmt.Errorf("%w: %q", models.ErrInvalidDate, dateStr)
		}
		mm, err := strconv.Atoi(s[4:6])
		if err != nil {
			return ymd{}, fmt.Errorf("%w: %q", models.ErrInvalidDate, dateStr)
		}
		y, m = yy, mm
		if len(s) == 8 {
			dd, err := strconv.Atoi(s[6:8])
			if err != nil {
				return ymd{}, fmt.Errorf("%w: %q", models.ErrInvalidDate, dateStr)
			}
			d = &dd
		}
	default:
		return ymd{}, fmt.Errorf("%w: date must be YYYY-MM-DD, YYYYMMDD, YYYY-MM or YYYYMM: %q", models.ErrInvalidDate, dateStr)
	}

	if y <= 0 || m < 1 || m > 12 {
		return ymd{}, fmt.Errorf("%w: month out of range in %q", models.ErrInvalidDate, dateStr)
	}
	if d != nil {
		if *d < 1 || *d > daysInMonth(y, m) {
			return ymd{}, fmt.Errorf("%w: day out of range in %q", models.ErrInvalidDate, dateStr)
		}
	}
	return ymd{year: y, month: m, day: d}, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func splitAny(s, seps string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return strings.ContainsRune(seps, r) })
}

func daysInMonth(year, month int) int {
	// day 0 of the next month is the last day of this one.
	return time.Date(year, time.Month(month+1), 0, 0, 0, 0, 0, time.UTC).Day()
}

// addMonths adds n months to (y, m, 1), resetting the day to 1, the way
// the original advances ymd1 by step_size each iteration.
func addMonths(y, m, n int) (int, int) {
	idx := (y*12 + (m - 1)) + n
	return idx / 12, idx%12 + 1
}

// Iterate produces consecutive [begin, end] windows from startDate to
// endDate. window_size/step_size are in months. ymd1 starts at
// (start_year, start_month, 1 if start_day unset else start_day); each
// successive ymd1 advances by step_size months, reset to day 1. ymd2 is
// the last day of (ymd1 + window_size - 1 months), clamped to end_date.
// Iteration stops after emitting a window whose end equals the clamp, or
// when the next begin would reach or exceed end_date.
func Iterate(startDate, endDate string, windowSize, stepSize int) ([]Window, error) {
	start, err := parseYMD(startDate)
	if err != nil {
		return nil, err
	}
	end, err := parseYMD(endDate)
	if err != nil {
		return nil, err
	}

	startDay := 1
	if start.day != nil {
		startDay = *start.day
	}
	endDay := daysInMonth(end.year, end.month)
	if end.day != nil {
		endDay = *end.day
	}
	endDate_ := time.Date(end.year, time.Month(end.month), endDay, 0, 0, 0, 0, time.UTC)

	var out []Window
	y1, m1, d1 := start.year, start.month, startDay
	begin := time.Date(y1, time.Month(m1), d1, 0, 0, 0, 0, time.UTC)

	for {
		y2, m2 := addMonths(y1, m1, windowSize-1)
		last := daysInMonth(y2, m2)
		endCandidate := time.Date(y2, time.Month(m2), last, 0, 0, 0, 0, time.UTC)

		reachedClamp := false
		if endCandidate.After(endDate_) {
			endCandidate = endDate_
			reachedClamp = true
		}

		out = append(out, Window{
			Begin: begin.Format("2006-01-02"),
			End:   endCandidate.Format("2006-01-02"),
		})

		if reachedClamp {
			break
		}

		y1, m1 = addMonths(y1, m1, stepSize)
		d1 = 1
		begin = time.Date(y1, time.Month(m1), d1, 0, 0, 0, 0, time.UTC)
		if !begin.Before(endDate_) {
			break
		}
	}

	return out, nil
}
