package common

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"
)

// TodaySentinel is the end-date value meaning "up to the current date"
const TodaySentinel = "today"

// DateRange is a half-open interval of calendar dates: Start inclusive, End exclusive.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses and validates the user supplied start/end dates
// (YYYY-MM-DD, end accepts the "today" sentinel). earliest is the first
// acquisition date supported by the collection: an end date before it can
// only yield an empty series and is rejected.
func ParseDateRange(start, end string, earliest time.Time) (DateRange, error) {
	if end == TodaySentinel {
		end = time.Now().Format("2006-01-02")
	}
	startDate, err := parseDate(start)
	if err != nil {
		return DateRange{}, fmt.Errorf("start date is not defined in format YYYY-MM-DD: %w", err)
	}
	endDate, err := parseDate(end)
	if err != nil {
		return DateRange{}, fmt.Errorf("end date is not defined in format YYYY-MM-DD: %w", err)
	}
	if endDate.Before(earliest) {
		return DateRange{}, fmt.Errorf("end date %s is before %s: no data is available, please select a later end date",
			endDate.Format("2006-01-02"), earliest.Format("2006-01-02"))
	}
	if endDate.Before(startDate) {
		return DateRange{}, fmt.Errorf("end date is before start date")
	}
	return DateRange{Start: startDate, End: endDate}, nil
}

// Contains returns whether the calendar date d falls within the range
// (start inclusive, end exclusive).
func (r DateRange) Contains(d time.Time) bool {
	return !d.Before(r.Start) && d.Before(r.End)
}

func parseDate(s string) (time.Time, error) {
	d, err := dateparse.ParseStrict(s)
	if err != nil {
		return time.Time{}, err
	}
	// normalize to midnight UTC, the granularity of the archive partitioning
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
}
