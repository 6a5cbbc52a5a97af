package servicedesk

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mcncl/deskview/internal/errors"
)

// Window is a half-open range of creation times.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowInput is what an operator types to select a window. Free-text
// bounds take precedence over the date and time-of-day fields.
type WindowInput struct {
	StartDate string // 2006-01-02, defaults to today
	StartTime string // 15:04[:05], defaults to 00:00:00
	EndDate   string // defaults to today
	EndTime   string // defaults to 23:59:59
	Start     string // free text, any format dateparse understands
	End       string
}

const (
	dateLayout       = "2006-01-02"
	defaultStartTime = "00:00:00"
	defaultEndTime   = "23:59:59"
)

// EpochMillis converts t to milliseconds since the Unix epoch
func EpochMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// BuildWindow resolves in against now. Times without a zone are read in loc.
func BuildWindow(in WindowInput, now time.Time, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.Local
	}
	today := now.In(loc).Format(dateLayout)

	start, err := resolveBound("start", in.Start, in.StartDate, in.StartTime, today, defaultStartTime, loc)
	if err != nil {
		return Window{}, err
	}
	end, err := resolveBound("end", in.End, in.EndDate, in.EndTime, today, defaultEndTime, loc)
	if err != nil {
		return Window{}, err
	}

	if !start.Before(end) {
		return Window{}, errors.NewInputError(
			fmt.Sprintf("start %s is not before end %s", start.Format(time.RFC3339), end.Format(time.RFC3339)),
			errors.ErrInvalidWindow,
		)
	}
	return Window{Start: start, End: end}, nil
}

func resolveBound(name, text, date, clock, today, defaultClock string, loc *time.Location) (time.Time, error) {
	if text = strings.TrimSpace(text); text != "" {
		t, err := dateparse.ParseIn(text, loc)
		if err != nil {
			return time.Time{}, errors.NewInputError(fmt.Sprintf("could not parse %s datetime %q", name, text), err)
		}
		return t, nil
	}

	if date = strings.TrimSpace(date); date == "" {
		date = today
	}
	day, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return time.Time{}, errors.NewInputError(fmt.Sprintf("could not parse %s date %q (want YYYY-MM-DD)", name, date), err)
	}

	if clock = strings.TrimSpace(clock); clock == "" {
		clock = defaultClock
	}
	offset, err := parseClock(clock)
	if err != nil {
		return time.Time{}, errors.NewInputError(fmt.Sprintf("could not parse %s time %q (want HH:MM or HH:MM:SS)", name, clock), err)
	}

	return time.Date(day.Year(), day.Month(), day.Day(),
		int(offset.Hours()), int(offset.Minutes())%60, int(offset.Seconds())%60, 0, loc), nil
}

// parseClock returns the time of day as an offset from midnight
func parseClock(clock string) (time.Duration, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, clock); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("unrecognised time of day %q", clock)
}
