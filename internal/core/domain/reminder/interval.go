package reminder

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/golang-module/carbon/v2"
)

const (
	MAX_INTERVAL_DAYS    = 3660
	MAX_INTERVAL_HOURS   = MAX_INTERVAL_DAYS * 24
	MAX_INTERVAL_MINUTES = MAX_INTERVAL_HOURS * 60
)

var (
	ErrParseInterval   = errors.New("interval must be three non-negative integers: days hours minutes")
	ErrInvalidInterval = errors.New("invalid interval")
)

var intervalPattern = regexp.MustCompile(`^(\d+) (\d+) (\d+)$`)

// Interval is a recurrence period. Days are calendar days, hours and minutes
// are exact durations.
type Interval struct {
	Days    uint32
	Hours   uint32
	Minutes uint32
}

func NewInterval(days, hours, minutes uint32) (Interval, error) {
	i := Interval{Days: days, Hours: hours, Minutes: minutes}
	return i, i.Validate()
}

func ParseInterval(value string) (Interval, error) {
	match := intervalPattern.FindStringSubmatch(strings.TrimSpace(value))
	if match == nil {
		return Interval{}, ErrParseInterval
	}
	var parts [3]uint32
	for ix, raw := range match[1:] {
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return Interval{}, ErrParseInterval
		}
		parts[ix] = uint32(n)
	}
	return NewInterval(parts[0], parts[1], parts[2])
}

func (i Interval) IsZero() bool {
	return i.Days == 0 && i.Hours == 0 && i.Minutes == 0
}

func (i Interval) Validate() error {
	if i.IsZero() {
		return fmt.Errorf("%w: at least one component must be positive", ErrInvalidInterval)
	}
	err := validation.ValidateStruct(&i,
		validation.Field(&i.Days, validation.Max(uint32(MAX_INTERVAL_DAYS))),
		validation.Field(&i.Hours, validation.Max(uint32(MAX_INTERVAL_HOURS))),
		validation.Field(&i.Minutes, validation.Max(uint32(MAX_INTERVAL_MINUTES))),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInterval, err)
	}
	return nil
}

// Clock returns the sub-day part of the interval.
func (i Interval) Clock() time.Duration {
	return time.Duration(i.Hours)*time.Hour + time.Duration(i.Minutes)*time.Minute
}

// NextFrom adds the interval to t once. Days are added in t's location, so a
// daily reminder keeps its wall clock time across DST changes.
func (i Interval) NextFrom(t time.Time) time.Time {
	next := t
	if i.Days > 0 {
		next = carbon.Time2Carbon(t).AddDays(int(i.Days)).Carbon2Time().In(t.Location())
	}
	return next.Add(i.Clock())
}

// NextAfter returns the first point of the grid from + k*interval (k >= 1)
// that is strictly after now.
func (i Interval) NextAfter(from, now time.Time) time.Time {
	if i.IsZero() {
		panic(ErrInvalidInterval)
	}
	next := i.NextFrom(from)
	if !next.After(now) && i.Days == 0 {
		step := i.Clock()
		missed := now.Sub(next)/step + 1
		next = next.Add(missed * step)
	}
	for !next.After(now) {
		next = i.NextFrom(next)
	}
	return next
}

func (i Interval) String() string {
	return fmt.Sprintf("%d %d %d", i.Days, i.Hours, i.Minutes)
}

// Humanize renders the interval for chat messages, e.g. "1d 12h".
func (i Interval) Humanize() string {
	parts := make([]string, 0, 3)
	if i.Days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", i.Days))
	}
	if i.Hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", i.Hours))
	}
	if i.Minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", i.Minutes))
	}
	return strings.Join(parts, " ")
}
