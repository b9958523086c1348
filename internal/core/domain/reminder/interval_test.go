package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntervalValid(t *testing.T) {
	cases := []struct {
		value    string
		expected Interval
	}{
		{value: "1 0 0", expected: Interval{Days: 1}},
		{value: "0 1 30", expected: Interval{Hours: 1, Minutes: 30}},
		{value: "0 0 1", expected: Interval{Minutes: 1}},
		{value: "7 12 0", expected: Interval{Days: 7, Hours: 12}},
		{value: " 0 48 0 ", expected: Interval{Hours: 48}},
	}

	for _, testcase := range cases {
		t.Run(testcase.value, func(t *testing.T) {
			interval, err := ParseInterval(testcase.value)
			require.Nil(t, err)
			assert.Equal(t, testcase.expected, interval)
		})
	}
}

func TestParseIntervalError(t *testing.T) {
	cases := []struct {
		value    string
		expected error
	}{
		{value: "0 0 0", expected: ErrInvalidInterval},
		{value: "3661 0 0", expected: ErrInvalidInterval},
		{value: "", expected: ErrParseInterval},
		{value: "1 2", expected: ErrParseInterval},
		{value: "1 2 3 4", expected: ErrParseInterval},
		{value: "-1 0 0", expected: ErrParseInterval},
		{value: "a b c", expected: ErrParseInterval},
		{value: "1  0 0", expected: ErrParseInterval},
		{value: "99999999999 0 0", expected: ErrParseInterval},
	}

	for _, testcase := range cases {
		t.Run(testcase.value, func(t *testing.T) {
			_, err := ParseInterval(testcase.value)
			assert.ErrorIs(t, err, testcase.expected)
		})
	}
}

func TestIntervalNextFrom(t *testing.T) {
	cases := []struct {
		id       string
		interval Interval
		from     string
		expected string
	}{
		{id: "day", interval: Interval{Days: 1}, from: "2024-01-31T10:00:00Z", expected: "2024-02-01T10:00:00Z"},
		{id: "leap", interval: Interval{Days: 1}, from: "2024-02-28T23:59:00Z", expected: "2024-02-29T23:59:00Z"},
		{id: "clock", interval: Interval{Hours: 1, Minutes: 30}, from: "2024-01-31T23:00:00Z", expected: "2024-02-01T00:30:00Z"},
		{id: "mixed", interval: Interval{Days: 2, Hours: 3, Minutes: 15}, from: "2024-03-01T08:00:00+04:00", expected: "2024-03-03T11:15:00+04:00"},
	}

	for _, testcase := range cases {
		t.Run(testcase.id, func(t *testing.T) {
			from, err := time.Parse(time.RFC3339, testcase.from)
			require.Nil(t, err)
			expected, err := time.Parse(time.RFC3339, testcase.expected)
			require.Nil(t, err)

			next := testcase.interval.NextFrom(from)
			assert.True(t, expected.Equal(next), "expected %s, got %s", expected, next)
		})
	}
}

func TestIntervalNextAfter(t *testing.T) {
	cases := []struct {
		id       string
		interval Interval
		from     string
		now      string
		expected string
	}{
		{
			id:       "on time",
			interval: Interval{Hours: 1},
			from:     "2024-01-01T10:00:00Z",
			now:      "2024-01-01T10:00:00Z",
			expected: "2024-01-01T11:00:00Z",
		},
		{
			id:       "late but within period",
			interval: Interval{Hours: 1},
			from:     "2024-01-01T10:00:00Z",
			now:      "2024-01-01T10:59:00Z",
			expected: "2024-01-01T11:00:00Z",
		},
		{
			id:       "missed several periods",
			interval: Interval{Hours: 1},
			from:     "2024-01-01T10:00:00Z",
			now:      "2024-01-01T13:30:00Z",
			expected: "2024-01-01T14:00:00Z",
		},
		{
			id:       "now on the grid",
			interval: Interval{Hours: 1},
			from:     "2024-01-01T10:00:00Z",
			now:      "2024-01-01T14:00:00Z",
			expected: "2024-01-01T15:00:00Z",
		},
		{
			id:       "missed days",
			interval: Interval{Days: 1},
			from:     "2024-01-01T10:00:00Z",
			now:      "2024-01-05T12:00:00Z",
			expected: "2024-01-06T10:00:00Z",
		},
		{
			id:       "days and minutes",
			interval: Interval{Days: 1, Minutes: 30},
			from:     "2024-01-01T10:00:00Z",
			now:      "2024-01-02T10:30:00Z",
			expected: "2024-01-03T11:00:00Z",
		},
	}

	for _, testcase := range cases {
		t.Run(testcase.id, func(t *testing.T) {
			from, err := time.Parse(time.RFC3339, testcase.from)
			require.Nil(t, err)
			now, err := time.Parse(time.RFC3339, testcase.now)
			require.Nil(t, err)
			expected, err := time.Parse(time.RFC3339, testcase.expected)
			require.Nil(t, err)

			next := testcase.interval.NextAfter(from, now)
			assert.True(t, expected.Equal(next), "expected %s, got %s", expected, next)
			assert.True(t, next.After(now))
		})
	}
}

func TestIntervalNextAfterPanicsOnZero(t *testing.T) {
	now := time.Now()
	assert.Panics(t, func() { Interval{}.NextAfter(now, now) })
}

func TestIntervalString(t *testing.T) {
	interval := Interval{Days: 1, Hours: 2, Minutes: 3}
	assert.Equal(t, "1 2 3", interval.String())
	assert.Equal(t, "1d 2h 3m", interval.Humanize())
	assert.Equal(t, "30m", Interval{Minutes: 30}.Humanize())

	parsed, err := ParseInterval(interval.String())
	require.Nil(t, err)
	assert.Equal(t, interval, parsed)
}
