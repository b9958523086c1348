package telegram

import (
	"strconv"
	"strings"
	"time"
)

const (
	CALENDAR_CALLBACK_PREFIX = "cal:"
	DATE_CALLBACK_PREFIX     = "date:"
	IGNORE_CALLBACK          = "ignore"

	MONTH_LAYOUT = "2006-01"
	DATE_LAYOUT  = "2006-01-02"
)

var weekdays = []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}

// Calendar renders the month of t as an inline keyboard: a navigation row,
// a weekday row and one row per week starting on Monday.
func Calendar(t time.Time) InlineKeyboardMarkup {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	prev := start.AddDate(0, -1, 0)
	next := start.AddDate(0, 1, 0)

	rows := make([][]InlineKeyboardButton, 0, 8)
	rows = append(rows, []InlineKeyboardButton{
		{Text: "<", CallbackData: CALENDAR_CALLBACK_PREFIX + prev.Format(MONTH_LAYOUT)},
		{Text: start.Format("January 2006"), CallbackData: IGNORE_CALLBACK},
		{Text: ">", CallbackData: CALENDAR_CALLBACK_PREFIX + next.Format(MONTH_LAYOUT)},
	})
	header := make([]InlineKeyboardButton, 0, len(weekdays))
	for _, day := range weekdays {
		header = append(header, InlineKeyboardButton{Text: day, CallbackData: IGNORE_CALLBACK})
	}
	rows = append(rows, header)

	week := make([]InlineKeyboardButton, 0, 7)
	offset := (int(start.Weekday()) + 6) % 7
	for i := 0; i < offset; i++ {
		week = append(week, blank())
	}
	days := next.AddDate(0, 0, -1).Day()
	for day := 1; day <= days; day++ {
		date := time.Date(start.Year(), start.Month(), day, 0, 0, 0, 0, t.Location())
		week = append(week, InlineKeyboardButton{
			Text:         strconv.Itoa(day),
			CallbackData: DATE_CALLBACK_PREFIX + date.Format(DATE_LAYOUT),
		})
		if len(week) == 7 {
			rows = append(rows, week)
			week = make([]InlineKeyboardButton, 0, 7)
		}
	}
	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, blank())
		}
		rows = append(rows, week)
	}
	return InlineKeyboardMarkup{InlineKeyboard: rows}
}

func blank() InlineKeyboardButton {
	return InlineKeyboardButton{Text: " ", CallbackData: IGNORE_CALLBACK}
}

// ParseCalendarMonth reads a month navigation callback.
func ParseCalendarMonth(data string, loc *time.Location) (time.Time, bool) {
	if !strings.HasPrefix(data, CALENDAR_CALLBACK_PREFIX) {
		return time.Time{}, false
	}
	month, err := time.ParseInLocation(MONTH_LAYOUT, strings.TrimPrefix(data, CALENDAR_CALLBACK_PREFIX), loc)
	if err != nil {
		return time.Time{}, false
	}
	return month, true
}
