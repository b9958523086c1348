package reminder

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	c "remindbot/internal/core/domain/common"
)

func TestReminderIsDue(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		id       string
		reminder Reminder
		expected bool
	}{
		{id: "past", reminder: Reminder{FireAt: now.Add(-time.Minute)}, expected: true},
		{id: "exactly now", reminder: Reminder{FireAt: now}, expected: true},
		{id: "future", reminder: Reminder{FireAt: now.Add(time.Second)}, expected: false},
		{id: "done", reminder: Reminder{FireAt: now.Add(-time.Minute), IsDone: true}, expected: false},
	}

	for _, testcase := range cases {
		t.Run(testcase.id, func(t *testing.T) {
			assert.Equal(t, testcase.expected, testcase.reminder.IsDue(now))
		})
	}
}

func TestReminderIsRecurring(t *testing.T) {
	rem := Reminder{}
	assert.False(t, rem.IsRecurring())
	rem.Every = c.NewOptional(Interval{Days: 1}, true)
	assert.True(t, rem.IsRecurring())
}

func TestReminderValidate(t *testing.T) {
	valid := Reminder{OwnerID: 1, ID: 1, Description: "Test", FireAt: time.Now()}
	require.Nil(t, valid.Validate())

	withoutOwner := valid
	withoutOwner.OwnerID = 0
	assert.NotNil(t, withoutOwner.Validate())

	withZeroInterval := valid
	withZeroInterval.Every = c.NewOptional(Interval{}, true)
	assert.NotNil(t, withZeroInterval.Validate())

	withoutFireAt := valid
	withoutFireAt.FireAt = time.Time{}
	assert.NotNil(t, withoutFireAt.Validate())
}

func TestValidateDescription(t *testing.T) {
	require.Nil(t, ValidateDescription("Buy milk"))
	assert.ErrorIs(t, ValidateDescription("  \n"), ErrReminderEmptyDescription)
	assert.ErrorIs(t, ValidateDescription(strings.Repeat("a", MAX_DESCRIPTION_LENGTH+1)), ErrReminderTooLong)
}

func TestParseID(t *testing.T) {
	id, err := ParseID("42")
	require.Nil(t, err)
	assert.Equal(t, ID(42), id)

	for _, value := range []string{"", "0", "-1", "abc"} {
		_, err := ParseID(value)
		assert.NotNil(t, err, value)
	}
}
