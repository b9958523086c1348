package user

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	assert := require.New(t)

	id, err := ParseID("123456789")
	assert.Nil(err)
	assert.Equal(ID(123456789), id)
	assert.Equal("123456789", id.String())

	for _, value := range []string{"", "0", "-5", "abc", "1.5"} {
		_, err := ParseID(value)
		assert.ErrorIs(err, ErrInvalidUserID, value)
	}
}
