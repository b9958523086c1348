package user

import (
	"errors"
	"strconv"
)

// ID is the Telegram user id of a reminder owner. Private chats with the
// bot share the same id, so it is also the chat notifications are sent to.
type ID int64

var ErrInvalidUserID = errors.New("invalid user id")

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func ParseID(value string) (ID, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidUserID
	}
	return ID(id), nil
}
