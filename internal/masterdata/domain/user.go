package masterdata

import (
	"fmt"
	"time"
)

// User is a community member. TelegramID is nil until the member is linked to
// a Telegram identity through the admission workflow.
type User struct {
	ID         int64
	Name       string
	TelegramID *int64
	Username   string
	IsActive   bool
	CreatedAt  time.Time
}

// PlaceholderName derives a user name from a Telegram id when an approved
// requester has no pre-existing member record.
func PlaceholderName(telegramID int64) string {
	return fmt.Sprintf("User %d", telegramID)
}
