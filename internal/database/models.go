package database

import "time"

// Message is one chat message recorded from a Telegram update. The log is the
// bot's only view of channel history, since the Bot API cannot fetch it.
// Times are stored as Unix seconds.
type Message struct {
	ID        int64  `db:"id"`
	ChatID    int64  `db:"chat_id"`
	MessageID int64  `db:"message_id"`
	Author    string `db:"author"`
	IsBot     bool   `db:"is_bot"`
	Content   string `db:"content"`
	SentAt    int64  `db:"sent_at"`
	CreatedAt int64  `db:"created_at"`
}

// Timestamp returns the time the message was sent.
func (m Message) Timestamp() time.Time {
	return time.Unix(m.SentAt, 0).UTC()
}
