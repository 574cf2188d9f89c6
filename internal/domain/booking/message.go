package booking

import (
	"time"

	"github.com/google/uuid"
)

// Message is append-only; the read flag is the only field that changes.
type Message struct {
	id        uuid.UUID
	bookingID uuid.UUID
	senderID  uuid.UUID
	content   MessageContent
	sentAt    time.Time
	read      bool
	readAt    *time.Time
}

func ReconstructMessage(id, bookingID, senderID uuid.UUID, content string, sentAt time.Time, read bool, readAt *time.Time) *Message {
	return &Message{
		id:        id,
		bookingID: bookingID,
		senderID:  senderID,
		content:   MessageContent{value: content},
		sentAt:    sentAt,
		read:      read,
		readAt:    readAt,
	}
}

func (m *Message) markRead(now time.Time) {
	m.read = true
	t := now
	m.readAt = &t
}

func (m *Message) ID() uuid.UUID           { return m.id }
func (m *Message) BookingID() uuid.UUID    { return m.bookingID }
func (m *Message) SenderID() uuid.UUID     { return m.senderID }
func (m *Message) Content() MessageContent { return m.content }
func (m *Message) SentAt() time.Time       { return m.sentAt }
func (m *Message) IsRead() bool            { return m.read }
func (m *Message) ReadAt() *time.Time      { return m.readAt }
