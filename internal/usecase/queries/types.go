package queries

import (
	"time"

	"github.com/google/uuid"
)

// Read models (DTO for read side)
type BookingView struct {
	ID             uuid.UUID     `json:"id"`
	RequesterID    uuid.UUID     `json:"requester_id"`
	ProviderID     uuid.UUID     `json:"provider_id"`
	ProviderUserID uuid.UUID     `json:"provider_user_id"`
	SessionMode    string        `json:"session_mode"`
	PreferredDate  *string       `json:"preferred_date,omitempty"`
	Price          MoneyView     `json:"price"`
	Status         string        `json:"status"`
	ViewerRole     string        `json:"viewer_role"`
	ReviewLinked   bool          `json:"review_linked"`
	UnreadCount    int           `json:"unread_count"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	Messages       []MessageView `json:"messages"`
}

type MessageView struct {
	ID        uuid.UUID  `json:"id"`
	BookingID uuid.UUID  `json:"booking_id"`
	SenderID  uuid.UUID  `json:"sender_id"`
	Content   string     `json:"content"`
	SentAt    time.Time  `json:"sent_at"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

type MoneyView struct {
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	Display     string `json:"display"`
}

type BookingPage struct {
	Items      []*BookingView `json:"items"`
	NextCursor *Cursor        `json:"next_cursor,omitempty"`
}

type ProviderStats struct {
	ProviderID uuid.UUID   `json:"provider_id"`
	Pending    int         `json:"pending"`
	Active     int         `json:"active"`
	Completed  int         `json:"completed"`
	Earnings   []MoneyView `json:"earnings"`
}

type ListOptions struct {
	Role   string // "", "requester" or "provider"
	Status string
	After  *Cursor
	Limit  int
}
