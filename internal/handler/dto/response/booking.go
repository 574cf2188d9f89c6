package response

import (
	"time"

	"tutor-booking/internal/usecase/queries"
)

type MoneyResponse struct {
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	Display     string `json:"display"`
}

type MessageResponse struct {
	ID       string  `json:"id"`
	SenderID string  `json:"sender_id"`
	Content  string  `json:"content"`
	SentAt   string  `json:"sent_at"`
	Read     bool    `json:"read"`
	ReadAt   *string `json:"read_at,omitempty"`
}

type BookingResponse struct {
	ID             string            `json:"id"`
	RequesterID    string            `json:"requester_id"`
	ProviderID     string            `json:"provider_id"`
	ProviderUserID string            `json:"provider_user_id"`
	SessionMode    string            `json:"session_mode"`
	PreferredDate  *string           `json:"preferred_date,omitempty"`
	Price          MoneyResponse     `json:"price"`
	Status         string            `json:"status"`
	ViewerRole     string            `json:"viewer_role"`
	ReviewLinked   bool              `json:"review_linked"`
	UnreadCount    int               `json:"unread_count"`
	CreatedAt      string            `json:"created_at"`
	UpdatedAt      string            `json:"updated_at"`
	Messages       []MessageResponse `json:"messages"`
}

type BookingListResponse struct {
	Items      []*BookingResponse `json:"items"`
	NextCursor *string            `json:"next_cursor,omitempty"`
}

func FromBookingView(v *queries.BookingView) *BookingResponse {
	res := &BookingResponse{
		ID:             v.ID.String(),
		RequesterID:    v.RequesterID.String(),
		ProviderID:     v.ProviderID.String(),
		ProviderUserID: v.ProviderUserID.String(),
		SessionMode:    v.SessionMode,
		PreferredDate:  v.PreferredDate,
		Price:          MoneyResponse(v.Price),
		Status:         v.Status,
		ViewerRole:     v.ViewerRole,
		ReviewLinked:   v.ReviewLinked,
		UnreadCount:    v.UnreadCount,
		CreatedAt:      formatTime(v.CreatedAt),
		UpdatedAt:      formatTime(v.UpdatedAt),
		Messages:       make([]MessageResponse, len(v.Messages)),
	}
	for i, m := range v.Messages {
		res.Messages[i] = FromMessageView(m)
	}
	return res
}

func FromMessageView(m queries.MessageView) MessageResponse {
	res := MessageResponse{
		ID:       m.ID.String(),
		SenderID: m.SenderID.String(),
		Content:  m.Content,
		SentAt:   formatTime(m.SentAt),
		Read:     m.Read,
	}
	if m.ReadAt != nil {
		s := formatTime(*m.ReadAt)
		res.ReadAt = &s
	}
	return res
}

func FromBookingPage(p *queries.BookingPage) *BookingListResponse {
	res := &BookingListResponse{Items: make([]*BookingResponse, len(p.Items))}
	for i, v := range p.Items {
		res.Items[i] = FromBookingView(v)
	}
	if p.NextCursor != nil && p.NextCursor.After != "" {
		after := p.NextCursor.After
		res.NextCursor = &after
	}
	return res
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
