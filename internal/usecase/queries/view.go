package queries

import (
	"tutor-booking/internal/domain/booking"

	"github.com/google/uuid"
)

func NewBookingView(b *booking.Booking, viewerID uuid.UUID, reviewLinked bool) *BookingView {
	msgs := b.Messages()
	view := &BookingView{
		ID:             b.ID(),
		RequesterID:    b.RequesterID(),
		ProviderID:     b.ProviderID(),
		ProviderUserID: b.ProviderUserID(),
		SessionMode:    b.Mode().String(),
		PreferredDate:  b.PreferredDate().Ptr(),
		Price:          NewMoneyView(b.Price()),
		Status:         b.Status().String(),
		ViewerRole:     string(b.ActorFor(viewerID).Role),
		ReviewLinked:   reviewLinked,
		UnreadCount:    b.UnreadFor(viewerID),
		CreatedAt:      b.CreatedAt(),
		UpdatedAt:      b.UpdatedAt(),
		Messages:       make([]MessageView, 0, len(msgs)),
	}
	for _, m := range msgs {
		view.Messages = append(view.Messages, NewMessageView(m))
	}
	return view
}

func NewMessageView(m *booking.Message) MessageView {
	return MessageView{
		ID:        m.ID(),
		BookingID: m.BookingID(),
		SenderID:  m.SenderID(),
		Content:   m.Content().String(),
		SentAt:    m.SentAt(),
		Read:      m.IsRead(),
		ReadAt:    m.ReadAt(),
	}
}

func NewMoneyView(m booking.Money) MoneyView {
	return MoneyView{AmountMinor: m.Minor(), Currency: m.Currency(), Display: m.Format()}
}
