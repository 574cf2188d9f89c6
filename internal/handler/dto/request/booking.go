package request

import (
	"tutor-booking/internal/usecase/commands"

	"github.com/google/uuid"
)

type CreateBookingRequest struct {
	ProviderID    uuid.UUID `json:"provider_id" binding:"required"`
	SessionMode   string    `json:"session_mode" binding:"required,oneof=in_person remote either"`
	PreferredDate *string   `json:"preferred_date,omitempty" binding:"omitempty,max=100"`
	Message       *string   `json:"message,omitempty" binding:"omitempty,max=2000"`
}

func (r CreateBookingRequest) ToInput(requesterID uuid.UUID) commands.CreateBookingInput {
	return commands.CreateBookingInput{
		RequesterID:    requesterID,
		ProviderID:     r.ProviderID,
		SessionMode:    r.SessionMode,
		PreferredDate:  r.PreferredDate,
		OpeningMessage: r.Message,
	}
}

type RespondRequest struct {
	Status  string  `json:"status" binding:"required,oneof=accepted declined"`
	Message *string `json:"message,omitempty" binding:"omitempty,max=2000"`
}

// NoteRequest is the optional body of cancel and complete.
type NoteRequest struct {
	Message *string `json:"message,omitempty" binding:"omitempty,max=2000"`
}

type MessageRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}

type ListBookingsQuery struct {
	Role   string `form:"role" binding:"omitempty,oneof=requester provider"`
	Status string `form:"status" binding:"omitempty,oneof=pending accepted declined cancelled completed"`
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
}
