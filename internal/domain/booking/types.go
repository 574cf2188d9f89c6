package booking

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusDeclined  Status = "declined"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusDeclined, StatusCancelled, StatusCompleted:
		return true
	default:
		return false
	}
}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusDeclined, StatusCancelled, StatusCompleted:
		return true
	default:
		return false
	}
}

func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// SessionMode is informational only; nothing is enforced against it.
type SessionMode string

const (
	ModeInPerson SessionMode = "in_person"
	ModeRemote   SessionMode = "remote"
	ModeEither   SessionMode = "either"
)

func (m SessionMode) String() string {
	return string(m)
}

func (m SessionMode) IsValid() bool {
	switch m {
	case ModeInPerson, ModeRemote, ModeEither:
		return true
	default:
		return false
	}
}

func ParseSessionMode(s string) (SessionMode, error) {
	mode := SessionMode(s)
	if !mode.IsValid() {
		return "", ErrInvalidSessionMode
	}
	return mode, nil
}

// Role is the slot an actor occupies in a particular booking.
type Role string

const (
	RoleNone      Role = ""
	RoleRequester Role = "requester"
	RoleProvider  Role = "provider"
)

func (r Role) String() string {
	return string(r)
}

type EventType string

const (
	EventCreated     EventType = "booking.created"
	EventAccepted    EventType = "booking.accepted"
	EventDeclined    EventType = "booking.declined"
	EventCancelled   EventType = "booking.cancelled"
	EventCompleted   EventType = "booking.completed"
	EventMessageSent EventType = "message.sent"
)

func (e EventType) String() string {
	return string(e)
}

func EventForStatus(s Status) EventType {
	switch s {
	case StatusAccepted:
		return EventAccepted
	case StatusDeclined:
		return EventDeclined
	case StatusCancelled:
		return EventCancelled
	case StatusCompleted:
		return EventCompleted
	default:
		return EventCreated
	}
}
