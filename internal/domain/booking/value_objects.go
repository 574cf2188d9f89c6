package booking

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxMessageLength       = 2000
	MaxPreferredDateLength = 100
)

// Money holds an amount in minor units (pence for GBP).
type Money struct {
	minor    int64
	currency string
}

func NewMoney(minor int64, currency string) (Money, error) {
	if minor < 0 {
		return Money{}, ErrNegativePrice
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{minor: minor, currency: currency}, nil
}

func (m Money) Minor() int64       { return m.minor }
func (m Money) Currency() string   { return m.currency }
func (m Money) IsZero() bool       { return m.minor == 0 }
func (m Money) Equal(o Money) bool { return m.minor == o.minor && m.currency == o.currency }

// Add sums two amounts of the same currency.
func (m Money) Add(o Money) (Money, error) {
	if m.currency != o.currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{minor: m.minor + o.minor, currency: m.currency}, nil
}

func (m Money) Format() string {
	major := fmt.Sprintf("%d.%02d", m.minor/100, m.minor%100)
	switch m.currency {
	case "GBP":
		return "£" + major
	case "EUR":
		return "€" + major
	case "USD":
		return "$" + major
	default:
		return major + " " + m.currency
	}
}

// PreferredDate is free text with no calendar semantics.
type PreferredDate struct {
	value string
}

func NewPreferredDate(s *string) (PreferredDate, error) {
	if s == nil {
		return PreferredDate{}, nil
	}
	v := strings.TrimSpace(*s)
	if utf8.RuneCountInString(v) > MaxPreferredDateLength {
		return PreferredDate{}, ErrPreferredDateTooLong
	}
	return PreferredDate{value: v}, nil
}

func (p PreferredDate) IsSet() bool { return p.value != "" }

func (p PreferredDate) Ptr() *string {
	if p.value == "" {
		return nil
	}
	v := p.value
	return &v
}

type MessageContent struct {
	value string
}

func NewMessageContent(s string) (MessageContent, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return MessageContent{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(v) > MaxMessageLength {
		return MessageContent{}, ErrMessageTooLong
	}
	return MessageContent{value: v}, nil
}

// NewOptionalMessageContent treats nil and blank input as "no message".
func NewOptionalMessageContent(s *string) (*MessageContent, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	c, err := NewMessageContent(*s)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (c MessageContent) String() string { return c.value }
