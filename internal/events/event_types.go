package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketIssued   EventType = "ticket_issued"
	EventTicketRedeemed EventType = "ticket_redeemed"
)

// Event represents a lifecycle event emitted by the ticket service.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketIssuedPayload payload.
type TicketIssuedPayload struct {
	EmployeeID  *string         `json:"employee_id,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemCount   int             `json:"item_count"`
	ExpiresAt   *string         `json:"expires_at,omitempty"`
}

// TicketRedeemedPayload payload.
type TicketRedeemedPayload struct {
	TotalAmount decimal.Decimal `json:"total_amount"`
}
