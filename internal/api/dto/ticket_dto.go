package dto

import (
	"github.com/shopspring/decimal"

	"github.com/spec-kit/voucher-service/internal/domain"
	"github.com/spec-kit/voucher-service/internal/money"
)

// IssueTicketRequest payload.
type IssueTicketRequest struct {
	EmployeeID  *string             `json:"employee_id"`
	Items       []money.RawLineItem `json:"items"`
	ExpiresDays int                 `json:"expires_days"`
}

// RedeemRequest payload.
type RedeemRequest struct {
	Code string `json:"code"`
}

// UnitTotal response element.
type UnitTotal struct {
	Type     string          `json:"type"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// LineItem response element.
type LineItem struct {
	Type string          `json:"type"`
	Qty  decimal.Decimal `json:"qty"`
	Unit decimal.Decimal `json:"unit"`
}

// TicketResponse is the full ticket representation. Payload is only present
// on the issuance response; reads omit it (renderers use the QR endpoint).
type TicketResponse struct {
	ID          string          `json:"id"`
	IssuedAt    string          `json:"issued_at"`
	EmployeeID  *string         `json:"employee_id"`
	Items       []LineItem      `json:"items"`
	UnitTotals  []UnitTotal     `json:"unit_totals"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
	ExpiresAt   *string         `json:"expires_at"`
	Payload     string          `json:"payload,omitempty"`
}

// RedeemResponse reports a successful redemption.
type RedeemResponse struct {
	OK          bool            `json:"ok"`
	TicketID    string          `json:"ticket_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Message     string          `json:"message"`
}

// FromTicket maps a domain ticket into its response shape.
func FromTicket(ticket *domain.Ticket, payload string) TicketResponse {
	items := make([]LineItem, 0, len(ticket.Items))
	for _, item := range ticket.Items {
		items = append(items, LineItem{Type: item.Type, Qty: item.Qty, Unit: item.Unit})
	}
	unitTotals := make([]UnitTotal, 0, len(ticket.UnitTotals))
	for _, ut := range ticket.UnitTotals {
		unitTotals = append(unitTotals, UnitTotal{Type: ut.Type, Subtotal: ut.Subtotal})
	}
	return TicketResponse{
		ID:          ticket.ID,
		IssuedAt:    ticket.IssuedAt,
		EmployeeID:  ticket.EmployeeID,
		Items:       items,
		UnitTotals:  unitTotals,
		TotalAmount: ticket.TotalAmount,
		Status:      string(ticket.Status),
		ExpiresAt:   ticket.ExpiresAt,
		Payload:     payload,
	}
}
