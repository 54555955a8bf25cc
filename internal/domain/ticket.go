package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketStatus enumerates lifecycle states for vouchers.
type TicketStatus string

const (
	TicketStatusIssued   TicketStatus = "issued"
	TicketStatusRedeemed TicketStatus = "redeemed"
)

// IssuedAtLayout is the exact textual form of issuance timestamps. The string
// is part of the signed content, so it is pinned to millisecond-precision UTC.
const IssuedAtLayout = "2006-01-02T15:04:05.000Z"

// FormatIssuedAt renders an instant in the canonical issuance form.
func FormatIssuedAt(t time.Time) string {
	return t.UTC().Format(IssuedAtLayout)
}

// ParseIssuedAt parses a canonical issuance timestamp.
func ParseIssuedAt(s string) (time.Time, error) {
	return time.Parse(IssuedAtLayout, s)
}

// LineItem is a single priced entry on a voucher.
type LineItem struct {
	Type string          `json:"type"`
	Qty  decimal.Decimal `json:"qty"`
	Unit decimal.Decimal `json:"unit"`
}

// UnitTotal is the per-item subtotal derived once at issuance.
type UnitTotal struct {
	Type     string          `json:"type"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Ticket is the voucher aggregate. Everything except Status is write-once:
// set at issuance and never updated afterwards.
type Ticket struct {
	ID          string
	IssuedAt    string // canonical form, see IssuedAtLayout
	EmployeeID  *string
	Items       []LineItem
	UnitTotals  []UnitTotal
	TotalAmount decimal.Decimal
	Status      TicketStatus
	ExpiresAt   *string // canonical form when set, nil when the ticket never expires
	Hash        string
}

// Expired reports whether the ticket's expiry instant lies strictly before now.
// Tickets without an expiry never expire by time.
func (t *Ticket) Expired(now time.Time) bool {
	if t.ExpiresAt == nil {
		return false
	}
	exp, err := ParseIssuedAt(*t.ExpiresAt)
	if err != nil {
		return false
	}
	return exp.Before(now)
}
