package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/voucher-service/internal/domain"
	"github.com/spec-kit/voucher-service/internal/events"
	"github.com/spec-kit/voucher-service/internal/identifier"
	"github.com/spec-kit/voucher-service/internal/money"
	"github.com/spec-kit/voucher-service/internal/payload"
	"github.com/spec-kit/voucher-service/internal/repository"
	"github.com/spec-kit/voucher-service/internal/signing"
	"github.com/spec-kit/voucher-service/pkg/util"
)

// maxIssueAttempts bounds identifier regeneration when the store rejects a
// duplicate primary key.
const maxIssueAttempts = 3

// TicketService coordinates the voucher lifecycle: issuance, redemption and
// the read-only payload reconstruction used for rendering.
type TicketService struct {
	tickets    repository.TicketRepository
	signer     *signing.Signer
	dispatcher events.Dispatcher

	clock      func() time.Time
	generateID func(time.Time) string
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Signer     *signing.Signer
	Dispatcher events.Dispatcher
}

// IssueInput describes an issuance request.
type IssueInput struct {
	EmployeeID  *string
	Items       []money.RawLineItem
	ExpiresDays int
}

// RedemptionResult reports a successful redemption.
type RedemptionResult struct {
	TicketID    string
	TotalAmount decimal.Decimal
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		signer:     deps.Signer,
		dispatcher: deps.Dispatcher,
		clock:      time.Now,
		generateID: identifier.New,
	}
}

// Issue creates a voucher: validates line items, computes totals once, signs
// the canonical reference and persists the record in the issued state.
// Returns the ticket together with the signed payload string that external
// renderers encode.
func (s *TicketService) Issue(ctx context.Context, input IssueInput) (*domain.Ticket, string, error) {
	if input.Items == nil {
		return nil, "", util.NewInvalidRequest("items must be an array", nil)
	}
	items, err := money.ParseLineItems(input.Items)
	if err != nil {
		return nil, "", err
	}

	// The formatted string is the signed content, so every derived value
	// starts from the millisecond-truncated instant it encodes.
	issuedInstant := s.clock().UTC().Truncate(time.Millisecond)
	issuedAt := domain.FormatIssuedAt(issuedInstant)

	unitTotals, total := money.Calculate(items)

	var expiresAt *string
	if input.ExpiresDays > 0 {
		exp := domain.FormatIssuedAt(issuedInstant.AddDate(0, 0, input.ExpiresDays))
		expiresAt = &exp
	}

	var ticket *domain.Ticket
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		id := s.generateID(issuedInstant)
		candidate := &domain.Ticket{
			ID:          id,
			IssuedAt:    issuedAt,
			EmployeeID:  input.EmployeeID,
			Items:       items,
			UnitTotals:  unitTotals,
			TotalAmount: total,
			Status:      domain.TicketStatusIssued,
			ExpiresAt:   expiresAt,
			Hash:        s.signer.Tag(id, issuedAt),
		}
		err = s.tickets.Create(ctx, candidate)
		if err == nil {
			ticket = candidate
			break
		}
		if errors.Is(err, repository.ErrDuplicateID) {
			continue
		}
		return nil, "", util.NewStorageError(err)
	}
	if ticket == nil {
		return nil, "", util.NewDuplicateIdentifier()
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketIssued,
		TicketID: ticket.ID,
		Payload: events.TicketIssuedPayload{
			EmployeeID:  ticket.EmployeeID,
			TotalAmount: ticket.TotalAmount,
			ItemCount:   len(ticket.Items),
			ExpiresAt:   ticket.ExpiresAt,
		},
	})

	return ticket, payload.Signed(ticket.ID, ticket.IssuedAt, ticket.Hash), nil
}

// Redeem consumes a signed payload exactly once. The signature is verified
// before status and expiry are inspected, so a forged code learns nothing
// about the referenced ticket's state.
func (s *TicketService) Redeem(ctx context.Context, code string) (*RedemptionResult, error) {
	parsed, err := payload.Parse(code)
	if err != nil {
		return nil, err
	}

	ticket, err := s.tickets.GetByID(ctx, parsed.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, util.NewTicketNotFound(parsed.ID)
		}
		return nil, util.NewStorageError(err)
	}

	// The stored issued_at is authoritative: a payload with a doctored
	// timestamp still parses, but its tag cannot match the one recomputed
	// from the looked-up ticket's own fields.
	if !s.signer.Verify(ticket.ID, ticket.IssuedAt, parsed.Tag) {
		return nil, util.NewSignatureMismatch()
	}

	if ticket.Status != domain.TicketStatusIssued {
		return nil, util.NewAlreadyRedeemed(string(ticket.Status))
	}

	if ticket.Expired(s.clock()) {
		return nil, util.NewExpired()
	}

	flipped, err := s.tickets.MarkRedeemed(ctx, ticket.ID)
	if err != nil {
		return nil, util.NewStorageError(err)
	}
	if !flipped {
		// Lost the race against a concurrent redemption.
		return nil, util.NewAlreadyRedeemed(string(domain.TicketStatusRedeemed))
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketRedeemed,
		TicketID: ticket.ID,
		Payload: events.TicketRedeemedPayload{
			TotalAmount: ticket.TotalAmount,
		},
	})

	return &RedemptionResult{TicketID: ticket.ID, TotalAmount: ticket.TotalAmount}, nil
}

// SignedPayload reconstructs the exact signed payload for a stored ticket.
// Read-only: the stored hash is reused, never recomputed, so the result is
// byte-identical to what Issue returned.
func (s *TicketService) SignedPayload(ctx context.Context, id string) (string, error) {
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return "", err
	}
	return payload.Signed(ticket.ID, ticket.IssuedAt, ticket.Hash), nil
}

// GetTicket fetches a ticket by id.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, util.NewTicketNotFound(id)
		}
		return nil, util.NewStorageError(err)
	}
	return ticket, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
