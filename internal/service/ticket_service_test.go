package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/voucher-service/internal/domain"
	"github.com/spec-kit/voucher-service/internal/money"
	"github.com/spec-kit/voucher-service/internal/repository"
	"github.com/spec-kit/voucher-service/internal/signing"
	"github.com/spec-kit/voucher-service/pkg/util"
)

// fakeTicketRepo is an in-memory repository honoring the same contract as
// the pgx implementation: duplicate primary keys rejected, redemption as a
// conditional status flip.
type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket

	// rejectCreates forces the next N creates to fail as duplicates.
	rejectCreates int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rejectCreates > 0 {
		r.rejectCreates--
		return repository.ErrDuplicateID
	}
	if _, exists := r.tickets[ticket.ID]; exists {
		return repository.ErrDuplicateID
	}
	stored := *ticket
	r.tickets[ticket.ID] = &stored
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

func (r *fakeTicketRepo) MarkRedeemed(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok || stored.Status != domain.TicketStatusIssued {
		return false, nil
	}
	stored.Status = domain.TicketStatusRedeemed
	return true, nil
}

func (r *fakeTicketRepo) setStatus(id string, status domain.TicketStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[id].Status = status
}

func newTestService(repo repository.TicketRepository) *TicketService {
	return NewTicketService(TicketDependencies{
		TicketRepo: repo,
		Signer:     signing.New("test-secret"),
	})
}

func rawItems(t *testing.T, jsonItems string) []money.RawLineItem {
	t.Helper()
	var items []money.RawLineItem
	require.NoError(t, json.Unmarshal([]byte(jsonItems), &items))
	return items
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return util.ToDomainError(err).Code
}

func TestIssue(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo)

	employee := "emp-42"
	ticket, code, err := svc.Issue(context.Background(), IssueInput{
		EmployeeID: &employee,
		Items:      rawItems(t, `[{"type":"meal","qty":2,"unit":7.5}]`),
	})
	require.NoError(t, err)

	require.Regexp(t, `^REF-\d{8}-\d{6}$`, ticket.ID)
	require.Equal(t, domain.TicketStatusIssued, ticket.Status)
	require.Equal(t, &employee, ticket.EmployeeID)
	require.Nil(t, ticket.ExpiresAt)
	require.True(t, ticket.TotalAmount.Equal(decimal.RequireFromString("15")))
	require.Len(t, ticket.UnitTotals, 1)
	require.True(t, ticket.UnitTotals[0].Subtotal.Equal(decimal.RequireFromString("15")))

	// Payload is the canonical signed form of the stored fields.
	require.Equal(t, ticket.ID+"|"+ticket.IssuedAt+"|h="+ticket.Hash, code)
	_, err = domain.ParseIssuedAt(ticket.IssuedAt)
	require.NoError(t, err)
}

func TestIssueRequiresItems(t *testing.T) {
	svc := newTestService(newFakeTicketRepo())

	_, _, err := svc.Issue(context.Background(), IssueInput{})
	require.Equal(t, util.CodeInvalidRequest, errCode(t, err))
}

func TestIssueRejectsBadLineItem(t *testing.T) {
	svc := newTestService(newFakeTicketRepo())

	_, _, err := svc.Issue(context.Background(), IssueInput{
		Items: rawItems(t, `[{"type":"meal","qty":"many","unit":7.5}]`),
	})
	require.Equal(t, util.CodeInvalidLineItem, errCode(t, err))
}

func TestIssueExpiry(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo)
	svc.clock = func() time.Time {
		return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	}

	ticket, _, err := svc.Issue(context.Background(), IssueInput{
		Items:       rawItems(t, `[]`),
		ExpiresDays: 30,
	})
	require.NoError(t, err)
	require.NotNil(t, ticket.ExpiresAt)
	require.Equal(t, "2024-04-08T12:00:00.000Z", *ticket.ExpiresAt)

	// Zero days means no expiry at all.
	ticket, _, err = svc.Issue(context.Background(), IssueInput{
		Items:       rawItems(t, `[]`),
		ExpiresDays: 0,
	})
	require.NoError(t, err)
	require.Nil(t, ticket.ExpiresAt)
}

func TestIssueRetriesDuplicateIdentifier(t *testing.T) {
	repo := newFakeTicketRepo()
	repo.rejectCreates = 2
	svc := newTestService(repo)

	ticket, _, err := svc.Issue(context.Background(), IssueInput{Items: rawItems(t, `[]`)})
	require.NoError(t, err)
	require.NotNil(t, ticket)
}

func TestIssueSurfacesExhaustedRetries(t *testing.T) {
	repo := newFakeTicketRepo()
	repo.rejectCreates = maxIssueAttempts
	svc := newTestService(repo)

	_, _, err := svc.Issue(context.Background(), IssueInput{Items: rawItems(t, `[]`)})
	require.Equal(t, util.CodeDuplicateIdentifier, errCode(t, err))
}

func TestRedeemHappyPathThenAlreadyRedeemed(t *testing.T) {
	svc := newTestService(newFakeTicketRepo())

	ticket, code, err := svc.Issue(context.Background(), IssueInput{
		Items: rawItems(t, `[{"type":"meal","qty":2,"unit":7.5}]`),
	})
	require.NoError(t, err)

	result, err := svc.Redeem(context.Background(), code)
	require.NoError(t, err)
	require.Equal(t, ticket.ID, result.TicketID)
	require.True(t, result.TotalAmount.Equal(decimal.RequireFromString("15")))

	_, err = svc.Redeem(context.Background(), code)
	require.Equal(t, util.CodeAlreadyRedeemed, errCode(t, err))
}

func TestRedeemMalformedCode(t *testing.T) {
	svc := newTestService(newFakeTicketRepo())

	_, err := svc.Redeem(context.Background(), "not-a-payload")
	require.Equal(t, util.CodeMalformedPayload, errCode(t, err))
}

func TestRedeemUnknownTicket(t *testing.T) {
	svc := newTestService(newFakeTicketRepo())

	_, err := svc.Redeem(context.Background(),
		"REF-20240309-999999|2024-03-09T12:00:00.000Z|h=deadbeef")
	require.Equal(t, util.CodeTicketNotFound, errCode(t, err))
}

func TestRedeemTamperedTag(t *testing.T) {
	svc := newTestService(newFakeTicketRepo())

	_, code, err := svc.Issue(context.Background(), IssueInput{Items: rawItems(t, `[]`)})
	require.NoError(t, err)

	tampered := code[:len(code)-1]
	if strings.HasSuffix(code, "0") {
		tampered += "1"
	} else {
		tampered += "0"
	}
	_, err = svc.Redeem(context.Background(), tampered)
	require.Equal(t, util.CodeSignatureMismatch, errCode(t, err))
}

func TestRedeemAlteredIssuedAt(t *testing.T) {
	svc := newTestService(newFakeTicketRepo())

	ticket, _, err := svc.Issue(context.Background(), IssueInput{Items: rawItems(t, `[]`)})
	require.NoError(t, err)

	// Structurally valid payload with a doctored timestamp: parses fine,
	// fails signature verification against the stored issued_at.
	altered := ticket.ID + "|1999-01-01T00:00:00.000Z|h=" + ticket.Hash
	_, err = svc.Redeem(context.Background(), altered)
	require.Equal(t, util.CodeSignatureMismatch, errCode(t, err))
}

func TestRedeemSignatureCheckedBeforeStatus(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo)

	ticket, code, err := svc.Issue(context.Background(), IssueInput{Items: rawItems(t, `[]`)})
	require.NoError(t, err)
	repo.setStatus(ticket.ID, domain.TicketStatusRedeemed)

	// A forged tag on an already redeemed ticket must not reveal its state.
	forged := strings.Replace(code, "|h=", "|h=0000", 1)
	_, err = svc.Redeem(context.Background(), forged)
	require.Equal(t, util.CodeSignatureMismatch, errCode(t, err))
}

func TestRedeemExpired(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo)

	issuedAt := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return issuedAt }

	_, code, err := svc.Issue(context.Background(), IssueInput{
		Items:       rawItems(t, `[]`),
		ExpiresDays: 7,
	})
	require.NoError(t, err)

	// Just before expiry it still redeems; strictly after, it does not.
	svc.clock = func() time.Time { return issuedAt.AddDate(0, 0, 7) }
	pastExpiry := newTestService(repo)
	pastExpiry.clock = func() time.Time { return issuedAt.AddDate(0, 0, 7).Add(time.Second) }

	_, err = pastExpiry.Redeem(context.Background(), code)
	require.Equal(t, util.CodeExpired, errCode(t, err))

	_, err = svc.Redeem(context.Background(), code)
	require.NoError(t, err)
}

func TestRedeemExpiryCheckedAfterSignature(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTestService(repo)

	issuedAt := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return issuedAt }

	_, code, err := svc.Issue(context.Background(), IssueInput{
		Items:       rawItems(t, `[]`),
		ExpiresDays: 1,
	})
	require.NoError(t, err)

	svc.clock = func() time.Time { return issuedAt.AddDate(0, 0, 2) }
	forged := strings.Replace(code, "|h=", "|h=0000", 1)
	_, err = svc.Redeem(context.Background(), forged)
	require.Equal(t, util.CodeSignatureMismatch, errCode(t, err))
}

func TestConcurrentRedemptionSingleWinner(t *testing.T) {
	svc := newTestService(newFakeTicketRepo())

	_, code, err := svc.Issue(context.Background(), IssueInput{
		Items: rawItems(t, `[{"type":"meal","qty":1,"unit":5}]`),
	})
	require.NoError(t, err)

	const attempts = 16
	var wg sync.WaitGroup
	outcomes := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Redeem(context.Background(), code)
			outcomes <- err
		}()
	}
	wg.Wait()
	close(outcomes)

	successes, conflicts := 0, 0
	for err := range outcomes {
		if err == nil {
			successes++
			continue
		}
		require.Equal(t, util.CodeAlreadyRedeemed, util.ToDomainError(err).Code)
		conflicts++
	}
	require.Equal(t, 1, successes)
	require.Equal(t, attempts-1, conflicts)
}

func TestSignedPayloadMatchesIssuance(t *testing.T) {
	svc := newTestService(newFakeTicketRepo())

	ticket, issued, err := svc.Issue(context.Background(), IssueInput{Items: rawItems(t, `[]`)})
	require.NoError(t, err)

	reconstructed, err := svc.SignedPayload(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Equal(t, issued, reconstructed)
}

func TestSignedPayloadUnknownTicket(t *testing.T) {
	svc := newTestService(newFakeTicketRepo())

	_, err := svc.SignedPayload(context.Background(), "REF-20240309-000000")
	require.Equal(t, util.CodeTicketNotFound, errCode(t, err))
}
