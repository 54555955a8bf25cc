package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIssuedAtRoundTrip(t *testing.T) {
	instant := time.Date(2024, 3, 9, 12, 34, 56, 789_000_000, time.UTC)
	formatted := FormatIssuedAt(instant)
	require.Equal(t, "2024-03-09T12:34:56.789Z", formatted)

	parsed, err := ParseIssuedAt(formatted)
	require.NoError(t, err)
	require.True(t, parsed.Equal(instant))
}

func TestFormatIssuedAtNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	instant := time.Date(2024, 3, 9, 7, 0, 0, 0, loc)
	require.Equal(t, "2024-03-09T12:00:00.000Z", FormatIssuedAt(instant))
}

func TestExpired(t *testing.T) {
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

	noExpiry := &Ticket{}
	require.False(t, noExpiry.Expired(now))

	past := FormatIssuedAt(now.Add(-time.Millisecond))
	require.True(t, (&Ticket{ExpiresAt: &past}).Expired(now))

	exact := FormatIssuedAt(now)
	require.False(t, (&Ticket{ExpiresAt: &exact}).Expired(now), "expiry is strictly before now")

	future := FormatIssuedAt(now.Add(time.Hour))
	require.False(t, (&Ticket{ExpiresAt: &future}).Expired(now))
}
