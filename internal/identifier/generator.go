// Package identifier produces human-legible voucher identifiers.
package identifier

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const suffixSpace = 1_000_000

// New returns an identifier of the form REF-<YYYYMMDD>-<6-digit suffix>.
// The date prefix keeps identifiers sortable by issuance day; the random
// suffix makes same-day collisions unlikely but not impossible, so callers
// must still handle a duplicate rejected by the store.
func New(issuedAt time.Time) string {
	n, err := rand.Int(rand.Reader, big.NewInt(suffixSpace))
	if err != nil {
		// crypto/rand only fails when the platform source is broken;
		// fall back to the time source rather than issuing nothing.
		n = big.NewInt(issuedAt.UnixNano() % suffixSpace)
	}
	return fmt.Sprintf("REF-%s-%06d", issuedAt.UTC().Format("20060102"), n.Int64())
}
