// Package payload builds and parses the canonical voucher reference string.
package payload

import (
	"fmt"
	"strings"

	"github.com/spec-kit/voucher-service/pkg/util"
)

const tagPrefix = "h="

// Canonical returns the unsigned canonical form "<id>|<issued_at>".
// This exact string is the signer's input.
func Canonical(id, issuedAt string) string {
	return id + "|" + issuedAt
}

// Signed returns the redeemable form "<id>|<issued_at>|h=<tag>".
func Signed(id, issuedAt, tag string) string {
	return Canonical(id, issuedAt) + "|" + tagPrefix + tag
}

// Parsed holds the three fields of a signed payload. Parsing is purely
// syntactic; nothing here is trusted until the signature is verified.
type Parsed struct {
	ID       string
	IssuedAt string
	Tag      string
}

// Parse splits a signed payload into its fields. It requires exactly three
// |-separated fields, a non-empty id and issued_at, and the literal "h="
// prefix on the tag. Anything else is a malformed payload, which is a
// different failure from a signature mismatch.
func Parse(code string) (Parsed, error) {
	parts := strings.Split(code, "|")
	if len(parts) != 3 {
		return Parsed{}, util.NewMalformedPayload(
			fmt.Sprintf("expected 3 fields, got %d", len(parts)))
	}
	id, issuedAt, tagPart := parts[0], parts[1], parts[2]
	if id == "" {
		return Parsed{}, util.NewMalformedPayload("empty ticket id")
	}
	if issuedAt == "" {
		return Parsed{}, util.NewMalformedPayload("empty issued_at")
	}
	if !strings.HasPrefix(tagPart, tagPrefix) {
		return Parsed{}, util.NewMalformedPayload("missing h= tag prefix")
	}
	return Parsed{
		ID:       id,
		IssuedAt: issuedAt,
		Tag:      strings.TrimPrefix(tagPart, tagPrefix),
	}, nil
}
