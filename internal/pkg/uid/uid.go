// Package uid mints identifiers for engine-owned rows.
package uid

import (
	"strings"

	"github.com/google/uuid"
)

// ledgerNamespace scopes deterministic ledger ids.
var ledgerNamespace = uuid.MustParse("5b1f0c1e-3a0e-4d8e-9a57-2f4c1d9b7e10")

// New returns a time-ordered UUIDv7 string. It falls back to a random v4 id if the
// clock-based generator fails.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Deterministic derives a stable id from the given parts. The same parts always produce
// the same id, which keeps ledger regeneration byte-identical.
func Deterministic(parts ...string) string {
	return uuid.NewSHA1(ledgerNamespace, []byte(strings.Join(parts, "/"))).String()
}
