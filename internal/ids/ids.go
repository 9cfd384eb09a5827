// Package ids generates the human-readable codes of ledger records.
package ids

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// Record code prefixes.
const (
	PrefixPurchase   = "PO"
	PrefixTransfer   = "TR"
	PrefixAssignment = "AS"
)

// Generator produces unique record codes.
type Generator interface {
	NewCode(prefix string) string
}

// UUID generates codes from time-ordered UUIDv7 values, so codes sort in
// creation order.
type UUID struct{}

// NewCode returns prefix-XXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX.
func (UUID) NewCode(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does.
		id = uuid.New()
	}
	return prefix + "-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
}

// Sequence generates predictable codes from a counter. It is safe for
// concurrent use.
type Sequence struct {
	n atomic.Int64
}

// NewCode returns prefix-000001, prefix-000002 and so on.
func (s *Sequence) NewCode(prefix string) string {
	return fmt.Sprintf("%s-%06d", prefix, s.n.Add(1))
}

// AssetCode derives the code of the unit-th asset minted from line of a
// purchase. The same inputs always yield the same code.
func AssetCode(typePrefix, purchaseCode string, line, unit int) string {
	return fmt.Sprintf("%s-%s-%d-%d", typePrefix, purchaseCode, line, unit)
}
