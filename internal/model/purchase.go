package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Purchase is a procurement order whose receipt mints new assets.
type Purchase struct {
	ID           int64           `json:"id"`
	Code         string          `json:"code"`
	BaseID       int64           `json:"base_id"`
	Items        []PurchaseItem  `json:"items"`
	Supplier     Supplier        `json:"supplier"`
	OrderNumber  string          `json:"order_number"`
	OrderDate    time.Time       `json:"order_date"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Status       string          `json:"status"`
	DeliveryDate *time.Time      `json:"delivery_date,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	CreatedBy    int64           `json:"created_by"`
	ApprovedBy   *int64          `json:"approved_by,omitempty"`
	ApprovedAt   *time.Time      `json:"approved_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	// Joined fields (not always populated).
	BaseName string `json:"base_name,omitempty"`
}

// PurchaseItem is one line of a purchase.
type PurchaseItem struct {
	Line      int             `json:"line"`
	AssetType string          `json:"asset_type"`
	Category  string          `json:"category"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	TotalCost decimal.Decimal `json:"total_cost"`
	Specs     Specs           `json:"specifications"`
}

// Supplier identifies the vendor of a purchase.
type Supplier struct {
	Name    string `json:"name"`
	Contact string `json:"contact,omitempty"`
}

// Purchase statuses.
const (
	PurchaseStatusPending   = "pending"
	PurchaseStatusApproved  = "approved"
	PurchaseStatusReceived  = "received"
	PurchaseStatusCancelled = "cancelled"
)

// Unit caps bound how many assets one receipt may mint.
const (
	MaxUnitsPerLine     = 10000
	MaxUnitsPerPurchase = 10000
)

// TotalUnits returns the number of assets the items mint on receipt.
func TotalUnits(items []PurchaseItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// Validate checks a single line. A non-zero TotalCost is treated as a caller
// claim and must match quantity × unit cost.
func (it *PurchaseItem) Validate() error {
	if !ValidAssetType(it.AssetType) {
		return fmt.Errorf("%w: line %d: invalid asset type %q", ErrValidation, it.Line, it.AssetType)
	}
	if strings.TrimSpace(it.Name) == "" || strings.TrimSpace(it.Category) == "" {
		return fmt.Errorf("%w: line %d: name and category required", ErrValidation, it.Line)
	}
	if it.Quantity < 1 {
		return fmt.Errorf("%w: line %d: quantity must be at least 1", ErrValidation, it.Line)
	}
	if it.Quantity > MaxUnitsPerLine {
		return fmt.Errorf("%w: line %d: quantity exceeds %d units", ErrValidation, it.Line, MaxUnitsPerLine)
	}
	if it.UnitCost.IsNegative() {
		return fmt.Errorf("%w: line %d: unit cost must not be negative", ErrValidation, it.Line)
	}
	if !it.TotalCost.IsZero() && !it.TotalCost.Equal(it.LineTotal()) {
		return fmt.Errorf("%w: line %d: total %s does not match %d × %s",
			ErrValidation, it.Line, it.TotalCost, it.Quantity, it.UnitCost)
	}
	return nil
}

// LineTotal is quantity × unit cost.
func (it *PurchaseItem) LineTotal() decimal.Decimal {
	return it.UnitCost.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// ComputeTotal sums the line totals.
func ComputeTotal(items []PurchaseItem) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		total = total.Add(items[i].LineTotal())
	}
	return total
}

// UnitCount is the number of assets receiving the purchase produces.
func (p *Purchase) UnitCount() int {
	n := 0
	for _, it := range p.Items {
		n += it.Quantity
	}
	return n
}
