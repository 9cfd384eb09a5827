package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BaseSummary is the movement and holdings of one base over a period,
// optionally narrowed to one asset type.
type BaseSummary struct {
	BaseID    int64      `json:"base_id"`
	AssetType string     `json:"asset_type,omitempty"`
	From      *time.Time `json:"from,omitempty"`
	To        *time.Time `json:"to,omitempty"`

	// OpeningBalance and ClosingBalance count in-service assets at the
	// start and end of the period. Opening plus net movement less
	// retirements equals closing.
	OpeningBalance int `json:"opening_balance"`
	ClosingBalance int `json:"closing_balance"`

	AssetsByStatus map[string]int `json:"assets_by_status"`
	AssetsByType   map[string]int `json:"assets_by_type"`

	PurchasedUnits int             `json:"purchased_units"`
	PurchasedValue decimal.Decimal `json:"purchased_value"`
	TransferredIn  int             `json:"transferred_in"`
	TransferredOut int             `json:"transferred_out"`
	// NetMovement is purchases plus transfers in minus transfers out.
	NetMovement   int `json:"net_movement"`
	RetiredAssets int `json:"retired_assets"`

	MovementByType map[string]Movement `json:"movement_by_type"`

	ActiveAssignments int `json:"active_assignments"`
	ExpendedAssets    int `json:"expended_assets"`
}

// Movement is the flow of one asset type through a base.
type Movement struct {
	Purchased      int             `json:"purchased"`
	PurchasedValue decimal.Decimal `json:"purchased_value"`
	TransferredIn  int             `json:"transferred_in"`
	TransferredOut int             `json:"transferred_out"`
	// Retired counts assets expended or decommissioned at the base.
	Retired int `json:"retired"`
}

// Net is purchases plus transfers in minus transfers out.
func (m Movement) Net() int {
	return m.Purchased + m.TransferredIn - m.TransferredOut
}

// Add returns the sum of m and o.
func (m Movement) Add(o Movement) Movement {
	return Movement{
		Purchased:      m.Purchased + o.Purchased,
		PurchasedValue: m.PurchasedValue.Add(o.PurchasedValue),
		TransferredIn:  m.TransferredIn + o.TransferredIn,
		TransferredOut: m.TransferredOut + o.TransferredOut,
		Retired:        m.Retired + o.Retired,
	}
}

// InService reports whether an asset in status still counts toward a
// base's balance.
func InService(status string) bool {
	switch status {
	case AssetStatusAvailable, AssetStatusAssigned, AssetStatusMaintenance:
		return true
	}
	return false
}
