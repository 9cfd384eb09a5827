package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Asset is a single physical, individually tracked item.
type Asset struct {
	ID          int64      `json:"id"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	Category    string     `json:"category"`
	Specs       Specs      `json:"specifications"`
	BaseID      int64      `json:"base_id"`
	Status      string     `json:"status"`
	CustodianID *int64     `json:"custodian_id,omitempty"`
	Provenance  Provenance `json:"provenance"`
	PhotoMime   string     `json:"photo_mime,omitempty"`
	Version     int64      `json:"version"`
	// RetiredAt is when the asset was expended or decommissioned.
	RetiredAt *time.Time `json:"retired_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Joined fields (not always populated).
	BaseName string `json:"base_name,omitempty"`
}

// Specs is the free-form specification bag of an asset or purchase line.
type Specs struct {
	Model        string `json:"model,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Year         int    `json:"year,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Caliber      string `json:"caliber,omitempty"`
	Capacity     string `json:"capacity,omitempty"`
	Weight       string `json:"weight,omitempty"`
	Dimensions   string `json:"dimensions,omitempty"`
}

// Value stores specs as a JSON document.
func (s Specs) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan reads specs from a JSON document.
func (s *Specs) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = Specs{}
		return nil
	case string:
		return json.Unmarshal([]byte(v), s)
	case []byte:
		return json.Unmarshal(v, s)
	}
	return fmt.Errorf("cannot scan %T into Specs", src)
}

// Provenance holds the purchase facts stamped on an asset when it is created.
// It is written once and never re-derived.
type Provenance struct {
	PurchaseID   int64           `json:"purchase_id"`
	PurchaseCode string          `json:"purchase_code"`
	Date         time.Time       `json:"date"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Supplier     string          `json:"supplier"`
	OrderNumber  string          `json:"order_number"`
}

// Asset types.
const (
	AssetTypeVehicle    = "vehicle"
	AssetTypeWeapon     = "weapon"
	AssetTypeAmmunition = "ammunition"
	AssetTypeEquipment  = "equipment"
)

// Asset statuses.
const (
	AssetStatusAvailable      = "available"
	AssetStatusAssigned       = "assigned"
	AssetStatusMaintenance    = "maintenance"
	AssetStatusDecommissioned = "decommissioned"
	AssetStatusExpended       = "expended"
)

// ValidAssetType reports whether t is a known asset type.
func ValidAssetType(t string) bool {
	switch t {
	case AssetTypeVehicle, AssetTypeWeapon, AssetTypeAmmunition, AssetTypeEquipment:
		return true
	}
	return false
}

// AssetTypePrefix is the short code used in generated asset codes.
func AssetTypePrefix(t string) string {
	switch t {
	case AssetTypeVehicle:
		return "VEH"
	case AssetTypeWeapon:
		return "WPN"
	case AssetTypeAmmunition:
		return "AMM"
	default:
		return "EQP"
	}
}

// Asset events accepted by ApplyTransition.
const (
	EventAssign       = "assign"
	EventRelease      = "release"
	EventExpend       = "expend"
	EventLose         = "lose"
	EventDamage       = "damage"
	EventRelocate     = "relocate"
	EventMaintain     = "maintain"
	EventRestore      = "restore"
	EventDecommission = "decommission"
)

// AssetEvent is a requested change to an asset's lifecycle state.
type AssetEvent struct {
	Kind string
	// Custodian is the user receiving the asset (assign only).
	Custodian int64
	// BaseID is the destination base (relocate only).
	BaseID int64
}

// assetTransitions maps an event to the statuses it may start from and the
// status it produces.
var assetTransitions = map[string]struct {
	from []string
	to   string
}{
	EventAssign:       {[]string{AssetStatusAvailable}, AssetStatusAssigned},
	EventRelease:      {[]string{AssetStatusAssigned}, AssetStatusAvailable},
	EventExpend:       {[]string{AssetStatusAssigned}, AssetStatusExpended},
	EventLose:         {[]string{AssetStatusAssigned}, AssetStatusDecommissioned},
	EventDamage:       {[]string{AssetStatusAssigned}, AssetStatusMaintenance},
	EventRelocate:     {[]string{AssetStatusAvailable}, AssetStatusAvailable},
	EventMaintain:     {[]string{AssetStatusAvailable}, AssetStatusMaintenance},
	EventRestore:      {[]string{AssetStatusMaintenance}, AssetStatusAvailable},
	EventDecommission: {[]string{AssetStatusAvailable, AssetStatusMaintenance}, AssetStatusDecommissioned},
}

// ApplyTransition returns the asset as it would be after ev, or an error
// wrapping ErrInvalidState when ev is not allowed from the current status.
// The input is never modified and Version is left for the store to advance.
func ApplyTransition(a Asset, ev AssetEvent) (Asset, error) {
	tr, ok := assetTransitions[ev.Kind]
	if !ok {
		return a, fmt.Errorf("%w: unknown asset event %q", ErrValidation, ev.Kind)
	}

	allowed := false
	for _, s := range tr.from {
		if a.Status == s {
			allowed = true
			break
		}
	}
	if !allowed && a.Terminal() {
		return a, fmt.Errorf("%w: asset %s is %s and retired from the registry", ErrInvalidState, a.Code, a.Status)
	}
	if !allowed {
		return a, fmt.Errorf("%w: asset %s is %s, cannot %s", ErrInvalidState, a.Code, a.Status, ev.Kind)
	}

	next := a
	next.Status = tr.to
	next.CustodianID = nil

	switch ev.Kind {
	case EventAssign:
		if ev.Custodian <= 0 {
			return a, fmt.Errorf("%w: assign requires a custodian", ErrValidation)
		}
		c := ev.Custodian
		next.CustodianID = &c
	case EventRelocate:
		if ev.BaseID <= 0 {
			return a, fmt.Errorf("%w: relocate requires a destination base", ErrValidation)
		}
		next.BaseID = ev.BaseID
	}

	return next, nil
}

// CheckTransferable reports whether the asset can leave baseID on a transfer.
func (a *Asset) CheckTransferable(baseID int64) error {
	if a.Status != AssetStatusAvailable {
		return fmt.Errorf("%w: asset %s is %s", ErrInvalidState, a.Code, a.Status)
	}
	if a.BaseID != baseID {
		return fmt.Errorf("%w: asset %s is not at the source base", ErrInvalidState, a.Code)
	}
	return nil
}

// Terminal reports whether no further lifecycle event is defined for the asset.
func (a *Asset) Terminal() bool {
	return a.Status == AssetStatusExpended || a.Status == AssetStatusDecommissioned
}
