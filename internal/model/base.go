package model

import "time"

// Base is a site that holds assets and employs personnel.
type Base struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Location  Location  `json:"location"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Location is the postal location of a base.
type Location struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

// Base statuses.
const (
	BaseStatusActive      = "active"
	BaseStatusInactive    = "inactive"
	BaseStatusMaintenance = "maintenance"
)

// ValidBaseStatus reports whether s is a known base status.
func ValidBaseStatus(s string) bool {
	switch s {
	case BaseStatusActive, BaseStatusInactive, BaseStatusMaintenance:
		return true
	}
	return false
}
