package model

import "testing"

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		role     string
		minimum  string
		expected bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleCommander, true},
		{RoleAdmin, RoleOfficer, true},
		{RoleCommander, RoleAdmin, false},
		{RoleCommander, RoleCommander, true},
		{RoleCommander, RoleOfficer, true},
		{RoleOfficer, RoleAdmin, false},
		{RoleOfficer, RoleCommander, false},
		{RoleOfficer, RoleOfficer, true},
		// Unknown roles fail-closed.
		{"unknown", RoleOfficer, false},
		{RoleAdmin, "unknown", false},
		{"", "", false},
		{"", RoleOfficer, false},
	}

	for _, tt := range tests {
		got := RoleAtLeast(tt.role, tt.minimum)
		if got != tt.expected {
			t.Errorf("RoleAtLeast(%q, %q) = %v, want %v", tt.role, tt.minimum, got, tt.expected)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"1234567", true},
		{"12345678", false},
		{"a-valid-password", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}

func TestHomeBase(t *testing.T) {
	var u User
	if u.HomeBase() != 0 {
		t.Errorf("expected 0 for user without base, got %d", u.HomeBase())
	}
	id := int64(7)
	u.BaseID = &id
	if u.HomeBase() != 7 {
		t.Errorf("expected 7, got %d", u.HomeBase())
	}
}
