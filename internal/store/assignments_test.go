package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/arsenal/internal/db"
	"github.com/erazemk/arsenal/internal/model"
)

func newAssignment(code string, a *model.Asset, assignee, by int64) *model.Assignment {
	return &model.Assignment{
		Code: code, AssetID: a.ID, AssigneeID: assignee, AssignedBy: by, BaseID: a.BaseID,
		AssignedAt: testTime, Status: model.AssignmentStatusActive, Purpose: "patrol",
		Mission:           model.Mission{Name: "Nightwatch", Code: "NW-1"},
		ConditionAssigned: model.ConditionGood,
	}
}

func TestInsertAndGetAssignment(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	base := seedBase(t, database, "Alpha")
	officer := seedUser(t, database, "officer", model.RoleOfficer, base.ID)
	a := seedAsset(t, database, "WPN-1", base.ID, officer.ID)

	id, err := InsertAssignment(ctx, database, newAssignment("AS-1", a, officer.ID, officer.ID))
	if err != nil {
		t.Fatalf("InsertAssignment: %v", err)
	}

	got, err := GetAssignment(ctx, database, id)
	if err != nil {
		t.Fatalf("GetAssignment: %v", err)
	}
	if got.AssetCode != "WPN-1" || got.AssigneeName != "officer" {
		t.Errorf("unexpected joined fields: %q %q", got.AssetCode, got.AssigneeName)
	}
	if got.Mission.Code != "NW-1" || got.Expenditure != nil {
		t.Errorf("unexpected assignment: %+v", got)
	}
}

func TestSecondActiveAssignmentIsConflict(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	base := seedBase(t, database, "Alpha")
	officer := seedUser(t, database, "officer", model.RoleOfficer, base.ID)
	a := seedAsset(t, database, "WPN-1", base.ID, officer.ID)

	InsertAssignment(ctx, database, newAssignment("AS-1", a, officer.ID, officer.ID))
	_, err := InsertAssignment(ctx, database, newAssignment("AS-2", a, officer.ID, officer.ID))
	if !errors.Is(err, model.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	n, _ := CountActiveAssignments(ctx, database, a.ID)
	if n != 1 {
		t.Errorf("expected 1 active assignment, got %d", n)
	}
}

func TestCloseAssignmentWithExpenditure(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	base := seedBase(t, database, "Alpha")
	officer := seedUser(t, database, "officer", model.RoleOfficer, base.ID)
	witness := seedUser(t, database, "witness", model.RoleOfficer, base.ID)
	a := seedAsset(t, database, "WPN-1", base.ID, officer.ID)

	s := newAssignment("AS-1", a, officer.ID, officer.ID)
	id, _ := InsertAssignment(ctx, database, s)
	s.ID = id
	s.Status = model.AssignmentStatusExpended
	s.Expenditure = &model.Expenditure{
		At: testTime, By: officer.ID, Reason: "lost in field", Location: "Sector 4", WitnessID: &witness.ID,
	}
	if err := CloseAssignment(ctx, database, s); err != nil {
		t.Fatalf("CloseAssignment: %v", err)
	}

	got, _ := GetAssignment(ctx, database, id)
	if got.Status != model.AssignmentStatusExpended {
		t.Errorf("expected expended, got %s", got.Status)
	}
	if got.Expenditure == nil || got.Expenditure.Reason != "lost in field" {
		t.Fatalf("expected expenditure, got %+v", got.Expenditure)
	}
	if got.Expenditure.WitnessID == nil || *got.Expenditure.WitnessID != witness.ID {
		t.Errorf("expected witness %d, got %v", witness.ID, got.Expenditure.WitnessID)
	}

	// Closing again loses the compare-and-set.
	if err := CloseAssignment(ctx, database, s); !errors.Is(err, model.ErrConflict) {
		t.Errorf("expected ErrConflict closing twice, got %v", err)
	}
	if err := UpdateActiveAssignment(ctx, database, s); !errors.Is(err, model.ErrConflict) {
		t.Errorf("expected ErrConflict updating closed assignment, got %v", err)
	}

	// The asset may be assigned again once the previous assignment is closed.
	if _, err := InsertAssignment(ctx, database, newAssignment("AS-2", a, officer.ID, officer.ID)); err != nil {
		t.Errorf("expected new assignment after close, got %v", err)
	}
}

func TestListAssignmentsFiltered(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	base := seedBase(t, database, "Alpha")
	o1 := seedUser(t, database, "o1", model.RoleOfficer, base.ID)
	o2 := seedUser(t, database, "o2", model.RoleOfficer, base.ID)
	a1 := seedAsset(t, database, "WPN-1", base.ID, o1.ID)
	a2 := seedAsset(t, database, "WPN-2", base.ID, o1.ID)

	InsertAssignment(ctx, database, newAssignment("AS-1", a1, o1.ID, o1.ID))
	InsertAssignment(ctx, database, newAssignment("AS-2", a2, o2.ID, o1.ID))

	byAssignee, _ := ListAssignments(ctx, database, AssignmentFilter{AssigneeID: o2.ID})
	if len(byAssignee) != 1 || byAssignee[0].Code != "AS-2" {
		t.Errorf("unexpected assignments for o2: %+v", byAssignee)
	}
	active, _ := ListAssignments(ctx, database, AssignmentFilter{BaseID: base.ID, Status: model.AssignmentStatusActive})
	if len(active) != 2 {
		t.Errorf("expected 2 active assignments, got %d", len(active))
	}
}
