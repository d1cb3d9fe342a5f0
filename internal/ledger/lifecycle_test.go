package ledger

import (
	"errors"
	"testing"

	"ajo_ledger/internal/models"
)

func TestStartCycle(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	tg := seedGroup(t, svc, db, 3, 1000, false)

	cycle, err := svc.StartCycle(tg.Group.ID, tg.Admin.ID)
	if err != nil {
		t.Fatalf("StartCycle failed: %v", err)
	}
	if cycle.Status != models.CycleStatusActive {
		t.Errorf("status: expected active, got %s", cycle.Status)
	}
	if cycle.CurrentRound != 1 {
		t.Errorf("round: expected 1, got %d", cycle.CurrentRound)
	}
	if g := reloadGroup(t, db, tg.Group.ID); g.Status != models.GroupStatusActive {
		t.Errorf("group status: expected active, got %s", g.Status)
	}
}

func TestStartCycle_RequiresAdmin(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	tg := seedGroup(t, svc, db, 2, 500, false)

	_, err := svc.StartCycle(tg.Group.ID, tg.Members[1].ID)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-admin, got %v", err)
	}
}

func TestStartCycle_InsufficientMembers(t *testing.T) {
	svc, db, _, _ := newTestService(t)

	admin := createUser(t, db, "lonely-admin")
	group, err := svc.CreateGroup(admin.ID, GroupInput{
		Name:               "Underfilled",
		ContributionAmount: 500,
		TotalMembers:       3,
	})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	_, err = svc.StartCycle(group.ID, admin.ID)
	if !errors.Is(err, ErrInsufficientApprovedMembers) {
		t.Fatalf("expected ErrInsufficientApprovedMembers, got %v", err)
	}
}

// At most one active cycle per group, ever.
func TestStartCycle_OnlyOneActive(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	tg := seedGroup(t, svc, db, 2, 500, false)

	if _, err := svc.StartCycle(tg.Group.ID, tg.Admin.ID); err != nil {
		t.Fatalf("StartCycle failed: %v", err)
	}
	_, err := svc.StartCycle(tg.Group.ID, tg.Admin.ID)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on second start, got %v", err)
	}

	var n int64
	db.Model(&models.Cycle{}).
		Where("group_id = ? AND status = ?", tg.Group.ID, models.CycleStatusActive).
		Count(&n)
	if n != 1 {
		t.Errorf("expected exactly 1 active cycle, got %d", n)
	}
}

// Without force, a mid-rotation cycle comes back as a warning, not a close.
func TestEndCycle_WarnsWhileRunning(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	tg := seedGroup(t, svc, db, 3, 1000, false)

	cycle, err := svc.StartCycle(tg.Group.ID, tg.Admin.ID)
	if err != nil {
		t.Fatalf("StartCycle failed: %v", err)
	}
	if _, err := svc.RecordContribution(tg.Members[0].ID, tg.Group.ID, 1000, "", "direct"); err != nil {
		t.Fatalf("contribution failed: %v", err)
	}

	result, err := svc.EndCycle(tg.Group.ID, tg.Admin.ID, false)
	if err != nil {
		t.Fatalf("EndCycle failed: %v", err)
	}
	if result.Ended {
		t.Fatal("cycle must not close without force while members are unpaid")
	}
	if result.Warning == "" {
		t.Error("expected a warning describing remaining members")
	}
	if len(result.UnpaidMemberIDs) != 3 {
		t.Errorf("expected 3 unpaid members, got %d", len(result.UnpaidMemberIDs))
	}

	if c := reloadCycle(t, db, cycle.ID); c.Status != models.CycleStatusActive {
		t.Errorf("cycle must stay active after a warning, got %s", c.Status)
	}
}

func TestEndCycle_Force(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	tg := seedGroup(t, svc, db, 3, 1000, false)

	cycle, err := svc.StartCycle(tg.Group.ID, tg.Admin.ID)
	if err != nil {
		t.Fatalf("StartCycle failed: %v", err)
	}

	result, err := svc.EndCycle(tg.Group.ID, tg.Admin.ID, true)
	if err != nil {
		t.Fatalf("forced EndCycle failed: %v", err)
	}
	if !result.Ended {
		t.Fatal("forced end must close the cycle")
	}

	if c := reloadCycle(t, db, cycle.ID); c.Status != models.CycleStatusCompleted {
		t.Errorf("cycle status: expected completed, got %s", c.Status)
	}
	if g := reloadGroup(t, db, tg.Group.ID); g.Status != models.GroupStatusCompleted {
		t.Errorf("group status: expected completed, got %s", g.Status)
	}
}

func TestEndCycle_NoActiveCycle(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	tg := seedGroup(t, svc, db, 2, 500, false)

	_, err := svc.EndCycle(tg.Group.ID, tg.Admin.ID, false)
	if !errors.Is(err, ErrNoActiveCycle) {
		t.Fatalf("expected ErrNoActiveCycle, got %v", err)
	}
}

func TestGetRoundProgress(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	tg := seedGroup(t, svc, db, 3, 1000, false)

	if _, err := svc.StartCycle(tg.Group.ID, tg.Admin.ID); err != nil {
		t.Fatalf("StartCycle failed: %v", err)
	}
	if _, err := svc.RecordContribution(tg.Members[1].ID, tg.Group.ID, 1000, "", "direct"); err != nil {
		t.Fatalf("contribution failed: %v", err)
	}

	progress, err := svc.GetRoundProgress(tg.Admin.ID, tg.Group.ID)
	if err != nil {
		t.Fatalf("GetRoundProgress failed: %v", err)
	}
	if progress.Round != 1 {
		t.Errorf("round: expected 1, got %d", progress.Round)
	}
	if len(progress.ContributedUserIDs) != 1 || progress.ContributedUserIDs[0] != tg.Members[1].ID {
		t.Errorf("contributed: expected [%d], got %v", tg.Members[1].ID, progress.ContributedUserIDs)
	}
	if len(progress.PendingContributors) != 2 {
		t.Errorf("pending: expected 2, got %d", len(progress.PendingContributors))
	}
	if progress.ExpectedMembers != 3 {
		t.Errorf("expected members: expected 3, got %d", progress.ExpectedMembers)
	}
}
