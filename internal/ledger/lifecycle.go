package ledger

import (
	"fmt"
	"time"

	logrus "github.com/sirupsen/logrus"

	"ajo_ledger/internal/models"
)

// StartCycle opens a new cycle for the group: first recipient assigned,
// round 1 active, group flipped active. Requires the full member count to be
// approved and no cycle currently active.
func (s *Service) StartCycle(groupID, adminID uint) (*models.Cycle, error) {
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	var group models.Group
	if err := lockForUpdate(tx).First(&group, groupID).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("%w: group %d", ErrNotFound, groupID)
	}
	if _, err := requireGroupAdmin(tx, adminID, groupID); err != nil {
		tx.Rollback()
		return nil, err
	}

	var active int64
	err := tx.Model(&models.Cycle{}).
		Where("group_id = ? AND status = ?", groupID, models.CycleStatusActive).
		Count(&active).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if active > 0 {
		tx.Rollback()
		return nil, fmt.Errorf("%w: a cycle is already active", ErrConflict)
	}

	memberCount, err := activeMemberCount(tx, groupID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if int(memberCount) < group.TotalMembers {
		tx.Rollback()
		return nil, fmt.Errorf("%w: %d of %d approved", ErrInsufficientApprovedMembers, memberCount, group.TotalMembers)
	}

	// Fresh rotation: nobody has been paid yet this cycle.
	err = tx.Model(&models.Membership{}).
		Where("group_id = ?", groupID).
		Update("has_received_payout", false).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	members, err := orderedActiveMemberships(tx, groupID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if len(members) == 0 {
		tx.Rollback()
		return nil, ErrInsufficientApprovedMembers
	}
	first := members[0]

	now := time.Now()
	cycle := models.Cycle{
		GroupID:             groupID,
		CurrentRound:        1,
		ActiveMemberID:      first.ID,
		Status:              models.CycleStatusActive,
		StartDate:           now,
		CurrentRoundStartAt: now,
	}
	if err := tx.Create(&cycle).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	group.Status = models.GroupStatusActive
	if err := tx.Save(&group).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"group_id": groupID, "cycle_id": cycle.ID}).Info("cycle started")
	s.notifyMembers(&group, "Cycle started",
		fmt.Sprintf("<p>The savings cycle for <b>%s</b> has started. Round 1 contributions of %.2f are now due.</p>",
			group.Name, group.ContributionAmount))
	return &cycle, nil
}

// EndCycleResult distinguishes a closed cycle from a refusal-with-warning.
type EndCycleResult struct {
	Ended               bool          `json:"ended"`
	Warning             string        `json:"warning,omitempty"`
	CurrentRound        int           `json:"current_round,omitempty"`
	UnpaidMemberIDs     []uint        `json:"unpaid_member_ids,omitempty"`
	PendingContributors []uint        `json:"pending_contributor_ids,omitempty"`
	Cycle               *models.Cycle `json:"cycle,omitempty"`
}

// EndCycle closes the group's active cycle. Without force it refuses while
// members are still owed a payout or the current round is mid-collection,
// returning a warning payload instead of an error so the admin can decide.
func (s *Service) EndCycle(groupID, adminID uint, force bool) (*EndCycleResult, error) {
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	group, err := loadGroup(tx, groupID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if _, err := requireGroupAdmin(tx, adminID, groupID); err != nil {
		tx.Rollback()
		return nil, err
	}
	cycle, err := activeCycleLocked(tx, groupID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if !force {
		var unpaid []models.Membership
		err = tx.Where("group_id = ? AND status = ? AND has_received_payout = ?",
			groupID, models.MembershipStatusActive, false).
			Find(&unpaid).Error
		if err != nil {
			tx.Rollback()
			return nil, err
		}

		contributed, err := roundContributionCount(tx, cycle)
		if err != nil {
			tx.Rollback()
			return nil, err
		}

		if len(unpaid) > 0 || contributed > 0 {
			tx.Rollback()
			result := &EndCycleResult{
				Ended:        false,
				CurrentRound: cycle.CurrentRound,
				Warning: fmt.Sprintf("%d member(s) have not received a payout and round %d has %d contribution(s) pending settlement; pass force to close anyway",
					len(unpaid), cycle.CurrentRound, contributed),
			}
			for _, m := range unpaid {
				result.UnpaidMemberIDs = append(result.UnpaidMemberIDs, m.ID)
			}
			pending, err := s.pendingContributors(cycle)
			if err == nil {
				result.PendingContributors = pending
			}
			return result, nil
		}
	}

	now := time.Now()
	cycle.Status = models.CycleStatusCompleted
	cycle.EndDate = &now
	if err := tx.Save(cycle).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	group.Status = models.GroupStatusCompleted
	if err := tx.Save(group).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"group_id": groupID, "cycle_id": cycle.ID, "forced": force}).Info("cycle ended")
	s.notifyMembers(group, "Cycle ended",
		fmt.Sprintf("<p>The savings cycle for <b>%s</b> has been closed by the group admin.</p>", group.Name))
	return &EndCycleResult{Ended: true, Cycle: cycle}, nil
}

// RoundProgress describes where the active cycle stands for display.
type RoundProgress struct {
	Cycle               *models.Cycle `json:"cycle"`
	Round               int           `json:"round"`
	ActiveMemberID      uint          `json:"active_member_id"`
	ContributedUserIDs  []uint        `json:"contributed_user_ids"`
	PendingContributors []uint        `json:"pending_contributor_ids"`
	ExpectedMembers     int64         `json:"expected_members"`
}

// GetRoundProgress reports who has and hasn't contributed to the current
// round. Caller must be an active member.
func (s *Service) GetRoundProgress(userID, groupID uint) (*RoundProgress, error) {
	if _, err := activeMembership(s.db, userID, groupID); err != nil {
		return nil, err
	}
	cycle, err := activeCycleLocked(s.db, groupID)
	if err != nil {
		return nil, err
	}

	var contributions []models.Contribution
	err = s.db.Where("cycle_id = ? AND round_number = ? AND status IN ?",
		cycle.ID, cycle.CurrentRound, qualifyingStatuses).
		Find(&contributions).Error
	if err != nil {
		return nil, err
	}
	contributed := make(map[uint]bool, len(contributions))
	progress := &RoundProgress{
		Cycle:          cycle,
		Round:          cycle.CurrentRound,
		ActiveMemberID: cycle.ActiveMemberID,
	}
	for _, c := range contributions {
		contributed[c.UserID] = true
		progress.ContributedUserIDs = append(progress.ContributedUserIDs, c.UserID)
	}

	members, err := orderedActiveMemberships(s.db, groupID)
	if err != nil {
		return nil, err
	}
	progress.ExpectedMembers = int64(len(members))
	for _, m := range members {
		if !contributed[m.UserID] {
			progress.PendingContributors = append(progress.PendingContributors, m.UserID)
		}
	}
	return progress, nil
}

func (s *Service) pendingContributors(cycle *models.Cycle) ([]uint, error) {
	var contributions []models.Contribution
	err := s.db.Where("cycle_id = ? AND round_number = ? AND status IN ?",
		cycle.ID, cycle.CurrentRound, qualifyingStatuses).
		Find(&contributions).Error
	if err != nil {
		return nil, err
	}
	contributed := make(map[uint]bool, len(contributions))
	for _, c := range contributions {
		contributed[c.UserID] = true
	}

	members, err := orderedActiveMemberships(s.db, cycle.GroupID)
	if err != nil {
		return nil, err
	}
	var pending []uint
	for _, m := range members {
		if !contributed[m.UserID] {
			pending = append(pending, m.UserID)
		}
	}
	return pending, nil
}
