package sql

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"easemyday/internal/configuration"
	apierrors "easemyday/internal/errors"
	h "easemyday/internal/helpers"
	"easemyday/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListStudyGroups returns the groups userID belongs to, with the caller's role.
func ListStudyGroups(db *gorm.DB, userID string) ([]models.StudyGroupWithRole, error) {
	groups := []models.StudyGroupWithRole{}
	err := db.Table("study_groups").
		Select("study_groups.*, group_members.role AS member_role").
		Joins("JOIN group_members ON group_members.group_id = study_groups.id").
		Where("group_members.user_id = ?", userID).
		Order("study_groups.created_at DESC").
		Scan(&groups).Error
	return groups, err
}

const inviteCodeAttempts = 3

var newInviteCode = func() (string, error) {
	return h.GenerateInviteCode(configuration.InviteCodeLength)
}

// CreateStudyGroup creates the group and makes userID its owner. An invite
// code that is already taken is drawn again.
func CreateStudyGroup(db *gorm.DB, userID string, body models.StudyGroupBody) (models.StudyGroupWithRole, error) {
	for attempt := 1; ; attempt++ {
		group, err := createStudyGroup(db, userID, body)
		if errors.Is(err, gorm.ErrDuplicatedKey) && attempt < inviteCodeAttempts {
			continue
		}
		return group, err
	}
}

func createStudyGroup(db *gorm.DB, userID string, body models.StudyGroupBody) (models.StudyGroupWithRole, error) {
	inviteCode, err := newInviteCode()
	if err != nil {
		return models.StudyGroupWithRole{}, fmt.Errorf("failed to generate invite code: %w", err)
	}

	group := models.StudyGroup{
		Name:        body.Name,
		Description: body.Description,
		InviteCode:  inviteCode,
		CreatedBy:   userID,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		return tx.Create(&models.GroupMember{GroupID: group.ID, UserID: userID, Role: models.GroupRoleOwner}).Error
	})
	if err != nil {
		return models.StudyGroupWithRole{}, err
	}

	return models.StudyGroupWithRole{StudyGroup: group, MemberRole: models.GroupRoleOwner}, nil
}

func JoinStudyGroup(db *gorm.DB, userID string, inviteCode string) (models.StudyGroupWithRole, error) {
	var group models.StudyGroup
	err := db.Where("invite_code = ?", strings.ToUpper(inviteCode)).First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.StudyGroupWithRole{}, apierrors.NewAPIError(http.StatusNotFound, apierrors.ErrInvalidInviteCode)
	}
	if err != nil {
		return models.StudyGroupWithRole{}, err
	}

	member, err := isMember(db, group.ID, userID)
	if err != nil {
		return models.StudyGroupWithRole{}, err
	}
	if member {
		return models.StudyGroupWithRole{}, apierrors.NewAPIError(http.StatusConflict, apierrors.ErrAlreadyMember)
	}

	err = db.Create(&models.GroupMember{GroupID: group.ID, UserID: userID, Role: models.GroupRoleMember}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return models.StudyGroupWithRole{}, apierrors.NewAPIError(http.StatusConflict, apierrors.ErrAlreadyMember)
	}
	if err != nil {
		return models.StudyGroupWithRole{}, err
	}

	return models.StudyGroupWithRole{StudyGroup: group, MemberRole: models.GroupRoleMember}, nil
}

// ListGroupTasks is restricted to members; other callers get NOT_FOUND.
func ListGroupTasks(db *gorm.DB, userID string, groupID uuid.UUID) ([]models.GroupTask, error) {
	member, err := isMember(db, groupID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apierrors.NewAPIError(http.StatusNotFound, apierrors.ErrNotFound)
	}

	tasks := []models.GroupTask{}
	err = db.Where("group_id = ?", groupID).Order("due_date ASC").Find(&tasks).Error
	return tasks, err
}

func isMember(db *gorm.DB, groupID uuid.UUID, userID string) (bool, error) {
	var count int64
	err := db.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	return count > 0, err
}
