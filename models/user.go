package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fieldlend/portfolio_backend/config"
	"github.com/fieldlend/portfolio_backend/utils"
	"gorm.io/gorm"
)

// User is the minimal account record needed for officer auto-provisioning.
// Session handling lives in an external service.
type User struct {
	ID                uint   `gorm:"primary_key" json:"id"`
	OrganizationId    string `gorm:"index;size:64;not null" json:"organization_id"`
	Username          string `gorm:"uniqueIndex;size:128;not null" json:"username"`
	OfficerExternalId string `gorm:"index;size:128" json:"officer_external_id"`
	Role              string `gorm:"size:32;not null" json:"role"`
	PasswordHash      string `gorm:"size:128" json:"-"`
	IsActive          *bool  `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// OfficerAccountExists checks for an account bound to the officer's external id.
func OfficerAccountExists(ctx context.Context, organizationId string, officerExternalId string) (bool, error) {
	db := config.GetDB()

	var count int64
	err := db.WithContext(ctx).
		Model(&User{}).
		Where("organization_id = ? AND officer_external_id = ?", organizationId, officerExternalId).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ProvisionOfficerAccount creates a loan-officer account with a temporary
// password. Returns the created username; callers surface it in the run result
// so the credential can be delivered out of band.
func ProvisionOfficerAccount(ctx context.Context, organizationId string, officerExternalId string) (string, error) {
	officerExternalId = strings.TrimSpace(officerExternalId)
	if officerExternalId == "" {
		return "", errors.New("officer external id is required")
	}

	username := strings.ToLower(organizationId + "-" + officerExternalId)
	tempPassword := utils.GenerateTempPassword(12)
	hash, err := utils.HashPassword(tempPassword)
	if err != nil {
		return "", err
	}

	user := User{
		OrganizationId:    organizationId,
		Username:          username,
		OfficerExternalId: officerExternalId,
		Role:              UserRoleLoanOfficer,
		PasswordHash:      string(hash),
		IsActive:          utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		// Concurrent provisioning of the same officer is not an error.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return username, nil
		}
		return "", err
	}
	return username, nil
}
