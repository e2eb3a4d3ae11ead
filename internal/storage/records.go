package storage

import (
	"time"

	"github.com/magabrotheeeer/account-service/internal/models"
)

// userRecord строка таблицы users.
type userRecord struct {
	ID            string `gorm:"primaryKey;type:uuid"`
	Email         string `gorm:"uniqueIndex;not null"`
	PasswordHash  string `gorm:"not null"`
	EmailVerified bool   `gorm:"not null"`
	IsSuperuser   bool   `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (userRecord) TableName() string { return "users" }

// userRoleRecord строка таблицы user_roles.
type userRoleRecord struct {
	UserID string `gorm:"primaryKey;type:uuid"`
	Role   string `gorm:"primaryKey"`
}

func (userRoleRecord) TableName() string { return "user_roles" }

func newUserRecord(u *models.User) userRecord {
	return userRecord{
		ID:            u.ID,
		Email:         u.Email,
		PasswordHash:  u.PasswordHash,
		EmailVerified: u.EmailVerified,
		IsSuperuser:   u.IsSuperuser,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func newRoleRecords(userID string, roles []string) []userRoleRecord {
	records := make([]userRoleRecord, 0, len(roles))
	for _, r := range roles {
		records = append(records, userRoleRecord{UserID: userID, Role: r})
	}
	return records
}

func (r userRecord) toModel(roles []string) *models.User {
	u := &models.User{
		ID:            r.ID,
		Email:         r.Email,
		PasswordHash:  r.PasswordHash,
		EmailVerified: r.EmailVerified,
		IsSuperuser:   r.IsSuperuser,
		Roles:         []string{},
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	u.AddRoles(roles...)
	return u
}
