package users

import (
	"strings"
	"time"
)

// AdminAccount records an email address that has signed in to the admin panel.
type AdminAccount struct {
	ID          string    `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	Email       string    `gorm:"column:email;size:320;not null;uniqueIndex" json:"email"`
	DisplayName string    `gorm:"column:display_name;size:320" json:"display_name"`
	LoginCount  int       `gorm:"column:login_count;not null;default:0" json:"login_count"`
	LastLoginAt time.Time `gorm:"column:last_login_at" json:"last_login_at"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName exposes the table backing admin accounts.
func (AdminAccount) TableName() string {
	return "admin_accounts"
}

func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// displayNameFor derives a display name from the local part of an address.
func displayNameFor(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
