package models

type UserRole string

const (
	RoleAdmin             UserRole = "admin"
	RoleComplianceManager UserRole = "compliance_manager"
	RoleAuditor           UserRole = "auditor"
	RoleViewer            UserRole = "viewer"
)

type User struct {
	Base
	Username     string   `gorm:"uniqueIndex;size:100;not null" json:"username"`
	PasswordHash string   `gorm:"not null" json:"-"`
	Role         UserRole `gorm:"type:varchar(30);not null" json:"role"`
	FirstName    string   `gorm:"size:100" json:"first_name"`
	LastName     string   `gorm:"size:100" json:"last_name"`
}

// DisplayName falls back to the username when no name is set.
func (u User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Username
	}
	return name
}
