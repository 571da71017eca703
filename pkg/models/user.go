package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a member of a company. Credentials live with the identity
// provider; this row only carries profile, role and status.
type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	CompanyID uuid.UUID `db:"company_id" json:"companyId"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Role      Role      `db:"role" json:"role"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// TableName returns the database table name
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user administers a company or the platform
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}
