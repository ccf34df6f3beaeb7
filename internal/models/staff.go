package models

import "time"

// StaffRole distinguishes counter cashiers from company admins
type StaffRole string

const (
	StaffRoleCashier StaffRole = "cashier"
	StaffRoleAdmin   StaffRole = "company_admin"
)

// StaffUser is a company employee allowed to record counter and
// replacement sales. PINHash is a bcrypt hash of the cashier PIN entered
// on every cash sale.
type StaffUser struct {
	ID        string    `json:"id" db:"id"`
	CompanyID string    `json:"company_id" db:"company_id"`
	FullName  string    `json:"full_name" db:"full_name"`
	Role      StaffRole `json:"role" db:"role"`
	PINHash   string    `json:"-" db:"pin_hash"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
