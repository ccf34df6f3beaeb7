package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReferralStatus represents the state of a referral relationship
type ReferralStatus string

const (
	ReferralStatusActive   ReferralStatus = "active"
	ReferralStatusInactive ReferralStatus = "inactive"
)

// ReferralLink records who referred a user. A sales-person may themselves
// have been recruited; the recruiter earns a share of the sales-person's
// commission pool.
type ReferralLink struct {
	ID            string         `json:"id" db:"id"`
	UserID        string         `json:"user_id" db:"user_id"`
	SalesPersonID string         `json:"sales_person_id" db:"sales_person_id"`
	RecruiterID   *string        `json:"recruiter_id,omitempty" db:"recruiter_id"`
	Status        ReferralStatus `json:"status" db:"status"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
}

// CommissionRole identifies a beneficiary's place in the referral tier
type CommissionRole string

const (
	CommissionRoleSalesPerson CommissionRole = "sales_person"
	CommissionRoleRecruiter   CommissionRole = "recruiter"
)

// PayoutStatus tracks whether a commission row has been paid out
type PayoutStatus string

const (
	PayoutStatusPending PayoutStatus = "pending"
	PayoutStatusPaid    PayoutStatus = "paid"
)

// SalesCommission is one ledger row per (booking, beneficiary) recording a
// referral payout. Rows are created at payment-success time only and are
// immutable afterwards except for the payout status.
type SalesCommission struct {
	ID            string          `json:"id" db:"id"`
	BookingID     string          `json:"booking_id" db:"booking_id"`
	BeneficiaryID string          `json:"beneficiary_id" db:"beneficiary_id"`
	Role          CommissionRole  `json:"role" db:"role"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Payout        PayoutStatus    `json:"payout_status" db:"payout_status"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// CommissionAllocation is one beneficiary's deterministic share of a
// booking's referral pool, before persistence.
type CommissionAllocation struct {
	BeneficiaryID string          `json:"beneficiary_id"`
	Role          CommissionRole  `json:"role"`
	Amount        decimal.Decimal `json:"amount"`
}
