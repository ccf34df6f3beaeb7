package services

import (
	"github.com/shopspring/decimal"
	"github.com/swiftbus/booking-backend/internal/models"
)

// Commission policy. All rates live here so the multi-tier policy can be
// changed in one place and property-tested for rounding behaviour.
var (
	// platformCommissionRate is charged on top of the ticket amount; the
	// operator always receives the full ticket amount.
	platformCommissionRate = decimal.NewFromFloat(0.05)
	// commissionVATRate applies to the platform commission, not the fare.
	commissionVATRate = decimal.NewFromFloat(0.15)
	// referralPoolRate is the slice of the platform commission paid out
	// to an active referrer.
	referralPoolRate = decimal.NewFromFloat(0.05)
	// salesPersonShare splits the referral pool 70/30 between the
	// sales-person and their recruiter, when one exists.
	salesPersonShare = decimal.NewFromFloat(0.70)
)

// CommissionBreakdown is the priced view of one ticket amount. The
// passenger pays Total; the operator receives TicketAmount.
type CommissionBreakdown struct {
	TicketAmount   decimal.Decimal `json:"ticket_amount"`
	BaseCommission decimal.Decimal `json:"base_commission"`
	VAT            decimal.Decimal `json:"vat"`
	Total          decimal.Decimal `json:"total"`
}

// CalculateCommission prices an online sale. Pure and deterministic:
// identical inputs always return identical amounts, which settlement
// relies on for its server-side recomputation check.
func CalculateCommission(ticketAmount decimal.Decimal) CommissionBreakdown {
	base := ticketAmount.Mul(platformCommissionRate).Round(2)
	vat := base.Mul(commissionVATRate).Round(2)
	return CommissionBreakdown{
		TicketAmount:   ticketAmount,
		BaseCommission: base,
		VAT:            vat,
		Total:          ticketAmount.Add(base).Add(vat),
	}
}

// ZeroCommission prices a counter or replacement sale. Offline sales carry
// no platform fee; this is business policy, not a defect.
func ZeroCommission(ticketAmount decimal.Decimal) CommissionBreakdown {
	return CommissionBreakdown{
		TicketAmount:   ticketAmount,
		BaseCommission: decimal.Zero,
		VAT:            decimal.Zero,
		Total:          ticketAmount,
	}
}

// SplitCommission allocates the referral pool across the purchasing
// user's referral tier. No link, or a zero commission, yields no
// allocations. With a recruiter the pool splits 70/30; rounding remainder
// goes to the sales-person so allocations always sum to the exact pool.
func SplitCommission(baseCommission decimal.Decimal, link *models.ReferralLink) []models.CommissionAllocation {
	if link == nil || link.Status != models.ReferralStatusActive {
		return nil
	}
	pool := baseCommission.Mul(referralPoolRate).Round(2)
	if pool.IsZero() {
		return nil
	}

	if link.RecruiterID == nil {
		return []models.CommissionAllocation{{
			BeneficiaryID: link.SalesPersonID,
			Role:          models.CommissionRoleSalesPerson,
			Amount:        pool,
		}}
	}

	recruiterCut := pool.Mul(decimal.NewFromInt(1).Sub(salesPersonShare)).Round(2)
	return []models.CommissionAllocation{
		{
			BeneficiaryID: link.SalesPersonID,
			Role:          models.CommissionRoleSalesPerson,
			Amount:        pool.Sub(recruiterCut),
		},
		{
			BeneficiaryID: *link.RecruiterID,
			Role:          models.CommissionRoleRecruiter,
			Amount:        recruiterCut,
		},
	}
}

// PricingFor builds the per-booking pricing function from a trip's seat
// price, applying the given commission policy.
func PricingFor(pricePerSeat decimal.Decimal, calculator func(decimal.Decimal) CommissionBreakdown) func(seatCount int) models.BookingPricing {
	return func(seatCount int) models.BookingPricing {
		breakdown := calculator(pricePerSeat.Mul(decimal.NewFromInt(int64(seatCount))))
		return models.BookingPricing{
			TicketAmount:  breakdown.TicketAmount,
			Commission:    breakdown.BaseCommission,
			CommissionVAT: breakdown.VAT,
			TotalAmount:   breakdown.Total,
		}
	}
}
