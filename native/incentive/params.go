package incentive

const (
	moduleName = "incentive"

	// RoleIncentiveAdmin gates incentive creation, referral table edits,
	// forced referrer assignment, and token recovery.
	RoleIncentiveAdmin = "ROLE_INCENTIVE_ADMIN"

	// BpsDenominator is the fixed denominator for basis-point rates.
	BpsDenominator = 10_000

	// MaxReferralDepth bounds the referral chain walk and sizes the tier
	// rate table.
	MaxReferralDepth = 5

	// MaxIncentiveStartLead is the farthest into the future an incentive may
	// be scheduled, in seconds.
	MaxIncentiveStartLead uint64 = 30 * 24 * 60 * 60

	// MaxIncentiveDuration caps the length of an incentive window, in seconds.
	MaxIncentiveDuration uint64 = 2 * 365 * 24 * 60 * 60
)

// ReferralRates is the ordered five-tier table of basis-point rates consumed
// positionally during the referral chain walk.
type ReferralRates [MaxReferralDepth]uint32

// DefaultReferralRates returns the launch rate table. Tier 0 is the direct
// referrer of the staker.
func DefaultReferralRates() ReferralRates {
	return ReferralRates{2500, 2000, 1500, 1000, 500}
}

// Sum returns the total basis points paid across all tiers when the chain is
// fully populated.
func (r ReferralRates) Sum() uint64 {
	var total uint64
	for _, bps := range r {
		total += uint64(bps)
	}
	return total
}

// Validate rejects tables whose total escrow requirement exceeds the whole
// reward amount.
func (r ReferralRates) Validate() error {
	for _, bps := range r {
		if bps > BpsDenominator {
			return ErrRateTooHigh
		}
	}
	if r.Sum() > BpsDenominator {
		return ErrRateTableSum
	}
	return nil
}
