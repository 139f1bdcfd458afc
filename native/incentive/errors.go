package incentive

import "errors"

var (
	ErrUnauthorized        = errors.New("incentive: unauthorized")
	ErrInvalidReward       = errors.New("incentive: reward must be positive")
	ErrInvalidTimeWindow   = errors.New("incentive: invalid time window")
	ErrIncentiveNotFound   = errors.New("incentive: incentive not found")
	ErrIncentiveNotStarted = errors.New("incentive: incentive not started")
	ErrIncentiveEnded      = errors.New("incentive: incentive ended")
	ErrIncentiveNotEnded   = errors.New("incentive: incentive not ended")
	ErrIncentiveActive     = errors.New("incentive: active stakes remain")
	ErrNoRefund            = errors.New("incentive: no refund available")
	ErrDepositNotFound     = errors.New("incentive: deposit not found")
	ErrDepositExists       = errors.New("incentive: deposit already exists")
	ErrDepositActive       = errors.New("incentive: deposit has active stakes")
	ErrAlreadyStaked       = errors.New("incentive: position already staked")
	ErrStakeNotFound       = errors.New("incentive: stake not found")
	ErrStakeLocked         = errors.New("incentive: minimum stake duration not met")
	ErrPoolMismatch        = errors.New("incentive: position pool mismatch")
	ErrZeroLiquidity       = errors.New("incentive: position has no liquidity")
	ErrLiquidityTooWide    = errors.New("incentive: liquidity exceeds 128 bits")
	ErrReferrerExists      = errors.New("incentive: referrer already set")
	ErrReferrerNotEligible = errors.New("incentive: referrer not registered")
	ErrSelfReferral        = errors.New("incentive: self referral")
	ErrReferralCycle       = errors.New("incentive: referral cycle")
	ErrNoDeposit           = errors.New("incentive: account holds no deposit")
	ErrRateTier            = errors.New("incentive: referral tier out of range")
	ErrRateTooHigh         = errors.New("incentive: referral rate too high")
	ErrRateTableSum        = errors.New("incentive: referral table exceeds denominator")

	// ErrInvariant marks arithmetic that should be unreachable given the
	// reward cap. It is checked, never silently wrapped.
	ErrInvariant = errors.New("incentive: invariant violation")
)
