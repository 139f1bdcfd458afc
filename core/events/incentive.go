package events

import (
	"math/big"
	"strconv"

	"liqmine/core/types"
)

const (
	TypeIncentiveCreated    = "incentive.created"
	TypeIncentiveEnded      = "incentive.ended"
	TypeDepositTransferred  = "incentive.deposit.transferred"
	TypeDepositWithdrawn    = "incentive.deposit.withdrawn"
	TypeTokenStaked         = "incentive.staked"
	TypeTokenUnstaked       = "incentive.unstaked"
	TypeRewardClaimed       = "incentive.reward.claimed"
	TypeReferralPaid        = "incentive.referral.paid"
	TypeReferrerAdded       = "incentive.referral.added"
	TypeReferralRateUpdated = "incentive.referral.rate_updated"
	TypeIncentiveTokenSwept = "incentive.token.swept"
)

type IncentiveCreated struct {
	ID              uint64
	RewardToken     string
	Pool            [20]byte
	Funder          [20]byte
	Refundee        [20]byte
	RewardAmount    *big.Int
	ReferralReserve *big.Int
	StartTime       uint64
	EndTime         uint64
}

func (IncentiveCreated) EventType() string { return TypeIncentiveCreated }

func (e IncentiveCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeIncentiveCreated,
		Attributes: map[string]string{
			"id":              uintToString(e.ID),
			"token":           normalizeToken(e.RewardToken),
			"pool":            formatAddress(e.Pool),
			"funder":          formatAddress(e.Funder),
			"refundee":        formatAddress(e.Refundee),
			"rewardAmount":    formatAmount(e.RewardAmount),
			"referralReserve": formatAmount(e.ReferralReserve),
			"startTime":       uintToString(e.StartTime),
			"endTime":         uintToString(e.EndTime),
		},
	}
}

type IncentiveEnded struct {
	ID       uint64
	Refundee [20]byte
	Refund   *big.Int
}

func (IncentiveEnded) EventType() string { return TypeIncentiveEnded }

func (e IncentiveEnded) Event() *types.Event {
	return &types.Event{
		Type: TypeIncentiveEnded,
		Attributes: map[string]string{
			"id":       uintToString(e.ID),
			"refundee": formatAddress(e.Refundee),
			"refund":   formatAmount(e.Refund),
		},
	}
}

type DepositTransferred struct {
	PositionID uint64
	Owner      [20]byte
	TickLower  int32
	TickUpper  int32
}

func (DepositTransferred) EventType() string { return TypeDepositTransferred }

func (e DepositTransferred) Event() *types.Event {
	return &types.Event{
		Type: TypeDepositTransferred,
		Attributes: map[string]string{
			"positionId": uintToString(e.PositionID),
			"owner":      formatAddress(e.Owner),
			"tickLower":  strconv.FormatInt(int64(e.TickLower), 10),
			"tickUpper":  strconv.FormatInt(int64(e.TickUpper), 10),
		},
	}
}

type DepositWithdrawn struct {
	PositionID uint64
	Owner      [20]byte
	To         [20]byte
}

func (DepositWithdrawn) EventType() string { return TypeDepositWithdrawn }

func (e DepositWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeDepositWithdrawn,
		Attributes: map[string]string{
			"positionId": uintToString(e.PositionID),
			"owner":      formatAddress(e.Owner),
			"to":         formatAddress(e.To),
		},
	}
}

type TokenStaked struct {
	IncentiveID uint64
	PositionID  uint64
	Liquidity   *big.Int
}

func (TokenStaked) EventType() string { return TypeTokenStaked }

func (e TokenStaked) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenStaked,
		Attributes: map[string]string{
			"incentiveId": uintToString(e.IncentiveID),
			"positionId":  uintToString(e.PositionID),
			"liquidity":   formatAmount(e.Liquidity),
		},
	}
}

type TokenUnstaked struct {
	IncentiveID uint64
	PositionID  uint64
	Owner       [20]byte
	Reward      *big.Int
}

func (TokenUnstaked) EventType() string { return TypeTokenUnstaked }

func (e TokenUnstaked) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenUnstaked,
		Attributes: map[string]string{
			"incentiveId": uintToString(e.IncentiveID),
			"positionId":  uintToString(e.PositionID),
			"owner":       formatAddress(e.Owner),
			"reward":      formatAmount(e.Reward),
		},
	}
}

type RewardClaimed struct {
	Token  string
	Owner  [20]byte
	To     [20]byte
	Amount *big.Int
}

func (RewardClaimed) EventType() string { return TypeRewardClaimed }

func (e RewardClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeRewardClaimed,
		Attributes: map[string]string{
			"token":  normalizeToken(e.Token),
			"owner":  formatAddress(e.Owner),
			"to":     formatAddress(e.To),
			"amount": formatAmount(e.Amount),
		},
	}
}

type ReferralPaid struct {
	IncentiveID uint64
	Token       string
	Referrer    [20]byte
	Referee     [20]byte
	Tier        uint8
	Amount      *big.Int
}

func (ReferralPaid) EventType() string { return TypeReferralPaid }

func (e ReferralPaid) Event() *types.Event {
	return &types.Event{
		Type: TypeReferralPaid,
		Attributes: map[string]string{
			"incentiveId": uintToString(e.IncentiveID),
			"token":       normalizeToken(e.Token),
			"referrer":    formatAddress(e.Referrer),
			"referee":     formatAddress(e.Referee),
			"tier":        strconv.FormatUint(uint64(e.Tier), 10),
			"amount":      formatAmount(e.Amount),
		},
	}
}

type ReferrerAdded struct {
	Account  [20]byte
	Referrer [20]byte
	Forced   bool
}

func (ReferrerAdded) EventType() string { return TypeReferrerAdded }

func (e ReferrerAdded) Event() *types.Event {
	return &types.Event{
		Type: TypeReferrerAdded,
		Attributes: map[string]string{
			"account":  formatAddress(e.Account),
			"referrer": formatAddress(e.Referrer),
			"forced":   strconv.FormatBool(e.Forced),
		},
	}
}

type ReferralRateUpdated struct {
	Tier uint8
	Bps  uint32
}

func (ReferralRateUpdated) EventType() string { return TypeReferralRateUpdated }

func (e ReferralRateUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeReferralRateUpdated,
		Attributes: map[string]string{
			"tier": strconv.FormatUint(uint64(e.Tier), 10),
			"bps":  strconv.FormatUint(uint64(e.Bps), 10),
		},
	}
}

type IncentiveTokenSwept struct {
	Token  string
	To     [20]byte
	Amount *big.Int
}

func (IncentiveTokenSwept) EventType() string { return TypeIncentiveTokenSwept }

func (e IncentiveTokenSwept) Event() *types.Event {
	return &types.Event{
		Type: TypeIncentiveTokenSwept,
		Attributes: map[string]string{
			"token":  normalizeToken(e.Token),
			"to":     formatAddress(e.To),
			"amount": formatAmount(e.Amount),
		},
	}
}
