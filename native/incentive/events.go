package incentive

import (
	"math/big"

	"liqmine/core/events"
)

func eventIncentiveCreated(record *Incentive, funder [20]byte, reserve *big.Int) events.IncentiveCreated {
	return events.IncentiveCreated{
		ID:              record.ID,
		RewardToken:     record.Key.RewardToken,
		Pool:            record.Key.Pool,
		Funder:          funder,
		Refundee:        record.Key.Refundee,
		RewardAmount:    copyBigInt(record.TotalRewardUnclaimed),
		ReferralReserve: copyBigInt(reserve),
		StartTime:       record.Key.StartTime,
		EndTime:         record.Key.EndTime,
	}
}

func eventIncentiveEnded(record *Incentive, refund *big.Int) events.IncentiveEnded {
	return events.IncentiveEnded{
		ID:       record.ID,
		Refundee: record.Key.Refundee,
		Refund:   copyBigInt(refund),
	}
}

func eventDepositTransferred(deposit *Deposit) events.DepositTransferred {
	return events.DepositTransferred{
		PositionID: deposit.PositionID,
		Owner:      deposit.Owner,
		TickLower:  deposit.TickLower,
		TickUpper:  deposit.TickUpper,
	}
}

func eventDepositWithdrawn(deposit *Deposit, to [20]byte) events.DepositWithdrawn {
	return events.DepositWithdrawn{
		PositionID: deposit.PositionID,
		Owner:      deposit.Owner,
		To:         to,
	}
}

func eventTokenStaked(stake *Stake) events.TokenStaked {
	return events.TokenStaked{
		IncentiveID: stake.IncentiveID,
		PositionID:  stake.PositionID,
		Liquidity:   stake.Liquidity.Unpack().ToBig(),
	}
}

func eventTokenUnstaked(stake *Stake, owner [20]byte, reward *big.Int) events.TokenUnstaked {
	return events.TokenUnstaked{
		IncentiveID: stake.IncentiveID,
		PositionID:  stake.PositionID,
		Owner:       owner,
		Reward:      copyBigInt(reward),
	}
}

func eventReferralPaid(record *Incentive, referrer, referee [20]byte, tier uint8, amount *big.Int) events.ReferralPaid {
	return events.ReferralPaid{
		IncentiveID: record.ID,
		Token:       record.Key.RewardToken,
		Referrer:    referrer,
		Referee:     referee,
		Tier:        tier,
		Amount:      copyBigInt(amount),
	}
}
