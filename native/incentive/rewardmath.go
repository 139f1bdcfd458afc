package incentive

import (
	"fmt"
	"math/big"
)

// RewardParams carries the inputs to ComputeReward. All fixed-point values are
// Q128: seconds of unit liquidity shifted left by 128 bits.
type RewardParams struct {
	TotalRewardUnclaimed          *big.Int
	TotalLiquidityTimeClaimedX128 *big.Int
	StartTime                     uint64
	EndTime                       uint64
	Liquidity                     *big.Int
	LiquidityTimeAtStakeX128      *big.Int
	LiquidityTimeNowX128          *big.Int
	CurrentTime                   uint64
}

// ComputeReward derives the reward owed to a stake and the liquidity-time it
// consumed. Reward accrual stops at EndTime. The result never exceeds
// TotalRewardUnclaimed: the denominator is floored at the stake's own
// liquidity-time delta, so the quotient is at most the full remaining pool.
// Division truncates toward zero; products are taken at arbitrary precision
// before dividing.
func ComputeReward(p RewardParams) (reward, liquidityTimeDeltaX128 *big.Int, err error) {
	totalReward := copyBigInt(p.TotalRewardUnclaimed)
	claimed := copyBigInt(p.TotalLiquidityTimeClaimedX128)
	liquidity := copyBigInt(p.Liquidity)
	accAtStake := copyBigInt(p.LiquidityTimeAtStakeX128)
	accNow := copyBigInt(p.LiquidityTimeNowX128)

	if totalReward.Sign() < 0 || claimed.Sign() < 0 || liquidity.Sign() < 0 {
		return nil, nil, fmt.Errorf("%w: negative reward input", ErrInvariant)
	}
	if accNow.Cmp(accAtStake) < 0 {
		// The oracle accumulator is monotonically non-decreasing.
		return nil, nil, fmt.Errorf("%w: liquidity-time accumulator went backwards", ErrInvariant)
	}

	maxTime := p.CurrentTime
	if p.EndTime < maxTime {
		maxTime = p.EndTime
	}

	delta := new(big.Int).Sub(accNow, accAtStake)
	delta.Mul(delta, liquidity)

	// Total liquidity-time slots at unit-liquidity scale across the window so
	// far, minus what has already been paid out. May go negative under edge
	// timing; the max() below absorbs that.
	unclaimed := new(big.Int)
	if maxTime > p.StartTime {
		unclaimed.SetUint64(maxTime - p.StartTime)
		unclaimed.Lsh(unclaimed, 128)
	}
	unclaimed.Sub(unclaimed, claimed)

	denominator := unclaimed
	if denominator.Cmp(delta) < 0 {
		denominator = delta
	}
	if denominator.Sign() <= 0 {
		return big.NewInt(0), big.NewInt(0), nil
	}

	reward = new(big.Int).Mul(totalReward, delta)
	reward.Quo(reward, denominator)
	if reward.Cmp(totalReward) > 0 {
		return nil, nil, fmt.Errorf("%w: reward exceeds remaining pool", ErrInvariant)
	}
	return reward, delta, nil
}
