package incentive

import (
	"fmt"
	"math/big"
)

// TransferDeposit takes custody of a position for its owner, caching the tick
// range reported by the oracle. A position must be deposited before it can be
// staked.
func (e *Engine) TransferDeposit(owner [20]byte, positionID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return err
	}
	if _, ok, err := e.state.DepositGet(positionID); err != nil {
		return err
	} else if ok {
		return ErrDepositExists
	}
	info, err := e.oracle.PositionInfo(positionID)
	if err != nil {
		return err
	}
	deposit := &Deposit{
		PositionID: positionID,
		Owner:      owner,
		TickLower:  info.TickLower,
		TickUpper:  info.TickUpper,
	}
	if err := e.state.DepositPut(deposit); err != nil {
		return err
	}
	e.emit(eventDepositTransferred(deposit))
	return nil
}

// WithdrawPosition releases an idle position from custody. The caller must be
// the recorded owner and no stake may be live.
func (e *Engine) WithdrawPosition(caller [20]byte, positionID uint64, to [20]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return err
	}
	deposit, ok, err := e.state.DepositGet(positionID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDepositNotFound
	}
	if deposit.Owner != caller {
		return ErrUnauthorized
	}
	if deposit.NumberOfStakes != 0 {
		return ErrDepositActive
	}
	if err := e.state.DepositDelete(positionID); err != nil {
		return err
	}
	if err := e.custody.Release(positionID, to); err != nil {
		return err
	}
	e.emit(eventDepositWithdrawn(deposit, to))
	return nil
}

// Stake enrolls a deposited position in an incentive, snapshotting the
// liquidity-time accumulator so rewards accrue from this moment only.
func (e *Engine) Stake(caller [20]byte, incentiveID, positionID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return err
	}
	record, ok, err := e.state.IncentiveGet(incentiveID)
	if err != nil {
		return err
	}
	if !ok || record.TotalRewardUnclaimed.Sign() <= 0 {
		return ErrIncentiveNotFound
	}
	now := e.now()
	if now < record.Key.StartTime {
		return ErrIncentiveNotStarted
	}
	if now >= record.Key.EndTime {
		return ErrIncentiveEnded
	}
	deposit, ok, err := e.state.DepositGet(positionID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDepositNotFound
	}
	if deposit.Owner != caller {
		return ErrUnauthorized
	}
	if deposit.NumberOfStakes != 0 {
		return ErrDepositActive
	}
	if _, ok, err := e.state.StakeGet(positionID); err != nil {
		return err
	} else if ok {
		return ErrAlreadyStaked
	}
	info, err := e.oracle.PositionInfo(positionID)
	if err != nil {
		return err
	}
	if info.Pool != record.Key.Pool {
		return ErrPoolMismatch
	}
	if info.Liquidity == nil || info.Liquidity.IsZero() {
		return ErrZeroLiquidity
	}
	packed, err := PackLiquidity(info.Liquidity)
	if err != nil {
		return err
	}
	acc, err := e.oracle.LiquidityTimeInsideX128(info.Pool, info.TickLower, info.TickUpper)
	if err != nil {
		return err
	}

	stake := &Stake{
		PositionID:               positionID,
		IncentiveID:              incentiveID,
		Liquidity:                packed,
		LiquidityTimeAtStakeX128: copyBigInt(acc),
		StartTime:                now,
	}
	if err := e.state.StakePut(stake); err != nil {
		return err
	}
	deposit.NumberOfStakes++
	if err := e.state.DepositPut(deposit); err != nil {
		return err
	}
	record.NumberOfStakes++
	if err := e.state.IncentivePut(record); err != nil {
		return err
	}
	e.emit(eventTokenStaked(stake))
	return nil
}

// Unstake settles a stake: it computes the reward from the accumulator delta,
// debits the incentive pools, credits the owner's claimable balance, runs the
// referral distribution, and releases the position from custody. Before the
// incentive window closes only the owner may unstake and only after the
// minimum stake duration; afterwards anyone may trigger the cleanup.
//
// Settlement is staged: reward and referral amounts are resolved and checked
// against the pools first, and only then written out. A failed check returns
// before any balance or record has changed, so a rejected unstake leaves the
// stake live and can be retried without double-crediting.
func (e *Engine) Unstake(caller [20]byte, positionID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return err
	}
	stake, ok, err := e.state.StakeGet(positionID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrStakeNotFound
	}
	deposit, ok, err := e.state.DepositGet(positionID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: stake without deposit", ErrInvariant)
	}
	record, ok, err := e.state.IncentiveGet(stake.IncentiveID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: stake against missing incentive", ErrInvariant)
	}

	now := e.now()
	if now < record.Key.EndTime {
		if deposit.Owner != caller {
			return ErrUnauthorized
		}
		if now <= stake.StartTime+record.Key.MinDuration {
			return ErrStakeLocked
		}
	}

	acc, err := e.oracle.LiquidityTimeInsideX128(record.Key.Pool, deposit.TickLower, deposit.TickUpper)
	if err != nil {
		return err
	}
	reward, delta, err := ComputeReward(RewardParams{
		TotalRewardUnclaimed:          record.TotalRewardUnclaimed,
		TotalLiquidityTimeClaimedX128: record.TotalLiquidityTimeClaimedX128,
		StartTime:                     record.Key.StartTime,
		EndTime:                       record.Key.EndTime,
		Liquidity:                     stake.Liquidity.Unpack().ToBig(),
		LiquidityTimeAtStakeX128:      stake.LiquidityTimeAtStakeX128,
		LiquidityTimeNowX128:          acc,
		CurrentTime:                   now,
	})
	if err != nil {
		return err
	}

	if record.TotalRewardUnclaimed.Cmp(reward) < 0 {
		return fmt.Errorf("%w: reward pool underflow", ErrInvariant)
	}
	if record.NumberOfStakes == 0 {
		return fmt.Errorf("%w: stake count underflow", ErrInvariant)
	}
	var payouts []referralPayout
	referralTotal := big.NewInt(0)
	if reward.Sign() > 0 {
		payouts, referralTotal, err = e.planReferrals(record, deposit.Owner, reward)
		if err != nil {
			return err
		}
	}

	// Every check has passed; commit.
	record.TotalLiquidityTimeClaimedX128.Add(record.TotalLiquidityTimeClaimedX128, delta)
	record.TotalRewardUnclaimed.Sub(record.TotalRewardUnclaimed, reward)
	record.TotalReferralUnclaimed.Sub(record.TotalReferralUnclaimed, referralTotal)
	record.NumberOfStakes--

	if reward.Sign() > 0 {
		if err := e.creditReward(record.Key.RewardToken, deposit.Owner, reward); err != nil {
			return err
		}
		for _, p := range payouts {
			if err := e.creditReward(record.Key.RewardToken, p.Referrer, p.Amount); err != nil {
				return err
			}
		}
	}
	if err := e.state.IncentivePut(record); err != nil {
		return err
	}
	if err := e.state.StakeDelete(positionID); err != nil {
		return err
	}
	if err := e.state.DepositDelete(positionID); err != nil {
		return err
	}
	if err := e.custody.Release(positionID, deposit.Owner); err != nil {
		return err
	}
	for _, p := range payouts {
		e.emit(eventReferralPaid(record, p.Referrer, deposit.Owner, p.Tier, p.Amount))
	}
	e.emit(eventTokenUnstaked(stake, deposit.Owner, reward))
	return nil
}

// GetDeposit returns a copy of the deposit record for a position.
func (e *Engine) GetDeposit(positionID uint64) (*Deposit, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	deposit, ok, err := e.state.DepositGet(positionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDepositNotFound
	}
	return deposit.Clone(), nil
}

// GetStake returns a copy of the live stake record for a position.
func (e *Engine) GetStake(positionID uint64) (*Stake, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	stake, ok, err := e.state.StakeGet(positionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStakeNotFound
	}
	return stake.Clone(), nil
}

// DepositsByOwner lists the position ids currently held for an owner.
func (e *Engine) DepositsByOwner(owner [20]byte) ([]uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.DepositsByOwner(owner)
}
