package incentive

import (
	"fmt"
	"math/big"
)

// CreateIncentive escrows the reward pool plus the referral reserve from the
// caller and records a fresh incentive under the next sequential id. The
// referral reserve is the reward amount multiplied by the sum of the current
// tier table, so every tier of a fully populated chain is covered up front.
// The table is snapshotted onto the record: distribution always pays the
// rates the reserve was sized for, regardless of later table edits.
func (e *Engine) CreateIncentive(caller [20]byte, key IncentiveKey, rewardAmount *big.Int) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return 0, err
	}
	if err := e.requireAdmin(caller); err != nil {
		return 0, err
	}
	if rewardAmount == nil || rewardAmount.Sign() <= 0 {
		return 0, ErrInvalidReward
	}
	now := e.now()
	if key.StartTime < now || key.StartTime > now+MaxIncentiveStartLead {
		return 0, fmt.Errorf("%w: start %d outside [%d, %d]", ErrInvalidTimeWindow, key.StartTime, now, now+MaxIncentiveStartLead)
	}
	if key.EndTime <= key.StartTime || key.EndTime > key.StartTime+MaxIncentiveDuration {
		return 0, fmt.Errorf("%w: end %d outside (%d, %d]", ErrInvalidTimeWindow, key.EndTime, key.StartTime, key.StartTime+MaxIncentiveDuration)
	}

	rates, err := e.rates()
	if err != nil {
		return 0, err
	}
	reward := copyBigInt(rewardAmount)
	reserve := bpsShare(reward, rates.Sum())
	escrow := new(big.Int).Add(reward, reserve)
	if err := e.state.TransferIn(key.RewardToken, caller, escrow); err != nil {
		return 0, err
	}

	counter, err := e.state.IncentiveCounter()
	if err != nil {
		return 0, err
	}
	id := counter + 1
	if err := e.state.SetIncentiveCounter(id); err != nil {
		return 0, err
	}
	record := &Incentive{
		ID:                            id,
		Key:                           key,
		Rates:                         rates,
		TotalRewardUnclaimed:          reward,
		TotalReferralUnclaimed:        reserve,
		TotalLiquidityTimeClaimedX128: big.NewInt(0),
	}
	if err := e.state.IncentivePut(record); err != nil {
		return 0, err
	}
	e.emit(eventIncentiveCreated(record, caller, reserve))
	return id, nil
}

// EndIncentive refunds the unclaimed reward and referral pools to the key's
// refundee once the window has closed and no stakes remain. The liquidity-time
// claimed accumulator is left untouched.
func (e *Engine) EndIncentive(id uint64) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return nil, err
	}
	record, ok, err := e.state.IncentiveGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrIncentiveNotFound
	}
	if e.now() < record.Key.EndTime {
		return nil, ErrIncentiveNotEnded
	}
	refund := new(big.Int).Add(record.TotalRewardUnclaimed, record.TotalReferralUnclaimed)
	if refund.Sign() <= 0 {
		return nil, ErrNoRefund
	}
	if record.NumberOfStakes != 0 {
		return nil, ErrIncentiveActive
	}

	// Pay first: a rejected transfer must leave the pools intact so the
	// refund stays claimable.
	if err := e.state.TransferOut(record.Key.RewardToken, record.Key.Refundee, refund); err != nil {
		return nil, err
	}
	record.TotalRewardUnclaimed = big.NewInt(0)
	record.TotalReferralUnclaimed = big.NewInt(0)
	if err := e.state.IncentivePut(record); err != nil {
		return nil, err
	}
	e.emit(eventIncentiveEnded(record, refund))
	return refund, nil
}

// GetIncentive returns a copy of the incentive record.
func (e *Engine) GetIncentive(id uint64) (*Incentive, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	record, ok, err := e.state.IncentiveGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrIncentiveNotFound
	}
	return record.Clone(), nil
}
