package incentive

import (
	"fmt"
	"math/big"

	"liqmine/core/events"
)

// creditReward adds to an account's claimable balance and to the token's
// outstanding aggregate. Called with the engine lock held.
func (e *Engine) creditReward(token string, owner [20]byte, amount *big.Int) error {
	balance, err := e.state.RewardBalance(token, owner)
	if err != nil {
		return err
	}
	if err := e.state.SetRewardBalance(token, owner, new(big.Int).Add(balance, amount)); err != nil {
		return err
	}
	outstanding, err := e.state.RewardsOutstanding(token)
	if err != nil {
		return err
	}
	return e.state.SetRewardsOutstanding(token, new(big.Int).Add(outstanding, amount))
}

// Claim pays out accrued rewards. A zero amountRequested claims the full
// balance; otherwise the payout is capped at the available balance. An empty
// balance pays zero and is not an error.
func (e *Engine) Claim(caller [20]byte, token string, to [20]byte, amountRequested *big.Int) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return nil, err
	}
	balance, err := e.state.RewardBalance(token, caller)
	if err != nil {
		return nil, err
	}
	if balance.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative reward balance", ErrInvariant)
	}
	paid := copyBigInt(balance)
	if amountRequested != nil && amountRequested.Sign() != 0 && amountRequested.Cmp(balance) < 0 {
		paid = copyBigInt(amountRequested)
	}
	if paid.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	outstanding, err := e.state.RewardsOutstanding(token)
	if err != nil {
		return nil, err
	}
	if outstanding.Cmp(paid) < 0 {
		return nil, fmt.Errorf("%w: outstanding rewards below balance", ErrInvariant)
	}
	// Pay first: a rejected transfer must leave the balance claimable.
	if err := e.state.TransferOut(token, to, paid); err != nil {
		return nil, err
	}
	if err := e.state.SetRewardBalance(token, caller, new(big.Int).Sub(balance, paid)); err != nil {
		return nil, err
	}
	if err := e.state.SetRewardsOutstanding(token, new(big.Int).Sub(outstanding, paid)); err != nil {
		return nil, err
	}
	e.emit(events.RewardClaimed{Token: token, Owner: caller, To: to, Amount: copyBigInt(paid)})
	return paid, nil
}

// RewardBalanceOf returns the claimable balance for an account.
func (e *Engine) RewardBalanceOf(token string, owner [20]byte) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.RewardBalance(token, owner)
}

// RecoverToken sweeps vault funds that are not attributable to any live
// incentive or claimable balance back to an admin-chosen recipient. The
// caller supplies the amount; the sweep is capped at the vault balance minus
// everything the vault still owes, so escrowed pools and accrued rewards
// stay whole.
func (e *Engine) RecoverToken(caller [20]byte, token string, to [20]byte, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidReward
	}
	vault, err := e.state.VaultBalance(token)
	if err != nil {
		return err
	}
	attributable, err := e.attributable(token)
	if err != nil {
		return err
	}
	surplus := new(big.Int).Sub(vault, attributable)
	if surplus.Cmp(amount) < 0 {
		return fmt.Errorf("%w: sweep %s exceeds unattributed surplus %s", ErrInvariant, amount, surplus)
	}
	if err := e.state.TransferOut(token, to, amount); err != nil {
		return err
	}
	e.emit(events.IncentiveTokenSwept{Token: token, To: to, Amount: copyBigInt(amount)})
	return nil
}

// attributable sums what the vault owes in a token: the unclaimed reward and
// referral pools of every incentive plus the outstanding claimable balances.
// Called with the engine lock held.
func (e *Engine) attributable(token string) (*big.Int, error) {
	total, err := e.state.RewardsOutstanding(token)
	if err != nil {
		return nil, err
	}
	total = copyBigInt(total)
	counter, err := e.state.IncentiveCounter()
	if err != nil {
		return nil, err
	}
	for id := uint64(1); id <= counter; id++ {
		record, ok, err := e.state.IncentiveGet(id)
		if err != nil {
			return nil, err
		}
		if !ok || record.Key.RewardToken != token {
			continue
		}
		total.Add(total, record.TotalRewardUnclaimed)
		total.Add(total, record.TotalReferralUnclaimed)
	}
	return total, nil
}
