package incentive

import (
	"math/big"

	"liqmine/core/events"
)

// referralPayout is one tier's share of an unstake reward, resolved against
// the staker's referrer chain.
type referralPayout struct {
	Referrer [20]byte
	Tier     uint8
	Amount   *big.Int
}

// planReferrals walks up to MaxReferralDepth hops from the staker's referrer
// and resolves each tier's basis-point share of the reward from the rate
// table the incentive was funded against. The walk stops at the first account
// without a referrer; funds for unreached tiers stay in the pool and are
// swept back to the refundee at EndIncentive time. Pure read: nothing is
// debited or credited here, so the caller can verify the total against the
// referral pool before committing anything. Called with the engine lock held.
func (e *Engine) planReferrals(record *Incentive, staker [20]byte, reward *big.Int) ([]referralPayout, *big.Int, error) {
	total := big.NewInt(0)
	var payouts []referralPayout
	current := staker
	for tier := 0; tier < MaxReferralDepth; tier++ {
		referrer, ok, err := e.state.Referrer(current)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			break
		}
		amount := bpsShare(reward, uint64(record.Rates[tier]))
		if amount.Sign() > 0 {
			payouts = append(payouts, referralPayout{Referrer: referrer, Tier: uint8(tier), Amount: amount})
			total.Add(total, amount)
		}
		current = referrer
	}
	if record.TotalReferralUnclaimed.Cmp(total) < 0 {
		return nil, nil, ErrInvariant
	}
	return payouts, total, nil
}

// AddReferrer links an account to its upstream referrer. The link is
// exactly-once: a non-empty referrer can never be reassigned. Self-service
// calls require the account to hold at least one deposit and the referrer to
// already be part of the graph (linked or whitelisted as a root); an admin
// may force a link without those checks. Either path rejects links that would
// close a cycle within the bounded walk depth.
func (e *Engine) AddReferrer(caller, account, referrer [20]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(); err != nil {
		return err
	}
	forced := caller != account
	if forced {
		if err := e.requireAdmin(caller); err != nil {
			return err
		}
	}
	if account == referrer {
		return ErrSelfReferral
	}
	if _, ok, err := e.state.Referrer(account); err != nil {
		return err
	} else if ok {
		return ErrReferrerExists
	}
	if !forced {
		count, err := e.state.DepositCount(account)
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrNoDeposit
		}
		eligible, err := e.referrerEligible(referrer)
		if err != nil {
			return err
		}
		if !eligible {
			return ErrReferrerNotEligible
		}
	}
	cyclic, err := e.reachable(referrer, account)
	if err != nil {
		return err
	}
	if cyclic {
		return ErrReferralCycle
	}
	if err := e.state.SetReferrer(account, referrer); err != nil {
		return err
	}
	e.emit(events.ReferrerAdded{Account: account, Referrer: referrer, Forced: forced})
	return nil
}

func (e *Engine) referrerEligible(referrer [20]byte) (bool, error) {
	if _, ok, err := e.state.Referrer(referrer); err != nil {
		return false, err
	} else if ok {
		return true, nil
	}
	return e.state.ReferralRoot(referrer)
}

// reachable reports whether target can be reached from start by following
// referrer edges within the bounded walk depth.
func (e *Engine) reachable(start, target [20]byte) (bool, error) {
	current := start
	for hop := 0; hop < MaxReferralDepth; hop++ {
		if current == target {
			return true, nil
		}
		next, ok, err := e.state.Referrer(current)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		current = next
	}
	return current == target, nil
}

// SetReferralRoot whitelists (or revokes) an account as a referral chain
// root, giving self-service registrations somewhere to attach.
func (e *Engine) SetReferralRoot(caller, account [20]byte, root bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	return e.state.SetReferralRoot(account, root)
}

// SetReferralRate updates one tier of the rate table. The table must remain
// within the basis-point denominator; raised rates only bind incentives
// created afterwards, since the referral reserve is escrowed at creation.
func (e *Engine) SetReferralRate(caller [20]byte, tier uint8, bps uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if int(tier) >= MaxReferralDepth {
		return ErrRateTier
	}
	rates, err := e.rates()
	if err != nil {
		return err
	}
	rates[tier] = bps
	if err := rates.Validate(); err != nil {
		return err
	}
	if err := e.state.SetReferralRates(rates); err != nil {
		return err
	}
	e.emit(events.ReferralRateUpdated{Tier: tier, Bps: bps})
	return nil
}

// ReferrerOf returns the upstream referrer for an account, if one is linked.
func (e *Engine) ReferrerOf(account [20]byte) ([20]byte, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Referrer(account)
}
