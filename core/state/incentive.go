package state

import (
	"encoding/binary"
	"math/big"

	"github.com/holiman/uint256"

	"liqmine/native/incentive"
)

var (
	incentiveCounterKey   = hashKey([]byte("incentive/counter"))
	incentivePrefix       = []byte("incentive/record/")
	depositPrefix         = []byte("incentive/deposit/")
	depositOwnerPrefix    = []byte("incentive/deposit-owner/")
	depositIndexPrefix    = []byte("incentive/deposit-index/")
	stakePrefix           = []byte("incentive/stake/")
	rewardPrefix          = []byte("incentive/reward/")
	rewardTotalPrefix     = []byte("incentive/reward-outstanding/")
	referrerPrefix        = []byte("incentive/referrer/")
	referralRootPrefix    = []byte("incentive/referral-root/")
	referralRatesKeyBytes = hashKey([]byte("incentive/referral-rates"))
)

func uint64Bytes(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}

func incentiveKey(id uint64) []byte { return hashKey(incentivePrefix, uint64Bytes(id)) }
func depositKey(pos uint64) []byte  { return hashKey(depositPrefix, uint64Bytes(pos)) }
func stakeKey(pos uint64) []byte    { return hashKey(stakePrefix, uint64Bytes(pos)) }

func depositOwnerKey(owner [20]byte) []byte {
	return hashKey(depositOwnerPrefix, owner[:])
}

func depositIndexKey(owner [20]byte, pos uint64) []byte {
	return hashKey(depositIndexPrefix, owner[:], []byte{'/'}, uint64Bytes(pos))
}

func rewardKey(token string, owner [20]byte) []byte {
	return hashKey(rewardPrefix, []byte(normalizeSymbol(token)), []byte{'/'}, owner[:])
}

func rewardTotalKey(token string) []byte {
	return hashKey(rewardTotalPrefix, []byte(normalizeSymbol(token)))
}

func referrerKey(account [20]byte) []byte { return hashKey(referrerPrefix, account[:]) }

func referralRootKey(account [20]byte) []byte { return hashKey(referralRootPrefix, account[:]) }

// RLP rejects signed integers, so tick values travel as their two's
// complement uint32 form.
type storedIncentive struct {
	ID                uint64
	Token             string
	Pool              [20]byte
	StartTime         uint64
	EndTime           uint64
	MinDuration       uint64
	Refundee          [20]byte
	Rates             incentive.ReferralRates
	RewardUnclaimed   *big.Int
	ReferralUnclaimed *big.Int
	ClaimedX128       *big.Int
	Stakes            uint32
}

type storedDeposit struct {
	PositionID uint64
	Owner      [20]byte
	Stakes     uint32
	TickLower  uint32
	TickUpper  uint32
}

type storedStake struct {
	PositionID  uint64
	IncentiveID uint64
	Narrow      *uint256.Int
	Wide        *uint256.Int
	AccX128     *big.Int
	StartTime   uint64
}

// IncentiveCounter returns the last assigned incentive id.
func (m *Manager) IncentiveCounter() (uint64, error) {
	var counter uint64
	if _, err := m.getRecord(incentiveCounterKey, &counter); err != nil {
		return 0, err
	}
	return counter, nil
}

// SetIncentiveCounter persists the id high-water mark.
func (m *Manager) SetIncentiveCounter(counter uint64) error {
	return m.putRecord(incentiveCounterKey, counter)
}

// IncentivePut stores an incentive record.
func (m *Manager) IncentivePut(record *incentive.Incentive) error {
	stored := &storedIncentive{
		ID:                record.ID,
		Token:             record.Key.RewardToken,
		Pool:              record.Key.Pool,
		StartTime:         record.Key.StartTime,
		EndTime:           record.Key.EndTime,
		MinDuration:       record.Key.MinDuration,
		Refundee:          record.Key.Refundee,
		Rates:             record.Rates,
		RewardUnclaimed:   record.TotalRewardUnclaimed,
		ReferralUnclaimed: record.TotalReferralUnclaimed,
		ClaimedX128:       record.TotalLiquidityTimeClaimedX128,
		Stakes:            record.NumberOfStakes,
	}
	return m.putRecord(incentiveKey(record.ID), stored)
}

// IncentiveGet loads an incentive record by id.
func (m *Manager) IncentiveGet(id uint64) (*incentive.Incentive, bool, error) {
	stored := new(storedIncentive)
	ok, err := m.getRecord(incentiveKey(id), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &incentive.Incentive{
		ID: stored.ID,
		Key: incentive.IncentiveKey{
			RewardToken: stored.Token,
			Pool:        stored.Pool,
			StartTime:   stored.StartTime,
			EndTime:     stored.EndTime,
			MinDuration: stored.MinDuration,
			Refundee:    stored.Refundee,
		},
		Rates:                         stored.Rates,
		TotalRewardUnclaimed:          stored.RewardUnclaimed,
		TotalReferralUnclaimed:        stored.ReferralUnclaimed,
		TotalLiquidityTimeClaimedX128: stored.ClaimedX128,
		NumberOfStakes:                stored.Stakes,
	}, true, nil
}

// DepositPut stores a deposit record, maintaining the per-owner enumeration
// on first insert.
func (m *Manager) DepositPut(deposit *incentive.Deposit) error {
	key := depositKey(deposit.PositionID)
	exists, err := m.db.Has(key)
	if err != nil {
		return err
	}
	stored := &storedDeposit{
		PositionID: deposit.PositionID,
		Owner:      deposit.Owner,
		Stakes:     deposit.NumberOfStakes,
		TickLower:  uint32(deposit.TickLower),
		TickUpper:  uint32(deposit.TickUpper),
	}
	if err := m.putRecord(key, stored); err != nil {
		return err
	}
	if !exists {
		return m.appendOwnerDeposit(deposit.Owner, deposit.PositionID)
	}
	return nil
}

// DepositGet loads a deposit record by position id.
func (m *Manager) DepositGet(positionID uint64) (*incentive.Deposit, bool, error) {
	stored := new(storedDeposit)
	ok, err := m.getRecord(depositKey(positionID), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &incentive.Deposit{
		PositionID:     stored.PositionID,
		Owner:          stored.Owner,
		NumberOfStakes: stored.Stakes,
		TickLower:      int32(stored.TickLower),
		TickUpper:      int32(stored.TickUpper),
	}, true, nil
}

// DepositDelete removes a deposit record and its enumeration entry.
func (m *Manager) DepositDelete(positionID uint64) error {
	deposit, ok, err := m.DepositGet(positionID)
	if err != nil || !ok {
		return err
	}
	if err := m.removeOwnerDeposit(deposit.Owner, positionID); err != nil {
		return err
	}
	return m.db.Delete(depositKey(positionID))
}

// DepositsByOwner lists position ids held for an owner, in insertion order
// modulo swap-and-pop removals.
func (m *Manager) DepositsByOwner(owner [20]byte) ([]uint64, error) {
	var list []uint64
	if _, err := m.getRecord(depositOwnerKey(owner), &list); err != nil {
		return nil, err
	}
	return list, nil
}

// DepositCount returns the number of positions held for an owner.
func (m *Manager) DepositCount(owner [20]byte) (uint64, error) {
	list, err := m.DepositsByOwner(owner)
	if err != nil {
		return 0, err
	}
	return uint64(len(list)), nil
}

// appendOwnerDeposit records a position in the owner's index-tracked array.
func (m *Manager) appendOwnerDeposit(owner [20]byte, positionID uint64) error {
	list, err := m.DepositsByOwner(owner)
	if err != nil {
		return err
	}
	if err := m.putRecord(depositIndexKey(owner, positionID), uint64(len(list))); err != nil {
		return err
	}
	return m.putRecord(depositOwnerKey(owner), append(list, positionID))
}

// removeOwnerDeposit drops a position via swap-and-pop: the last element
// moves into the vacated slot and its reverse index is rewritten.
func (m *Manager) removeOwnerDeposit(owner [20]byte, positionID uint64) error {
	list, err := m.DepositsByOwner(owner)
	if err != nil {
		return err
	}
	var index uint64
	ok, err := m.getRecord(depositIndexKey(owner, positionID), &index)
	if err != nil {
		return err
	}
	if !ok || index >= uint64(len(list)) || list[index] != positionID {
		return nil
	}
	last := uint64(len(list)) - 1
	if index != last {
		moved := list[last]
		list[index] = moved
		if err := m.putRecord(depositIndexKey(owner, moved), index); err != nil {
			return err
		}
	}
	list = list[:last]
	if err := m.db.Delete(depositIndexKey(owner, positionID)); err != nil {
		return err
	}
	return m.putRecord(depositOwnerKey(owner), list)
}

// StakePut stores a stake record in its packed form.
func (m *Manager) StakePut(stake *incentive.Stake) error {
	stored := &storedStake{
		PositionID:  stake.PositionID,
		IncentiveID: stake.IncentiveID,
		Narrow:      stake.Liquidity.Narrow,
		Wide:        stake.Liquidity.Wide,
		AccX128:     stake.LiquidityTimeAtStakeX128,
		StartTime:   stake.StartTime,
	}
	return m.putRecord(stakeKey(stake.PositionID), stored)
}

// StakeGet loads the live stake for a position.
func (m *Manager) StakeGet(positionID uint64) (*incentive.Stake, bool, error) {
	stored := new(storedStake)
	ok, err := m.getRecord(stakeKey(positionID), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &incentive.Stake{
		PositionID:               stored.PositionID,
		IncentiveID:              stored.IncentiveID,
		Liquidity:                incentive.PackedLiquidity{Narrow: stored.Narrow, Wide: stored.Wide},
		LiquidityTimeAtStakeX128: stored.AccX128,
		StartTime:                stored.StartTime,
	}, true, nil
}

// StakeDelete removes a stake record.
func (m *Manager) StakeDelete(positionID uint64) error {
	return m.db.Delete(stakeKey(positionID))
}

// RewardBalance returns an account's claimable reward balance.
func (m *Manager) RewardBalance(token string, owner [20]byte) (*big.Int, error) {
	balance := new(big.Int)
	if _, err := m.getRecord(rewardKey(token, owner), balance); err != nil {
		return nil, err
	}
	return balance, nil
}

// SetRewardBalance overwrites an account's claimable reward balance.
func (m *Manager) SetRewardBalance(token string, owner [20]byte, amount *big.Int) error {
	return m.putRecord(rewardKey(token, owner), amount)
}

// RewardsOutstanding returns the per-token sum of all claimable balances.
func (m *Manager) RewardsOutstanding(token string) (*big.Int, error) {
	total := new(big.Int)
	if _, err := m.getRecord(rewardTotalKey(token), total); err != nil {
		return nil, err
	}
	return total, nil
}

// SetRewardsOutstanding overwrites the per-token claimable aggregate.
func (m *Manager) SetRewardsOutstanding(token string, amount *big.Int) error {
	return m.putRecord(rewardTotalKey(token), amount)
}

// Referrer returns the upstream referrer of an account, if linked.
func (m *Manager) Referrer(account [20]byte) ([20]byte, bool, error) {
	var referrer [20]byte
	ok, err := m.getRecord(referrerKey(account), &referrer)
	if err != nil || !ok {
		return [20]byte{}, false, err
	}
	return referrer, true, nil
}

// SetReferrer persists a referral edge.
func (m *Manager) SetReferrer(account, referrer [20]byte) error {
	return m.putRecord(referrerKey(account), referrer)
}

// ReferralRoot reports whether an account is whitelisted as a chain root.
func (m *Manager) ReferralRoot(account [20]byte) (bool, error) {
	var root bool
	ok, err := m.getRecord(referralRootKey(account), &root)
	if err != nil || !ok {
		return false, err
	}
	return root, nil
}

// SetReferralRoot stores the chain-root whitelist flag for an account.
func (m *Manager) SetReferralRoot(account [20]byte, root bool) error {
	return m.putRecord(referralRootKey(account), root)
}

// ReferralRates loads the stored tier table. The boolean is false until an
// admin has written one, letting the engine fall back to its default.
func (m *Manager) ReferralRates() (incentive.ReferralRates, bool, error) {
	var rates incentive.ReferralRates
	ok, err := m.getRecord(referralRatesKeyBytes, &rates)
	if err != nil || !ok {
		return incentive.ReferralRates{}, false, err
	}
	return rates, true, nil
}

// SetReferralRates persists the tier table.
func (m *Manager) SetReferralRates(rates incentive.ReferralRates) error {
	return m.putRecord(referralRatesKeyBytes, rates)
}
