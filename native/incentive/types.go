package incentive

import (
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// IncentiveKey identifies a reward program. Two keys with identical fields
// describe the same program; the hash is derived from the full field tuple.
// Keys are immutable once an incentive has been created from them.
type IncentiveKey struct {
	RewardToken string
	Pool        [20]byte
	StartTime   uint64
	EndTime     uint64
	MinDuration uint64
	Refundee    [20]byte
}

// Hash returns the canonical identity of the key.
func (k IncentiveKey) Hash() [32]byte {
	encoded, err := rlp.EncodeToBytes(k)
	if err != nil {
		// The key is a fixed tuple of RLP-encodable fields.
		panic(err)
	}
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256(encoded))
	return out
}

// Incentive is the mutable accounting record of one reward program. Ids are
// sequential and never reused. TotalLiquidityTimeClaimedX128 survives
// EndIncentive on purpose: stale high-water marks cannot be replayed against
// a future incentive because that incentive gets a fresh id. Rates is the
// tier table snapshotted at creation: the referral reserve was escrowed
// against it, so later table edits must not change what this program pays.
type Incentive struct {
	ID                            uint64
	Key                           IncentiveKey
	Rates                         ReferralRates
	TotalRewardUnclaimed          *big.Int
	TotalReferralUnclaimed        *big.Int
	TotalLiquidityTimeClaimedX128 *big.Int
	NumberOfStakes                uint32
}

// Clone produces a deep copy to protect internal references.
func (i *Incentive) Clone() *Incentive {
	if i == nil {
		return nil
	}
	out := *i
	out.TotalRewardUnclaimed = copyBigInt(i.TotalRewardUnclaimed)
	out.TotalReferralUnclaimed = copyBigInt(i.TotalReferralUnclaimed)
	out.TotalLiquidityTimeClaimedX128 = copyBigInt(i.TotalLiquidityTimeClaimedX128)
	return &out
}

// Deposit is the custodial record of a position held on behalf of its owner.
// The tick range is cached from the oracle at transfer-in time.
type Deposit struct {
	PositionID     uint64
	Owner          [20]byte
	NumberOfStakes uint32
	TickLower      int32
	TickUpper      int32
}

// Clone produces a copy of the deposit record.
func (d *Deposit) Clone() *Deposit {
	if d == nil {
		return nil
	}
	out := *d
	return &out
}

// Stake records one position's enrollment in one incentive. At most one live
// stake exists per position.
type Stake struct {
	PositionID               uint64
	IncentiveID              uint64
	Liquidity                PackedLiquidity
	LiquidityTimeAtStakeX128 *big.Int
	StartTime                uint64
}

// Clone produces a deep copy of the stake record.
func (s *Stake) Clone() *Stake {
	if s == nil {
		return nil
	}
	out := *s
	out.Liquidity = s.Liquidity.clone()
	out.LiquidityTimeAtStakeX128 = copyBigInt(s.LiquidityTimeAtStakeX128)
	return &out
}

var (
	maxUint96  = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 96), 1)
	maxUint128 = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 128), 1)
)

// PackedLiquidity is the two-field liquidity encoding. Values below 2^96-1
// live in the narrow field with the wide field zero; larger values store the
// narrow maximum as a sentinel and the true value in the wide field. The
// common case pays for 96 bits of storage instead of 128.
type PackedLiquidity struct {
	Narrow *uint256.Int
	Wide   *uint256.Int
}

// PackLiquidity encodes a liquidity amount. Liquidity is a 128-bit quantity;
// anything wider is rejected.
func PackLiquidity(liquidity *uint256.Int) (PackedLiquidity, error) {
	if liquidity == nil || liquidity.Gt(maxUint128) {
		return PackedLiquidity{}, ErrLiquidityTooWide
	}
	if liquidity.Lt(maxUint96) {
		return PackedLiquidity{
			Narrow: new(uint256.Int).Set(liquidity),
			Wide:   new(uint256.Int),
		}, nil
	}
	return PackedLiquidity{
		Narrow: new(uint256.Int).Set(maxUint96),
		Wide:   new(uint256.Int).Set(liquidity),
	}, nil
}

// Unpack restores the exact liquidity amount.
func (p PackedLiquidity) Unpack() *uint256.Int {
	if p.Narrow == nil {
		return new(uint256.Int)
	}
	if p.Narrow.Eq(maxUint96) && p.Wide != nil {
		return new(uint256.Int).Set(p.Wide)
	}
	return new(uint256.Int).Set(p.Narrow)
}

func (p PackedLiquidity) clone() PackedLiquidity {
	out := PackedLiquidity{Narrow: new(uint256.Int), Wide: new(uint256.Int)}
	if p.Narrow != nil {
		out.Narrow.Set(p.Narrow)
	}
	if p.Wide != nil {
		out.Wide.Set(p.Wide)
	}
	return out
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
