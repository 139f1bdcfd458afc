package incentive

import (
	"errors"
	"math/big"
	"testing"

	"github.com/holiman/uint256"

	"liqmine/core/events"
)

func TestTransferDepositCachesTickRange(t *testing.T) {
	f := newFixture(t)
	depositPosition(t, f, alice, 42, 100)

	deposit, err := f.engine.GetDeposit(42)
	if err != nil {
		t.Fatalf("get deposit: %v", err)
	}
	if deposit.Owner != alice || deposit.TickLower != -60 || deposit.TickUpper != 60 {
		t.Fatalf("deposit = %+v", deposit)
	}
	if deposit.NumberOfStakes != 0 {
		t.Fatal("fresh deposit must have no stakes")
	}
	if err := f.engine.TransferDeposit(alice, 42); !errors.Is(err, ErrDepositExists) {
		t.Fatalf("double transfer: got %v", err)
	}
	list, err := f.engine.DepositsByOwner(alice)
	if err != nil || len(list) != 1 || list[0] != 42 {
		t.Fatalf("owner enumeration = %v (%v)", list, err)
	}
}

func TestWithdrawPosition(t *testing.T) {
	f := newFixture(t)
	id := createFunded(t, f)
	depositPosition(t, f, alice, 42, 100)

	if err := f.engine.WithdrawPosition(bob, 42, bob); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-owner withdraw: got %v", err)
	}
	if err := f.engine.Stake(alice, id, 42); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if err := f.engine.WithdrawPosition(alice, 42, alice); !errors.Is(err, ErrDepositActive) {
		t.Fatalf("withdraw while staked: got %v", err)
	}
	f.advance(1)
	f.oracle.setAccumulator(pool, -60, 60, x128(1))
	if err := f.engine.Unstake(alice, 42); err != nil {
		t.Fatalf("unstake: %v", err)
	}
	// Unstake already destroyed the deposit and released custody.
	if err := f.engine.WithdrawPosition(alice, 42, alice); !errors.Is(err, ErrDepositNotFound) {
		t.Fatalf("withdraw after unstake: got %v", err)
	}
}

func TestStakeValidation(t *testing.T) {
	f := newFixture(t)
	id := createFunded(t, f)
	depositPosition(t, f, alice, 1, 100)

	if err := f.engine.Stake(alice, id+5, 1); !errors.Is(err, ErrIncentiveNotFound) {
		t.Fatalf("missing incentive: got %v", err)
	}
	if err := f.engine.Stake(bob, id, 1); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-owner stake: got %v", err)
	}
	if err := f.engine.Stake(alice, id, 99); !errors.Is(err, ErrDepositNotFound) {
		t.Fatalf("missing deposit: got %v", err)
	}

	f.oracle.setPosition(2, PositionInfo{Pool: addr(0x77), TickLower: 0, TickUpper: 10, Liquidity: uint256.NewInt(5)})
	if err := f.engine.TransferDeposit(alice, 2); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := f.engine.Stake(alice, id, 2); !errors.Is(err, ErrPoolMismatch) {
		t.Fatalf("pool mismatch: got %v", err)
	}

	f.oracle.setPosition(3, PositionInfo{Pool: pool, TickLower: 0, TickUpper: 10, Liquidity: uint256.NewInt(0)})
	if err := f.engine.TransferDeposit(alice, 3); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := f.engine.Stake(alice, id, 3); !errors.Is(err, ErrZeroLiquidity) {
		t.Fatalf("zero liquidity: got %v", err)
	}
}

func TestStakeWindowGating(t *testing.T) {
	f := newFixture(t)
	f.state.fund(testToken, admin, 10_000_000)
	key := defaultKey(f)
	key.StartTime = f.now + 100
	key.EndTime = f.now + 1100
	id, err := f.engine.CreateIncentive(admin, key, big.NewInt(1_000_000))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	depositPosition(t, f, alice, 1, 100)

	if err := f.engine.Stake(alice, id, 1); !errors.Is(err, ErrIncentiveNotStarted) {
		t.Fatalf("before start: got %v", err)
	}
	f.advance(100)
	if err := f.engine.Stake(alice, id, 1); err != nil {
		t.Fatalf("at start: %v", err)
	}
	f.advance(1)
	f.oracle.setAccumulator(pool, -60, 60, x128(1))
	if err := f.engine.Unstake(alice, 1); err != nil {
		t.Fatalf("unstake: %v", err)
	}
	depositPosition(t, f, alice, 1, 100)
	f.advance(1000)
	if err := f.engine.Stake(alice, id, 1); !errors.Is(err, ErrIncentiveEnded) {
		t.Fatalf("after end: got %v", err)
	}
}

func TestNoDoubleStake(t *testing.T) {
	f := newFixture(t)
	first := createFunded(t, f)
	second := createFunded(t, f)
	depositPosition(t, f, alice, 1, 100)

	if err := f.engine.Stake(alice, first, 1); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if err := f.engine.Stake(alice, first, 1); !errors.Is(err, ErrDepositActive) {
		t.Fatalf("same incentive restake: got %v", err)
	}
	if err := f.engine.Stake(alice, second, 1); !errors.Is(err, ErrDepositActive) {
		t.Fatalf("second incentive stake: got %v", err)
	}
}

func TestStakePacksLargeLiquidity(t *testing.T) {
	f := newFixture(t)
	id := createFunded(t, f)
	huge := new(uint256.Int).Lsh(uint256.NewInt(1), 100)
	f.oracle.setPosition(1, PositionInfo{Pool: pool, TickLower: -60, TickUpper: 60, Liquidity: huge})
	if err := f.engine.TransferDeposit(alice, 1); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := f.engine.Stake(alice, id, 1); err != nil {
		t.Fatalf("stake: %v", err)
	}
	stake, err := f.engine.GetStake(1)
	if err != nil {
		t.Fatalf("get stake: %v", err)
	}
	if !stake.Liquidity.Narrow.Eq(maxUint96) {
		t.Fatal("expected narrow sentinel for wide liquidity")
	}
	if !stake.Liquidity.Unpack().Eq(huge) {
		t.Fatalf("unpacked liquidity = %s", stake.Liquidity.Unpack())
	}
}

func TestUnstakeOwnerAndDurationGates(t *testing.T) {
	f := newFixture(t)
	f.state.fund(testToken, admin, 10_000_000)
	key := defaultKey(f)
	key.MinDuration = 100
	id, err := f.engine.CreateIncentive(admin, key, big.NewInt(1_000_000))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	depositPosition(t, f, alice, 1, 100)
	if err := f.engine.Stake(alice, id, 1); err != nil {
		t.Fatalf("stake: %v", err)
	}

	if err := f.engine.Unstake(alice, 1); !errors.Is(err, ErrStakeLocked) {
		t.Fatalf("immediate unstake: got %v", err)
	}
	f.advance(100)
	// now == start + minDuration is still locked; the gate is strict.
	if err := f.engine.Unstake(alice, 1); !errors.Is(err, ErrStakeLocked) {
		t.Fatalf("boundary unstake: got %v", err)
	}
	f.advance(1)
	if err := f.engine.Unstake(bob, 1); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-owner early unstake: got %v", err)
	}
	if err := f.engine.Unstake(alice, 1); err != nil {
		t.Fatalf("owner unstake: %v", err)
	}
}

func TestUnstakePermissionlessAfterEnd(t *testing.T) {
	f := newFixture(t)
	id := createFunded(t, f)
	depositPosition(t, f, alice, 1, 100)
	if err := f.engine.Stake(alice, id, 1); err != nil {
		t.Fatalf("stake: %v", err)
	}
	f.advance(1001)
	f.oracle.setAccumulator(pool, -60, 60, x128(10))
	if err := f.engine.Unstake(bob, 1); err != nil {
		t.Fatalf("permissionless cleanup: %v", err)
	}
	// Rewards still go to the deposit owner, not the caller.
	balance, err := f.engine.RewardBalanceOf(testToken, alice)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("owner reward = %s, want full pool", balance)
	}
	if got, _ := f.engine.RewardBalanceOf(testToken, bob); got.Sign() != 0 {
		t.Fatalf("caller must earn nothing, got %s", got)
	}
}

func TestUnstakeDestroysStakeAndDeposit(t *testing.T) {
	f := newFixture(t)
	id := createFunded(t, f)
	depositPosition(t, f, alice, 1, 100)
	if err := f.engine.Stake(alice, id, 1); err != nil {
		t.Fatalf("stake: %v", err)
	}
	f.advance(1001)
	if err := f.engine.Unstake(alice, 1); err != nil {
		t.Fatalf("unstake: %v", err)
	}
	if _, err := f.engine.GetStake(1); !errors.Is(err, ErrStakeNotFound) {
		t.Fatalf("stake should be gone: %v", err)
	}
	if _, err := f.engine.GetDeposit(1); !errors.Is(err, ErrDepositNotFound) {
		t.Fatalf("deposit should be gone: %v", err)
	}
	if err := f.engine.Unstake(alice, 1); !errors.Is(err, ErrStakeNotFound) {
		t.Fatalf("double unstake: got %v", err)
	}
	record, _, _ := f.state.IncentiveGet(id)
	if record.NumberOfStakes != 0 {
		t.Fatalf("stake count = %d", record.NumberOfStakes)
	}
}

func TestUnstakeSplitsPoolAcrossStakers(t *testing.T) {
	f := newFixture(t)
	id := createFunded(t, f)
	depositPosition(t, f, alice, 1, 100)
	depositPosition(t, f, bob, 2, 100)
	if err := f.engine.Stake(alice, id, 1); err != nil {
		t.Fatalf("stake alice: %v", err)
	}
	if err := f.engine.Stake(bob, id, 2); err != nil {
		t.Fatalf("stake bob: %v", err)
	}
	f.advance(1001)
	// Each position accrued half the window's unit-liquidity time.
	f.oracle.setAccumulator(pool, -60, 60, x128(5))
	if err := f.engine.Unstake(alice, 1); err != nil {
		t.Fatalf("unstake alice: %v", err)
	}
	if err := f.engine.Unstake(bob, 2); err != nil {
		t.Fatalf("unstake bob: %v", err)
	}
	aliceReward, _ := f.engine.RewardBalanceOf(testToken, alice)
	bobReward, _ := f.engine.RewardBalanceOf(testToken, bob)
	if aliceReward.Cmp(big.NewInt(500_000)) != 0 {
		t.Fatalf("alice reward = %s, want 500000", aliceReward)
	}
	if bobReward.Cmp(big.NewInt(500_000)) != 0 {
		t.Fatalf("bob reward = %s, want 500000", bobReward)
	}
	conservation(t, f, id, 1_750_000)
}

type mockCustody struct {
	released map[uint64][20]byte
}

func (m *mockCustody) Release(positionID uint64, to [20]byte) error {
	if m.released == nil {
		m.released = make(map[uint64][20]byte)
	}
	m.released[positionID] = to
	return nil
}

func TestCustodyReleaseTargets(t *testing.T) {
	f := newFixture(t)
	custody := &mockCustody{}
	f.engine.SetCustody(custody)
	id := createFunded(t, f)

	depositPosition(t, f, alice, 1, 100)
	if err := f.engine.WithdrawPosition(alice, 1, bob); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if custody.released[1] != bob {
		t.Fatalf("withdraw released to %x", custody.released[1])
	}

	depositPosition(t, f, alice, 2, 100)
	if err := f.engine.Stake(alice, id, 2); err != nil {
		t.Fatalf("stake: %v", err)
	}
	f.advance(1001)
	if err := f.engine.Unstake(bob, 2); err != nil {
		t.Fatalf("unstake: %v", err)
	}
	if custody.released[2] != alice {
		t.Fatalf("unstake released to %x", custody.released[2])
	}
}

func TestUnstakeEmitsEvent(t *testing.T) {
	f := newFixture(t)
	id := createFunded(t, f)
	depositPosition(t, f, alice, 1, 100)
	if err := f.engine.Stake(alice, id, 1); err != nil {
		t.Fatalf("stake: %v", err)
	}
	f.advance(1001)
	f.oracle.setAccumulator(pool, -60, 60, x128(10))
	if err := f.engine.Unstake(alice, 1); err != nil {
		t.Fatalf("unstake: %v", err)
	}
	last := f.emitter.Events[len(f.emitter.Events)-1]
	evt, ok := last.(events.TokenUnstaked)
	if !ok {
		t.Fatalf("unexpected final event %T", last)
	}
	if evt.Reward.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("event reward = %s", evt.Reward)
	}
}
