package incentive

import (
	"math/big"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"liqmine/core/events"
	nativecommon "liqmine/native/common"
)

// State is the persistence contract the incentive engine runs against. Every
// method is fail-stop: an error aborts the enclosing operation.
type State interface {
	IncentiveCounter() (uint64, error)
	SetIncentiveCounter(uint64) error
	IncentivePut(*Incentive) error
	IncentiveGet(id uint64) (*Incentive, bool, error)

	DepositPut(*Deposit) error
	DepositGet(positionID uint64) (*Deposit, bool, error)
	DepositDelete(positionID uint64) error
	DepositsByOwner(owner [20]byte) ([]uint64, error)
	DepositCount(owner [20]byte) (uint64, error)

	StakePut(*Stake) error
	StakeGet(positionID uint64) (*Stake, bool, error)
	StakeDelete(positionID uint64) error

	RewardBalance(token string, owner [20]byte) (*big.Int, error)
	SetRewardBalance(token string, owner [20]byte, amount *big.Int) error

	// RewardsOutstanding tracks the per-token sum of all claimable reward
	// balances, so sweeps can bound what the vault owes without scanning
	// every account.
	RewardsOutstanding(token string) (*big.Int, error)
	SetRewardsOutstanding(token string, amount *big.Int) error

	Referrer(account [20]byte) ([20]byte, bool, error)
	SetReferrer(account, referrer [20]byte) error
	ReferralRoot(account [20]byte) (bool, error)
	SetReferralRoot(account [20]byte, root bool) error
	ReferralRates() (ReferralRates, bool, error)
	SetReferralRates(ReferralRates) error

	// TransferIn moves tokens from an account into the module vault;
	// TransferOut releases vault funds. Both fail on insufficient balance.
	TransferIn(token string, from [20]byte, amount *big.Int) error
	TransferOut(token string, to [20]byte, amount *big.Int) error
	VaultBalance(token string) (*big.Int, error)

	HasRole(role string, addr []byte) bool
}

// PositionInfo is the oracle's view of a liquidity position.
type PositionInfo struct {
	Pool      [20]byte
	TickLower int32
	TickUpper int32
	Liquidity *uint256.Int
}

// PositionOracle supplies position metadata and the cumulative
// liquidity-time-inside-range accumulator. The accumulator must be
// monotonically non-decreasing per pool and range.
type PositionOracle interface {
	PositionInfo(positionID uint64) (PositionInfo, error)
	LiquidityTimeInsideX128(pool [20]byte, tickLower, tickUpper int32) (*big.Int, error)
}

// PositionCustody releases positions back to their owners when custody ends.
type PositionCustody interface {
	Release(positionID uint64, to [20]byte) error
}

type noopCustody struct{}

func (noopCustody) Release(uint64, [20]byte) error { return nil }

// Engine owns the incentive lifecycle: program creation and termination,
// stake and unstake transitions, reward claims, and referral distribution.
// A single mutex serializes state-changing operations, matching the
// one-transaction-at-a-time execution model the accounting assumes.
type Engine struct {
	mu      sync.Mutex
	state   State
	oracle  PositionOracle
	custody PositionCustody
	emitter events.Emitter
	pauses  nativecommon.PauseView
	nowFn   func() uint64
}

// NewEngine creates an engine with a no-op emitter and custody hook. State and
// oracle must be configured before use.
func NewEngine() *Engine {
	return &Engine{
		custody: noopCustody{},
		emitter: events.NoopEmitter{},
		nowFn:   func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// SetState configures the persistence backend.
func (e *Engine) SetState(st State) { e.state = st }

// SetOracle configures the position oracle.
func (e *Engine) SetOracle(o PositionOracle) { e.oracle = o }

// SetCustody configures the custody release hook. Passing nil resets it to a
// no-op implementation.
func (e *Engine) SetCustody(c PositionCustody) {
	if c == nil {
		e.custody = noopCustody{}
		return
	}
	e.custody = c
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses configures the module pause view consulted before mutations.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetNowFunc overrides the time source. Primarily intended for tests.
func (e *Engine) SetNowFunc(now func() uint64) {
	if now == nil {
		e.nowFn = func() uint64 { return uint64(time.Now().Unix()) }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() uint64 { return e.nowFn() }

func (e *Engine) emit(evt events.Event) {
	if e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) guard() error {
	return nativecommon.Guard(e.pauses, moduleName)
}

func (e *Engine) requireAdmin(caller [20]byte) error {
	if e.state == nil || !e.state.HasRole(RoleIncentiveAdmin, caller[:]) {
		return ErrUnauthorized
	}
	return nil
}

func (e *Engine) rates() (ReferralRates, error) {
	stored, ok, err := e.state.ReferralRates()
	if err != nil {
		return ReferralRates{}, err
	}
	if !ok {
		return DefaultReferralRates(), nil
	}
	return stored, nil
}

func bpsShare(amount *big.Int, bps uint64) *big.Int {
	share := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	return share.Quo(share, big.NewInt(BpsDenominator))
}
