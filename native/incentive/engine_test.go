package incentive

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/holiman/uint256"

	"liqmine/core/events"
)

const testToken = "LQM"

var (
	admin     = addr(0x01)
	alice     = addr(0xA1)
	bob       = addr(0xB0)
	referrer1 = addr(0xC1)
	referrer2 = addr(0xC2)
	treasury  = addr(0xF0)
	pool      = addr(0x99)
)

func addr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

type balanceKey struct {
	token string
	addr  [20]byte
}

type mockState struct {
	counter    uint64
	incentives map[uint64]*Incentive
	deposits   map[uint64]*Deposit
	ownerIndex map[[20]byte][]uint64
	stakes     map[uint64]*Stake
	rewards    map[balanceKey]*big.Int
	owed       map[string]*big.Int
	referrers  map[[20]byte][20]byte
	roots      map[[20]byte]bool
	rates      *ReferralRates
	balances   map[balanceKey]*big.Int
	vault      [20]byte
	admins     map[[20]byte]bool

	failTransfers bool
}

func newMockState() *mockState {
	st := &mockState{
		incentives: make(map[uint64]*Incentive),
		deposits:   make(map[uint64]*Deposit),
		ownerIndex: make(map[[20]byte][]uint64),
		stakes:     make(map[uint64]*Stake),
		rewards:    make(map[balanceKey]*big.Int),
		owed:       make(map[string]*big.Int),
		referrers:  make(map[[20]byte][20]byte),
		roots:      make(map[[20]byte]bool),
		balances:   make(map[balanceKey]*big.Int),
		admins:     map[[20]byte]bool{admin: true},
	}
	st.vault[19] = 0xEE
	return st
}

func (m *mockState) IncentiveCounter() (uint64, error) { return m.counter, nil }

func (m *mockState) SetIncentiveCounter(v uint64) error {
	m.counter = v
	return nil
}

func (m *mockState) IncentivePut(record *Incentive) error {
	m.incentives[record.ID] = record.Clone()
	return nil
}

func (m *mockState) IncentiveGet(id uint64) (*Incentive, bool, error) {
	record, ok := m.incentives[id]
	if !ok {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

func (m *mockState) DepositPut(deposit *Deposit) error {
	if _, ok := m.deposits[deposit.PositionID]; !ok {
		m.ownerIndex[deposit.Owner] = append(m.ownerIndex[deposit.Owner], deposit.PositionID)
	}
	m.deposits[deposit.PositionID] = deposit.Clone()
	return nil
}

func (m *mockState) DepositGet(positionID uint64) (*Deposit, bool, error) {
	deposit, ok := m.deposits[positionID]
	if !ok {
		return nil, false, nil
	}
	return deposit.Clone(), true, nil
}

func (m *mockState) DepositDelete(positionID uint64) error {
	deposit, ok := m.deposits[positionID]
	if !ok {
		return nil
	}
	list := m.ownerIndex[deposit.Owner]
	for i, id := range list {
		if id == positionID {
			list[i] = list[len(list)-1]
			m.ownerIndex[deposit.Owner] = list[:len(list)-1]
			break
		}
	}
	delete(m.deposits, positionID)
	return nil
}

func (m *mockState) DepositsByOwner(owner [20]byte) ([]uint64, error) {
	return append([]uint64(nil), m.ownerIndex[owner]...), nil
}

func (m *mockState) DepositCount(owner [20]byte) (uint64, error) {
	return uint64(len(m.ownerIndex[owner])), nil
}

func (m *mockState) StakePut(stake *Stake) error {
	m.stakes[stake.PositionID] = stake.Clone()
	return nil
}

func (m *mockState) StakeGet(positionID uint64) (*Stake, bool, error) {
	stake, ok := m.stakes[positionID]
	if !ok {
		return nil, false, nil
	}
	return stake.Clone(), true, nil
}

func (m *mockState) StakeDelete(positionID uint64) error {
	delete(m.stakes, positionID)
	return nil
}

func (m *mockState) RewardBalance(token string, owner [20]byte) (*big.Int, error) {
	if balance, ok := m.rewards[balanceKey{token, owner}]; ok {
		return new(big.Int).Set(balance), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) SetRewardBalance(token string, owner [20]byte, amount *big.Int) error {
	m.rewards[balanceKey{token, owner}] = new(big.Int).Set(amount)
	return nil
}

func (m *mockState) RewardsOutstanding(token string) (*big.Int, error) {
	if total, ok := m.owed[token]; ok {
		return new(big.Int).Set(total), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) SetRewardsOutstanding(token string, amount *big.Int) error {
	m.owed[token] = new(big.Int).Set(amount)
	return nil
}

func (m *mockState) Referrer(account [20]byte) ([20]byte, bool, error) {
	referrer, ok := m.referrers[account]
	return referrer, ok, nil
}

func (m *mockState) SetReferrer(account, referrer [20]byte) error {
	m.referrers[account] = referrer
	return nil
}

func (m *mockState) ReferralRoot(account [20]byte) (bool, error) {
	return m.roots[account], nil
}

func (m *mockState) SetReferralRoot(account [20]byte, root bool) error {
	m.roots[account] = root
	return nil
}

func (m *mockState) ReferralRates() (ReferralRates, bool, error) {
	if m.rates == nil {
		return ReferralRates{}, false, nil
	}
	return *m.rates, true, nil
}

func (m *mockState) SetReferralRates(rates ReferralRates) error {
	m.rates = &rates
	return nil
}

func (m *mockState) balance(token string, account [20]byte) *big.Int {
	if balance, ok := m.balances[balanceKey{token, account}]; ok {
		return new(big.Int).Set(balance)
	}
	return big.NewInt(0)
}

func (m *mockState) fund(token string, account [20]byte, amount int64) {
	m.balances[balanceKey{token, account}] = big.NewInt(amount)
}

func (m *mockState) transfer(token string, from, to [20]byte, amount *big.Int) error {
	if m.failTransfers {
		return errors.New("transfer rejected")
	}
	balance := m.balance(token, from)
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient balance for %x", from)
	}
	m.balances[balanceKey{token, from}] = balance.Sub(balance, amount)
	m.balances[balanceKey{token, to}] = new(big.Int).Add(m.balance(token, to), amount)
	return nil
}

func (m *mockState) TransferIn(token string, from [20]byte, amount *big.Int) error {
	return m.transfer(token, from, m.vault, amount)
}

func (m *mockState) TransferOut(token string, to [20]byte, amount *big.Int) error {
	return m.transfer(token, m.vault, to, amount)
}

func (m *mockState) VaultBalance(token string) (*big.Int, error) {
	return m.balance(token, m.vault), nil
}

func (m *mockState) HasRole(role string, a []byte) bool {
	if role != RoleIncentiveAdmin || len(a) != 20 {
		return false
	}
	var key [20]byte
	copy(key[:], a)
	return m.admins[key]
}

type mockOracle struct {
	positions    map[uint64]PositionInfo
	accumulators map[string]*big.Int
	err          error
}

func newMockOracle() *mockOracle {
	return &mockOracle{
		positions:    make(map[uint64]PositionInfo),
		accumulators: make(map[string]*big.Int),
	}
}

func accKey(pool [20]byte, lower, upper int32) string {
	return fmt.Sprintf("%x/%d/%d", pool, lower, upper)
}

func (o *mockOracle) setPosition(id uint64, info PositionInfo) {
	o.positions[id] = info
}

func (o *mockOracle) setAccumulator(pool [20]byte, lower, upper int32, value *big.Int) {
	o.accumulators[accKey(pool, lower, upper)] = new(big.Int).Set(value)
}

func (o *mockOracle) PositionInfo(positionID uint64) (PositionInfo, error) {
	if o.err != nil {
		return PositionInfo{}, o.err
	}
	info, ok := o.positions[positionID]
	if !ok {
		return PositionInfo{}, fmt.Errorf("position %d unknown", positionID)
	}
	return info, nil
}

func (o *mockOracle) LiquidityTimeInsideX128(pool [20]byte, lower, upper int32) (*big.Int, error) {
	if o.err != nil {
		return nil, o.err
	}
	if acc, ok := o.accumulators[accKey(pool, lower, upper)]; ok {
		return new(big.Int).Set(acc), nil
	}
	return big.NewInt(0), nil
}

type fixture struct {
	engine  *Engine
	state   *mockState
	oracle  *mockOracle
	emitter *events.CaptureEmitter
	now     uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		state:   newMockState(),
		oracle:  newMockOracle(),
		emitter: &events.CaptureEmitter{},
		now:     1_000_000,
	}
	f.engine = NewEngine()
	f.engine.SetState(f.state)
	f.engine.SetOracle(f.oracle)
	f.engine.SetEmitter(f.emitter)
	f.engine.SetNowFunc(func() uint64 { return f.now })
	return f
}

func (f *fixture) advance(seconds uint64) { f.now += seconds }

func (f *fixture) eventTypes() []string {
	out := make([]string, 0, len(f.emitter.Events))
	for _, evt := range f.emitter.Events {
		out = append(out, evt.EventType())
	}
	return out
}

func defaultKey(f *fixture) IncentiveKey {
	return IncentiveKey{
		RewardToken: testToken,
		Pool:        pool,
		StartTime:   f.now,
		EndTime:     f.now + 1000,
		MinDuration: 0,
		Refundee:    treasury,
	}
}

// createFunded registers a standard incentive: pool 1,000,000 with the
// default tier table, so the reserve is 750,000 and the escrow 1,750,000.
func createFunded(t *testing.T, f *fixture) uint64 {
	t.Helper()
	f.state.fund(testToken, admin, 10_000_000)
	id, err := f.engine.CreateIncentive(admin, defaultKey(f), big.NewInt(1_000_000))
	if err != nil {
		t.Fatalf("create incentive: %v", err)
	}
	return id
}

func depositPosition(t *testing.T, f *fixture, owner [20]byte, positionID uint64, liquidity uint64) {
	t.Helper()
	f.oracle.setPosition(positionID, PositionInfo{
		Pool:      pool,
		TickLower: -60,
		TickUpper: 60,
		Liquidity: uint256.NewInt(liquidity),
	})
	if err := f.engine.TransferDeposit(owner, positionID); err != nil {
		t.Fatalf("transfer deposit: %v", err)
	}
}

// conservation asserts the ledger identity for one incentive: pools
// plus credited balances plus paid-out funds equal the original escrow.
func conservation(t *testing.T, f *fixture, id uint64, escrowed int64) {
	t.Helper()
	record, ok, err := f.state.IncentiveGet(id)
	if err != nil || !ok {
		t.Fatalf("incentive %d missing: %v", id, err)
	}
	// Everything transferred out of the vault was either claimed or refunded.
	vault := f.state.balance(record.Key.RewardToken, f.state.vault)
	outflow := new(big.Int).Sub(big.NewInt(escrowed), vault)
	claimable := new(big.Int)
	for key, balance := range f.state.rewards {
		if key.token == record.Key.RewardToken {
			claimable.Add(claimable, balance)
		}
	}
	pools := new(big.Int).Add(record.TotalRewardUnclaimed, record.TotalReferralUnclaimed)
	sum := new(big.Int).Add(pools, claimable)
	sum.Add(sum, outflow)
	if sum.Cmp(big.NewInt(escrowed)) != 0 {
		t.Fatalf("conservation broken: pools+claimable+outflow=%s, escrowed=%d", sum, escrowed)
	}
}
