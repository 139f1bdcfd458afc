package oracle

import (
	"fmt"
	"math/big"
	"sync"

	"liqmine/native/incentive"
)

// rangeID keys accumulator state by pool and exact tick range.
type rangeID struct {
	pool      [20]byte
	tickLower int32
	tickUpper int32
}

type rangeState struct {
	liquidity *big.Int
	accX128   *big.Int
}

// Simulator is a deterministic in-memory PositionOracle. Ranges accrue
// seconds-per-liquidity: each Advance adds elapsed<<128 / activeLiquidity to
// every range with nonzero in-range liquidity. Safe for concurrent use.
type Simulator struct {
	mu        sync.Mutex
	positions map[uint64]incentive.PositionInfo
	ranges    map[rangeID]*rangeState
}

// NewSimulator creates an empty simulator.
func NewSimulator() *Simulator {
	return &Simulator{
		positions: make(map[uint64]incentive.PositionInfo),
		ranges:    make(map[rangeID]*rangeState),
	}
}

func (s *Simulator) rangeFor(id rangeID) *rangeState {
	state, ok := s.ranges[id]
	if !ok {
		state = &rangeState{liquidity: new(big.Int), accX128: new(big.Int)}
		s.ranges[id] = state
	}
	return state
}

// SetPosition registers or replaces a simulated position and adjusts the
// in-range liquidity of its tick range.
func (s *Simulator) SetPosition(positionID uint64, info incentive.PositionInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.positions[positionID]; ok {
		state := s.rangeFor(rangeID{prev.Pool, prev.TickLower, prev.TickUpper})
		state.liquidity.Sub(state.liquidity, prev.Liquidity.ToBig())
	}
	s.positions[positionID] = info
	state := s.rangeFor(rangeID{info.Pool, info.TickLower, info.TickUpper})
	state.liquidity.Add(state.liquidity, info.Liquidity.ToBig())
}

// RemovePosition deregisters a position, releasing its range liquidity.
func (s *Simulator) RemovePosition(positionID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.positions[positionID]
	if !ok {
		return
	}
	state := s.rangeFor(rangeID{prev.Pool, prev.TickLower, prev.TickUpper})
	state.liquidity.Sub(state.liquidity, prev.Liquidity.ToBig())
	delete(s.positions, positionID)
}

// Advance moves simulated time forward, accruing seconds-per-liquidity on
// every active range.
func (s *Simulator) Advance(seconds uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seconds == 0 {
		return
	}
	elapsedX128 := new(big.Int).Lsh(new(big.Int).SetUint64(seconds), 128)
	for _, state := range s.ranges {
		if state.liquidity.Sign() <= 0 {
			continue
		}
		state.accX128.Add(state.accX128, new(big.Int).Quo(elapsedX128, state.liquidity))
	}
}

// PositionInfo returns the registered metadata for a position.
func (s *Simulator) PositionInfo(positionID uint64) (incentive.PositionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.positions[positionID]
	if !ok {
		return incentive.PositionInfo{}, fmt.Errorf("oracle: unknown position %d", positionID)
	}
	return info, nil
}

// LiquidityTimeInsideX128 returns the accumulator for a tick range. Unknown
// ranges report zero, matching a range that has never been active.
func (s *Simulator) LiquidityTimeInsideX128(pool [20]byte, tickLower, tickUpper int32) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.ranges[rangeID{pool, tickLower, tickUpper}]
	if !ok {
		return new(big.Int), nil
	}
	return new(big.Int).Set(state.accX128), nil
}
