// Package oracle provides PositionOracle implementations: an EVM-backed
// client reading a position manager contract, and a deterministic in-memory
// simulator for tests and local deployments.
package oracle

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"

	"liqmine/native/incentive"
)

// positionManagerABI is the minimal read surface of the on-chain position
// manager the oracle consumes.
const positionManagerABI = `[
  {"name":"position","type":"function","stateMutability":"view",
   "inputs":[{"name":"positionId","type":"uint256"}],
   "outputs":[{"name":"pool","type":"address"},
              {"name":"tickLower","type":"int24"},
              {"name":"tickUpper","type":"int24"},
              {"name":"liquidity","type":"uint128"}]},
  {"name":"liquidityTimeInsideX128","type":"function","stateMutability":"view",
   "inputs":[{"name":"pool","type":"address"},
             {"name":"tickLower","type":"int24"},
             {"name":"tickUpper","type":"int24"}],
   "outputs":[{"name":"value","type":"uint256"}]}
]`

// ContractCaller is the subset of the Ethereum RPC the oracle uses.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// DialContractCaller initialises an EVM RPC client for the provided endpoint.
func DialContractCaller(endpoint string) (*ethclient.Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("oracle: evm endpoint required")
	}
	return ethclient.Dial(trimmed)
}

// EVMOracle reads position metadata and liquidity-time accumulators from a
// position manager contract.
type EVMOracle struct {
	client   ContractCaller
	contract common.Address
	abi      abi.ABI
	timeout  time.Duration
}

// NewEVMOracle constructs an oracle bound to the position manager contract at
// the given address.
func NewEVMOracle(client ContractCaller, contract common.Address, timeout time.Duration) (*EVMOracle, error) {
	if client == nil {
		return nil, fmt.Errorf("oracle: evm client required")
	}
	if (contract == common.Address{}) {
		return nil, fmt.Errorf("oracle: contract address required")
	}
	parsed, err := abi.JSON(strings.NewReader(positionManagerABI))
	if err != nil {
		return nil, fmt.Errorf("oracle: parse abi: %w", err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &EVMOracle{client: client, contract: contract, abi: parsed, timeout: timeout}, nil
}

func (o *EVMOracle) call(method string, args ...interface{}) ([]interface{}, error) {
	input, err := o.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("oracle: pack %s: %w", method, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()
	output, err := o.client.CallContract(ctx, ethereum.CallMsg{To: &o.contract, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("oracle: call %s: %w", method, err)
	}
	values, err := o.abi.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("oracle: unpack %s: %w", method, err)
	}
	return values, nil
}

// PositionInfo reads a position's pool, tick range, and current liquidity.
func (o *EVMOracle) PositionInfo(positionID uint64) (incentive.PositionInfo, error) {
	values, err := o.call("position", new(big.Int).SetUint64(positionID))
	if err != nil {
		return incentive.PositionInfo{}, err
	}
	if len(values) != 4 {
		return incentive.PositionInfo{}, fmt.Errorf("oracle: position returned %d values", len(values))
	}
	pool, ok := values[0].(common.Address)
	if !ok {
		return incentive.PositionInfo{}, fmt.Errorf("oracle: unexpected pool type %T", values[0])
	}
	tickLower, err := decodeTick(values[1])
	if err != nil {
		return incentive.PositionInfo{}, err
	}
	tickUpper, err := decodeTick(values[2])
	if err != nil {
		return incentive.PositionInfo{}, err
	}
	rawLiquidity, ok := values[3].(*big.Int)
	if !ok {
		return incentive.PositionInfo{}, fmt.Errorf("oracle: unexpected liquidity type %T", values[3])
	}
	liquidity, overflow := uint256.FromBig(rawLiquidity)
	if overflow {
		return incentive.PositionInfo{}, fmt.Errorf("oracle: liquidity exceeds 256 bits")
	}
	return incentive.PositionInfo{
		Pool:      pool,
		TickLower: tickLower,
		TickUpper: tickUpper,
		Liquidity: liquidity,
	}, nil
}

// LiquidityTimeInsideX128 reads the cumulative liquidity-time accumulator for
// a tick range.
func (o *EVMOracle) LiquidityTimeInsideX128(pool [20]byte, tickLower, tickUpper int32) (*big.Int, error) {
	values, err := o.call("liquidityTimeInsideX128",
		common.Address(pool), big.NewInt(int64(tickLower)), big.NewInt(int64(tickUpper)))
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("oracle: accumulator returned %d values", len(values))
	}
	value, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("oracle: unexpected accumulator type %T", values[0])
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("oracle: negative accumulator")
	}
	return value, nil
}

func decodeTick(value interface{}) (int32, error) {
	tick, ok := value.(*big.Int)
	if !ok {
		return 0, fmt.Errorf("oracle: unexpected tick type %T", value)
	}
	if !tick.IsInt64() {
		return 0, fmt.Errorf("oracle: tick out of range")
	}
	v := tick.Int64()
	if v < -8388608 || v > 8388607 {
		return 0, fmt.Errorf("oracle: tick %d outside int24", v)
	}
	return int32(v), nil
}
