package oracle

import (
	"context"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

// stubCaller answers contract calls from canned ABI-encoded outputs keyed by
// method selector.
type stubCaller struct {
	abi     abi.ABI
	outputs map[string][]byte
	calls   []ethereum.CallMsg
}

func newStubCaller(t *testing.T) *stubCaller {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(positionManagerABI))
	require.NoError(t, err)
	return &stubCaller{abi: parsed, outputs: make(map[string][]byte)}
}

func (s *stubCaller) respond(t *testing.T, method string, values ...interface{}) {
	t.Helper()
	packed, err := s.abi.Methods[method].Outputs.Pack(values...)
	require.NoError(t, err)
	s.outputs[method] = packed
}

func (s *stubCaller) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	s.calls = append(s.calls, call)
	for name, method := range s.abi.Methods {
		if len(call.Data) >= 4 && string(call.Data[:4]) == string(method.ID) {
			return s.outputs[name], nil
		}
	}
	return nil, ethereum.NotFound
}

func TestEVMOraclePositionInfo(t *testing.T) {
	stub := newStubCaller(t)
	contract := common.HexToAddress("0x00000000000000000000000000000000000000AA")
	pool := common.HexToAddress("0x0000000000000000000000000000000000000099")
	stub.respond(t, "position", pool, big.NewInt(-887220), big.NewInt(887220), big.NewInt(123456))

	oracle, err := NewEVMOracle(stub, contract, time.Second)
	require.NoError(t, err)

	info, err := oracle.PositionInfo(42)
	require.NoError(t, err)
	require.Equal(t, [20]byte(pool), info.Pool)
	require.EqualValues(t, -887220, info.TickLower)
	require.EqualValues(t, 887220, info.TickUpper)
	require.EqualValues(t, 123456, info.Liquidity.Uint64())

	require.Len(t, stub.calls, 1)
	require.Equal(t, contract, *stub.calls[0].To)
}

func TestEVMOracleAccumulator(t *testing.T) {
	stub := newStubCaller(t)
	contract := common.HexToAddress("0x00000000000000000000000000000000000000AA")
	pool := common.HexToAddress("0x0000000000000000000000000000000000000099")
	want := new(big.Int).Lsh(big.NewInt(77), 128)
	stub.respond(t, "liquidityTimeInsideX128", want)

	oracle, err := NewEVMOracle(stub, contract, time.Second)
	require.NoError(t, err)

	acc, err := oracle.LiquidityTimeInsideX128(pool, -60, 60)
	require.NoError(t, err)
	require.Zero(t, acc.Cmp(want))
}

func TestEVMOracleConstructorValidation(t *testing.T) {
	stub := newStubCaller(t)
	_, err := NewEVMOracle(nil, common.HexToAddress("0xAA"), time.Second)
	require.Error(t, err)
	_, err = NewEVMOracle(stub, common.Address{}, time.Second)
	require.Error(t, err)
}
