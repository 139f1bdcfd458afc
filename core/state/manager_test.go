package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"liqmine/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(storage.NewMemDB())
}

func testAddr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

func TestTokenRegistry(t *testing.T) {
	m := newTestManager(t)
	require.False(t, m.TokenExists("LQM"))
	require.NoError(t, m.RegisterToken("lqm", "Liquidity Mine", 18))
	require.True(t, m.TokenExists("LQM"))
	require.True(t, m.TokenExists(" lqm "))
	require.ErrorIs(t, m.RegisterToken("LQM", "dup", 18), ErrTokenExists)
}

func TestMintAndTransfer(t *testing.T) {
	m := newTestManager(t)
	alice := testAddr(0xA1)
	bob := testAddr(0xB0)

	require.ErrorIs(t, m.Mint("LQM", alice, big.NewInt(100)), ErrTokenNotRegistered)
	require.NoError(t, m.RegisterToken("LQM", "Liquidity Mine", 18))
	require.ErrorIs(t, m.Mint("LQM", alice, big.NewInt(0)), ErrInvalidAmount)
	require.NoError(t, m.Mint("LQM", alice, big.NewInt(100)))

	require.ErrorIs(t, m.Transfer("LQM", alice, bob, big.NewInt(101)), ErrInsufficientFunds)
	require.NoError(t, m.Transfer("LQM", alice, bob, big.NewInt(40)))

	aliceBalance, err := m.BalanceOf("LQM", alice)
	require.NoError(t, err)
	require.Zero(t, aliceBalance.Cmp(big.NewInt(60)))
	bobBalance, err := m.BalanceOf("LQM", bob)
	require.NoError(t, err)
	require.Zero(t, bobBalance.Cmp(big.NewInt(40)))
}

func TestVaultEscrow(t *testing.T) {
	m := newTestManager(t)
	alice := testAddr(0xA1)
	require.NoError(t, m.RegisterToken("LQM", "Liquidity Mine", 18))
	require.NoError(t, m.Mint("LQM", alice, big.NewInt(1000)))

	require.NoError(t, m.TransferIn("LQM", alice, big.NewInt(600)))
	vault, err := m.VaultBalance("LQM")
	require.NoError(t, err)
	require.Zero(t, vault.Cmp(big.NewInt(600)))

	require.ErrorIs(t, m.TransferOut("LQM", alice, big.NewInt(601)), ErrInsufficientFunds)
	require.NoError(t, m.TransferOut("LQM", alice, big.NewInt(600)))
	vault, err = m.VaultBalance("LQM")
	require.NoError(t, err)
	require.Zero(t, vault.Sign())
}

func TestRoles(t *testing.T) {
	m := newTestManager(t)
	admin := testAddr(0x01)
	require.False(t, m.HasRole("ROLE_INCENTIVE_ADMIN", admin[:]))
	require.NoError(t, m.GrantRole("ROLE_INCENTIVE_ADMIN", admin[:]))
	require.True(t, m.HasRole("ROLE_INCENTIVE_ADMIN", admin[:]))
	require.False(t, m.HasRole("ROLE_OTHER", admin[:]))
	require.NoError(t, m.RevokeRole("ROLE_INCENTIVE_ADMIN", admin[:]))
	require.False(t, m.HasRole("ROLE_INCENTIVE_ADMIN", admin[:]))
}
