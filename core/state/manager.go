package state

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"liqmine/storage"
)

var (
	ErrTokenNotRegistered = errors.New("state: token not registered")
	ErrTokenExists        = errors.New("state: token already registered")
	ErrInsufficientFunds  = errors.New("state: insufficient funds")
	ErrInvalidAmount      = errors.New("state: amount must be positive")
)

// VaultAddress is the pseudo-account holding escrowed incentive funds.
var VaultAddress = func() [20]byte {
	var out [20]byte
	copy(out[:], ethcrypto.Keccak256([]byte("liqmine/incentive-vault")))
	return out
}()

// Manager reads and writes the engine's persistent state: the token ledger,
// access-control roles, and the incentive module's records. All values are
// RLP encoded under keccak-hashed namespaced keys.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager over the provided key-value store.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

var (
	tokenPrefix   = []byte("token/meta/")
	balancePrefix = []byte("token/balance/")
	rolePrefix    = []byte("role/")
)

func hashKey(parts ...[]byte) []byte {
	var buf []byte
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return ethcrypto.Keccak256(buf)
}

// getRecord decodes the value at key into out. The boolean reports presence.
func (m *Manager) getRecord(key []byte, out interface{}) (bool, error) {
	data, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("state: decode record: %w", err)
	}
	return true, nil
}

func (m *Manager) putRecord(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode record: %w", err)
	}
	return m.db.Put(key, encoded)
}

// --- Token registry & ledger ---

// TokenMetadata describes a registered reward token.
type TokenMetadata struct {
	Symbol   string
	Name     string
	Decimals uint8
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// RegisterToken records a token so the ledger will accept transfers in it.
func (m *Manager) RegisterToken(symbol, name string, decimals uint8) error {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return ErrTokenNotRegistered
	}
	key := hashKey(tokenPrefix, []byte(symbol))
	exists, err := m.db.Has(key)
	if err != nil {
		return err
	}
	if exists {
		return ErrTokenExists
	}
	return m.putRecord(key, &TokenMetadata{Symbol: symbol, Name: name, Decimals: decimals})
}

// TokenExists reports whether a token has been registered.
func (m *Manager) TokenExists(symbol string) bool {
	ok, err := m.db.Has(hashKey(tokenPrefix, []byte(normalizeSymbol(symbol))))
	return err == nil && ok
}

func balanceKey(token string, addr [20]byte) []byte {
	return hashKey(balancePrefix, []byte(normalizeSymbol(token)), []byte{'/'}, addr[:])
}

// BalanceOf returns the ledger balance for an account.
func (m *Manager) BalanceOf(token string, addr [20]byte) (*big.Int, error) {
	balance := new(big.Int)
	if _, err := m.getRecord(balanceKey(token, addr), balance); err != nil {
		return nil, err
	}
	return balance, nil
}

func (m *Manager) setBalance(token string, addr [20]byte, amount *big.Int) error {
	return m.putRecord(balanceKey(token, addr), amount)
}

// Mint credits freshly issued tokens to an account. Used at genesis and by
// admin tooling; the incentive engine itself never mints.
func (m *Manager) Mint(token string, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !m.TokenExists(token) {
		return fmt.Errorf("%w: %s", ErrTokenNotRegistered, token)
	}
	balance, err := m.BalanceOf(token, to)
	if err != nil {
		return err
	}
	return m.setBalance(token, to, new(big.Int).Add(balance, amount))
}

// Transfer moves funds between two ledger accounts, failing on insufficient
// balance with no partial effect.
func (m *Manager) Transfer(token string, from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !m.TokenExists(token) {
		return fmt.Errorf("%w: %s", ErrTokenNotRegistered, token)
	}
	fromBalance, err := m.BalanceOf(token, from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	toBalance, err := m.BalanceOf(token, to)
	if err != nil {
		return err
	}
	if err := m.setBalance(token, from, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return m.setBalance(token, to, new(big.Int).Add(toBalance, amount))
}

// TransferIn escrows funds from an account into the module vault.
func (m *Manager) TransferIn(token string, from [20]byte, amount *big.Int) error {
	return m.Transfer(token, from, VaultAddress, amount)
}

// TransferOut releases vault funds to an account.
func (m *Manager) TransferOut(token string, to [20]byte, amount *big.Int) error {
	return m.Transfer(token, VaultAddress, to, amount)
}

// VaultBalance returns the funds currently escrowed in the module vault.
func (m *Manager) VaultBalance(token string) (*big.Int, error) {
	return m.BalanceOf(token, VaultAddress)
}

// --- Access control ---

func roleKey(role string, addr []byte) []byte {
	return hashKey(rolePrefix, []byte(role), []byte{'/'}, addr)
}

// GrantRole marks an address as holding a role.
func (m *Manager) GrantRole(role string, addr []byte) error {
	return m.putRecord(roleKey(role, addr), true)
}

// RevokeRole removes a role marker.
func (m *Manager) RevokeRole(role string, addr []byte) error {
	return m.db.Delete(roleKey(role, addr))
}

// HasRole reports whether an address holds a role.
func (m *Manager) HasRole(role string, addr []byte) bool {
	var granted bool
	ok, err := m.getRecord(roleKey(role, addr), &granted)
	return err == nil && ok && granted
}
