package events

import (
	"math/big"
	"strconv"
	"strings"

	"liqmine/crypto"
)

func formatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

func formatAddress(addr [20]byte) string {
	return crypto.MustNewAddress(addr).String()
}

func uintToString(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func normalizeToken(token string) string {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ""
	}
	return strings.ToUpper(trimmed)
}
