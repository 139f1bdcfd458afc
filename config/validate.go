package config

import (
	"fmt"
	"strings"

	"liqmine/crypto"
)

var logLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Validate rejects configurations the daemon cannot safely run with.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendLevelDB, BackendBolt, BackendMemory:
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Backend)
	}

	if _, ok := logLevels[strings.ToLower(c.Log.Level)]; !ok {
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}

	switch c.Oracle.Mode {
	case OracleModeSimulator:
	case OracleModeEVM:
		if strings.TrimSpace(c.Oracle.Endpoint) == "" {
			return fmt.Errorf("config: oracle endpoint required in evm mode")
		}
		if strings.TrimSpace(c.Oracle.Contract) == "" {
			return fmt.Errorf("config: oracle contract required in evm mode")
		}
	default:
		return fmt.Errorf("config: unknown oracle mode %q", c.Oracle.Mode)
	}

	if c.Auth.Enabled && strings.TrimSpace(c.Auth.Secret()) == "" {
		return fmt.Errorf("config: auth enabled without an HMAC secret")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("config: rate limit requires a positive request budget")
	}

	if _, err := c.AdminAddresses(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	seen := make(map[string]struct{}, len(c.Tokens))
	for _, token := range c.Tokens {
		symbol := strings.ToUpper(strings.TrimSpace(token.Symbol))
		if symbol == "" {
			return fmt.Errorf("config: token symbol required")
		}
		if _, dup := seen[symbol]; dup {
			return fmt.Errorf("config: duplicate token %q", symbol)
		}
		seen[symbol] = struct{}{}
	}

	for _, alloc := range c.Genesis {
		symbol := strings.ToUpper(strings.TrimSpace(alloc.Token))
		if _, ok := seen[symbol]; !ok {
			return fmt.Errorf("config: genesis allocation references unregistered token %q", alloc.Token)
		}
		if _, err := crypto.DecodeAddress(strings.TrimSpace(alloc.Address)); err != nil {
			return fmt.Errorf("config: invalid genesis address %q: %w", alloc.Address, err)
		}
		if _, err := alloc.Amounts(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}

	return nil
}
