package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"liqmine/crypto"
)

// Config is the full daemon configuration loaded from TOML.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	Backend       string `toml:"Backend"`

	Admins []string `toml:"Admins"`

	Log       Log       `toml:"log"`
	Telemetry Telemetry `toml:"telemetry"`
	Auth      Auth      `toml:"auth"`
	RateLimit RateLimit `toml:"rate_limit"`
	CORS      CORS      `toml:"cors"`
	Oracle    Oracle    `toml:"oracle"`
	Pauses    Pauses    `toml:"pauses"`

	Tokens  []Token      `toml:"tokens"`
	Genesis []Allocation `toml:"genesis"`
}

// Log controls structured logging output and rotation.
type Log struct {
	Level      string `toml:"Level"`
	FilePath   string `toml:"FilePath"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Telemetry configures the OTLP trace and metric exporters.
type Telemetry struct {
	Enabled     bool              `toml:"Enabled"`
	Endpoint    string            `toml:"Endpoint"`
	Insecure    bool              `toml:"Insecure"`
	Environment string            `toml:"Environment"`
	Headers     map[string]string `toml:"Headers"`
}

// Auth configures bearer-token authentication on the RPC surface.
type Auth struct {
	Enabled         bool   `toml:"Enabled"`
	HMACSecret      string `toml:"HMACSecret"`
	HMACSecretEnv   string `toml:"HMACSecretEnv"`
	Issuer          string `toml:"Issuer"`
	Audience        string `toml:"Audience"`
	ScopeClaim      string `toml:"ScopeClaim"`
	ClockSkewSecond int    `toml:"ClockSkewSeconds"`
}

// Secret resolves the HMAC secret, preferring the environment variable when
// one is named.
func (a Auth) Secret() string {
	if a.HMACSecretEnv != "" {
		if v := os.Getenv(a.HMACSecretEnv); v != "" {
			return v
		}
	}
	return a.HMACSecret
}

// ClockSkew returns the configured leeway as a duration.
func (a Auth) ClockSkew() time.Duration {
	return time.Duration(a.ClockSkewSecond) * time.Second
}

// RateLimit throttles RPC clients by source address.
type RateLimit struct {
	Enabled           bool `toml:"Enabled"`
	RequestsPerMinute int  `toml:"RequestsPerMinute"`
	Burst             int  `toml:"Burst"`
}

// CORS restricts browser origins allowed to call the RPC surface.
type CORS struct {
	AllowedOrigins []string `toml:"AllowedOrigins"`
	AllowedMethods []string `toml:"AllowedMethods"`
	AllowedHeaders []string `toml:"AllowedHeaders"`
}

// Oracle selects the position oracle backing the incentive engine.
type Oracle struct {
	Mode           string `toml:"Mode"`
	Endpoint       string `toml:"Endpoint"`
	Contract       string `toml:"Contract"`
	TimeoutSeconds int    `toml:"TimeoutSeconds"`
}

// Timeout returns the per-call oracle timeout.
func (o Oracle) Timeout() time.Duration {
	if o.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// Pauses administratively halts mutations per module.
type Pauses struct {
	Incentive bool `toml:"Incentive"`
}

// IsPaused implements the module pause view.
func (p Pauses) IsPaused(module string) bool {
	switch module {
	case "incentive":
		return p.Incentive
	default:
		return false
	}
}

// Token registers a reward token in the ledger at startup.
type Token struct {
	Symbol   string `toml:"Symbol"`
	Name     string `toml:"Name"`
	Decimals uint8  `toml:"Decimals"`
}

// Allocation mints a starting balance to an account at startup.
type Allocation struct {
	Token   string `toml:"Token"`
	Address string `toml:"Address"`
	Amount  string `toml:"Amount"`
}

// Amounts parses the allocation amount into a big integer.
func (a Allocation) Amounts() (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(a.Amount), 10)
	if !ok || amount.Sign() <= 0 {
		return nil, fmt.Errorf("invalid allocation amount %q", a.Amount)
	}
	return amount, nil
}

const (
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
	BackendMemory  = "mem"

	OracleModeSimulator = "sim"
	OracleModeEVM       = "evm"
)

// Load reads the configuration at path. A missing file produces a persisted
// default configuration instead of an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8080"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./liqmine-data"
	}
	if strings.TrimSpace(c.Backend) == "" {
		c.Backend = BackendLevelDB
	}
	if strings.TrimSpace(c.Log.Level) == "" {
		c.Log.Level = "info"
	}
	if strings.TrimSpace(c.Oracle.Mode) == "" {
		c.Oracle.Mode = OracleModeSimulator
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		c.RateLimit.RequestsPerMinute = 600
	}
	if c.RateLimit.Enabled && c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 20
	}
}

// AdminAddresses decodes the configured admin accounts.
func (c *Config) AdminAddresses() ([][20]byte, error) {
	out := make([][20]byte, 0, len(c.Admins))
	for _, raw := range c.Admins {
		decoded, err := crypto.DecodeAddress(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid admin address %q: %w", raw, err)
		}
		out = append(out, decoded.Array())
	}
	return out, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress: ":8080",
		DataDir:       "./liqmine-data",
		Backend:       BackendLevelDB,
		Log:           Log{Level: "info"},
		Oracle:        Oracle{Mode: OracleModeSimulator},
		Tokens:        []Token{{Symbol: "LIQ", Name: "Liquidity Mining Token", Decimals: 18}},
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
