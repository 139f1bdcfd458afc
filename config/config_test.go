package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"liqmine/crypto"
)

var testAdminAddr = func() string {
	var addr [20]byte
	addr[0] = 0x42
	addr[len(addr)-1] = 0x24
	return crypto.MustNewAddress(addr).String()
}()

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesFullConfig(t *testing.T) {
	contents := fmt.Sprintf(`ListenAddress = "0.0.0.0:9000"
DataDir = "./data"
Backend = "bolt"
Admins = ["%s"]

[log]
Level = "debug"
FilePath = "./logs/liqmined.log"
MaxSizeMB = 64

[telemetry]
Enabled = true
Endpoint = "otel-collector:4318"
Environment = "staging"

[auth]
Enabled = true
HMACSecret = "topsecret"
Issuer = "liqmine"
Audience = "rpc"

[rate_limit]
Enabled = true
RequestsPerMinute = 120
Burst = 5

[oracle]
Mode = "evm"
Endpoint = "https://rpc.example.org"
Contract = "0x1111111111111111111111111111111111111111"
TimeoutSeconds = 5

[pauses]
Incentive = true

[[tokens]]
Symbol = "LIQ"
Name = "Liquidity Mining Token"
Decimals = 18

[[genesis]]
Token = "LIQ"
Address = "%s"
Amount = "1000000"
`, testAdminAddr, testAdminAddr)

	cfg, err := Load(writeConfig(t, contents))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != "0.0.0.0:9000" {
		t.Fatalf("unexpected listen address %q", cfg.ListenAddress)
	}
	if cfg.Backend != BackendBolt {
		t.Fatalf("unexpected backend %q", cfg.Backend)
	}
	if cfg.Log.Level != "debug" || cfg.Log.MaxSizeMB != 64 {
		t.Fatalf("log config not decoded: %+v", cfg.Log)
	}
	if !cfg.Telemetry.Enabled || cfg.Telemetry.Endpoint != "otel-collector:4318" {
		t.Fatalf("telemetry config not decoded: %+v", cfg.Telemetry)
	}
	if !cfg.Auth.Enabled || cfg.Auth.Secret() != "topsecret" {
		t.Fatalf("auth config not decoded: %+v", cfg.Auth)
	}
	if cfg.RateLimit.RequestsPerMinute != 120 || cfg.RateLimit.Burst != 5 {
		t.Fatalf("rate limit config not decoded: %+v", cfg.RateLimit)
	}
	if cfg.Oracle.Mode != OracleModeEVM || cfg.Oracle.Timeout().Seconds() != 5 {
		t.Fatalf("oracle config not decoded: %+v", cfg.Oracle)
	}
	if !cfg.Pauses.IsPaused("incentive") || cfg.Pauses.IsPaused("other") {
		t.Fatalf("pause view incorrect: %+v", cfg.Pauses)
	}
	admins, err := cfg.AdminAddresses()
	if err != nil {
		t.Fatalf("admin addresses: %v", err)
	}
	if len(admins) != 1 || admins[0][0] != 0x42 {
		t.Fatalf("unexpected admins %v", admins)
	}
	amount, err := cfg.Genesis[0].Amounts()
	if err != nil {
		t.Fatalf("genesis amount: %v", err)
	}
	if amount.String() != "1000000" {
		t.Fatalf("unexpected genesis amount %s", amount)
	}
}

func TestLoadCreatesDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend != BackendLevelDB {
		t.Fatalf("unexpected default backend %q", cfg.Backend)
	}
	if cfg.Oracle.Mode != OracleModeSimulator {
		t.Fatalf("unexpected default oracle mode %q", cfg.Oracle.Mode)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not persisted: %v", err)
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Backend != cfg.Backend {
		t.Fatalf("reloaded backend mismatch")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `ListenAddress = ""`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":8080" || cfg.Backend != BackendLevelDB || cfg.Log.Level != "info" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name     string
		contents string
	}{
		{"unknown backend", `Backend = "redis"`},
		{"unknown log level", "[log]\nLevel = \"trace\""},
		{"unknown oracle mode", "[oracle]\nMode = \"mock\""},
		{"evm oracle without endpoint", "[oracle]\nMode = \"evm\""},
		{"auth without secret", "[auth]\nEnabled = true"},
		{"bad admin address", `Admins = ["nope"]`},
		{"duplicate token", "[[tokens]]\nSymbol = \"LIQ\"\n[[tokens]]\nSymbol = \"liq\""},
		{"genesis unknown token", "[[genesis]]\nToken = \"LIQ\"\nAddress = \"x\"\nAmount = \"1\""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.contents)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
