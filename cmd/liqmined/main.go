package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"liqmine/config"
	"liqmine/core/state"
	"liqmine/crypto"
	"liqmine/gateway/middleware"
	"liqmine/native/incentive"
	"liqmine/observability"
	"liqmine/observability/logging"
	"liqmine/observability/otel"
	"liqmine/oracle"
	"liqmine/rpc"
	"liqmine/storage"
)

const envVar = "LIQMINE_ENV"

var bootstrapKey = []byte("liqmine/bootstrapped")

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	env := strings.TrimSpace(os.Getenv(envVar))
	logger := logging.SetupWithOptions(logging.Options{
		Service:    "liqmined",
		Env:        env,
		Level:      parseLevel(cfg.Log.Level),
		FilePath:   cfg.Log.FilePath,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := otel.Init(ctx, otel.Config{
			ServiceName: "liqmined",
			Environment: cfg.Telemetry.Environment,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			Headers:     cfg.Telemetry.Headers,
			Metrics:     true,
			Traces:      true,
		})
		if err != nil {
			logger.Error("telemetry init failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("telemetry shutdown failed", slog.Any("error", err))
			}
		}()
	}

	db, err := openDatabase(cfg)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)
	if err := bootstrap(db, manager, cfg, logger); err != nil {
		logger.Error("bootstrap failed", slog.Any("error", err))
		os.Exit(1)
	}

	positionOracle, err := buildOracle(cfg, logger)
	if err != nil {
		logger.Error("oracle init failed", slog.Any("error", err))
		os.Exit(1)
	}

	buffer := rpc.NewEventBuffer(0)
	engine := incentive.NewEngine()
	engine.SetState(manager)
	engine.SetOracle(positionOracle)
	engine.SetPauses(cfg.Pauses)
	engine.SetEmitter(observability.NewMeteredEmitter(buffer))

	server := rpc.NewServer(engine, manager, buffer, serverConfig(cfg), logger)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("rpc server listening", slog.String("address", cfg.ListenAddress))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("rpc server failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", slog.Any("error", err))
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	switch cfg.Backend {
	case config.BackendLevelDB:
		return storage.NewLevelDB(filepath.Join(cfg.DataDir, "leveldb"))
	case config.BackendBolt:
		return storage.NewBoltDB(filepath.Join(cfg.DataDir, "liqmine.bolt"))
	case config.BackendMemory:
		return storage.NewMemDB(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// bootstrap registers tokens and grants admin roles on every start; genesis
// balances are minted exactly once per data directory.
func bootstrap(db storage.Database, manager *state.Manager, cfg *config.Config, logger *slog.Logger) error {
	for _, token := range cfg.Tokens {
		if manager.TokenExists(token.Symbol) {
			continue
		}
		if err := manager.RegisterToken(token.Symbol, token.Name, token.Decimals); err != nil {
			return fmt.Errorf("register token %s: %w", token.Symbol, err)
		}
		logger.Info("registered token", slog.String("symbol", token.Symbol))
	}

	admins, err := cfg.AdminAddresses()
	if err != nil {
		return err
	}
	for _, admin := range admins {
		if err := manager.GrantRole(incentive.RoleIncentiveAdmin, admin[:]); err != nil {
			return fmt.Errorf("grant admin role: %w", err)
		}
	}

	done, err := db.Has(bootstrapKey)
	if err != nil {
		return err
	}
	if done {
		return nil
	}
	for _, alloc := range cfg.Genesis {
		amount, err := alloc.Amounts()
		if err != nil {
			return err
		}
		decoded, err := parseAllocAddress(alloc.Address)
		if err != nil {
			return err
		}
		if err := manager.Mint(alloc.Token, decoded, amount); err != nil {
			return fmt.Errorf("genesis mint %s: %w", alloc.Token, err)
		}
		logger.Info("genesis allocation minted",
			slog.String("token", alloc.Token),
			slog.String("address", alloc.Address),
			slog.String("amount", amount.String()))
	}
	return db.Put(bootstrapKey, []byte{1})
}

func buildOracle(cfg *config.Config, logger *slog.Logger) (incentive.PositionOracle, error) {
	switch cfg.Oracle.Mode {
	case config.OracleModeSimulator:
		logger.Warn("using simulated position oracle; positions must be seeded by an operator")
		return oracle.NewSimulator(), nil
	case config.OracleModeEVM:
		client, err := oracle.DialContractCaller(cfg.Oracle.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("dial oracle endpoint: %w", err)
		}
		return oracle.NewEVMOracle(client, common.HexToAddress(cfg.Oracle.Contract), cfg.Oracle.Timeout())
	default:
		return nil, fmt.Errorf("unknown oracle mode %q", cfg.Oracle.Mode)
	}
}

func parseAllocAddress(raw string) ([20]byte, error) {
	decoded, err := crypto.DecodeAddress(strings.TrimSpace(raw))
	if err != nil {
		return [20]byte{}, fmt.Errorf("invalid genesis address %q: %w", raw, err)
	}
	return decoded.Array(), nil
}

func serverConfig(cfg *config.Config) rpc.ServerConfig {
	return rpc.ServerConfig{
		Auth: middleware.AuthConfig{
			Enabled:    cfg.Auth.Enabled,
			HMACSecret: cfg.Auth.Secret(),
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			ScopeClaim: cfg.Auth.ScopeClaim,
			ClockSkew:  cfg.Auth.ClockSkew(),
		},
		RateLimit: middleware.RateLimitConfig{
			Enabled:           cfg.RateLimit.Enabled,
			RequestsPerMinute: float64(cfg.RateLimit.RequestsPerMinute),
			Burst:             cfg.RateLimit.Burst,
		},
		Obs: middleware.ObservabilityConfig{
			ServiceName: "liqmined",
			LogRequests: true,
			Enabled:     true,
		},
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: cfg.CORS.AllowedMethods,
			AllowedHeaders: cfg.CORS.AllowedHeaders,
		},
	}
}
