package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	raw := value.Value
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Config captures runtime configuration for the dashboard backend.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Chain     ChainConfig     `yaml:"chain"`
	Contracts ContractsConfig `yaml:"contracts"`
	Naming    NamingConfig    `yaml:"naming"`
	KYC       KYCConfig       `yaml:"kyc"`
	Queue     QueueConfig     `yaml:"queue"`
	LogLevel  string          `yaml:"log_level" validate:"oneof=debug info warn error"`
	Metrics   bool            `yaml:"metrics"`
	// MockPriceFeed serves a fixed cBTC price instead of reading the oracle.
	MockPriceFeed bool `yaml:"mock_price_feed"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string   `yaml:"addr" validate:"required"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	RateLimitRPS    float64  `yaml:"rate_limit_rps" validate:"gte=0"`
	RateLimitBurst  int      `yaml:"rate_limit_burst" validate:"gte=0"`
}

// DatabaseConfig selects the relational store.
type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `yaml:"dsn" validate:"required"`
	Debug  bool   `yaml:"debug"`
}

// ChainConfig points at the Citrea JSON-RPC endpoint.
type ChainConfig struct {
	RPCURL  string   `yaml:"rpc_url" validate:"required,url"`
	Timeout Duration `yaml:"timeout"`
}

// ContractsConfig lists deployed contract addresses on Citrea.
type ContractsConfig struct {
	ZEST          string `yaml:"zest" validate:"required,eth_addr"`
	USDT          string `yaml:"usdt" validate:"required,eth_addr"`
	CDPManager    string `yaml:"cdp_manager" validate:"omitempty,eth_addr"`
	StabilityPool string `yaml:"stability_pool" validate:"omitempty,eth_addr"`
	Swap          string `yaml:"swap" validate:"omitempty,eth_addr"`
}

// NamingConfig configures ENS lookups and L2 name registration.
type NamingConfig struct {
	ENSRPCURL   string `yaml:"ens_rpc_url" validate:"omitempty,url"`
	Registry    string `yaml:"registry" validate:"omitempty,eth_addr"`
	BaseRPCURL  string `yaml:"base_rpc_url" validate:"omitempty,url"`
	L2Registrar string `yaml:"l2_registrar" validate:"omitempty,eth_addr"`
	// PrivateKey signs registrations. Without it names cannot be registered.
	PrivateKey string `yaml:"private_key"`
}

// KYCConfig points at the identity verifier.
type KYCConfig struct {
	VerifierURL string   `yaml:"verifier_url" validate:"omitempty,url"`
	AppScope    string   `yaml:"app_scope"`
	Timeout     Duration `yaml:"timeout"`
}

// QueueConfig tunes the background job queue.
type QueueConfig struct {
	Workers   int      `yaml:"workers" validate:"gte=1"`
	Capacity  int      `yaml:"capacity" validate:"gte=1"`
	Attempts  int      `yaml:"attempts" validate:"gte=1"`
	BaseDelay Duration `yaml:"base_delay"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":3001",
			ReadTimeout:     Duration{15 * time.Second},
			WriteTimeout:    Duration{30 * time.Second},
			ShutdownTimeout: Duration{10 * time.Second},
			RateLimitRPS:    50,
			RateLimitBurst:  100,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "dashboard.db",
		},
		Chain: ChainConfig{
			Timeout: Duration{10 * time.Second},
		},
		Naming: NamingConfig{
			Registry: "0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e",
		},
		KYC: KYCConfig{
			Timeout: Duration{30 * time.Second},
		},
		Queue: QueueConfig{
			Workers:   2,
			Capacity:  256,
			Attempts:  3,
			BaseDelay: Duration{time.Second},
		},
		LogLevel: "info",
		Metrics:  true,
	}
}

// Load builds the configuration from defaults, an optional .env file, the
// YAML file named by DASHBOARD_CONFIG and finally environment variables.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("DASHBOARD_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	dec := yaml.NewDecoder(file)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			errs = append(errs, fmt.Errorf("PORT: %w", err))
		} else {
			cfg.Server.Addr = ":" + v
		}
	}
	if v, ok := lookup("RATE_LIMIT_RPS"); ok && v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS: %w", err))
		} else {
			cfg.Server.RateLimitRPS = rps
		}
	}
	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		cfg.Database.DSN = v
		if strings.HasPrefix(v, "postgres://") || strings.HasPrefix(v, "postgresql://") {
			cfg.Database.Driver = "postgres"
		}
	}
	str("DATABASE_DRIVER", &cfg.Database.Driver)
	str("CITREA_RPC_URL", &cfg.Chain.RPCURL)
	str("ZEST_CONTRACT", &cfg.Contracts.ZEST)
	str("USDT_CONTRACT", &cfg.Contracts.USDT)
	str("CDPMANAGER_CONTRACT", &cfg.Contracts.CDPManager)
	str("STABILITYPOOL_CONTRACT", &cfg.Contracts.StabilityPool)
	str("SWAP_CONTRACT", &cfg.Contracts.Swap)
	str("ENS_RPC_URL", &cfg.Naming.ENSRPCURL)
	str("ENS_REGISTRY", &cfg.Naming.Registry)
	str("BASE_RPC_URL", &cfg.Naming.BaseRPCURL)
	str("L2_REGISTRAR_CONTRACT", &cfg.Naming.L2Registrar)
	str("PRIVATE_KEY", &cfg.Naming.PrivateKey)
	str("SELF_RPC_URL", &cfg.KYC.VerifierURL)
	str("SELF_APP_SCOPE", &cfg.KYC.AppScope)
	str("LOG_LEVEL", &cfg.LogLevel)
	boolean("MOCK_PRICE_FEED", &cfg.MockPriceFeed)
	boolean("METRICS_ENABLED", &cfg.Metrics)
	boolean("DATABASE_DEBUG", &cfg.Database.Debug)

	return errors.Join(errs...)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field tags and cross-field requirements.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Naming.L2Registrar != "" && c.Naming.BaseRPCURL == "" {
		return fmt.Errorf("invalid config: BASE_RPC_URL is required when L2_REGISTRAR_CONTRACT is set")
	}
	if c.KYC.VerifierURL != "" && c.KYC.AppScope == "" {
		return fmt.Errorf("invalid config: SELF_APP_SCOPE is required when SELF_RPC_URL is set")
	}
	return nil
}

// NamingEnabled reports whether ENS lookups are configured.
func (c Config) NamingEnabled() bool {
	return c.Naming.ENSRPCURL != ""
}

// RegistrationEnabled reports whether names can be registered.
func (c Config) RegistrationEnabled() bool {
	return c.Naming.L2Registrar != "" && c.Naming.BaseRPCURL != "" && c.Naming.PrivateKey != ""
}

// KYCEnabled reports whether identity verification is configured.
func (c Config) KYCEnabled() bool {
	return c.KYC.VerifierURL != ""
}
