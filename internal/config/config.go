package config

import (
	"fmt"
	"reflect"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/wallet-ledger/internal/fee"
	"github.com/josh-kwaku/wallet-ledger/internal/money"
)

type Config struct {
	DatabaseURL string        `env:"DATABASE_URL,required,notEmpty"`
	RedisURL    string        `env:"REDIS_URL"`
	JWTSecret   string        `env:"JWT_SECRET,required,notEmpty"`
	JWTExpiry   time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`
	Port        int           `env:"PORT" envDefault:"8080"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string        `env:"APP_ENV" envDefault:"production"`

	MinimumTransferAmount decimal.Decimal `env:"MINIMUM_TRANSFER_AMOUNT" envDefault:"25.00"`
	BaseFee               decimal.Decimal `env:"BASE_FEE" envDefault:"2.50"`
	PercentageFee         decimal.Decimal `env:"PERCENTAGE_FEE" envDefault:"0.10"`
	MinTransactionAmount  decimal.Decimal `env:"MIN_TRANSACTION_AMOUNT" envDefault:"0.01"`
	MaxTransactionAmount  decimal.Decimal `env:"MAX_TRANSACTION_AMOUNT" envDefault:"999999.99"`

	IdempotencyReservationTTL time.Duration `env:"IDEMPOTENCY_RESERVATION_TTL" envDefault:"30s"`
	SnapshotInterval          time.Duration `env:"SNAPSHOT_INTERVAL" envDefault:"1h"`
	SnapshotRetentionDays     int           `env:"SNAPSHOT_RETENTION_DAYS" envDefault:"365"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(decimal.Decimal{}): func(v string) (any, error) {
				return decimal.NewFromString(v)
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.MinTransactionAmount.Sign() <= 0 || !money.HasValidScale(c.MinTransactionAmount) {
		return fmt.Errorf("MIN_TRANSACTION_AMOUNT must be a positive amount with at most %d decimals", money.Scale)
	}
	if c.MaxTransactionAmount.LessThan(c.MinTransactionAmount) {
		return fmt.Errorf("MAX_TRANSACTION_AMOUNT must not be below MIN_TRANSACTION_AMOUNT")
	}
	if c.BaseFee.IsNegative() || c.PercentageFee.IsNegative() || c.MinimumTransferAmount.IsNegative() {
		return fmt.Errorf("fee settings must not be negative")
	}
	if c.SnapshotInterval <= 0 {
		return fmt.Errorf("SNAPSHOT_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) FeePolicy() fee.Policy {
	return fee.Policy{
		MinTransferAmount: c.MinimumTransferAmount,
		BaseFee:           c.BaseFee,
		PercentageFee:     c.PercentageFee,
	}
}
