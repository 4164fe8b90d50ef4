package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"atmnet.com/internal/domain/entity"
)

// Config holds the application configuration
type Config struct {
	Server    Server    `mapstructure:"server"`
	Terminals Terminals `mapstructure:"terminals"`
	Reservoir Reservoir `mapstructure:"reservoir"`
	Accounts  []Account `mapstructure:"accounts"`
}

// Server configuration
type Server struct {
	Port string `mapstructure:"port"`
}

// Terminals configures the fleet and how its requests are signed
type Terminals struct {
	IDs                []string      `mapstructure:"ids"`
	SharedReservoir    bool          `mapstructure:"sharedReservoir"`
	HMACSecret         string        `mapstructure:"hmacSecret"`
	TimestampTolerance time.Duration `mapstructure:"timestampTolerance"`
}

// Reservoir configures the cash each reservoir starts with, in major units
type Reservoir struct {
	InitialCash string `mapstructure:"initialCash"`
}

// Account is one seeded ledger account. Balance is in major units.
type Account struct {
	ID      string `mapstructure:"id"`
	PIN     string `mapstructure:"pin"`
	Balance string `mapstructure:"balance"`
}

// LoadConfig loads configuration from YAML files in configDir.
// app-config.yaml is the base; <CONFIG_ENV>.yaml is merged on top of it and
// ATM_ prefixed environment variables override both.
func LoadConfig(configDir string) (*Config, error) {
	configEnv := os.Getenv("CONFIG_ENV")
	if configEnv == "" {
		configEnv = "local"
	}

	v := viper.New()
	v.SetDefault("server.port", "8080")
	v.SetDefault("terminals.ids", []string{"atm-1"})
	v.SetDefault("terminals.sharedReservoir", true)
	v.SetDefault("terminals.hmacSecret", "default-secret-key-change-in-production")
	v.SetDefault("terminals.timestampTolerance", "5m")
	v.SetDefault("reservoir.initialCash", "0")

	baseConfigExists, err := readConfigFile(v, filepath.Join(configDir, "app-config.yaml"), false)
	if err != nil {
		return nil, fmt.Errorf("failed to read base config file: %w", err)
	}
	if _, err := readConfigFile(v, filepath.Join(configDir, configEnv+".yaml"), baseConfigExists); err != nil {
		return nil, fmt.Errorf("failed to read env config file: %w", err)
	}

	v.SetEnvPrefix("ATM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("server.port", "ATM_SERVER_PORT", "PORT")
	v.BindEnv("terminals.hmacSecret", "ATM_TERMINALS_HMAC_SECRET", "HMAC_SECRET")
	v.BindEnv("terminals.timestampTolerance", "ATM_TERMINALS_TIMESTAMP_TOLERANCE")
	v.BindEnv("reservoir.initialCash", "ATM_RESERVOIR_INITIAL_CASH")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// readConfigFile loads path into v, merging when merge is set. A missing file is not an error.
func readConfigFile(v *viper.Viper, path string, merge bool) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	v.SetConfigFile(path)
	if merge {
		return true, v.MergeInConfig()
	}
	return true, v.ReadInConfig()
}

// Validate checks the values that cannot be defaulted
func (c *Config) Validate() error {
	if len(c.Terminals.IDs) == 0 {
		return errors.New("terminals.ids must name at least one terminal")
	}
	if c.Terminals.TimestampTolerance <= 0 {
		return fmt.Errorf("terminals.timestampTolerance must be positive, got %v", c.Terminals.TimestampTolerance)
	}
	if _, err := c.InitialCash(); err != nil {
		return err
	}
	if _, err := c.LedgerAccounts(); err != nil {
		return err
	}
	return nil
}

// InitialCash returns the configured reservoir cash in minor units
func (c *Config) InitialCash() (int64, error) {
	cash, err := entity.ParseBalance(c.Reservoir.InitialCash)
	if err != nil {
		return 0, fmt.Errorf("reservoir.initialCash: %w", err)
	}
	return cash, nil
}

// LedgerAccounts converts the seeded accounts into ledger entities
func (c *Config) LedgerAccounts() ([]entity.Account, error) {
	accounts := make([]entity.Account, 0, len(c.Accounts))
	for i, a := range c.Accounts {
		balance, err := entity.ParseBalance(a.Balance)
		if err != nil {
			return nil, fmt.Errorf("accounts[%d] %s balance: %w", i, a.ID, err)
		}
		accounts = append(accounts, entity.Account{
			ID:      a.ID,
			PIN:     a.PIN,
			Balance: balance,
		})
	}
	return accounts, nil
}
