package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/ngenohkevin/libcatalog/internal/models"
)

type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Library LibraryConfig `mapstructure:"library"`
	Log     LogConfig     `mapstructure:"log"`
	Auth    AuthConfig    `mapstructure:"auth"`
}

type StorageConfig struct {
	DataDir   string `mapstructure:"data_dir"`
	BackupDir string `mapstructure:"backup_dir"`
	AutoSave  bool   `mapstructure:"auto_save"`
}

type LibraryConfig struct {
	MaxBorrow     int    `mapstructure:"max_borrow"`
	MaxPerRequest int    `mapstructure:"max_per_request"`
	LoanDays      int    `mapstructure:"loan_days"`
	FinePerDay    string `mapstructure:"fine_per_day"`
	MaxRenewals   int    `mapstructure:"max_renewals"`
	DueSoonDays   int    `mapstructure:"due_soon_days"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type AuthConfig struct {
	CredentialMode     string `mapstructure:"credential_mode"`
	SessionSecret      string `mapstructure:"session_secret"`
	SessionExpiryHours int    `mapstructure:"session_expiry_hours"`
}

const (
	CredentialModePlain    = "plain"
	CredentialModeArgon2id = "argon2id"
)

// Load reads config.yaml from the usual locations, overlays LIBCATALOG_*
// environment variables and applies defaults.
func Load() (*Config, error) {
	return LoadFrom(viper.New(), "")
}

// LoadFrom loads into v; an explicit file path skips the search paths.
func LoadFrom(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.libcatalog")
		v.AddConfigPath("/etc/libcatalog")
	}

	v.SetEnvPrefix("LIBCATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if config.Storage.BackupDir == "" {
		config.Storage.BackupDir = filepath.Join(config.Storage.DataDir, "backups")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.backup_dir", "")
	v.SetDefault("storage.auto_save", true)

	defaults := models.DefaultSettings()
	v.SetDefault("library.max_borrow", defaults.MaxBorrow)
	v.SetDefault("library.max_per_request", defaults.MaxPerRequest)
	v.SetDefault("library.loan_days", defaults.LoanDays)
	v.SetDefault("library.fine_per_day", defaults.FinePerDay.StringFixed(2))
	v.SetDefault("library.max_renewals", defaults.MaxRenewals)
	v.SetDefault("library.due_soon_days", 3)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", false)

	v.SetDefault("auth.credential_mode", CredentialModePlain)
	v.SetDefault("auth.session_secret", "")
	v.SetDefault("auth.session_expiry_hours", 8)
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		return errors.New("storage.data_dir is required")
	}
	if _, err := c.Library.Settings(); err != nil {
		return fmt.Errorf("invalid library settings: %w", err)
	}
	if c.Library.DueSoonDays < 0 {
		return errors.New("library.due_soon_days cannot be negative")
	}
	switch c.Auth.CredentialMode {
	case CredentialModePlain, CredentialModeArgon2id:
	default:
		return fmt.Errorf("unknown auth.credential_mode %q", c.Auth.CredentialMode)
	}
	if c.Auth.SessionExpiryHours < 1 {
		return errors.New("auth.session_expiry_hours must be at least 1")
	}
	return nil
}

// Settings converts the library section into lending rules.
func (l LibraryConfig) Settings() (models.Settings, error) {
	fine, err := decimal.NewFromString(strings.TrimSpace(l.FinePerDay))
	if err != nil {
		return models.Settings{}, fmt.Errorf("library.fine_per_day %q is not a decimal: %w", l.FinePerDay, err)
	}
	s := models.Settings{
		MaxBorrow:     l.MaxBorrow,
		MaxPerRequest: l.MaxPerRequest,
		LoanDays:      l.LoanDays,
		FinePerDay:    fine,
		MaxRenewals:   l.MaxRenewals,
	}
	if err := s.Validate(); err != nil {
		return models.Settings{}, err
	}
	return s, nil
}
