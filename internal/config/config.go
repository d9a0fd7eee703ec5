package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/nurpe/payroll-breakdowns/internal/report"
)

const AppName = "payroll-breakdowns"

type HTTPConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
	UploadMaxBytes int64
}

func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type AuthConfig struct {
	AccessSecret string
	SessionTTL   time.Duration
}

type PayrollConfig struct {
	RateMaxPct float64
	Charges    report.Charges
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	Auth        AuthConfig
	Payroll     PayrollConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(ConfigDir())
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	defaults := report.DefaultCharges()
	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host:           v.GetString("HTTP_HOST"),
			Port:           v.GetInt("HTTP_PORT"),
			AllowedOrigins: parseList(v.GetString("CORS_ALLOWED_ORIGINS")),
			UploadMaxBytes: v.GetInt64("UPLOAD_MAX_BYTES"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
			SessionTTL:   v.GetDuration("SESSION_TTL"),
		},
		Payroll: PayrollConfig{
			RateMaxPct: v.GetFloat64("RATE_MAX_PCT"),
			Charges: report.Charges{
				TruckMaxDays:    defaults.TruckMaxDays,
				ServiceFeeLabel: strings.TrimSpace(v.GetString("CHARGE_SERVICE_FEE_LABEL")),
			},
		},
	}

	var err error
	charges := &cfg.Payroll.Charges
	if charges.TruckPerDay, err = parseDecimal(v, "CHARGE_TRUCK_PER_DAY", defaults.TruckPerDay); err != nil {
		return nil, err
	}
	if charges.MeterFee, err = parseDecimal(v, "CHARGE_METER_FEE", defaults.MeterFee); err != nil {
		return nil, err
	}
	if charges.ServiceFee, err = parseDecimal(v, "CHARGE_SERVICE_FEE", defaults.ServiceFee); err != nil {
		return nil, err
	}
	if strings.TrimSpace(v.GetString("CHARGE_TRUCK_MAX_DAYS")) != "" {
		charges.TruckMaxDays = v.GetInt("CHARGE_TRUCK_MAX_DAYS")
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7089
	}
	if len(cfg.HTTP.AllowedOrigins) == 0 {
		cfg.HTTP.AllowedOrigins = []string{"*"}
	}
	if cfg.HTTP.UploadMaxBytes == 0 {
		cfg.HTTP.UploadMaxBytes = 20 << 20
	}
	if cfg.Auth.SessionTTL == 0 {
		cfg.Auth.SessionTTL = 12 * time.Hour
	}
	if cfg.Payroll.RateMaxPct == 0 {
		cfg.Payroll.RateMaxPct = 1000
	}
	if charges.ServiceFeeLabel == "" {
		charges.ServiceFeeLabel = defaults.ServiceFeeLabel
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateServe checks the settings only the HTTP server needs.
func (c *Config) ValidateServe() error {
	if c.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	return nil
}

// ConfigDir is the per-user directory searched for app.env.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

func validate(cfg *Config) error {
	charges := cfg.Payroll.Charges
	if charges.TruckPerDay.IsNegative() {
		return fmt.Errorf("CHARGE_TRUCK_PER_DAY must not be negative")
	}
	if charges.MeterFee.IsNegative() {
		return fmt.Errorf("CHARGE_METER_FEE must not be negative")
	}
	if charges.ServiceFee.IsNegative() {
		return fmt.Errorf("CHARGE_SERVICE_FEE must not be negative")
	}
	if charges.TruckMaxDays < 0 {
		return fmt.Errorf("CHARGE_TRUCK_MAX_DAYS must not be negative")
	}
	if cfg.Payroll.RateMaxPct < 0 {
		return fmt.Errorf("RATE_MAX_PCT must not be negative")
	}
	if cfg.HTTP.UploadMaxBytes < 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must not be negative")
	}
	if cfg.Auth.SessionTTL < 0 {
		return fmt.Errorf("SESSION_TTL must not be negative")
	}
	return nil
}

func parseDecimal(v *viper.Viper, key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s: invalid amount %q", key, raw)
	}
	return d, nil
}

func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
