package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/karvek/albion-scalper/internal/models"
)

// Config is loaded once at startup and treated as immutable afterwards.
type Config struct {
	Environment string           `mapstructure:"environment"`
	LogLevel    string           `mapstructure:"log_level"`
	Server      ServerConfig     `mapstructure:"server"`
	API         APIConfig        `mapstructure:"api"`
	Locations   LocationsConfig  `mapstructure:"locations"`
	Taxes       TaxConfig        `mapstructure:"taxes"`
	Analysis    AnalysisConfig   `mapstructure:"analysis"`
	Cache       CacheConfig      `mapstructure:"cache"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Items       ItemsConfig      `mapstructure:"items"`
	Categories  map[string]CategoryRule `mapstructure:"item_categories"`
	Security    SecurityConfig   `mapstructure:"security"`
	SMTP        SMTPConfig       `mapstructure:"smtp"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type APIConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// LocationsConfig groups marketplace locations into the classes that
// drive tax rates and tradability.
type LocationsConfig struct {
	RoyalCities    []string `mapstructure:"royal_cities"`
	ArtifactCities []string `mapstructure:"artifact_cities"`
	BlackMarket    string   `mapstructure:"black_market"`
	AllCities      []string `mapstructure:"all_cities"`
}

type TaxConfig struct {
	RoyalRate       float64 `mapstructure:"royal_rate"`
	ArtifactRate    float64 `mapstructure:"artifact_rate"`
	BlackMarketRate float64 `mapstructure:"black_market_rate"`
	PremiumModifier float64 `mapstructure:"premium_modifier"`
}

type AnalysisConfig struct {
	DefaultItems       []string `mapstructure:"default_items"`
	DefaultCategories  []string `mapstructure:"default_categories"`
	DefaultQuality     int      `mapstructure:"default_quality"`
	MinMarginPercent   float64  `mapstructure:"min_margin_percent"`
	MinAvgDailyVolume  int64    `mapstructure:"min_avg_daily_volume"`
	UsePremiumTaxRate  bool     `mapstructure:"use_premium_tax_rate"`
	FetchHistory       bool     `mapstructure:"fetch_history"`
	HistoryTimeScale   int      `mapstructure:"history_time_scale"`
	ResultLimit        int      `mapstructure:"result_limit"`
	ScanWorkers        int      `mapstructure:"scan_workers"`
}

type CacheConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Backend    string `mapstructure:"backend"` // "file" or "redis"
	Directory  string `mapstructure:"directory"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

// TTL returns the configured entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ItemsConfig struct {
	SourceURL string `mapstructure:"source_url"`
	DataDir   string `mapstructure:"data_dir"`
}

// CategoryRule expands a named category into item IDs. Type is one of
// "list", "regex" or "name_contains"; Value is the IDs, the pattern or
// the search term respectively.
type CategoryRule struct {
	Type  string   `mapstructure:"type"`
	Value []string `mapstructure:"value"`
}

type SecurityConfig struct {
	JWTSecret          string `mapstructure:"jwt_secret" json:"-" yaml:"-"`
	BcryptCost         int    `mapstructure:"bcrypt_cost"`
	VerificationExpiry string `mapstructure:"verification_expiry"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password" json:"-" yaml:"-"`
	From     string `mapstructure:"from"`
	BaseURL  string `mapstructure:"verification_base_url"`
}

// Load reads configs/config.yaml, applies environment overrides and
// validates the result. Missing or malformed domain settings do not
// abort startup: the affected section is reset to the hardcoded safe
// defaults and a warning is logged, so a broken config file degrades
// the scan rather than killing the process.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("security.jwt_secret", "JWT_SECRET"); err != nil {
		return nil, fmt.Errorf("failed to bind JWT_SECRET environment variable: %w", err)
	}
	if err := viper.BindEnv("smtp.password", "SMTP_PASSWORD"); err != nil {
		return nil, fmt.Errorf("failed to bind SMTP_PASSWORD environment variable: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file is fine: defaults plus environment cover it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)
	config.sanitize()

	if config.Security.BcryptCost < bcrypt.MinCost || config.Security.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, config.Security.BcryptCost)
	}
	if config.Security.VerificationExpiry != "" {
		if _, err := time.ParseDuration(config.Security.VerificationExpiry); err != nil {
			return nil, fmt.Errorf("invalid verification expiry duration: %w", err)
		}
	}

	return &config, nil
}

// sanitize resets broken domain sections to the safe defaults. These
// mirror the long-standing marketplace constants, so a scan stays
// correct (if conservative) even with an empty config file.
func (c *Config) sanitize() {
	if len(c.Locations.RoyalCities) == 0 {
		logrus.WithError(models.ErrConfigInvalid).Warn("No royal cities configured, using built-in list")
		c.Locations.RoyalCities = defaultRoyalCities()
	}
	if c.Locations.BlackMarket == "" {
		c.Locations.BlackMarket = defaultBlackMarket
	}
	if len(c.Locations.AllCities) == 0 {
		all := append([]string{}, c.Locations.RoyalCities...)
		all = append(all, c.Locations.ArtifactCities...)
		c.Locations.AllCities = append(all, c.Locations.BlackMarket)
	}
	if c.Taxes.RoyalRate <= 0 || c.Taxes.RoyalRate >= 1 {
		logrus.WithError(models.ErrConfigInvalid).
			WithField("royal_rate", c.Taxes.RoyalRate).
			Warn("Royal tax rate out of range, using default")
		c.Taxes.RoyalRate = defaultRoyalRate
	}
	if c.Taxes.ArtifactRate <= 0 || c.Taxes.ArtifactRate >= 1 {
		c.Taxes.ArtifactRate = defaultArtifactRate
	}
	if c.Taxes.BlackMarketRate <= 0 || c.Taxes.BlackMarketRate >= 1 {
		c.Taxes.BlackMarketRate = defaultBlackMarketRate
	}
	if c.Taxes.PremiumModifier <= 0 || c.Taxes.PremiumModifier > 1 {
		c.Taxes.PremiumModifier = defaultPremiumModifier
	}
	if c.Analysis.DefaultQuality < models.MinQuality || c.Analysis.DefaultQuality > models.MaxQuality {
		c.Analysis.DefaultQuality = models.MinQuality
	}
	if c.Analysis.HistoryTimeScale <= 0 {
		c.Analysis.HistoryTimeScale = 24
	}
	if c.Analysis.ScanWorkers <= 0 {
		c.Analysis.ScanWorkers = 4
	}
	if c.Cache.Backend != "file" && c.Cache.Backend != "redis" {
		logrus.WithError(models.ErrConfigInvalid).
			WithField("backend", c.Cache.Backend).
			Warn("Unknown cache backend, falling back to file")
		c.Cache.Backend = "file"
	}
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = 900
	}
}

const (
	defaultBlackMarket     = "Black Market"
	defaultRoyalRate       = 0.03
	defaultArtifactRate    = 0.06
	defaultBlackMarketRate = 0.04
	defaultPremiumModifier = 0.5
)

func defaultRoyalCities() []string {
	return []string{"Lymhurst", "Bridgewatch", "Martlock", "Thetford", "Fort Sterling"}
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	viper.SetDefault("api.base_url", "https://old.west.albion-online-data.com/api/v2/stats")
	viper.SetDefault("api.timeout_seconds", 20)

	viper.SetDefault("locations.royal_cities", defaultRoyalCities())
	viper.SetDefault("locations.artifact_cities", []string{"Caerleon"})
	viper.SetDefault("locations.black_market", defaultBlackMarket)
	viper.SetDefault("locations.all_cities", []string{})

	viper.SetDefault("taxes.royal_rate", defaultRoyalRate)
	viper.SetDefault("taxes.artifact_rate", defaultArtifactRate)
	viper.SetDefault("taxes.black_market_rate", defaultBlackMarketRate)
	viper.SetDefault("taxes.premium_modifier", defaultPremiumModifier)

	viper.SetDefault("analysis.default_items", []string{})
	viper.SetDefault("analysis.default_categories", []string{})
	viper.SetDefault("analysis.default_quality", 1)
	viper.SetDefault("analysis.min_margin_percent", 5.0)
	viper.SetDefault("analysis.min_avg_daily_volume", 0)
	viper.SetDefault("analysis.use_premium_tax_rate", false)
	viper.SetDefault("analysis.fetch_history", false)
	viper.SetDefault("analysis.history_time_scale", 24)
	viper.SetDefault("analysis.result_limit", 20)
	viper.SetDefault("analysis.scan_workers", 4)

	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.backend", "file")
	viper.SetDefault("cache.directory", "cache/api_responses")
	viper.SetDefault("cache.ttl_seconds", 900)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("items.source_url", "https://raw.githubusercontent.com/broderickhyman/ao-bin-dumps/master/formatted/items.json")
	viper.SetDefault("items.data_dir", "data")

	viper.SetDefault("security.jwt_secret", "")
	viper.SetDefault("security.bcrypt_cost", 12)
	viper.SetDefault("security.verification_expiry", "30m")

	viper.SetDefault("smtp.host", "smtp.gmail.com")
	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("smtp.username", "")
	viper.SetDefault("smtp.password", "")
	viper.SetDefault("smtp.from", "")
	viper.SetDefault("smtp.verification_base_url", "http://localhost:8080")
}
