package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"sub-renamer/internal/geoip"
	"sub-renamer/internal/rename"
	"sub-renamer/internal/rules"
	"sub-renamer/internal/subscription"
)

const (
	defaultListen       = ":8080"
	defaultMaxBodyBytes = 10 * 1024 * 1024 // 10 MB
	envPrefix           = "SUBRENAMER"
)

type AppConfig struct {
	Listen          string        `mapstructure:"listen"`
	RulesFile       string        `mapstructure:"rules_file"`
	GeoIPFile       string        `mapstructure:"geoip_file"`
	Lang            string        `mapstructure:"lang"`
	Prefix          string        `mapstructure:"prefix"`
	Suffix          string        `mapstructure:"suffix"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	RateInterval    time.Duration `mapstructure:"rate_interval"`
	RateBurst       int           `mapstructure:"rate_burst"`
	LimiterTTL      time.Duration `mapstructure:"limiter_ttl"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	LogLevel        string        `mapstructure:"log_level"`
}

func (cfg *AppConfig) Init() {
	if cfg.Listen == "" {
		cfg.Listen = defaultListen
	}
	if cfg.Lang == "" {
		cfg.Lang = rules.EN.String()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.RateInterval == 0 {
		cfg.RateInterval = 100 * time.Millisecond
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = 5
	}
	if cfg.LimiterTTL == 0 {
		cfg.LimiterTTL = 30 * time.Minute
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// RenameConfig возвращает оформление имён по умолчанию для запросов
// без параметров lang/prefix/suffix.
func (cfg *AppConfig) RenameConfig() rename.Config {
	return rename.Config{
		Language: rules.ParseLanguage(cfg.Lang),
		Prefix:   cfg.Prefix,
		Suffix:   cfg.Suffix,
	}
}

// loadConfig читает файл конфигурации (YAML/JSON/TOML, если путь задан)
// и переменные окружения SUBRENAMER_*. При пустом пути берутся только
// окружение и значения по умолчанию.
func loadConfig(configPath string) (*AppConfig, error) {
	v := viper.New()
	v.SetDefault("prefix", rename.DefaultPrefix)
	v.SetDefault("suffix", rename.DefaultSuffix)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// AutomaticEnv не видит ключи, которых нет ни в файле, ни в defaults.
	for _, key := range []string{
		"listen", "rules_file", "geoip_file", "lang", "max_body_bytes",
		"rate_interval", "rate_burst", "limiter_ttl", "read_timeout",
		"write_timeout", "shutdown_timeout", "log_level",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		ext := filepath.Ext(configPath)
		if ext == ".yaml" || ext == ".yml" {
			v.SetConfigType("yaml")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	// LOG_LEVEL читается и без префикса.
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" && !v.IsSet("log_level") {
		cfg.LogLevel = lvl
	}
	cfg.Init()
	return &cfg, nil
}

// newLogger настраивает стандартный логгер logrus.
func newLogger(level string) *logrus.Logger {
	log := logrus.StandardLogger()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)
	return log
}

// buildProcessor загружает правила и базу GeoIP. Возвращаемая функция
// закрывает базу.
func buildProcessor(cfg *AppConfig, log logrus.FieldLogger) (*subscription.Processor, func() error, error) {
	set, err := rules.LoadFile(cfg.RulesFile)
	if err != nil {
		return nil, nil, err
	}
	opts := []subscription.Option{
		subscription.WithTable(rules.Compile(set, log)),
		subscription.WithLogger(log),
	}

	db, err := geoip.Open(cfg.GeoIPFile, log)
	if err != nil {
		return nil, nil, err
	}
	if db != nil {
		opts = append(opts, subscription.WithLocator(db))
	}
	return subscription.NewProcessor(opts...), db.Close, nil
}
