package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var mainCommand = &cobra.Command{
	Use:           "sub-renamer",
	Short:         "Normalize proxy node names in subscriptions",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	mainCommand.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (YAML/JSON/TOML)")
	mainCommand.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides config and LOG_LEVEL)")
}

// setup загружает конфигурацию и настраивает логгер для команды.
func setup() (*AppConfig, *logrus.Logger, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, newLogger(cfg.LogLevel), nil
}

func main() {
	if err := mainCommand.Execute(); err != nil {
		logrus.Fatalln(err)
	}
}
