package app

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Settings are the ambient defaults merged from quafel.yaml, QUAFEL_*
// environment variables and built-in values. CLI flags override them.
type Settings struct {
	DataDir      string
	Workers      int
	LogLevel     string
	LogFormat    string
	ReportPort   int
	DashboardURL string
}

// LoadSettings reads the layered settings. configFile may be empty, in
// which case an optional quafel.yaml is looked up in the working
// directory. A missing config file is not an error; a malformed one is.
func LoadSettings(configFile string) (*Settings, error) {
	v := viper.New()
	v.SetDefault("data_dir", "data")
	v.SetDefault("workers", 10)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("report_port", 8080)
	v.SetDefault("dashboard_url", "")

	v.SetEnvPrefix("QUAFEL")
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading settings file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("quafel")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading settings: %w", err)
		}
	}

	return &Settings{
		DataDir:      v.GetString("data_dir"),
		Workers:      v.GetInt("workers"),
		LogLevel:     v.GetString("log_level"),
		LogFormat:    v.GetString("log_format"),
		ReportPort:   v.GetInt("report_port"),
		DashboardURL: v.GetString("dashboard_url"),
	}, nil
}
