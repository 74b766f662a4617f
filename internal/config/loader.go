package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".bugmatrix"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for bugmatrix settings.
const envPrefix = "BUGMATRIX"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
// Non-zero overrides (command-line flags) win over every other source and
// are applied before validation.
func LoadConfig(configPath string, overrides *Overrides) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	overrides.Apply(&cfg)

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("repository", "")
	viperCfg.SetDefault("variant", DefaultVariant)
	viperCfg.SetDefault("bug_label", DefaultBugLabel)
	viperCfg.SetDefault("lookback_days", DefaultLookbackDays)
	viperCfg.SetDefault("max_issues", DefaultMaxIssues)

	viperCfg.SetDefault("output.dir", DefaultOutputDir)
	viperCfg.SetDefault("output.markdown", DefaultOutputMarkdown)
	viperCfg.SetDefault("output.xlsx", DefaultOutputXLSX)
	viperCfg.SetDefault("output.chart", DefaultOutputChart)

	viperCfg.SetDefault("pipeline.workers", DefaultPipelineWorkers)

	viperCfg.SetDefault("metrics.textfile", "")

	viperCfg.SetDefault("gh.binary", DefaultGHBinary)

	viperCfg.SetDefault("rules.file", "")
}
