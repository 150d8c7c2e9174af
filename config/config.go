package config

import (
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type SimConfig struct {
	Profile    string  `yaml:"profile"`
	Seed       int64   `yaml:"seed"`
	TickMillis int     `yaml:"tick_millis"`
	DTSeconds  float64 `yaml:"dt_seconds"`
	DecayEvery int     `yaml:"decay_every"`
	DecayRate  float64 `yaml:"decay_rate"`
}

type AppConfig struct {
	ServiceName string    `yaml:"service_name"`
	MarketAddr  string    `yaml:"market_addr"`
	ControlAddr string    `yaml:"control_addr"`
	LogLevel    string    `yaml:"log_level"`
	Sim         SimConfig `yaml:"sim"`
}

func defaults() *AppConfig {
	return &AppConfig{
		ServiceName: "marketsim",
		MarketAddr:  "127.0.0.1:5555",
		ControlAddr: "127.0.0.1:5556",
		LogLevel:    "info",
		Sim: SimConfig{
			Profile:    "rich",
			Seed:       1,
			TickMillis: 20,
			DTSeconds:  60,
			DecayEvery: 10,
			DecayRate:  0.05,
		},
	}
}

// Load load config from file and environment variables. An empty path falls
// back to CONFIG_FILE, and an unset CONFIG_FILE to built-in defaults.
func Load(filePath string) (*AppConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	cfg := defaults()
	if len(filePath) == 0 {
		zap.S().Debug("no config file, using defaults")
		return cfg, nil
	}

	sugar := zap.S().With("filePath", filePath)
	sugar.Debug("Load config...")

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	err = yaml.Unmarshal(configBytes, cfg)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}
