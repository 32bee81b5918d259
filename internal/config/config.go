package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		Driver string `yaml:"driver"` // "postgres" or "sqlite"
		URL    string `yaml:"url"`    // postgres DSN
		Path   string `yaml:"path"`   // sqlite file path
	} `yaml:"database"`
	SignalService struct {
		URL string `yaml:"url"`
	} `yaml:"signal_service"`
	Detection struct {
		ConfidenceThreshold float64 `yaml:"confidence_threshold"`
		ConfidenceWeight    float64 `yaml:"confidence_weight"`
		AnomalyWeight       float64 `yaml:"anomaly_weight"`
	} `yaml:"detection"`
	Export struct {
		OutputDir string `yaml:"output_dir"`
	} `yaml:"export"`
	Notifications struct {
		Enabled          bool   `yaml:"enabled"`
		TelegramBotToken string `yaml:"telegram_bot_token"`
		TelegramChatID   int64  `yaml:"telegram_chat_id"`
	} `yaml:"notifications"`
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	// Set defaults
	if config.Server.Port == "" {
		config.Server.Port = "8000"
	}

	if config.Database.Driver == "" {
		config.Database.Driver = "sqlite"
	}

	if config.Database.Path == "" {
		config.Database.Path = "./data/labelsweep.db"
	}

	if config.Detection.ConfidenceThreshold == 0 {
		config.Detection.ConfidenceThreshold = 0.7
	}

	if config.Detection.ConfidenceWeight == 0 && config.Detection.AnomalyWeight == 0 {
		config.Detection.ConfidenceWeight = 0.6
		config.Detection.AnomalyWeight = 0.4
	}

	if config.Export.OutputDir == "" {
		config.Export.OutputDir = "cleaned_datasets"
	}

	// Expand environment variables in secrets
	config.Database.URL = os.ExpandEnv(config.Database.URL)
	config.Notifications.TelegramBotToken = os.ExpandEnv(config.Notifications.TelegramBotToken)

	return config, nil
}
