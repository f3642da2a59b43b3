package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"clockwidget/internal/core/model"
)

const configFileName = "config.yaml"

type yamlConfig struct {
	Clock struct {
		Endpoint              string `yaml:"endpoint"`
		ResyncIntervalSeconds int    `yaml:"resync_interval_seconds"`
		FetchTimeoutSeconds   int    `yaml:"fetch_timeout_seconds"`
		TickIntervalMillis    int    `yaml:"tick_interval_ms"`
	} `yaml:"clock"`
	Engine struct {
		FrameIntervalMillis int `yaml:"frame_interval_ms"`
	} `yaml:"engine"`
	Countdown struct {
		DefaultMinutes int `yaml:"default_minutes"`
		DefaultSeconds int `yaml:"default_seconds"`
	} `yaml:"countdown"`
	Alert struct {
		SoundFile  string  `yaml:"sound_file"`
		ToneHz     float64 `yaml:"tone_hz"`
		ToneMillis int     `yaml:"tone_ms"`
		Desktop    *bool   `yaml:"desktop"`
	} `yaml:"alert"`
	Stopwatch struct {
		Exclusive bool `yaml:"exclusive"`
	} `yaml:"stopwatch"`
	Feed struct {
		Listen string `yaml:"listen"`
	} `yaml:"feed"`
}

// LoadConfig reads the configuration from the user config directory.
// If the config file does not exist, the defaults are returned.
func LoadConfig(appName string) (model.Config, string, error) {
	configPath, err := ResolveConfigPath(appName)
	if err != nil {
		return model.DefaultConfig(), "", err
	}
	config, err := LoadConfigFile(configPath)
	return config, configPath, err
}

// LoadConfigFile reads the configuration at configPath. Values missing or
// out of range keep their defaults. On error the defaults are returned
// alongside it.
func LoadConfigFile(configPath string) (model.Config, error) {
	config := model.DefaultConfig()

	rawData, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config, nil
		}
		return config, fmt.Errorf("read config file: %w", err)
	}

	var fileData yamlConfig
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return config, fmt.Errorf("parse config yaml: %w", err)
	}

	applyYamlConfig(&config, fileData)
	return config, nil
}

// ResolveConfigPath returns where the config file for appName lives.
func ResolveConfigPath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, configFileName), nil
}

func applyYamlConfig(config *model.Config, fileData yamlConfig) {
	if fileData.Clock.Endpoint != "" {
		config.Clock.Endpoint = fileData.Clock.Endpoint
	}
	if fileData.Clock.ResyncIntervalSeconds >= 10 {
		config.Clock.ResyncInterval = time.Duration(fileData.Clock.ResyncIntervalSeconds) * time.Second
	}
	if fileData.Clock.FetchTimeoutSeconds > 0 && fileData.Clock.FetchTimeoutSeconds <= 60 {
		config.Clock.FetchTimeout = time.Duration(fileData.Clock.FetchTimeoutSeconds) * time.Second
	}
	if fileData.Clock.TickIntervalMillis >= 100 {
		config.Clock.TickInterval = time.Duration(fileData.Clock.TickIntervalMillis) * time.Millisecond
	}

	if fileData.Engine.FrameIntervalMillis >= 10 && fileData.Engine.FrameIntervalMillis <= 1000 {
		config.FrameInterval = time.Duration(fileData.Engine.FrameIntervalMillis) * time.Millisecond
	}

	countdown := time.Duration(fileData.Countdown.DefaultMinutes)*time.Minute +
		time.Duration(fileData.Countdown.DefaultSeconds)*time.Second
	if fileData.Countdown.DefaultMinutes >= 0 && fileData.Countdown.DefaultSeconds >= 0 &&
		fileData.Countdown.DefaultSeconds < 60 && countdown > 0 {
		config.DefaultCountdown = countdown
	}

	config.Alert.SoundFile = fileData.Alert.SoundFile
	if fileData.Alert.ToneHz >= 20 && fileData.Alert.ToneHz <= 20000 {
		config.Alert.ToneHz = fileData.Alert.ToneHz
	}
	if fileData.Alert.ToneMillis > 0 {
		config.Alert.ToneDuration = time.Duration(fileData.Alert.ToneMillis) * time.Millisecond
	}
	if fileData.Alert.Desktop != nil {
		config.Alert.Desktop = *fileData.Alert.Desktop
	}

	config.ExclusiveStopwatch = fileData.Stopwatch.Exclusive
	config.FeedListen = fileData.Feed.Listen
}
