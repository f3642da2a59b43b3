package model

import "time"

// ClockConfig contains runtime settings for the clock engine.
type ClockConfig struct {
	Endpoint       string
	ResyncInterval time.Duration
	FetchTimeout   time.Duration
	TickInterval   time.Duration
}

// AlertConfig describes how a finished countdown is announced.
type AlertConfig struct {
	SoundFile    string
	ToneHz       float64
	ToneDuration time.Duration
	Desktop      bool
}

// Config is the full runtime configuration assembled at startup.
type Config struct {
	Clock ClockConfig
	Alert AlertConfig

	FrameInterval      time.Duration
	DefaultCountdown   time.Duration
	ExclusiveStopwatch bool
	FeedListen         string
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Clock: ClockConfig{
			Endpoint:       "http://worldtimeapi.org/api/ip",
			ResyncInterval: 5 * time.Minute,
			FetchTimeout:   10 * time.Second,
			TickInterval:   time.Second,
		},
		Alert: AlertConfig{
			ToneHz:       880,
			ToneDuration: 600 * time.Millisecond,
			Desktop:      true,
		},
		FrameInterval:    50 * time.Millisecond,
		DefaultCountdown: time.Minute,
	}
}
