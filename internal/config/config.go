// Package config defines process configuration and how it is loaded.
package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/rpsbattle/internal/gesture"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr is the HTTP listen address for the preview UI. Empty disables the server.
	Addr string `koanf:"addr"`

	// Tray shows the desktop status menu.
	Tray bool `koanf:"tray"`

	// CameraID selects the capture device.
	CameraID int `koanf:"camera_id"`

	// Mirror flips frames horizontally so the preview behaves like a mirror.
	Mirror bool `koanf:"mirror"`

	// TickInterval is the loop period while a round is in progress or a hand is moving.
	TickInterval time.Duration `koanf:"tick_interval"`

	// IdleTickInterval is the loop period while waiting with no motion in view.
	IdleTickInterval time.Duration `koanf:"idle_tick_interval"`

	// MotionThreshold is the percentage of changed pixels that counts as motion.
	MotionThreshold float64 `koanf:"motion_threshold"`

	Countdown     time.Duration `koanf:"countdown"`
	ResultDisplay time.Duration `koanf:"result_display"`
	RoundLimit    int           `koanf:"round_limit"`

	// ScissorsRule is "index_middle" or "any_two".
	ScissorsRule string `koanf:"scissors_rule"`

	// MinDetectionConfidence and MinTrackingConfidence are passed to the hand detector.
	MinDetectionConfidence float64 `koanf:"min_detection_confidence"`
	MinTrackingConfidence  float64 `koanf:"min_tracking_confidence"`

	// Speech enables spoken announcements through SpeechCommand.
	Speech        bool          `koanf:"speech"`
	SpeechCommand string        `koanf:"speech_command"`
	SpeechTimeout time.Duration `koanf:"speech_timeout"`

	// StaticDir serves the browser UI when set.
	StaticDir string `koanf:"static_dir"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":8080",
		Tray:                   true,
		CameraID:               0,
		Mirror:                 true,
		TickInterval:           30 * time.Millisecond,
		IdleTickInterval:       200 * time.Millisecond,
		MotionThreshold:        1.0,
		Countdown:              3 * time.Second,
		ResultDisplay:          3 * time.Second,
		RoundLimit:             3,
		ScissorsRule:           "index_middle",
		MinDetectionConfidence: 0.8,
		MinTrackingConfidence:  0.8,
		Speech:                 true,
		SpeechCommand:          "",
		SpeechTimeout:          10 * time.Second,
	}
}

// Validate reports the first invalid field wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if c.CameraID < 0 {
		return fmt.Errorf("%w: camera_id must not be negative", ErrInvalidConfig)
	}
	if c.TickInterval <= 0 || c.IdleTickInterval <= 0 {
		return fmt.Errorf("%w: tick intervals must be positive", ErrInvalidConfig)
	}
	if c.Countdown <= 0 || c.ResultDisplay <= 0 {
		return fmt.Errorf("%w: countdown and result_display must be positive", ErrInvalidConfig)
	}
	if c.RoundLimit < 1 {
		return fmt.Errorf("%w: round_limit must be at least 1", ErrInvalidConfig)
	}
	if _, err := gesture.ParseScissorsRule(c.ScissorsRule); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if !unit(c.MinDetectionConfidence) || !unit(c.MinTrackingConfidence) {
		return fmt.Errorf("%w: confidences must be within [0, 1]", ErrInvalidConfig)
	}
	return nil
}

func unit(v float64) bool { return v >= 0 && v <= 1 }
