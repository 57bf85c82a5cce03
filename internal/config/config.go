// Package config loads insideout settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrInvalid is returned when a setting is present but unusable.
var ErrInvalid = errors.New("invalid configuration")

// Config holds runtime settings.
type Config struct {
	Addr    string
	DataDir string
	WebDir  string

	CameraID int
	FPS      int

	// GateEvery opens the inference gate on every Nth tick.
	// GateIntervalMs, when positive, replaces it with a wall-clock interval.
	GateEvery      int
	GateIntervalMs int64

	ObservedIntervalMs int64
	DefaultEmotion     string
	ProfilesPath       string
	Seed               uint64

	CanvasWidth  float64
	CanvasHeight float64

	PerceptionScript string
	PythonPath       string

	Tray     bool
	LogLevel string
}

// Load reads env vars and applies defaults.
func Load() (Config, error) {
	cfg := Config{
		Addr:             os.Getenv("INSIDEOUT_ADDR"),
		DataDir:          os.Getenv("INSIDEOUT_DATA_DIR"),
		WebDir:           os.Getenv("INSIDEOUT_WEB_DIR"),
		DefaultEmotion:   os.Getenv("INSIDEOUT_DEFAULT_EMOTION"),
		ProfilesPath:     os.Getenv("INSIDEOUT_PROFILES"),
		PerceptionScript: os.Getenv("INSIDEOUT_PERCEPTION_SCRIPT"),
		PythonPath:       os.Getenv("INSIDEOUT_PYTHON"),
		LogLevel:         os.Getenv("INSIDEOUT_LOG_LEVEL"),
	}

	cfg.CameraID = getEnvInt("INSIDEOUT_CAMERA_ID", 0)
	cfg.FPS = getEnvInt("INSIDEOUT_FPS", 60)
	cfg.GateEvery = getEnvInt("INSIDEOUT_GATE_EVERY", 6)
	cfg.GateIntervalMs = int64(getEnvInt("INSIDEOUT_GATE_INTERVAL_MS", 0))
	cfg.ObservedIntervalMs = int64(getEnvInt("INSIDEOUT_OBSERVED_INTERVAL_MS", 5000))
	cfg.Seed = getEnvUint64("INSIDEOUT_SEED", 0)
	cfg.CanvasWidth = getEnvFloat("INSIDEOUT_CANVAS_WIDTH", 1280)
	cfg.CanvasHeight = getEnvFloat("INSIDEOUT_CANVAS_HEIGHT", 720)
	cfg.Tray = getEnvBool("INSIDEOUT_TRAY", false)

	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.DefaultEmotion == "" {
		cfg.DefaultEmotion = "happy"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".insideout")
	}
	if cfg.PerceptionScript == "" {
		cfg.PerceptionScript = filepath.Join(cfg.DataDir, "perception_service.py")
	}
	if cfg.WebDir == "" {
		cfg.WebDir = findWebDir(cfg.DataDir)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DBPath is the location of the session journal.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "insideout.db")
}

func (c Config) validate() error {
	if c.FPS <= 0 {
		return fmt.Errorf("%w: INSIDEOUT_FPS must be positive, got %d", ErrInvalid, c.FPS)
	}
	if c.GateEvery <= 0 && c.GateIntervalMs <= 0 {
		return fmt.Errorf("%w: one of INSIDEOUT_GATE_EVERY or INSIDEOUT_GATE_INTERVAL_MS must be positive", ErrInvalid)
	}
	if c.ObservedIntervalMs <= 0 {
		return fmt.Errorf("%w: INSIDEOUT_OBSERVED_INTERVAL_MS must be positive", ErrInvalid)
	}
	if c.CanvasWidth <= 0 || c.CanvasHeight <= 0 {
		return fmt.Errorf("%w: canvas size %vx%v", ErrInvalid, c.CanvasWidth, c.CanvasHeight)
	}
	return nil
}

// findWebDir looks for the browser client next to the working directory, then in the data dir.
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvUint64(key string, defaultVal uint64) uint64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseUint(val, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}
