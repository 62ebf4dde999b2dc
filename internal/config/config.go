package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Server holds all configuration for the warground server.
type Server struct {
	LogLevel string `yaml:"log_level"`

	// Event feed (websocket) listener. Empty address disables the feed.
	FeedAddress string `yaml:"feed_address"`

	// Database. An empty host disables persistence; the server then runs
	// on in-memory collaborators only.
	Database DatabaseConfig `yaml:"database"`

	Capture   CaptureConfig   `yaml:"capture"`
	Reinforce ReinforceConfig `yaml:"reinforcements"`

	Zones []ZoneEntry `yaml:"zones"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool { return d.Host != "" }

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// CaptureConfig holds the capture session rules.
type CaptureConfig struct {
	PreparationSeconds int32 `yaml:"preparation_seconds"`
	CaptureSeconds     int32 `yaml:"capture_seconds"`
	MinOnlinePlayers   int   `yaml:"min_online_players"`

	CooldownEnabled bool `yaml:"cooldown_enabled"`
	CooldownSeconds int  `yaml:"cooldown_seconds"`

	PreventSelfCapture bool `yaml:"prevent_self_capture"`

	// Absolute session age ceiling enforced by the timeout reaper.
	SessionTimeoutSeconds int `yaml:"session_timeout_seconds"`

	FirstCaptureBonusMin int64 `yaml:"first_capture_bonus_min"`
	FirstCaptureBonusMax int64 `yaml:"first_capture_bonus_max"`
}

// Cooldown returns the capture cooldown window as a duration.
func (c CaptureConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// SessionTimeout returns the absolute session age ceiling as a duration.
func (c CaptureConfig) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutSeconds) * time.Second
}

// ReinforceConfig holds the reinforcement wave rules.
type ReinforceConfig struct {
	Enabled          bool   `yaml:"enabled"`
	MobKind          string `yaml:"mob_kind"`
	BaseMobsPerWave  int    `yaml:"base_mobs_per_wave"`
	MaxMobsPerZone   int    `yaml:"max_mobs_per_zone"`
	MaxSpawnsPerTick int    `yaml:"max_spawns_per_tick"`

	// How far past the zone edge reinforcements chase defenders, in chunks.
	FollowMarginChunks int32 `yaml:"follow_margin_chunks"`
}

// ZoneEntry defines one capturable zone. Preparation/capture override the
// global capture settings when set.
type ZoneEntry struct {
	ID          string  `yaml:"id"`
	World       string  `yaml:"world"`
	X           float64 `yaml:"x"`
	Y           float64 `yaml:"y"`
	Z           float64 `yaml:"z"`
	ChunkRadius int32   `yaml:"chunk_radius"`
	Color       string  `yaml:"color"`
	Inactive    bool    `yaml:"inactive"`

	PreparationSeconds *int32 `yaml:"preparation_seconds,omitempty"`
	CaptureSeconds     *int32 `yaml:"capture_seconds,omitempty"`
}

// ResolvedPreparationSeconds returns the zone's preparation countdown,
// falling back to the global setting.
func (z ZoneEntry) ResolvedPreparationSeconds(c CaptureConfig) int32 {
	if z.PreparationSeconds != nil {
		return *z.PreparationSeconds
	}
	return c.PreparationSeconds
}

// ResolvedCaptureSeconds returns the zone's capture countdown, falling
// back to the global setting.
func (z ZoneEntry) ResolvedCaptureSeconds(c CaptureConfig) int32 {
	if z.CaptureSeconds != nil {
		return *z.CaptureSeconds
	}
	return c.CaptureSeconds
}

// DefaultServer returns Server config with sensible defaults.
func DefaultServer() Server {
	return Server{
		LogLevel:    "info",
		FeedAddress: "127.0.0.1:8777",
		Database: DatabaseConfig{
			Port:    5432,
			User:    "warground",
			DBName:  "warground",
			SSLMode: "disable",
		},
		Capture: CaptureConfig{
			PreparationSeconds:    60,
			CaptureSeconds:        600,
			MinOnlinePlayers:      2,
			CooldownEnabled:       true,
			CooldownSeconds:       1800,
			PreventSelfCapture:    true,
			SessionTimeoutSeconds: 2700,
			FirstCaptureBonusMin:  100,
			FirstCaptureBonusMax:  500,
		},
		Reinforce: ReinforceConfig{
			Enabled:            true,
			MobKind:            "zombie",
			BaseMobsPerWave:    2,
			MaxMobsPerZone:     20,
			MaxSpawnsPerTick:   3,
			FollowMarginChunks: 4,
		},
	}
}

// Load loads server config from a YAML file.
// If the file doesn't exist, returns defaults.
func Load(path string) (Server, error) {
	cfg := DefaultServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks invariants that cannot be expressed by yaml types.
func (s Server) Validate() error {
	if s.Capture.PreparationSeconds < 0 || s.Capture.CaptureSeconds <= 0 {
		return fmt.Errorf("capture durations must be positive (preparation=%d capture=%d)",
			s.Capture.PreparationSeconds, s.Capture.CaptureSeconds)
	}
	if s.Capture.FirstCaptureBonusMax < s.Capture.FirstCaptureBonusMin {
		return fmt.Errorf("first_capture_bonus_max %d < first_capture_bonus_min %d",
			s.Capture.FirstCaptureBonusMax, s.Capture.FirstCaptureBonusMin)
	}
	if s.Reinforce.MaxSpawnsPerTick <= 0 {
		return fmt.Errorf("max_spawns_per_tick must be positive, got %d", s.Reinforce.MaxSpawnsPerTick)
	}
	seen := make(map[string]struct{}, len(s.Zones))
	for _, z := range s.Zones {
		if z.ID == "" {
			return fmt.Errorf("zone with empty id")
		}
		if _, dup := seen[z.ID]; dup {
			return fmt.Errorf("duplicate zone id %q", z.ID)
		}
		seen[z.ID] = struct{}{}
		if z.ChunkRadius <= 0 {
			return fmt.Errorf("zone %q: chunk_radius must be > 0, got %d", z.ID, z.ChunkRadius)
		}
		if z.World == "" {
			return fmt.Errorf("zone %q: world is required", z.ID)
		}
	}
	return nil
}
