package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// PipelineConfig represents the tuning parameters for the violation pipeline.
// All fields are optional in the JSON file; the Get* accessors supply defaults
// for anything omitted, so partial configs are safe.
type PipelineConfig struct {
	// Fine calculation params
	BaseFine                 *float64 `json:"base_fine,omitempty"`
	RepeatOffenderMultiplier *float64 `json:"repeat_offender_multiplier,omitempty"`
	SchoolZoneFactor         *float64 `json:"school_zone_factor,omitempty"`
	NightHourStart           *int     `json:"night_hour_start,omitempty"`
	NightHourEnd             *int     `json:"night_hour_end,omitempty"`
	NightFactor              *float64 `json:"night_factor,omitempty"`

	// Detection params
	TrackHistoryDepth *int `json:"track_history_depth,omitempty"`

	// Evidence params
	WindowSeconds *float64 `json:"window_seconds,omitempty"`
	ClipSeconds   *float64 `json:"clip_seconds,omitempty"`

	// Source params
	FrameRate *float64 `json:"frame_rate,omitempty"`

	// Site params
	LocationID   *string `json:"location_id,omitempty"`
	IsSchoolZone *bool   `json:"is_school_zone,omitempty"`
}

// EmptyPipelineConfig returns a PipelineConfig with all fields unset.
func EmptyPipelineConfig() *PipelineConfig {
	return &PipelineConfig{}
}

// Load reads a PipelineConfig from a JSON file. The file must have a .json
// extension and stay under the max file size. Fields omitted from the JSON
// retain their defaults via the Get* accessors.
func Load(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPipelineConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overlays environment variables onto the config. Values already set
// in the config win over the environment; this mirrors how deploys provide
// site-specific overrides through a .env file.
func (c *PipelineConfig) ApplyEnv() {
	if c.BaseFine == nil {
		if v, ok := envFloat("BASE_FINE"); ok {
			c.BaseFine = &v
		}
	}
	if c.RepeatOffenderMultiplier == nil {
		if v, ok := envFloat("REPEAT_OFFENDER_MULTIPLIER"); ok {
			c.RepeatOffenderMultiplier = &v
		}
	}
	if c.SchoolZoneFactor == nil {
		if v, ok := envFloat("SCHOOL_ZONE_FACTOR"); ok {
			c.SchoolZoneFactor = &v
		}
	}
	if c.NightHourStart == nil {
		if v, ok := envInt("NIGHT_HOUR_START"); ok {
			c.NightHourStart = &v
		}
	}
	if c.NightHourEnd == nil {
		if v, ok := envInt("NIGHT_HOUR_END"); ok {
			c.NightHourEnd = &v
		}
	}
	if c.NightFactor == nil {
		if v, ok := envFloat("NIGHT_FACTOR"); ok {
			c.NightFactor = &v
		}
	}
	if c.LocationID == nil {
		if v := os.Getenv("LOCATION_ID"); v != "" {
			c.LocationID = &v
		}
	}
}

func envFloat(key string) (float64, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Validate checks that the configuration values are valid.
func (c *PipelineConfig) Validate() error {
	if c.BaseFine != nil && *c.BaseFine < 0 {
		return fmt.Errorf("base_fine must be non-negative, got %f", *c.BaseFine)
	}
	if c.RepeatOffenderMultiplier != nil && *c.RepeatOffenderMultiplier < 1.0 {
		return fmt.Errorf("repeat_offender_multiplier must be >= 1.0, got %f", *c.RepeatOffenderMultiplier)
	}
	if c.SchoolZoneFactor != nil && *c.SchoolZoneFactor <= 0 {
		return fmt.Errorf("school_zone_factor must be positive, got %f", *c.SchoolZoneFactor)
	}
	if c.NightHourStart != nil && (*c.NightHourStart < 0 || *c.NightHourStart > 23) {
		return fmt.Errorf("night_hour_start must be in [0,23], got %d", *c.NightHourStart)
	}
	if c.NightHourEnd != nil && (*c.NightHourEnd < 0 || *c.NightHourEnd > 23) {
		return fmt.Errorf("night_hour_end must be in [0,23], got %d", *c.NightHourEnd)
	}
	if c.NightFactor != nil && *c.NightFactor <= 0 {
		return fmt.Errorf("night_factor must be positive, got %f", *c.NightFactor)
	}
	if c.TrackHistoryDepth != nil && *c.TrackHistoryDepth < 2 {
		return fmt.Errorf("track_history_depth must be >= 2, got %d", *c.TrackHistoryDepth)
	}
	if c.WindowSeconds != nil && *c.WindowSeconds <= 0 {
		return fmt.Errorf("window_seconds must be positive, got %f", *c.WindowSeconds)
	}
	if c.ClipSeconds != nil && *c.ClipSeconds <= 0 {
		return fmt.Errorf("clip_seconds must be positive, got %f", *c.ClipSeconds)
	}
	if c.FrameRate != nil && *c.FrameRate <= 0 {
		return fmt.Errorf("frame_rate must be positive, got %f", *c.FrameRate)
	}
	return nil
}

// GetBaseFine returns the base_fine value or the default.
func (c *PipelineConfig) GetBaseFine() float64 {
	if c.BaseFine == nil {
		return 100.0
	}
	return *c.BaseFine
}

// GetRepeatOffenderMultiplier returns the repeat_offender_multiplier value or the default.
func (c *PipelineConfig) GetRepeatOffenderMultiplier() float64 {
	if c.RepeatOffenderMultiplier == nil {
		return 1.5
	}
	return *c.RepeatOffenderMultiplier
}

// GetSchoolZoneFactor returns the school_zone_factor value or the default.
func (c *PipelineConfig) GetSchoolZoneFactor() float64 {
	if c.SchoolZoneFactor == nil {
		return 2.0
	}
	return *c.SchoolZoneFactor
}

// GetNightHourStart returns the night_hour_start value or the default.
func (c *PipelineConfig) GetNightHourStart() int {
	if c.NightHourStart == nil {
		return 22
	}
	return *c.NightHourStart
}

// GetNightHourEnd returns the night_hour_end value or the default.
func (c *PipelineConfig) GetNightHourEnd() int {
	if c.NightHourEnd == nil {
		return 6
	}
	return *c.NightHourEnd
}

// GetNightFactor returns the night_factor value or the default.
func (c *PipelineConfig) GetNightFactor() float64 {
	if c.NightFactor == nil {
		return 1.2
	}
	return *c.NightFactor
}

// GetTrackHistoryDepth returns the track_history_depth value or the default.
func (c *PipelineConfig) GetTrackHistoryDepth() int {
	if c.TrackHistoryDepth == nil {
		return 5
	}
	return *c.TrackHistoryDepth
}

// GetWindowSeconds returns the window_seconds value or the default.
func (c *PipelineConfig) GetWindowSeconds() float64 {
	if c.WindowSeconds == nil {
		return 10.0
	}
	return *c.WindowSeconds
}

// GetClipSeconds returns the clip_seconds value or the default.
func (c *PipelineConfig) GetClipSeconds() float64 {
	if c.ClipSeconds == nil {
		return 3.0
	}
	return *c.ClipSeconds
}

// GetFrameRate returns the frame_rate value or the default.
func (c *PipelineConfig) GetFrameRate() float64 {
	if c.FrameRate == nil {
		return 30.0
	}
	return *c.FrameRate
}

// GetLocationID returns the location_id value or the default.
func (c *PipelineConfig) GetLocationID() string {
	if c.LocationID == nil {
		return "DEFAULT_LOCATION_000"
	}
	return *c.LocationID
}

// GetIsSchoolZone returns the is_school_zone value or the default.
func (c *PipelineConfig) GetIsSchoolZone() bool {
	if c.IsSchoolZone == nil {
		return false
	}
	return *c.IsSchoolZone
}
