// Package config loads optional JSON settings shared by the command line
// tools. Fields omitted from the file fall back to built-in defaults, so
// partial configs are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mooring-data/rsk.report/internal/rsk"
	"github.com/mooring-data/rsk.report/internal/units"
)

// Settings holds tool configuration. All fields are optional; the Get*
// methods supply defaults for unset values.
type Settings struct {
	// Profile detection params
	PressureThreshold     *float64 `json:"pressure_threshold,omitempty"`
	ConductivityThreshold *float64 `json:"conductivity_threshold,omitempty"`

	// Depth conversion params
	AtmosphericPressure *float64 `json:"atmospheric_pressure,omitempty"`
	SeawaterDensity     *float64 `json:"seawater_density,omitempty"`

	// Viewer params
	Listen         *string `json:"listen,omitempty"`
	ChartMaxPoints *int    `json:"chart_max_points,omitempty"`
}

// Load reads Settings from a JSON file. The file must have a .json
// extension and stay under the size cap.
func Load(path string) (*Settings, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	s := &Settings{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}

// Validate checks that set values are usable.
func (s *Settings) Validate() error {
	if s.PressureThreshold != nil && *s.PressureThreshold <= 0 {
		return fmt.Errorf("pressure_threshold must be positive, got %f", *s.PressureThreshold)
	}
	if s.ConductivityThreshold != nil && *s.ConductivityThreshold <= 0 {
		return fmt.Errorf("conductivity_threshold must be positive, got %f", *s.ConductivityThreshold)
	}
	if s.AtmosphericPressure != nil && *s.AtmosphericPressure <= 0 {
		return fmt.Errorf("atmospheric_pressure must be positive, got %f", *s.AtmosphericPressure)
	}
	if s.SeawaterDensity != nil && *s.SeawaterDensity <= 0 {
		return fmt.Errorf("seawater_density must be positive, got %f", *s.SeawaterDensity)
	}
	if s.ChartMaxPoints != nil && *s.ChartMaxPoints < 100 {
		return fmt.Errorf("chart_max_points must be at least 100, got %d", *s.ChartMaxPoints)
	}
	return nil
}

// GetPressureThreshold returns the pressure_threshold value or the default.
func (s *Settings) GetPressureThreshold() float64 {
	if s == nil || s.PressureThreshold == nil {
		return rsk.DefaultPressureThreshold
	}
	return *s.PressureThreshold
}

// GetConductivityThreshold returns the conductivity_threshold value or the default.
func (s *Settings) GetConductivityThreshold() float64 {
	if s == nil || s.ConductivityThreshold == nil {
		return rsk.DefaultConductivityThreshold
	}
	return *s.ConductivityThreshold
}

// GetAtmosphericPressure returns the atmospheric_pressure value or the default.
func (s *Settings) GetAtmosphericPressure() float64 {
	if s == nil || s.AtmosphericPressure == nil {
		return units.DefaultAtmosphericPressure
	}
	return *s.AtmosphericPressure
}

// GetSeawaterDensity returns the seawater_density value or the default.
func (s *Settings) GetSeawaterDensity() float64 {
	if s == nil || s.SeawaterDensity == nil {
		return units.DefaultSeawaterDensity
	}
	return *s.SeawaterDensity
}

// GetListen returns the listen address or the default.
func (s *Settings) GetListen() string {
	if s == nil || s.Listen == nil || *s.Listen == "" {
		return "localhost:8080"
	}
	return *s.Listen
}

// GetChartMaxPoints returns the chart_max_points value or the default.
func (s *Settings) GetChartMaxPoints() int {
	if s == nil || s.ChartMaxPoints == nil {
		return 8000
	}
	return *s.ChartMaxPoints
}
