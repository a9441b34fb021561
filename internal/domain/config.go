package domain

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Card configuration defaults.
const (
	DefaultEntity             = "sensor.been_map"
	DefaultVisitedColor       = "#4CAF50"
	DefaultCurrentColor       = "#FF5722"
	DefaultUnvisitedColor     = "#FFFFFF"
	DefaultBorderColor        = "#CCCCCC"
	DefaultCurrentBorderWidth = 3
	DefaultBorderWidth        = 1
	DefaultHeightPx           = 400
	DefaultTitle              = "Been Map"
)

// RawConfig is the card configuration as supplied by the host. Every field
// is optional.
type RawConfig struct {
	Entity             string   `yaml:"entity" json:"entity,omitempty"`
	VisitedColor       string   `yaml:"visited_color" json:"visited_color,omitempty"`
	CurrentColor       string   `yaml:"current_color" json:"current_color,omitempty"`
	UnvisitedColor     string   `yaml:"unvisited_color" json:"unvisited_color,omitempty"`
	BorderColor        string   `yaml:"border_color" json:"border_color,omitempty"`
	CurrentBorderWidth float64  `yaml:"current_border_width" json:"current_border_width,omitempty"`
	BorderWidth        float64  `yaml:"border_width" json:"border_width,omitempty"`
	Height             int      `yaml:"height" json:"height,omitempty"`
	Title              string   `yaml:"title" json:"title,omitempty"`
	ManualCountries    []string `yaml:"manual_countries" json:"manual_countries,omitempty"`
}

// DisplayConfig is the fully populated configuration the renderer works from.
type DisplayConfig struct {
	Entity             string
	VisitedColor       string
	CurrentColor       string
	UnvisitedColor     string
	BorderColor        string
	BorderWidth        float64
	CurrentBorderWidth float64
	HeightPx           int
	Title              string
	ManualCountries    []string
}

// ParseRawConfig decodes a YAML card configuration. JSON input is accepted
// as well since it is valid YAML.
func ParseRawConfig(data []byte) (RawConfig, error) {
	var raw RawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return RawConfig{}, fmt.Errorf("parse card config: %w", err)
	}
	return raw, nil
}

// NormalizeConfig substitutes the documented default for every unset
// field. Values are not validated: a malformed color is passed through.
func NormalizeConfig(raw RawConfig) DisplayConfig {
	manual := raw.ManualCountries
	if manual == nil {
		manual = []string{}
	}
	return DisplayConfig{
		Entity:             stringOr(raw.Entity, DefaultEntity),
		VisitedColor:       stringOr(raw.VisitedColor, DefaultVisitedColor),
		CurrentColor:       stringOr(raw.CurrentColor, DefaultCurrentColor),
		UnvisitedColor:     stringOr(raw.UnvisitedColor, DefaultUnvisitedColor),
		BorderColor:        stringOr(raw.BorderColor, DefaultBorderColor),
		BorderWidth:        floatOr(raw.BorderWidth, DefaultBorderWidth),
		CurrentBorderWidth: floatOr(raw.CurrentBorderWidth, DefaultCurrentBorderWidth),
		HeightPx:           intOr(raw.Height, DefaultHeightPx),
		Title:              stringOr(raw.Title, DefaultTitle),
		ManualCountries:    manual,
	}
}

func stringOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func floatOr(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func intOr(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
