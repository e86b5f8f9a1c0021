// Package config loads the renderer's tunable parameters from an
// optional TOML file, layering compiled-in defaults underneath whatever
// the file provides.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// RendererConfig holds every value the rasterizer/projection pipeline
// needs beyond the map and textures themselves.
type RendererConfig struct {
	ResWidth        int     `toml:"res_width"`
	ResHeight       int     `toml:"res_height"`
	FOVDegrees      float64 `toml:"fov_degrees"`
	WallHeightScale float64 `toml:"wall_height_scale"`
	EyeHeight       float64 `toml:"eye_height"`
}

// Default returns the compiled-in configuration: a 320x200 view at a
// 90-degree FOV, unit wall-height scaling (the §9 Open Question's own
// orthographic-at-90-degrees rationale), and a human-scale eye height.
func Default() RendererConfig {
	return RendererConfig{
		ResWidth:        320,
		ResHeight:       200,
		FOVDegrees:      90,
		WallHeightScale: 1.0,
		EyeHeight:       41,
	}
}

// Load reads path as TOML over Default's values; a missing file is not
// an error, it just means every field keeps its default. A present but
// malformed file returns the toml decode error unchanged.
func Load(path string) (RendererConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
