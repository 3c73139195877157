// Package config loads the editor configuration from YAML.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/HYEJI0818/AIVIS-Q/internal/mask"
)

type Config struct {
	MaxBrushRadius int `yaml:"max_brush_radius"`
	UndoDepth      int `yaml:"undo_depth"`

	AutosaveEverySec int `yaml:"autosave_every_sec"`

	Labels []LabelDef `yaml:"labels"`
}

type LabelDef struct {
	ID    int    `yaml:"id"`
	Name  string `yaml:"name"`
	Color string `yaml:"color"` // "#rrggbb"
}

// Load reads and validates the editor config. A missing or empty label list
// falls back to the built-in organ catalog.
func Load(path string) (Config, error) {
	var c Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("editor.yaml: %w", err)
	}
	if c.MaxBrushRadius < 0 || c.UndoDepth < 0 || c.AutosaveEverySec < 0 {
		return c, fmt.Errorf("editor.yaml: negative limits")
	}
	for _, l := range c.Labels {
		if l.ID < 1 || l.ID > 0xFF {
			return c, fmt.Errorf("editor.yaml: label id %d out of range", l.ID)
		}
		if l.Name == "" {
			return c, fmt.Errorf("editor.yaml: label %d has no name", l.ID)
		}
		if _, err := parseHexColor(l.Color); err != nil {
			return c, fmt.Errorf("editor.yaml: label %d: %w", l.ID, err)
		}
	}
	return c, nil
}

// SessionConfig converts the loaded values into the editing core's knobs.
func (c Config) SessionConfig() (mask.SessionConfig, error) {
	cat := mask.Catalog{}
	for _, l := range c.Labels {
		rgb, err := parseHexColor(l.Color)
		if err != nil {
			return mask.SessionConfig{}, err
		}
		cat = append(cat, mask.LabelInfo{ID: mask.Label(l.ID), Name: l.Name, Color: rgb})
	}
	if len(cat) == 0 {
		cat = mask.DefaultCatalog()
	}
	return mask.SessionConfig{
		Catalog:        cat,
		UndoDepth:      c.UndoDepth,
		MaxBrushRadius: c.MaxBrushRadius,
	}, nil
}

func parseHexColor(s string) (mask.RGB, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return mask.RGB{}, fmt.Errorf("bad color %q", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return mask.RGB{}, fmt.Errorf("bad color %q", s)
	}
	return mask.RGB{R: r, G: g, B: b}, nil
}
