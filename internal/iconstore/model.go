// model.go defines the persistent icon configuration model.
package iconstore

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gearmap/gearmap-go/internal/errors"
)

// Layer identifiers referenced by LayerOrder.
const (
	LayerGearImage = "gear_image"
	LayerBrandText = "brand_text"
	LayerModelText = "model_text"
)

// ConfigSource records where a configuration came from.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"  // built-in, seeded at startup
	SourceOverride ConfigSource = "override" // built-in that a user has modified
	SourceCustom   ConfigSource = "custom"   // created by a user, usually by cloning
)

// LayerOrder is the stacking order of the three icon layers, bottom first.
// It is stored as a single comma-joined text column and serializes to JSON
// as a plain string array.
type LayerOrder []string

// DefaultLayerOrder returns the standard stacking order, image below text.
func DefaultLayerOrder() LayerOrder {
	return LayerOrder{LayerGearImage, LayerBrandText, LayerModelText}
}

// Value implements driver.Valuer.
func (lo LayerOrder) Value() (driver.Value, error) {
	return strings.Join(lo, ","), nil
}

// Scan implements sql.Scanner.
func (lo *LayerOrder) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*lo = nil
	case string:
		*lo = splitLayers(v)
	case []byte:
		*lo = splitLayers(string(v))
	default:
		return fmt.Errorf("unsupported layer order column type %T", value)
	}
	return nil
}

func splitLayers(s string) LayerOrder {
	if s == "" {
		return nil
	}
	return LayerOrder(strings.Split(s, ","))
}

// IconConfig is the rendering recipe for one subject, one row per subject.
// Colors are #RRGGBB strings. Offsets are measured from the icon center in
// design-space points and may be negative. IDTextColor may be empty, the
// renderer then falls back to TextColor. ImgPath and ModelTextOverride are
// per-subject identity and are never propagated by ApplyToAll.
type IconConfig struct {
	Subject           string       `gorm:"primaryKey;size:64" json:"subject"`
	Category          string       `gorm:"index;size:64" json:"category"`
	CircleColor       string       `json:"circle_color"`
	CircleBorderWidth float64      `json:"circle_border_width"`
	CircleBorderColor string       `json:"circle_border_color"`
	IDBoxHidden       bool         `json:"id_box_hidden"`
	IDBoxHeight       float64      `json:"id_box_height"`
	IDBoxWidthRatio   float64      `json:"id_box_width_ratio"`
	IDBoxBorderWidth  float64      `json:"id_box_border_width"`
	IDBoxYOffset      float64      `json:"id_box_y_offset"`
	IDBoxFontSize     float64      `json:"id_box_font_size"`
	IDTextColor       string       `json:"id_text_color"`
	ImgPath           string       `json:"img_path"`
	ImgScaleRatio     float64      `json:"img_scale_ratio"`
	ImgXOffset        float64      `json:"img_x_offset"`
	ImgYOffset        float64      `json:"img_y_offset"`
	NoImage           bool         `json:"no_image"`
	BrandText         string       `json:"brand_text"`
	BrandFontSize     float64      `json:"brand_font_size"`
	BrandXOffset      float64      `json:"brand_x_offset"`
	BrandYOffset      float64      `json:"brand_y_offset"`
	TextColor         string       `json:"text_color"`
	ModelFontSize     float64      `json:"model_font_size"`
	ModelXOffset      float64      `json:"model_x_offset"`
	ModelYOffset      float64      `json:"model_y_offset"`
	ModelUppercase    bool         `json:"model_uppercase"`
	ModelTextOverride string       `json:"model_text_override"`
	LayerOrder        LayerOrder   `gorm:"type:text" json:"layer_order"`
	Source            ConfigSource `gorm:"size:16" json:"source"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// NewConfig returns a neutral configuration for a freshly created subject.
// The values satisfy Validate so a record is usable before any tuning.
func NewConfig(subject, category string) IconConfig {
	return IconConfig{
		Subject:           subject,
		Category:          category,
		CircleColor:       "#4c5866",
		CircleBorderWidth: 2,
		CircleBorderColor: "#1f2933",
		IDBoxHeight:       16,
		IDBoxWidthRatio:   0.6,
		IDBoxBorderWidth:  1,
		IDBoxYOffset:      -30,
		IDBoxFontSize:     10,
		ImgScaleRatio:     0.5,
		NoImage:           true,
		BrandFontSize:     9,
		BrandYOffset:      22,
		TextColor:         "#ffffff",
		ModelFontSize:     8,
		ModelYOffset:      10,
		ModelUppercase:    true,
		LayerOrder:        DefaultLayerOrder(),
		Source:            SourceCustom,
	}
}

// Validate checks the invariants every stored configuration must satisfy.
// A configuration that fails here cannot be rendered, so violations carry
// the icon-config category.
func (c *IconConfig) Validate() error {
	if c.Subject == "" {
		return c.invalid("subject must not be empty")
	}
	if err := c.validateLayerOrder(); err != nil {
		return err
	}

	colors := []struct {
		name     string
		value    string
		optional bool
	}{
		{"circle_color", c.CircleColor, false},
		{"circle_border_color", c.CircleBorderColor, false},
		{"text_color", c.TextColor, false},
		{"id_text_color", c.IDTextColor, true},
	}
	for _, col := range colors {
		if col.optional && col.value == "" {
			continue
		}
		if !validColor(col.value) {
			return c.invalid(fmt.Sprintf("%s %q is not a #RRGGBB color", col.name, col.value))
		}
	}

	numerics := []struct {
		name  string
		value float64
	}{
		{"circle_border_width", c.CircleBorderWidth},
		{"id_box_height", c.IDBoxHeight},
		{"id_box_width_ratio", c.IDBoxWidthRatio},
		{"id_box_border_width", c.IDBoxBorderWidth},
		{"id_box_y_offset", c.IDBoxYOffset},
		{"id_box_font_size", c.IDBoxFontSize},
		{"img_scale_ratio", c.ImgScaleRatio},
		{"img_x_offset", c.ImgXOffset},
		{"img_y_offset", c.ImgYOffset},
		{"brand_font_size", c.BrandFontSize},
		{"brand_x_offset", c.BrandXOffset},
		{"brand_y_offset", c.BrandYOffset},
		{"model_font_size", c.ModelFontSize},
		{"model_x_offset", c.ModelXOffset},
		{"model_y_offset", c.ModelYOffset},
	}
	for _, num := range numerics {
		if math.IsNaN(num.value) || math.IsInf(num.value, 0) {
			return c.invalid(fmt.Sprintf("%s must be finite", num.name))
		}
	}

	// Offsets may be negative, lengths and ratios may not.
	lengths := []struct {
		name  string
		value float64
	}{
		{"circle_border_width", c.CircleBorderWidth},
		{"id_box_height", c.IDBoxHeight},
		{"id_box_width_ratio", c.IDBoxWidthRatio},
		{"id_box_border_width", c.IDBoxBorderWidth},
		{"id_box_font_size", c.IDBoxFontSize},
		{"img_scale_ratio", c.ImgScaleRatio},
		{"brand_font_size", c.BrandFontSize},
		{"model_font_size", c.ModelFontSize},
	}
	for _, length := range lengths {
		if length.value < 0 {
			return c.invalid(fmt.Sprintf("%s must not be negative", length.name))
		}
	}

	return nil
}

// validateLayerOrder enforces that LayerOrder is a permutation of exactly
// the three known layer identifiers.
func (c *IconConfig) validateLayerOrder() error {
	if len(c.LayerOrder) != 3 {
		return c.invalid(fmt.Sprintf("layer_order must list all three layers, got %d", len(c.LayerOrder)))
	}
	seen := make(map[string]bool, 3)
	for _, layer := range c.LayerOrder {
		switch layer {
		case LayerGearImage, LayerBrandText, LayerModelText:
		default:
			return c.invalid(fmt.Sprintf("layer_order contains unknown layer %q", layer))
		}
		if seen[layer] {
			return c.invalid(fmt.Sprintf("layer_order lists %q twice", layer))
		}
		seen[layer] = true
	}
	return nil
}

func (c *IconConfig) invalid(detail string) error {
	return errors.Newf("invalid icon configuration: %s", detail).
		Component("iconstore").
		Category(errors.CategoryIconConfig).
		Context("subject", c.Subject).
		Build()
}

// validColor reports whether s has the form #RRGGBB.
func validColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
