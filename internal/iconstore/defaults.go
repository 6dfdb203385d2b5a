// defaults.go built-in configurations shipped with the binary.
package iconstore

import (
	"embed"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/gearmap/gearmap-go/internal/errors"
)

//go:embed data/defaults.yaml
var defaultFiles embed.FS

// defaultsFile mirrors the layout of data/defaults.yaml.
type defaultsFile struct {
	Configs []defaultEntry `yaml:"configs"`
}

type defaultEntry struct {
	Subject           string   `yaml:"subject"`
	Category          string   `yaml:"category"`
	CircleColor       string   `yaml:"circle_color"`
	CircleBorderWidth float64  `yaml:"circle_border_width"`
	CircleBorderColor string   `yaml:"circle_border_color"`
	IDBoxHidden       bool     `yaml:"id_box_hidden"`
	IDBoxHeight       float64  `yaml:"id_box_height"`
	IDBoxWidthRatio   float64  `yaml:"id_box_width_ratio"`
	IDBoxBorderWidth  float64  `yaml:"id_box_border_width"`
	IDBoxYOffset      float64  `yaml:"id_box_y_offset"`
	IDBoxFontSize     float64  `yaml:"id_box_font_size"`
	IDTextColor       string   `yaml:"id_text_color"`
	ImgPath           string   `yaml:"img_path"`
	ImgScaleRatio     float64  `yaml:"img_scale_ratio"`
	ImgXOffset        float64  `yaml:"img_x_offset"`
	ImgYOffset        float64  `yaml:"img_y_offset"`
	NoImage           bool     `yaml:"no_image"`
	BrandText         string   `yaml:"brand_text"`
	BrandFontSize     float64  `yaml:"brand_font_size"`
	BrandXOffset      float64  `yaml:"brand_x_offset"`
	BrandYOffset      float64  `yaml:"brand_y_offset"`
	TextColor         string   `yaml:"text_color"`
	ModelFontSize     float64  `yaml:"model_font_size"`
	ModelXOffset      float64  `yaml:"model_x_offset"`
	ModelYOffset      float64  `yaml:"model_y_offset"`
	ModelUppercase    bool     `yaml:"model_uppercase"`
	ModelTextOverride string   `yaml:"model_text_override"`
	LayerOrder        []string `yaml:"layer_order"`
}

func (e *defaultEntry) toConfig() IconConfig {
	return IconConfig{
		Subject:           e.Subject,
		Category:          e.Category,
		CircleColor:       e.CircleColor,
		CircleBorderWidth: e.CircleBorderWidth,
		CircleBorderColor: e.CircleBorderColor,
		IDBoxHidden:       e.IDBoxHidden,
		IDBoxHeight:       e.IDBoxHeight,
		IDBoxWidthRatio:   e.IDBoxWidthRatio,
		IDBoxBorderWidth:  e.IDBoxBorderWidth,
		IDBoxYOffset:      e.IDBoxYOffset,
		IDBoxFontSize:     e.IDBoxFontSize,
		IDTextColor:       e.IDTextColor,
		ImgPath:           e.ImgPath,
		ImgScaleRatio:     e.ImgScaleRatio,
		ImgXOffset:        e.ImgXOffset,
		ImgYOffset:        e.ImgYOffset,
		NoImage:           e.NoImage,
		BrandText:         e.BrandText,
		BrandFontSize:     e.BrandFontSize,
		BrandXOffset:      e.BrandXOffset,
		BrandYOffset:      e.BrandYOffset,
		TextColor:         e.TextColor,
		ModelFontSize:     e.ModelFontSize,
		ModelXOffset:      e.ModelXOffset,
		ModelYOffset:      e.ModelYOffset,
		ModelUppercase:    e.ModelUppercase,
		ModelTextOverride: e.ModelTextOverride,
		LayerOrder:        LayerOrder(e.LayerOrder),
		Source:            SourceDefault,
	}
}

// loadDefaultConfigs parses the embedded defaults asset. Every record is
// validated here so a broken asset fails the store open instead of the first
// conversion that needs it.
func loadDefaultConfigs() ([]IconConfig, error) {
	data, err := fs.ReadFile(defaultFiles, "data/defaults.yaml")
	if err != nil {
		return nil, errors.New(err).
			Component("iconstore").
			Category(errors.CategoryFileIO).
			Context("operation", "load_default_configs").
			Build()
	}

	var file defaultsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.New(err).
			Component("iconstore").
			Category(errors.CategoryIconConfig).
			Context("operation", "load_default_configs").
			Build()
	}

	configs := make([]IconConfig, 0, len(file.Configs))
	seen := make(map[string]bool, len(file.Configs))
	for i := range file.Configs {
		cfg := file.Configs[i].toConfig()
		if seen[cfg.Subject] {
			return nil, errors.Newf("duplicate default configuration for subject %q", cfg.Subject).
				Component("iconstore").
				Category(errors.CategoryIconConfig).
				Context("operation", "load_default_configs").
				Build()
		}
		seen[cfg.Subject] = true

		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}
