// patch.go partial update support for point writes.
package iconstore

// FieldPatch carries a partial update for one configuration. Nil fields are
// left untouched. Subject and Source are deliberately absent, the subject is
// immutable and provenance is maintained by the store itself.
type FieldPatch struct {
	Category          *string     `json:"category,omitempty"`
	CircleColor       *string     `json:"circle_color,omitempty"`
	CircleBorderWidth *float64    `json:"circle_border_width,omitempty"`
	CircleBorderColor *string     `json:"circle_border_color,omitempty"`
	IDBoxHidden       *bool       `json:"id_box_hidden,omitempty"`
	IDBoxHeight       *float64    `json:"id_box_height,omitempty"`
	IDBoxWidthRatio   *float64    `json:"id_box_width_ratio,omitempty"`
	IDBoxBorderWidth  *float64    `json:"id_box_border_width,omitempty"`
	IDBoxYOffset      *float64    `json:"id_box_y_offset,omitempty"`
	IDBoxFontSize     *float64    `json:"id_box_font_size,omitempty"`
	IDTextColor       *string     `json:"id_text_color,omitempty"`
	ImgPath           *string     `json:"img_path,omitempty"`
	ImgScaleRatio     *float64    `json:"img_scale_ratio,omitempty"`
	ImgXOffset        *float64    `json:"img_x_offset,omitempty"`
	ImgYOffset        *float64    `json:"img_y_offset,omitempty"`
	NoImage           *bool       `json:"no_image,omitempty"`
	BrandText         *string     `json:"brand_text,omitempty"`
	BrandFontSize     *float64    `json:"brand_font_size,omitempty"`
	BrandXOffset      *float64    `json:"brand_x_offset,omitempty"`
	BrandYOffset      *float64    `json:"brand_y_offset,omitempty"`
	TextColor         *string     `json:"text_color,omitempty"`
	ModelFontSize     *float64    `json:"model_font_size,omitempty"`
	ModelXOffset      *float64    `json:"model_x_offset,omitempty"`
	ModelYOffset      *float64    `json:"model_y_offset,omitempty"`
	ModelUppercase    *bool       `json:"model_uppercase,omitempty"`
	ModelTextOverride *string     `json:"model_text_override,omitempty"`
	LayerOrder        *LayerOrder `json:"layer_order,omitempty"`
}

// apply merges every non-nil patch field into cfg.
func (p *FieldPatch) apply(cfg *IconConfig) {
	if p.Category != nil {
		cfg.Category = *p.Category
	}
	if p.CircleColor != nil {
		cfg.CircleColor = *p.CircleColor
	}
	if p.CircleBorderWidth != nil {
		cfg.CircleBorderWidth = *p.CircleBorderWidth
	}
	if p.CircleBorderColor != nil {
		cfg.CircleBorderColor = *p.CircleBorderColor
	}
	if p.IDBoxHidden != nil {
		cfg.IDBoxHidden = *p.IDBoxHidden
	}
	if p.IDBoxHeight != nil {
		cfg.IDBoxHeight = *p.IDBoxHeight
	}
	if p.IDBoxWidthRatio != nil {
		cfg.IDBoxWidthRatio = *p.IDBoxWidthRatio
	}
	if p.IDBoxBorderWidth != nil {
		cfg.IDBoxBorderWidth = *p.IDBoxBorderWidth
	}
	if p.IDBoxYOffset != nil {
		cfg.IDBoxYOffset = *p.IDBoxYOffset
	}
	if p.IDBoxFontSize != nil {
		cfg.IDBoxFontSize = *p.IDBoxFontSize
	}
	if p.IDTextColor != nil {
		cfg.IDTextColor = *p.IDTextColor
	}
	if p.ImgPath != nil {
		cfg.ImgPath = *p.ImgPath
	}
	if p.ImgScaleRatio != nil {
		cfg.ImgScaleRatio = *p.ImgScaleRatio
	}
	if p.ImgXOffset != nil {
		cfg.ImgXOffset = *p.ImgXOffset
	}
	if p.ImgYOffset != nil {
		cfg.ImgYOffset = *p.ImgYOffset
	}
	if p.NoImage != nil {
		cfg.NoImage = *p.NoImage
	}
	if p.BrandText != nil {
		cfg.BrandText = *p.BrandText
	}
	if p.BrandFontSize != nil {
		cfg.BrandFontSize = *p.BrandFontSize
	}
	if p.BrandXOffset != nil {
		cfg.BrandXOffset = *p.BrandXOffset
	}
	if p.BrandYOffset != nil {
		cfg.BrandYOffset = *p.BrandYOffset
	}
	if p.TextColor != nil {
		cfg.TextColor = *p.TextColor
	}
	if p.ModelFontSize != nil {
		cfg.ModelFontSize = *p.ModelFontSize
	}
	if p.ModelXOffset != nil {
		cfg.ModelXOffset = *p.ModelXOffset
	}
	if p.ModelYOffset != nil {
		cfg.ModelYOffset = *p.ModelYOffset
	}
	if p.ModelUppercase != nil {
		cfg.ModelUppercase = *p.ModelUppercase
	}
	if p.ModelTextOverride != nil {
		cfg.ModelTextOverride = *p.ModelTextOverride
	}
	if p.LayerOrder != nil {
		cfg.LayerOrder = append(LayerOrder(nil), *p.LayerOrder...)
	}
}

// empty reports whether the patch changes nothing.
func (p *FieldPatch) empty() bool {
	return p == nil || *p == (FieldPatch{})
}
