// applyall.go batch propagation of one field group across configurations.
package iconstore

import (
	"github.com/gearmap/gearmap-go/internal/errors"
)

// Field group identifiers for ApplyToAll. Each group names a fixed, disjoint
// set of styling fields. ImgPath and ModelTextOverride belong to no group,
// they identify the subject rather than style it.
const (
	GroupCircle    = "circle"
	GroupIDBox     = "id_box"
	GroupGearImage = "gear_image"
	GroupBrandText = "brand_text"
	GroupModelText = "model_text"
)

// Scope values for ApplyToAll.
const (
	ScopeCategory = "category" // every config sharing the donor's category
	ScopeAll      = "all"      // every config in the store
)

// ApplyToAllRequest propagates one field group from a source configuration
// onto every other configuration in scope. When Values is present its single
// variant overrides the donor's stored values, the donor record itself is
// still required and never written.
type ApplyToAllRequest struct {
	FieldGroup    string       `json:"field_group"`
	Scope         string       `json:"scope"`
	SourceSubject string       `json:"source_subject"`
	Values        *GroupValues `json:"values,omitempty"`
}

// GroupValues carries explicit values for exactly one field group. The
// populated variant must match the request's FieldGroup.
type GroupValues struct {
	Circle    *CircleFields    `json:"circle,omitempty"`
	IDBox     *IDBoxFields     `json:"id_box,omitempty"`
	GearImage *GearImageFields `json:"gear_image,omitempty"`
	BrandText *BrandTextFields `json:"brand_text,omitempty"`
	ModelText *ModelTextFields `json:"model_text,omitempty"`
}

// CircleFields is the circle frame styling group.
type CircleFields struct {
	CircleColor       string  `json:"circle_color"`
	CircleBorderWidth float64 `json:"circle_border_width"`
	CircleBorderColor string  `json:"circle_border_color"`
}

// IDBoxFields is the identifier box styling group.
type IDBoxFields struct {
	IDBoxHidden      bool    `json:"id_box_hidden"`
	IDBoxHeight      float64 `json:"id_box_height"`
	IDBoxWidthRatio  float64 `json:"id_box_width_ratio"`
	IDBoxBorderWidth float64 `json:"id_box_border_width"`
	IDBoxYOffset     float64 `json:"id_box_y_offset"`
	IDBoxFontSize    float64 `json:"id_box_font_size"`
	IDTextColor      string  `json:"id_text_color"`
}

// GearImageFields is the image placement group. The image path itself is
// deliberately not part of it.
type GearImageFields struct {
	ImgScaleRatio float64 `json:"img_scale_ratio"`
	ImgXOffset    float64 `json:"img_x_offset"`
	ImgYOffset    float64 `json:"img_y_offset"`
	NoImage       bool    `json:"no_image"`
}

// BrandTextFields is the brand text group. TextColor lives here even though
// the model text layer shares it.
type BrandTextFields struct {
	BrandText     string  `json:"brand_text"`
	BrandFontSize float64 `json:"brand_font_size"`
	BrandXOffset  float64 `json:"brand_x_offset"`
	BrandYOffset  float64 `json:"brand_y_offset"`
	TextColor     string  `json:"text_color"`
}

// ModelTextFields is the model text group. The literal override is
// deliberately not part of it.
type ModelTextFields struct {
	ModelFontSize  float64 `json:"model_font_size"`
	ModelXOffset   float64 `json:"model_x_offset"`
	ModelYOffset   float64 `json:"model_y_offset"`
	ModelUppercase bool    `json:"model_uppercase"`
}

// groupFields is one field group's concrete values.
type groupFields interface {
	applyTo(cfg *IconConfig)
	columns() map[string]any
}

func (f *CircleFields) applyTo(cfg *IconConfig) {
	cfg.CircleColor = f.CircleColor
	cfg.CircleBorderWidth = f.CircleBorderWidth
	cfg.CircleBorderColor = f.CircleBorderColor
}

func (f *CircleFields) columns() map[string]any {
	return map[string]any{
		"circle_color":        f.CircleColor,
		"circle_border_width": f.CircleBorderWidth,
		"circle_border_color": f.CircleBorderColor,
	}
}

func (f *IDBoxFields) applyTo(cfg *IconConfig) {
	cfg.IDBoxHidden = f.IDBoxHidden
	cfg.IDBoxHeight = f.IDBoxHeight
	cfg.IDBoxWidthRatio = f.IDBoxWidthRatio
	cfg.IDBoxBorderWidth = f.IDBoxBorderWidth
	cfg.IDBoxYOffset = f.IDBoxYOffset
	cfg.IDBoxFontSize = f.IDBoxFontSize
	cfg.IDTextColor = f.IDTextColor
}

func (f *IDBoxFields) columns() map[string]any {
	return map[string]any{
		"id_box_hidden":       f.IDBoxHidden,
		"id_box_height":       f.IDBoxHeight,
		"id_box_width_ratio":  f.IDBoxWidthRatio,
		"id_box_border_width": f.IDBoxBorderWidth,
		"id_box_y_offset":     f.IDBoxYOffset,
		"id_box_font_size":    f.IDBoxFontSize,
		"id_text_color":       f.IDTextColor,
	}
}

func (f *GearImageFields) applyTo(cfg *IconConfig) {
	cfg.ImgScaleRatio = f.ImgScaleRatio
	cfg.ImgXOffset = f.ImgXOffset
	cfg.ImgYOffset = f.ImgYOffset
	cfg.NoImage = f.NoImage
}

func (f *GearImageFields) columns() map[string]any {
	return map[string]any{
		"img_scale_ratio": f.ImgScaleRatio,
		"img_x_offset":    f.ImgXOffset,
		"img_y_offset":    f.ImgYOffset,
		"no_image":        f.NoImage,
	}
}

func (f *BrandTextFields) applyTo(cfg *IconConfig) {
	cfg.BrandText = f.BrandText
	cfg.BrandFontSize = f.BrandFontSize
	cfg.BrandXOffset = f.BrandXOffset
	cfg.BrandYOffset = f.BrandYOffset
	cfg.TextColor = f.TextColor
}

func (f *BrandTextFields) columns() map[string]any {
	return map[string]any{
		"brand_text":      f.BrandText,
		"brand_font_size": f.BrandFontSize,
		"brand_x_offset":  f.BrandXOffset,
		"brand_y_offset":  f.BrandYOffset,
		"text_color":      f.TextColor,
	}
}

func (f *ModelTextFields) applyTo(cfg *IconConfig) {
	cfg.ModelFontSize = f.ModelFontSize
	cfg.ModelXOffset = f.ModelXOffset
	cfg.ModelYOffset = f.ModelYOffset
	cfg.ModelUppercase = f.ModelUppercase
}

func (f *ModelTextFields) columns() map[string]any {
	return map[string]any{
		"model_font_size": f.ModelFontSize,
		"model_x_offset":  f.ModelXOffset,
		"model_y_offset":  f.ModelYOffset,
		"model_uppercase": f.ModelUppercase,
	}
}

func validFieldGroup(group string) bool {
	switch group {
	case GroupCircle, GroupIDBox, GroupGearImage, GroupBrandText, GroupModelText:
		return true
	default:
		return false
	}
}

// variant returns the populated field group, which must be exactly one and
// must match the requested group.
func (v *GroupValues) variant(group string) (groupFields, error) {
	var chosen groupFields
	populated := 0

	if v.Circle != nil {
		populated++
		if group == GroupCircle {
			chosen = v.Circle
		}
	}
	if v.IDBox != nil {
		populated++
		if group == GroupIDBox {
			chosen = v.IDBox
		}
	}
	if v.GearImage != nil {
		populated++
		if group == GroupGearImage {
			chosen = v.GearImage
		}
	}
	if v.BrandText != nil {
		populated++
		if group == GroupBrandText {
			chosen = v.BrandText
		}
	}
	if v.ModelText != nil {
		populated++
		if group == GroupModelText {
			chosen = v.ModelText
		}
	}

	if populated != 1 || chosen == nil {
		return nil, errors.Newf("values must carry exactly the %q field group", group).
			Component("iconstore").
			Category(errors.CategoryValidation).
			Context("operation", "apply_to_all").
			Build()
	}
	return chosen, nil
}

// fieldsFromConfig copies one field group out of a stored configuration.
func fieldsFromConfig(group string, cfg *IconConfig) groupFields {
	switch group {
	case GroupCircle:
		return &CircleFields{
			CircleColor:       cfg.CircleColor,
			CircleBorderWidth: cfg.CircleBorderWidth,
			CircleBorderColor: cfg.CircleBorderColor,
		}
	case GroupIDBox:
		return &IDBoxFields{
			IDBoxHidden:      cfg.IDBoxHidden,
			IDBoxHeight:      cfg.IDBoxHeight,
			IDBoxWidthRatio:  cfg.IDBoxWidthRatio,
			IDBoxBorderWidth: cfg.IDBoxBorderWidth,
			IDBoxYOffset:     cfg.IDBoxYOffset,
			IDBoxFontSize:    cfg.IDBoxFontSize,
			IDTextColor:      cfg.IDTextColor,
		}
	case GroupGearImage:
		return &GearImageFields{
			ImgScaleRatio: cfg.ImgScaleRatio,
			ImgXOffset:    cfg.ImgXOffset,
			ImgYOffset:    cfg.ImgYOffset,
			NoImage:       cfg.NoImage,
		}
	case GroupBrandText:
		return &BrandTextFields{
			BrandText:     cfg.BrandText,
			BrandFontSize: cfg.BrandFontSize,
			BrandXOffset:  cfg.BrandXOffset,
			BrandYOffset:  cfg.BrandYOffset,
			TextColor:     cfg.TextColor,
		}
	case GroupModelText:
		return &ModelTextFields{
			ModelFontSize:  cfg.ModelFontSize,
			ModelXOffset:   cfg.ModelXOffset,
			ModelYOffset:   cfg.ModelYOffset,
			ModelUppercase: cfg.ModelUppercase,
		}
	default:
		return nil
	}
}

// ApplyToAll copies one field group onto every configuration in scope except
// the source record itself. Each target is written independently under its
// own subject lock, a failed target is logged and skipped without rolling
// back the others. The returned count covers successful writes, a write that
// stores values identical to what the target already had still counts.
func (ds *DataStore) ApplyToAll(req ApplyToAllRequest) (int, error) {
	if !validFieldGroup(req.FieldGroup) {
		return 0, errors.Newf("unknown field group %q", req.FieldGroup).
			Component("iconstore").
			Category(errors.CategoryValidation).
			Context("operation", "apply_to_all").
			Build()
	}
	if req.Scope != ScopeCategory && req.Scope != ScopeAll {
		return 0, errors.Newf("unknown scope %q", req.Scope).
			Component("iconstore").
			Category(errors.CategoryValidation).
			Context("operation", "apply_to_all").
			Build()
	}

	donor, err := ds.Get(req.SourceSubject)
	if err != nil {
		return 0, err
	}

	var values groupFields
	if req.Values != nil {
		values, err = req.Values.variant(req.FieldGroup)
		if err != nil {
			return 0, err
		}
	} else {
		values = fieldsFromConfig(req.FieldGroup, &donor)
	}

	// Reject bad explicit values before touching any target. The candidate
	// merge reuses the full record validation.
	candidate := donor
	values.applyTo(&candidate)
	if err := candidate.Validate(); err != nil {
		return 0, errors.New(err).
			Component("iconstore").
			Category(errors.CategoryValidation).
			Context("operation", "apply_to_all").
			Context("field_group", req.FieldGroup).
			Build()
	}

	var targets []IconConfig
	if req.Scope == ScopeCategory {
		targets, err = ds.ListByCategory(donor.Category)
	} else {
		targets, err = ds.List()
	}
	if err != nil {
		return 0, err
	}

	columns := values.columns()
	updated := 0
	for i := range targets {
		target := &targets[i]
		if target.Subject == donor.Subject {
			continue
		}
		if err := ds.applyGroup(target, columns); err != nil {
			ds.logger().Warn("apply-to-all write failed",
				"subject", target.Subject,
				"field_group", req.FieldGroup,
				"error", err)
			continue
		}
		updated++
	}

	ds.logger().Info("field group propagated",
		"field_group", req.FieldGroup,
		"scope", req.Scope,
		"source_subject", req.SourceSubject,
		"updated", updated)
	return updated, nil
}

// applyGroup writes one field group onto one target under its subject lock.
// Styling a built-in default turns it into an override.
func (ds *DataStore) applyGroup(target *IconConfig, columns map[string]any) error {
	lock := ds.subjectLock(target.Subject)
	lock.Lock()
	defer lock.Unlock()

	updates := make(map[string]any, len(columns)+1)
	for column, value := range columns {
		updates[column] = value
	}
	if target.Source == SourceDefault {
		updates["source"] = SourceOverride
	}

	return ds.DB.Model(&IconConfig{}).Where("subject = ?", target.Subject).Updates(updates).Error
}
