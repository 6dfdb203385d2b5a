package iconstore

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearmap/gearmap-go/internal/errors"
)

func TestNewConfigPassesValidation(t *testing.T) {
	t.Parallel()

	cfg := NewConfig("GATE-D", "access")
	require.NoError(t, cfg.Validate())
	assert.Equal(t, SourceCustom, cfg.Source)
	assert.True(t, cfg.NoImage, "baseline config has no image configured")
	assert.Equal(t, DefaultLayerOrder(), cfg.LayerOrder)
}

func TestValidateRejectsBrokenConfigs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(cfg *IconConfig)
	}{
		{"empty subject", func(cfg *IconConfig) { cfg.Subject = "" }},
		{"missing layer order", func(cfg *IconConfig) { cfg.LayerOrder = nil }},
		{"short layer order", func(cfg *IconConfig) { cfg.LayerOrder = LayerOrder{LayerGearImage} }},
		{"duplicate layer", func(cfg *IconConfig) {
			cfg.LayerOrder = LayerOrder{LayerGearImage, LayerGearImage, LayerModelText}
		}},
		{"unknown layer", func(cfg *IconConfig) {
			cfg.LayerOrder = LayerOrder{LayerGearImage, LayerBrandText, "halo"}
		}},
		{"circle color without hash", func(cfg *IconConfig) { cfg.CircleColor = "1f6feb0" }},
		{"short text color", func(cfg *IconConfig) { cfg.TextColor = "#fff" }},
		{"id text color set but invalid", func(cfg *IconConfig) { cfg.IDTextColor = "#12345g" }},
		{"NaN offset", func(cfg *IconConfig) { cfg.ModelXOffset = math.NaN() }},
		{"infinite font size", func(cfg *IconConfig) { cfg.BrandFontSize = math.Inf(1) }},
		{"negative scale ratio", func(cfg *IconConfig) { cfg.ImgScaleRatio = -0.5 }},
		{"negative box height", func(cfg *IconConfig) { cfg.IDBoxHeight = -1 }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig("CAM-D", "camera")
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryIconConfig),
				"validation failures must carry the icon-config category, got %v", err)
		})
	}
}

func TestValidateAllowsNegativeOffsets(t *testing.T) {
	t.Parallel()

	cfg := NewConfig("CAM-D", "camera")
	cfg.ImgXOffset = -12
	cfg.BrandYOffset = -30
	cfg.IDBoxYOffset = -44
	assert.NoError(t, cfg.Validate())
}

func TestValidateAllowsEmptyIDTextColor(t *testing.T) {
	t.Parallel()

	cfg := NewConfig("CAM-D", "camera")
	cfg.IDTextColor = ""
	assert.NoError(t, cfg.Validate())
}

func TestLayerOrderColumnRoundTrip(t *testing.T) {
	t.Parallel()

	order := DefaultLayerOrder()
	value, err := order.Value()
	require.NoError(t, err)
	assert.Equal(t, "gear_image,brand_text,model_text", value)

	var fromString LayerOrder
	require.NoError(t, fromString.Scan("gear_image,brand_text,model_text"))
	assert.Equal(t, order, fromString)

	var fromBytes LayerOrder
	require.NoError(t, fromBytes.Scan([]byte("model_text,gear_image,brand_text")))
	assert.Equal(t, LayerOrder{LayerModelText, LayerGearImage, LayerBrandText}, fromBytes)

	var fromEmpty LayerOrder
	require.NoError(t, fromEmpty.Scan(""))
	assert.Nil(t, fromEmpty)

	var fromNil LayerOrder
	require.NoError(t, fromNil.Scan(nil))
	assert.Nil(t, fromNil)

	var fromInt LayerOrder
	assert.Error(t, fromInt.Scan(42))
}

func TestLayerOrderJSONIsStringArray(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(DefaultLayerOrder())
	require.NoError(t, err)
	assert.JSONEq(t, `["gear_image","brand_text","model_text"]`, string(data))

	var decoded LayerOrder
	require.NoError(t, json.Unmarshal([]byte(`["brand_text","gear_image","model_text"]`), &decoded))
	assert.Equal(t, LayerOrder{LayerBrandText, LayerGearImage, LayerModelText}, decoded)
}

func TestFieldPatchEmpty(t *testing.T) {
	t.Parallel()

	var nilPatch *FieldPatch
	assert.True(t, nilPatch.empty())
	assert.True(t, (&FieldPatch{}).empty())

	patch := FieldPatch{CircleColor: ptr("#ffffff")}
	assert.False(t, patch.empty())
}
