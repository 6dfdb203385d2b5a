// Package render turns an icon configuration and a short label into the
// layered graphic placed over converted annotations. A rendered icon lives
// in its own square design space; placement and scaling onto an annotation
// rectangle happen through the appearance stream mechanism in the output
// document, never here. Rendering the same configuration and label twice
// produces byte-identical output.
package render

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/gearmap/gearmap-go/internal/conf"
	"github.com/gearmap/gearmap-go/internal/iconstore"
	"github.com/gearmap/gearmap-go/internal/logging"
	"github.com/gearmap/gearmap-go/internal/pdf"
)

// DefaultSize is the design-space edge length used when the configuration
// does not set one.
const DefaultSize = 100.0

// kappa is the control point distance for approximating a quarter circle
// with one cubic Bézier segment.
const kappa = 0.5523

// Icon is one rendered graphic: an uncompressed content stream plus the
// resources it references.
type Icon struct {
	// Size is the design-space edge length, the content draws inside
	// [0, Size] x [0, Size].
	Size float64

	// Content is the uncompressed content stream.
	Content []byte

	// Fonts maps resource names to standard-14 font dictionaries.
	Fonts map[pdf.Name]pdf.Dict

	// Images maps resource names to raster resources.
	Images map[pdf.Name]*Image
}

// Image is one raster resource of a rendered icon. Sample data is
// uncompressed, the document writer applies Flate when embedding.
type Image struct {
	Dict      pdf.Dict
	Data      []byte
	SMaskDict pdf.Dict
	SMaskData []byte // nil when the image is fully opaque
}

// Renderer produces icons from stored configurations.
type Renderer struct {
	size     float64
	imageDir string
	images   *cache.Cache
	log      *slog.Logger
}

// New creates a renderer using the icon settings.
func New(settings *conf.Settings) *Renderer {
	size := settings.Icons.RenderSize
	if size <= 0 {
		size = DefaultSize
	}
	return &Renderer{
		size:     size,
		imageDir: settings.Icons.ImageDir,
		images:   cache.New(30*time.Minute, time.Hour),
	}
}

func (r *Renderer) logger() *slog.Logger {
	if r.log == nil {
		if l := logging.ForService("render"); l != nil {
			r.log = l
		} else {
			r.log = slog.Default()
		}
	}
	return r.log
}

// Render composes the icon for one configuration snapshot and label. The
// frame circle always draws first, the three styled layers follow in the
// configured stacking order, the identifier box sits on top unless hidden.
// A configuration that fails validation is rejected before any drawing.
func (r *Renderer) Render(cfg iconstore.IconConfig, label string) (*Icon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	icon := &Icon{
		Size:   r.size,
		Fonts:  make(map[pdf.Name]pdf.Dict),
		Images: make(map[pdf.Name]*Image),
	}
	cw := &contentWriter{}

	r.drawFrame(cw, &cfg)
	for _, layer := range cfg.LayerOrder {
		switch layer {
		case iconstore.LayerGearImage:
			if err := r.drawGearImage(cw, icon, &cfg); err != nil {
				return nil, err
			}
		case iconstore.LayerBrandText:
			r.drawBrandText(cw, icon, &cfg)
		case iconstore.LayerModelText:
			r.drawModelText(cw, icon, &cfg, label)
		}
	}
	if !cfg.IDBoxHidden {
		r.drawIDBox(cw, icon, &cfg, label)
	}

	icon.Content = cw.bytes()
	return icon, nil
}

// drawFrame draws the filled circle with its border.
func (r *Renderer) drawFrame(cw *contentWriter, cfg *iconstore.IconConfig) {
	center := r.size / 2
	radius := r.size/2 - cfg.CircleBorderWidth/2

	cw.save()
	cw.fillColor(parseColor(cfg.CircleColor))
	if cfg.CircleBorderWidth > 0 {
		cw.strokeColor(parseColor(cfg.CircleBorderColor))
		cw.lineWidth(cfg.CircleBorderWidth)
	}
	circlePath(cw, center, center, radius)
	if cfg.CircleBorderWidth > 0 {
		cw.fillAndStroke()
	} else {
		cw.fill()
	}
	cw.restore()
}

// circlePath approximates a circle with four Bézier segments, starting at
// the rightmost point and running counterclockwise.
func circlePath(cw *contentWriter, cx, cy, radius float64) {
	k := radius * kappa
	cw.moveTo(cx+radius, cy)
	cw.curveTo(cx+radius, cy+k, cx+k, cy+radius, cx, cy+radius)
	cw.curveTo(cx-k, cy+radius, cx-radius, cy+k, cx-radius, cy)
	cw.curveTo(cx-radius, cy-k, cx-k, cy-radius, cx, cy-radius)
	cw.curveTo(cx+k, cy-radius, cx+radius, cy-k, cx+radius, cy)
}

// drawGearImage places the configured PNG centered on the frame, scaled by
// the image ratio and shifted by the configured offsets.
func (r *Renderer) drawGearImage(cw *contentWriter, icon *Icon, cfg *iconstore.IconConfig) error {
	if cfg.NoImage || cfg.ImgPath == "" {
		return nil
	}
	gi, err := r.loadImage(cfg.ImgPath)
	if err != nil {
		return err
	}

	icon.Images[resGearImage] = imageResource(gi)

	// Fit the longer image edge to the scaled frame, preserving aspect.
	box := r.size * cfg.ImgScaleRatio
	longest := gi.Width
	if gi.Height > longest {
		longest = gi.Height
	}
	if longest == 0 || box <= 0 {
		return nil
	}
	scale := box / float64(longest)
	drawW := float64(gi.Width) * scale
	drawH := float64(gi.Height) * scale

	center := r.size / 2
	x := center + cfg.ImgXOffset - drawW/2
	y := center + cfg.ImgYOffset - drawH/2

	cw.save()
	cw.matrix(drawW, 0, 0, drawH, x, y)
	cw.xobject(resGearImage)
	cw.restore()
	return nil
}

// imageResource builds the XObject dictionaries for one decoded image.
func imageResource(gi *gearImage) *Image {
	img := &Image{
		Dict: pdf.Dict{
			"Type":             pdf.Name("XObject"),
			"Subtype":          pdf.Name("Image"),
			"Width":            pdf.Integer(gi.Width),
			"Height":           pdf.Integer(gi.Height),
			"ColorSpace":       pdf.Name("DeviceRGB"),
			"BitsPerComponent": pdf.Integer(8),
		},
		Data: gi.RGB,
	}
	if gi.Alpha != nil {
		img.SMaskDict = pdf.Dict{
			"Type":             pdf.Name("XObject"),
			"Subtype":          pdf.Name("Image"),
			"Width":            pdf.Integer(gi.Width),
			"Height":           pdf.Integer(gi.Height),
			"ColorSpace":       pdf.Name("DeviceGray"),
			"BitsPerComponent": pdf.Integer(8),
		}
		img.SMaskData = gi.Alpha
	}
	return img
}

// drawBrandText renders the literal brand string in the bold face.
func (r *Renderer) drawBrandText(cw *contentWriter, icon *Icon, cfg *iconstore.IconConfig) {
	if cfg.BrandText == "" || cfg.BrandFontSize <= 0 {
		return
	}
	icon.Fonts[resHelveticaBold] = fontDict("Helvetica-Bold")

	center := r.size / 2
	width := textWidth(cfg.BrandText, true, cfg.BrandFontSize)
	x := center + cfg.BrandXOffset - width/2
	y := center + cfg.BrandYOffset

	cw.save()
	cw.fillColor(parseColor(cfg.TextColor))
	cw.text(resHelveticaBold, cfg.BrandFontSize, x, y, cfg.BrandText)
	cw.restore()
}

// drawModelText renders the model line: the configured override when set,
// otherwise the supplied label.
func (r *Renderer) drawModelText(cw *contentWriter, icon *Icon, cfg *iconstore.IconConfig, label string) {
	text := cfg.ModelTextOverride
	if text == "" {
		text = label
	}
	if cfg.ModelUppercase {
		text = strings.ToUpper(text)
	}
	if text == "" || cfg.ModelFontSize <= 0 {
		return
	}
	icon.Fonts[resHelvetica] = fontDict("Helvetica")

	center := r.size / 2
	width := textWidth(text, false, cfg.ModelFontSize)
	x := center + cfg.ModelXOffset - width/2
	y := center + cfg.ModelYOffset

	cw.save()
	cw.fillColor(parseColor(cfg.TextColor))
	cw.text(resHelvetica, cfg.ModelFontSize, x, y, text)
	cw.restore()
}

// drawIDBox draws the identifier box with the label centered inside it. An
// empty label still draws the box so the tuner preview shows the frame.
func (r *Renderer) drawIDBox(cw *contentWriter, icon *Icon, cfg *iconstore.IconConfig, label string) {
	boxW := cfg.IDBoxWidthRatio * r.size
	boxH := cfg.IDBoxHeight
	if boxW <= 0 || boxH <= 0 {
		return
	}

	center := r.size / 2
	x := center - boxW/2
	y := center + cfg.IDBoxYOffset - boxH/2

	cw.save()
	cw.fillColor(white)
	if cfg.IDBoxBorderWidth > 0 {
		cw.strokeColor(parseColor(cfg.CircleBorderColor))
		cw.lineWidth(cfg.IDBoxBorderWidth)
	}
	cw.rect(x, y, boxW, boxH)
	if cfg.IDBoxBorderWidth > 0 {
		cw.fillAndStroke()
	} else {
		cw.fill()
	}

	if label != "" && cfg.IDBoxFontSize > 0 {
		icon.Fonts[resHelveticaBold] = fontDict("Helvetica-Bold")
		textColor := cfg.IDTextColor
		if textColor == "" {
			textColor = cfg.TextColor
		}
		width := textWidth(label, true, cfg.IDBoxFontSize)
		// cap height of the Helvetica faces is roughly 0.7 em
		baseline := y + (boxH-cfg.IDBoxFontSize*0.7)/2
		cw.fillColor(parseColor(textColor))
		cw.text(resHelveticaBold, cfg.IDBoxFontSize, center-width/2, baseline, label)
	}
	cw.restore()
}

// sortedFontNames returns the icon's font resource names in fixed order.
func sortedFontNames(fonts map[pdf.Name]pdf.Dict) []pdf.Name {
	names := make([]pdf.Name, 0, len(fonts))
	for name := range fonts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// sortedImageNames returns the icon's image resource names in fixed order.
func sortedImageNames(images map[pdf.Name]*Image) []pdf.Name {
	names := make([]pdf.Name, 0, len(images))
	for name := range images {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
