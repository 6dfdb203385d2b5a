// image.go gear image loading and sample extraction.
package render

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/patrickmn/go-cache"

	"github.com/gearmap/gearmap-go/internal/errors"
)

// gearImage holds the decoded samples of one embeddable PNG.
type gearImage struct {
	Width  int
	Height int
	RGB    []byte // 8-bit DeviceRGB samples, row major
	Alpha  []byte // 8-bit alpha samples, nil when the image is fully opaque
}

// loadImage decodes the PNG at relPath inside the renderer's image
// directory. Decoded samples are cached by path, the gear catalog is small
// and the same icons repeat across a document.
func (r *Renderer) loadImage(relPath string) (*gearImage, error) {
	if cached, ok := r.images.Get(relPath); ok {
		return cached.(*gearImage), nil
	}

	f, err := os.Open(r.imagePath(relPath))
	if err != nil {
		return nil, errors.New(err).
			Component("render").
			Category(errors.CategoryImageLoad).
			Context("image_path", relPath).
			Build()
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, errors.New(err).
			Component("render").
			Category(errors.CategoryImageLoad).
			Context("image_path", relPath).
			Build()
	}

	gi := samplesFromImage(img)
	r.images.Set(relPath, gi, cache.DefaultExpiration)
	return gi, nil
}

// imagePath confines relPath to the image directory, a stored path can not
// climb out of it.
func (r *Renderer) imagePath(relPath string) string {
	clean := filepath.Clean("/" + filepath.FromSlash(relPath))
	return filepath.Join(r.imageDir, clean)
}

// samplesFromImage separates an image into RGB and alpha planes. The alpha
// plane is dropped when every pixel is opaque.
func samplesFromImage(img image.Image) *gearImage {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	gi := &gearImage{
		Width:  w,
		Height: h,
		RGB:    make([]byte, 0, w*h*3),
		Alpha:  make([]byte, 0, w*h),
	}

	opaque := true
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			gi.RGB = append(gi.RGB, px.R, px.G, px.B)
			gi.Alpha = append(gi.Alpha, px.A)
			if px.A != 0xff {
				opaque = false
			}
		}
	}
	if opaque {
		gi.Alpha = nil
	}
	return gi
}

// ImageInfo describes one embeddable gear image for the tuner UI.
type ImageInfo struct {
	// Path is the value to store in a configuration's img_path field.
	Path string `json:"path"`

	// Category is the directory the image lives in, empty for images at the
	// top of the image directory.
	Category string `json:"category"`

	// Name is the file name without extension.
	Name string `json:"name"`
}

// ListImages inventories the PNG files under the image directory. Images are
// grouped by first-level subdirectory, which doubles as the category name;
// a non-empty category filters the result. A missing image directory yields
// an empty inventory, the tuner then simply has nothing to offer.
func (r *Renderer) ListImages(category string) ([]ImageInfo, error) {
	var out []ImageInfo
	err := filepath.WalkDir(r.imageDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".png") {
			return nil
		}
		rel, err := filepath.Rel(r.imageDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		info := ImageInfo{
			Path: rel,
			Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		}
		if dir, _, ok := strings.Cut(rel, "/"); ok {
			info.Category = dir
		}
		if category != "" && info.Category != category {
			return nil
		}
		out = append(out, info)
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.New(err).
			Component("render").
			Category(errors.CategoryFileIO).
			Context("operation", "list_images").
			Context("image_dir", r.imageDir).
			Build()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
