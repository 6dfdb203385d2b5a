// metrics.go text measurement for the standard-14 Helvetica faces.
package render

import "github.com/gearmap/gearmap-go/internal/pdf"

// Content stream resource names. Fixed names keep rendering deterministic
// without a resource allocator.
const (
	resHelvetica     = "Hv"
	resHelveticaBold = "HvB"
	resGearImage     = "Im0"
)

// fontDict builds the dictionary for one standard-14 font. The fonts are
// referenced by name only, viewers carry them, nothing is embedded.
func fontDict(baseFont pdf.Name) pdf.Dict {
	return pdf.Dict{
		"Type":     pdf.Name("Font"),
		"Subtype":  pdf.Name("Type1"),
		"BaseFont": baseFont,
		"Encoding": pdf.Name("WinAnsiEncoding"),
	}
}

// Glyph widths in 1/1000 text space units for character codes 32..126,
// taken from the Adobe AFM files for the two faces.
var helveticaWidths = [95]int{
	278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333,
	278, 278, 556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278,
	584, 584, 584, 556, 1015, 667, 667, 722, 722, 667, 611, 778, 722, 278,
	500, 667, 556, 833, 722, 778, 667, 778, 722, 667, 611, 722, 667, 944,
	667, 667, 611, 278, 278, 278, 469, 556, 333, 556, 556, 500, 556, 556,
	278, 556, 556, 222, 222, 500, 222, 833, 556, 556, 556, 556, 333, 500,
	278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584,
}

var helveticaBoldWidths = [95]int{
	278, 333, 474, 556, 556, 889, 722, 238, 333, 333, 389, 584, 278, 333,
	278, 278, 556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 333, 333,
	584, 584, 584, 611, 975, 722, 722, 722, 722, 667, 611, 778, 722, 278,
	556, 722, 611, 833, 722, 778, 667, 778, 722, 667, 611, 722, 667, 944,
	667, 667, 611, 333, 278, 333, 584, 556, 333, 556, 611, 556, 611, 556,
	333, 611, 611, 278, 278, 556, 278, 889, 611, 611, 611, 611, 389, 556,
	333, 611, 556, 778, 556, 556, 500, 389, 280, 389, 584,
}

// defaultGlyphWidth covers bytes outside the ASCII range. Labels are short
// identifiers, anything exotic gets the width of a digit.
const defaultGlyphWidth = 556

func glyphWidth(c byte, bold bool) int {
	if c < 32 || c > 126 {
		return defaultGlyphWidth
	}
	if bold {
		return helveticaBoldWidths[c-32]
	}
	return helveticaWidths[c-32]
}

// textWidth measures s at the given font size.
func textWidth(s string, bold bool, size float64) float64 {
	total := 0
	for i := 0; i < len(s); i++ {
		total += glyphWidth(s[i], bold)
	}
	return float64(total) * size / 1000
}
