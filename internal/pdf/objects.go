// Package pdf implements the subset of the PDF file format needed to read,
// rewrite and assemble annotated documents: the object model, cross reference
// tables, stream filters and a sequential writer.
//
// The package is self-contained and deliberately strict on output (sorted
// dictionary keys, shortest float form) so that identical inputs produce
// identical files.
package pdf

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"unicode/utf16"
)

// Object represents an object in a PDF file. Each implementation knows how
// to serialize itself into the file format. A nil Object stands for the PDF
// null object.
type Object interface {
	// PDF writes the PDF file representation of the object to w.
	PDF(w io.Writer) error
}

// Bool represents a boolean object.
type Bool bool

// PDF implements the [Object] interface.
func (x Bool) PDF(w io.Writer) error {
	s := "false"
	if x {
		s = "true"
	}
	_, err := io.WriteString(w, s)
	return err
}

// Integer represents an integer object.
type Integer int64

// PDF implements the [Object] interface.
func (x Integer) PDF(w io.Writer) error {
	_, err := io.WriteString(w, strconv.FormatInt(int64(x), 10))
	return err
}

// Real represents a real number object.
type Real float64

// PDF implements the [Object] interface.
func (x Real) PDF(w io.Writer) error {
	_, err := io.WriteString(w, formatFloat(float64(x)))
	return err
}

// formatFloat renders a number in the shortest form that survives a parse
// round trip. PDF does not allow exponent notation, so the fixed format is
// used throughout.
func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

const hexDigits = "0123456789abcdef"

// String represents a string object, i.e. a sequence of raw bytes.
type String []byte

// PDF implements the [Object] interface. Mostly binary strings are written
// in hexadecimal form, everything else as a literal string with escapes.
func (x String) PDF(w io.Writer) error {
	binary := 0
	for _, c := range x {
		if c < 0x20 || c >= 0x7F {
			binary++
		}
	}
	if len(x) > 0 && binary > len(x)/4 {
		buf := make([]byte, 0, 2*len(x)+2)
		buf = append(buf, '<')
		for _, c := range x {
			buf = append(buf, hexDigits[c>>4], hexDigits[c&0xF])
		}
		buf = append(buf, '>')
		_, err := w.Write(buf)
		return err
	}

	buf := make([]byte, 0, len(x)+2)
	buf = append(buf, '(')
	for _, c := range x {
		switch c {
		case '\n':
			buf = append(buf, '\\', 'n')
		case '\r':
			buf = append(buf, '\\', 'r')
		case '\t':
			buf = append(buf, '\\', 't')
		case '\b':
			buf = append(buf, '\\', 'b')
		case '\f':
			buf = append(buf, '\\', 'f')
		case '(', ')', '\\':
			buf = append(buf, '\\', c)
		default:
			if c < 0x20 || c >= 0x7F {
				buf = append(buf, '\\',
					'0'+(c>>6)&7, '0'+(c>>3)&7, '0'+c&7)
			} else {
				buf = append(buf, c)
			}
		}
	}
	buf = append(buf, ')')
	_, err := w.Write(buf)
	return err
}

// AsText decodes a PDF text string: UTF-16BE when the byte order mark is
// present, a direct byte-to-rune mapping otherwise.
func (x String) AsText() string {
	if len(x) >= 2 && x[0] == 0xFE && x[1] == 0xFF {
		u := make([]uint16, 0, (len(x)-2)/2)
		for i := 2; i+1 < len(x); i += 2 {
			u = append(u, uint16(x[i])<<8|uint16(x[i+1]))
		}
		return string(utf16.Decode(u))
	}
	runes := make([]rune, len(x))
	for i, c := range x {
		runes[i] = rune(c)
	}
	return string(runes)
}

// TextString encodes a Go string as a PDF text string: plain bytes when the
// text is printable ASCII, UTF-16BE with a byte order mark otherwise.
func TextString(s string) String {
	ascii := true
	for _, r := range s {
		if r >= 0x7F || (r < 0x20 && r != '\n' && r != '\r' && r != '\t') {
			ascii = false
			break
		}
	}
	if ascii {
		return String(s)
	}
	u := utf16.Encode([]rune(s))
	buf := make([]byte, 2*len(u)+2)
	buf[0] = 0xFE
	buf[1] = 0xFF
	for i, c := range u {
		buf[2+2*i] = byte(c >> 8)
		buf[3+2*i] = byte(c)
	}
	return String(buf)
}

// Name represents a name object.
type Name string

// PDF implements the [Object] interface. Bytes outside the regular range
// are written using two-digit hexadecimal escapes.
func (x Name) PDF(w io.Writer) error {
	buf := make([]byte, 0, len(x)+1)
	buf = append(buf, '/')
	for i := 0; i < len(x); i++ {
		c := x[i]
		if isRegular(c) && c != '#' {
			buf = append(buf, c)
		} else {
			buf = append(buf, '#', hexDigits[c>>4], hexDigits[c&0xF])
		}
	}
	_, err := w.Write(buf)
	return err
}

// Array represents an array object.
type Array []Object

// PDF implements the [Object] interface.
func (x Array) PDF(w io.Writer) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return err
	}
	for i, obj := range x {
		if i > 0 {
			if _, err := io.WriteString(w, " "); err != nil {
				return err
			}
		}
		if obj == nil {
			if _, err := io.WriteString(w, "null"); err != nil {
				return err
			}
			continue
		}
		if err := obj.PDF(w); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "]")
	return err
}

// Dict represents a dictionary object.
type Dict map[Name]Object

// PDF implements the [Object] interface. Keys are written in sorted order
// so that identical dictionaries serialize identically.
func (x Dict) PDF(w io.Writer) error {
	if _, err := io.WriteString(w, "<<"); err != nil {
		return err
	}
	for _, key := range x.sortedKeys() {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
		if err := key.PDF(w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, " "); err != nil {
			return err
		}
		if err := x[key].PDF(w); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n>>")
	return err
}

// sortedKeys returns the keys of non-nil entries in lexicographic order.
func (x Dict) sortedKeys() []Name {
	keys := make([]Name, 0, len(x))
	for k, v := range x {
		if v != nil {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Stream represents a stream object. R yields the raw, still encoded stream
// data. The dictionary's /Length entry must match the number of bytes R
// provides.
type Stream struct {
	Dict Dict
	R    io.Reader
}

// PDF implements the [Object] interface.
func (x *Stream) PDF(w io.Writer) error {
	if err := x.Dict.PDF(w); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\nstream\n"); err != nil {
		return err
	}
	if x.R != nil {
		if _, err := io.Copy(w, x.R); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\nendstream")
	return err
}

// Reference represents a reference to an indirect object. The zero value is
// not a valid reference and doubles as a "no object" marker.
type Reference struct {
	Number     int32
	Generation uint16
}

// PDF implements the [Object] interface.
func (x Reference) PDF(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%d %d R", x.Number, x.Generation)
	return err
}

// IsZero reports whether x is the zero reference.
func (x Reference) IsZero() bool {
	return x == Reference{}
}

// Rect represents a rectangle in PDF user space, normalized so that
// LLx <= URx and LLy <= URy.
type Rect struct {
	LLx, LLy, URx, URy float64
}

// PDF implements the [Object] interface.
func (r Rect) PDF(w io.Writer) error {
	_, err := fmt.Fprintf(w, "[%s %s %s %s]",
		formatFloat(r.LLx), formatFloat(r.LLy),
		formatFloat(r.URx), formatFloat(r.URy))
	return err
}

// Array returns the rectangle as a four-element array object.
func (r Rect) Array() Array {
	return Array{Real(r.LLx), Real(r.LLy), Real(r.URx), Real(r.URy)}
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() float64 {
	return r.URx - r.LLx
}

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() float64 {
	return r.URy - r.LLy
}

// IsZero reports whether all four coordinates are zero.
func (r Rect) IsZero() bool {
	return r == Rect{}
}

// numeric converts Integer or Real objects to a float64.
func numeric(obj Object) (float64, bool) {
	switch x := obj.(type) {
	case Integer:
		return float64(x), true
	case Real:
		return float64(x), true
	}
	return 0, false
}
