// content.go low-level PDF content stream construction.
package render

import (
	"bytes"
	"strconv"
	"strings"
)

// fmtNum is the single float formatter for content stream operands. Every
// number a drawing emits goes through it, so rendering the same recipe twice
// produces the same bytes.
func fmtNum(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

// contentWriter accumulates content stream operators.
type contentWriter struct {
	buf bytes.Buffer
}

func (cw *contentWriter) bytes() []byte {
	return cw.buf.Bytes()
}

// op writes numeric operands followed by one operator.
func (cw *contentWriter) op(operator string, args ...float64) {
	for _, a := range args {
		cw.buf.WriteString(fmtNum(a))
		cw.buf.WriteByte(' ')
	}
	cw.buf.WriteString(operator)
	cw.buf.WriteByte('\n')
}

func (cw *contentWriter) save()    { cw.op("q") }
func (cw *contentWriter) restore() { cw.op("Q") }

func (cw *contentWriter) fillColor(c rgb) {
	cw.op("rg", c.r, c.g, c.b)
}

func (cw *contentWriter) strokeColor(c rgb) {
	cw.op("RG", c.r, c.g, c.b)
}

func (cw *contentWriter) lineWidth(width float64) {
	cw.op("w", width)
}

func (cw *contentWriter) rect(x, y, width, height float64) {
	cw.op("re", x, y, width, height)
}

func (cw *contentWriter) moveTo(x, y float64) {
	cw.op("m", x, y)
}

func (cw *contentWriter) curveTo(x1, y1, x2, y2, x3, y3 float64) {
	cw.op("c", x1, y1, x2, y2, x3, y3)
}

func (cw *contentWriter) fill()          { cw.op("f") }
func (cw *contentWriter) fillAndStroke() { cw.op("B") }

// matrix writes a cm operator, used to scale and place image XObjects.
func (cw *contentWriter) matrix(a, b, c, d, e, f float64) {
	cw.op("cm", a, b, c, d, e, f)
}

// xobject draws a named XObject resource.
func (cw *contentWriter) xobject(name string) {
	cw.buf.WriteByte('/')
	cw.buf.WriteString(name)
	cw.buf.WriteString(" Do\n")
}

// text writes one complete text object: font selection, positioning and the
// string itself.
func (cw *contentWriter) text(font string, size, x, y float64, s string) {
	cw.buf.WriteString("BT\n/")
	cw.buf.WriteString(font)
	cw.buf.WriteByte(' ')
	cw.buf.WriteString(fmtNum(size))
	cw.buf.WriteString(" Tf\n")
	cw.op("Td", x, y)
	cw.buf.WriteByte('(')
	cw.buf.WriteString(escapeText(s))
	cw.buf.WriteString(") Tj\nET\n")
}

// escapeText escapes the characters with special meaning inside a literal
// PDF string.
func escapeText(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\', '(', ')':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\r':
			b.WriteString(`\r`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// rgb is a device RGB color with components in [0, 1].
type rgb struct {
	r, g, b float64
}

var black = rgb{}
var white = rgb{1, 1, 1}

// parseColor converts a #RRGGBB string. Config validation has already
// checked the format; anything unparseable falls back to black so rendering
// stays total.
func parseColor(s string) rgb {
	if len(s) != 7 || s[0] != '#' {
		return black
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return black
	}
	return rgb{
		r: float64(v>>16&0xff) / 255,
		g: float64(v>>8&0xff) / 255,
		b: float64(v&0xff) / 255,
	}
}
