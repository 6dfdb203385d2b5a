package pdf

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
)

// MalformedFileError indicates that a file could not be parsed as PDF.
// Pos, when positive, is the byte offset at which parsing failed.
type MalformedFileError struct {
	Pos int64
	Err error
}

func (e *MalformedFileError) Error() string {
	if e.Pos > 0 {
		return fmt.Sprintf("malformed PDF at byte %d: %v", e.Pos, e.Err)
	}
	return "malformed PDF: " + e.Err.Error()
}

func (e *MalformedFileError) Unwrap() error {
	return e.Err
}

// isSpace reports whether c is PDF whitespace.
func isSpace(c byte) bool {
	switch c {
	case 0, 9, 10, 12, 13, 32:
		return true
	}
	return false
}

// isDelimiter reports whether c is a PDF delimiter character.
func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// isRegular reports whether c can appear inside a name or keyword.
func isRegular(c byte) bool {
	return !isSpace(c) && !isDelimiter(c)
}

func isNumberStart(c byte) bool {
	return (c >= '0' && c <= '9') || c == '+' || c == '-' || c == '.'
}

func hexValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}

const scannerBufSize = 1024

// scanner is a windowed tokenizer over a raw PDF byte stream. It tracks its
// absolute file position for error reporting and for locating stream data.
type scanner struct {
	r    io.Reader
	buf  []byte
	pos  int   // next unread byte in buf
	used int   // number of valid bytes in buf
	base int64 // file offset of buf[0]

	// getInt resolves indirect objects when a stream /Length is given as a
	// reference. May be nil when indirect lengths are not expected.
	getInt func(Object) (Integer, error)
}

func newScanner(r io.Reader, base int64, getInt func(Object) (Integer, error)) *scanner {
	return &scanner{
		r:      r,
		buf:    make([]byte, scannerBufSize),
		base:   base,
		getInt: getInt,
	}
}

// currentPos returns the absolute file position of the next unread byte.
func (s *scanner) currentPos() int64 {
	return s.base + int64(s.pos)
}

func (s *scanner) errMalformed(format string, args ...any) error {
	return &MalformedFileError{
		Pos: s.currentPos(),
		Err: fmt.Errorf(format, args...),
	}
}

// refill moves the unread tail of the window to the front and tops the
// buffer up from the underlying reader.
func (s *scanner) refill() error {
	s.base += int64(s.pos)
	copy(s.buf, s.buf[s.pos:s.used])
	s.used -= s.pos
	s.pos = 0

	n, err := io.ReadFull(s.r, s.buf[s.used:])
	s.used += n
	if n > 0 {
		return nil
	}
	if err == io.ErrUnexpectedEOF || err == nil {
		err = io.EOF
	}
	return err
}

// peek returns the next n unread bytes without consuming them. Fewer bytes
// are returned at end of input. n must not exceed the window size.
func (s *scanner) peek(n int) []byte {
	for s.used-s.pos < n {
		if err := s.refill(); err != nil {
			break
		}
	}
	if s.used-s.pos < n {
		return s.buf[s.pos:s.used]
	}
	return s.buf[s.pos : s.pos+n]
}

// readByte consumes and returns the next byte.
func (s *scanner) readByte() (byte, error) {
	if s.pos >= s.used {
		if err := s.refill(); err != nil {
			return 0, err
		}
	}
	c := s.buf[s.pos]
	s.pos++
	return c, nil
}

// unreadByte steps back over the most recently consumed byte. It is only
// valid directly after a successful readByte.
func (s *scanner) unreadByte() {
	s.pos--
}

// discard consumes n bytes.
func (s *scanner) discard(n int) error {
	for n > 0 {
		avail := s.used - s.pos
		if avail == 0 {
			if err := s.refill(); err != nil {
				return err
			}
			continue
		}
		if avail > n {
			avail = n
		}
		s.pos += avail
		n -= avail
	}
	return nil
}

// skipWhiteSpace consumes whitespace and comments. End of input is not an
// error here; the next read will report it.
func (s *scanner) skipWhiteSpace() error {
	for {
		c, err := s.readByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if isSpace(c) {
			continue
		}
		if c == '%' {
			for {
				c, err = s.readByte()
				if err == io.EOF {
					return nil
				}
				if err != nil {
					return err
				}
				if c == '\n' || c == '\r' {
					break
				}
			}
			continue
		}
		s.unreadByte()
		return nil
	}
}

// readObject reads the next object from the stream. Indirect references of
// the form "n g R" are recognized by lookahead. The PDF null object is
// returned as a nil Object.
func (s *scanner) readObject() (Object, error) {
	if err := s.skipWhiteSpace(); err != nil {
		return nil, err
	}
	head := s.peek(2)
	if len(head) == 0 {
		return nil, io.EOF
	}

	switch {
	case head[0] == '<' && len(head) > 1 && head[1] == '<':
		return s.readDict()
	case head[0] == '<':
		return s.readHexString()
	case head[0] == '(':
		return s.readQuotedString()
	case head[0] == '/':
		return s.readName()
	case head[0] == '[':
		return s.readArray()
	case isDelimiter(head[0]):
		return nil, s.errMalformed("unexpected %q", string(head[0]))
	case isNumberStart(head[0]):
		return s.readNumberOrReference()
	}

	kw, err := s.readKeyword()
	if err != nil {
		return nil, err
	}
	switch kw {
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	case "null":
		return nil, nil
	}
	return nil, s.errMalformed("unknown keyword %q", kw)
}

// readKeyword consumes a run of regular characters.
func (s *scanner) readKeyword() (string, error) {
	var kw []byte
	for {
		c, err := s.readByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if !isRegular(c) {
			s.unreadByte()
			break
		}
		kw = append(kw, c)
		if len(kw) > 16 {
			return "", s.errMalformed("keyword too long")
		}
	}
	if len(kw) == 0 {
		return "", s.errMalformed("expected keyword")
	}
	return string(kw), nil
}

// expectKeyword consumes the given keyword or fails.
func (s *scanner) expectKeyword(want string) error {
	if err := s.skipWhiteSpace(); err != nil {
		return err
	}
	kw, err := s.readKeyword()
	if err != nil {
		return err
	}
	if kw != want {
		return s.errMalformed("expected %q, got %q", want, kw)
	}
	return nil
}

func (s *scanner) expectByte(want byte) error {
	c, err := s.readByte()
	if err != nil {
		return s.errMalformed("expected %q: %v", string(want), err)
	}
	if c != want {
		return s.errMalformed("expected %q, got %q", string(want), string(c))
	}
	return nil
}

// readNumber reads an integer or real number.
func (s *scanner) readNumber() (Object, error) {
	if err := s.skipWhiteSpace(); err != nil {
		return nil, err
	}
	var raw []byte
	for {
		c, err := s.readByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if isNumberStart(c) {
			raw = append(raw, c)
			continue
		}
		s.unreadByte()
		break
	}
	if len(raw) == 0 {
		return nil, s.errMalformed("expected number")
	}
	if bytes.IndexByte(raw, '.') < 0 {
		x, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return nil, s.errMalformed("invalid integer %q", raw)
		}
		return Integer(x), nil
	}
	x, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return nil, s.errMalformed("invalid number %q", raw)
	}
	return Real(x), nil
}

// readNumberOrReference reads a number and, when it is a non-negative
// integer, checks by lookahead whether it starts an indirect reference.
func (s *scanner) readNumberOrReference() (Object, error) {
	first, err := s.readNumber()
	if err != nil {
		return nil, err
	}
	num, isInt := first.(Integer)
	if !isInt || num <= 0 || num > math.MaxInt32 {
		return first, nil
	}
	if ref, ok := s.tryReadReferenceSuffix(num); ok {
		return ref, nil
	}
	return first, nil
}

// tryReadReferenceSuffix checks whether the upcoming bytes form the
// "generation R" tail of an indirect reference, consuming them on success.
// The check happens entirely inside the peek window, so failure leaves the
// scanner untouched.
func (s *scanner) tryReadReferenceSuffix(num Integer) (Reference, bool) {
	window := s.peek(scannerBufSize)
	i := 0
	for i < len(window) && isSpace(window[i]) {
		i++
	}
	genStart := i
	for i < len(window) && window[i] >= '0' && window[i] <= '9' {
		i++
	}
	if i == genStart {
		return Reference{}, false
	}
	genEnd := i
	for i < len(window) && isSpace(window[i]) {
		i++
	}
	if i >= len(window) || window[i] != 'R' {
		return Reference{}, false
	}
	i++
	if i < len(window) && isRegular(window[i]) {
		return Reference{}, false
	}
	gen, err := strconv.ParseUint(string(window[genStart:genEnd]), 10, 16)
	if err != nil {
		return Reference{}, false
	}
	_ = s.discard(i)
	return Reference{Number: int32(num), Generation: uint16(gen)}, true
}

// readQuotedString reads a literal string, handling escapes, octal codes,
// nested parentheses and end-of-line normalization.
func (s *scanner) readQuotedString() (Object, error) {
	if err := s.expectByte('('); err != nil {
		return nil, err
	}
	var out []byte
	depth := 1
	for {
		c, err := s.readByte()
		if err != nil {
			return nil, s.errMalformed("unterminated string")
		}
		switch c {
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return String(out), nil
			}
			out = append(out, c)
		case '\\':
			c, err = s.readByte()
			if err != nil {
				return nil, s.errMalformed("unterminated string")
			}
			switch {
			case c == 'n':
				out = append(out, '\n')
			case c == 'r':
				out = append(out, '\r')
			case c == 't':
				out = append(out, '\t')
			case c == 'b':
				out = append(out, '\b')
			case c == 'f':
				out = append(out, '\f')
			case c == '(' || c == ')' || c == '\\':
				out = append(out, c)
			case c == '\r':
				// line continuation, swallow an optional LF
				if next := s.peek(1); len(next) == 1 && next[0] == '\n' {
					_ = s.discard(1)
				}
			case c == '\n':
				// line continuation
			case c >= '0' && c <= '7':
				val := int(c - '0')
				for k := 0; k < 2; k++ {
					next := s.peek(1)
					if len(next) == 0 || next[0] < '0' || next[0] > '7' {
						break
					}
					val = val*8 + int(next[0]-'0')
					_ = s.discard(1)
				}
				out = append(out, byte(val))
			default:
				// unknown escape, the backslash is dropped
				out = append(out, c)
			}
		case '\r':
			// unescaped EOL normalizes to LF
			out = append(out, '\n')
			if next := s.peek(1); len(next) == 1 && next[0] == '\n' {
				_ = s.discard(1)
			}
		default:
			out = append(out, c)
		}
	}
}

// readHexString reads a hexadecimal string. An odd number of digits is
// padded with a trailing zero.
func (s *scanner) readHexString() (Object, error) {
	if err := s.expectByte('<'); err != nil {
		return nil, err
	}
	var out []byte
	hi := -1
	for {
		c, err := s.readByte()
		if err != nil {
			return nil, s.errMalformed("unterminated hex string")
		}
		if c == '>' {
			if hi >= 0 {
				out = append(out, byte(hi<<4))
			}
			return String(out), nil
		}
		if isSpace(c) {
			continue
		}
		v := hexValue(c)
		if v < 0 {
			return nil, s.errMalformed("invalid hex digit %q", string(c))
		}
		if hi < 0 {
			hi = v
		} else {
			out = append(out, byte(hi<<4|v))
			hi = -1
		}
	}
}

// readName reads a name object, decoding #xx escapes.
func (s *scanner) readName() (Object, error) {
	if err := s.expectByte('/'); err != nil {
		return nil, err
	}
	var out []byte
	for {
		c, err := s.readByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if !isRegular(c) {
			s.unreadByte()
			break
		}
		if c == '#' {
			pair := s.peek(2)
			if len(pair) == 2 {
				hi, lo := hexValue(pair[0]), hexValue(pair[1])
				if hi >= 0 && lo >= 0 {
					out = append(out, byte(hi<<4|lo))
					_ = s.discard(2)
					continue
				}
			}
		}
		out = append(out, c)
	}
	return Name(out), nil
}

func (s *scanner) readArray() (Object, error) {
	if err := s.expectByte('['); err != nil {
		return nil, err
	}
	var arr Array
	for {
		if err := s.skipWhiteSpace(); err != nil {
			return nil, err
		}
		head := s.peek(1)
		if len(head) == 0 {
			return nil, s.errMalformed("unterminated array")
		}
		if head[0] == ']' {
			_ = s.discard(1)
			return arr, nil
		}
		obj, err := s.readObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

func (s *scanner) readDict() (Object, error) {
	if err := s.expectByte('<'); err != nil {
		return nil, err
	}
	if err := s.expectByte('<'); err != nil {
		return nil, err
	}
	dict := Dict{}
	for {
		if err := s.skipWhiteSpace(); err != nil {
			return nil, err
		}
		head := s.peek(2)
		if len(head) == 0 {
			return nil, s.errMalformed("unterminated dictionary")
		}
		if head[0] == '>' {
			if len(head) < 2 || head[1] != '>' {
				return nil, s.errMalformed("expected \">>\"")
			}
			_ = s.discard(2)
			return dict, nil
		}
		if head[0] != '/' {
			return nil, s.errMalformed("dictionary key must be a name")
		}
		keyObj, err := s.readName()
		if err != nil {
			return nil, err
		}
		val, err := s.readObject()
		if err != nil {
			return nil, err
		}
		if val != nil {
			dict[keyObj.(Name)] = val
		}
	}
}

// readIndirectHeader consumes a "num gen obj" object header.
func (s *scanner) readIndirectHeader() (Reference, error) {
	numObj, err := s.readNumber()
	if err != nil {
		return Reference{}, err
	}
	num, ok := numObj.(Integer)
	if !ok || num <= 0 || num > math.MaxInt32 {
		return Reference{}, s.errMalformed("invalid object number")
	}
	genObj, err := s.readNumber()
	if err != nil {
		return Reference{}, err
	}
	gen, ok := genObj.(Integer)
	if !ok || gen < 0 || gen > math.MaxUint16 {
		return Reference{}, s.errMalformed("invalid generation number")
	}
	if err := s.expectKeyword("obj"); err != nil {
		return Reference{}, err
	}
	return Reference{Number: int32(num), Generation: uint16(gen)}, nil
}

// peekKeyword reports whether the next token is the given keyword, without
// consuming anything beyond leading whitespace.
func (s *scanner) peekKeyword(want string) (bool, error) {
	if err := s.skipWhiteSpace(); err != nil {
		return false, err
	}
	head := s.peek(len(want) + 1)
	if len(head) < len(want) || string(head[:len(want)]) != want {
		return false, nil
	}
	if len(head) > len(want) && isRegular(head[len(want)]) {
		return false, nil
	}
	return true, nil
}

// readStreamDataStart consumes the "stream" keyword and its end-of-line
// marker and returns the absolute offset and length of the stream data.
// The scanner is left positioned at the first data byte.
func (s *scanner) readStreamDataStart(dict Dict) (start, length int64, err error) {
	if err := s.expectKeyword("stream"); err != nil {
		return 0, 0, err
	}
	c, err := s.readByte()
	if err != nil {
		return 0, 0, s.errMalformed("truncated stream")
	}
	if c == '\r' {
		c, err = s.readByte()
		if err != nil {
			return 0, 0, s.errMalformed("truncated stream")
		}
	}
	if c != '\n' {
		return 0, 0, s.errMalformed("stream keyword not followed by newline")
	}

	lengthObj := dict["Length"]
	var n Integer
	switch x := lengthObj.(type) {
	case Integer:
		n = x
	case Reference:
		if s.getInt == nil {
			return 0, 0, s.errMalformed("stream /Length must be direct")
		}
		n, err = s.getInt(x)
		if err != nil {
			return 0, 0, err
		}
	default:
		return 0, 0, s.errMalformed("stream has no usable /Length")
	}
	if n < 0 {
		return 0, 0, s.errMalformed("negative stream length")
	}
	return s.currentPos(), int64(n), nil
}
