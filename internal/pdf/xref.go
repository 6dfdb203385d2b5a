package pdf

import (
	"bytes"
	"errors"
	"io"
	"strconv"
)

// Cross reference entry types.
const (
	xrefFree     = 0
	xrefInFile   = 1
	xrefInStream = 2
)

// maxXRefEntries bounds the number of entries a single subsection may
// declare, as a guard against corrupt section headers.
const maxXRefEntries = 1 << 23

type xrefEntry struct {
	// Type is xrefFree, xrefInFile or xrefInStream.
	Type int

	// Offset is the byte offset of the object for xrefInFile entries, or
	// the object's index within its container for xrefInStream entries.
	Offset int64

	// Generation is the object generation for xrefInFile entries.
	Generation uint16

	// StreamNum is the object number of the containing object stream for
	// xrefInStream entries.
	StreamNum int32
}

// findStartXRef locates the startxref marker near the end of the file and
// returns the offset it points at.
func findStartXRef(r io.ReaderAt, size int64) (int64, error) {
	bufSize := int64(1024)
	if bufSize > size {
		bufSize = size
	}
	buf := make([]byte, bufSize)
	n, err := r.ReadAt(buf, size-bufSize)
	if err != nil && err != io.EOF {
		return 0, err
	}
	buf = buf[:n]

	idx := bytes.LastIndex(buf, []byte("startxref"))
	if idx < 0 {
		return 0, &MalformedFileError{Err: errors.New("startxref marker not found")}
	}
	rest := buf[idx+len("startxref"):]
	i := 0
	for i < len(rest) && isSpace(rest[i]) {
		i++
	}
	j := i
	for j < len(rest) && rest[j] >= '0' && rest[j] <= '9' {
		j++
	}
	if j == i {
		return 0, &MalformedFileError{Err: errors.New("startxref offset missing")}
	}
	pos, err := strconv.ParseInt(string(rest[i:j]), 10, 64)
	if err != nil || pos < 0 || pos >= size {
		return 0, &MalformedFileError{Err: errors.New("startxref offset out of range")}
	}
	return pos, nil
}

// readXRef walks the chain of cross reference sections, newest first.
// Entries seen in newer sections take precedence over older ones. The
// first trailer encountered becomes the document trailer.
func (r *Reader) readXRef() error {
	pos, err := findStartXRef(r.r, r.size)
	if err != nil {
		return err
	}

	seen := make(map[int64]bool)
	for {
		if seen[pos] {
			return &MalformedFileError{Pos: pos, Err: errors.New("cross reference sections form a loop")}
		}
		seen[pos] = true

		trailer, err := r.readXRefSection(pos)
		if err != nil {
			return err
		}
		if r.trailer == nil {
			r.trailer = trailer
		}

		// hybrid reference files name an additional xref stream that
		// must be consulted before the previous section
		if x, ok := trailer["XRefStm"].(Integer); ok {
			xpos := int64(x)
			if xpos >= 0 && xpos < r.size && !seen[xpos] {
				seen[xpos] = true
				if _, err := r.readXRefSection(xpos); err != nil {
					return err
				}
			}
		}

		prev, ok := trailer["Prev"].(Integer)
		if !ok {
			return nil
		}
		pos = int64(prev)
		if pos < 0 || pos >= r.size {
			return &MalformedFileError{Err: errors.New("previous cross reference offset out of range")}
		}
	}
}

// readXRefSection reads a single cross reference section, either a classic
// table or a cross reference stream, and returns its trailer dictionary.
func (r *Reader) readXRefSection(pos int64) (Dict, error) {
	s := r.scannerAt(pos)
	isTable, err := s.peekKeyword("xref")
	if err != nil {
		return nil, err
	}
	if isTable {
		return r.readClassicXRef(s)
	}
	return r.readXRefStream(s)
}

// readClassicXRef parses an "xref" table with its subsections and the
// following trailer dictionary.
func (r *Reader) readClassicXRef(s *scanner) (Dict, error) {
	if err := s.expectKeyword("xref"); err != nil {
		return nil, err
	}
	for {
		isTrailer, err := s.peekKeyword("trailer")
		if err != nil {
			return nil, err
		}
		if isTrailer {
			if err := s.expectKeyword("trailer"); err != nil {
				return nil, err
			}
			obj, err := s.readObject()
			if err != nil {
				return nil, err
			}
			trailer, ok := obj.(Dict)
			if !ok {
				return nil, s.errMalformed("trailer is not a dictionary")
			}
			return trailer, nil
		}

		startObj, err := s.readNumber()
		if err != nil {
			return nil, err
		}
		countObj, err := s.readNumber()
		if err != nil {
			return nil, err
		}
		start, ok1 := startObj.(Integer)
		count, ok2 := countObj.(Integer)
		if !ok1 || !ok2 || start < 0 || count < 0 || count > maxXRefEntries {
			return nil, s.errMalformed("invalid cross reference subsection header")
		}

		for i := Integer(0); i < count; i++ {
			offObj, err := s.readNumber()
			if err != nil {
				return nil, err
			}
			genObj, err := s.readNumber()
			if err != nil {
				return nil, err
			}
			if err := s.skipWhiteSpace(); err != nil {
				return nil, err
			}
			flag, err := s.readByte()
			if err != nil {
				return nil, s.errMalformed("truncated cross reference entry")
			}
			off, ok1 := offObj.(Integer)
			gen, ok2 := genObj.(Integer)
			if !ok1 || !ok2 || off < 0 || gen < 0 || gen > 65535 {
				return nil, s.errMalformed("invalid cross reference entry")
			}

			num := int32(start + i)
			if _, exists := r.xref[num]; exists {
				continue
			}
			switch flag {
			case 'n':
				r.xref[num] = &xrefEntry{
					Type:       xrefInFile,
					Offset:     int64(off),
					Generation: uint16(gen),
				}
			case 'f':
				r.xref[num] = &xrefEntry{Type: xrefFree, Generation: uint16(gen)}
			default:
				return nil, s.errMalformed("invalid cross reference entry flag %q", string(flag))
			}
		}
	}
}

// readXRefStream parses a cross reference stream. All entries of the
// stream dictionary must be direct objects.
func (r *Reader) readXRefStream(s *scanner) (Dict, error) {
	if _, err := s.readIndirectHeader(); err != nil {
		return nil, err
	}
	obj, err := s.readObject()
	if err != nil {
		return nil, err
	}
	dict, ok := obj.(Dict)
	if !ok {
		return nil, s.errMalformed("cross reference stream has no dictionary")
	}
	if typ, ok := dict["Type"].(Name); !ok || typ != "XRef" {
		return nil, s.errMalformed("not a cross reference stream")
	}

	start, length, err := s.readStreamDataStart(dict)
	if err != nil {
		return nil, err
	}
	raw := make([]byte, length)
	if _, err := r.r.ReadAt(raw, start); err != nil && err != io.EOF {
		return nil, err
	}
	data := raw
	if filter, ok := dict["Filter"].(Name); ok {
		parms, _ := dict["DecodeParms"].(Dict)
		data, err = decodeData(raw, filter, parms)
		if err != nil {
			return nil, &MalformedFileError{Pos: start, Err: err}
		}
	}

	wArr, ok := dict["W"].(Array)
	if !ok || len(wArr) < 3 {
		return nil, s.errMalformed("cross reference stream /W missing")
	}
	var width [3]int
	for i := 0; i < 3; i++ {
		x, ok := wArr[i].(Integer)
		if !ok || x < 0 || x > 8 {
			return nil, s.errMalformed("invalid /W entry")
		}
		width[i] = int(x)
	}
	entryLen := width[0] + width[1] + width[2]
	if entryLen == 0 {
		return nil, s.errMalformed("empty /W entry")
	}

	size, ok := dict["Size"].(Integer)
	if !ok || size < 0 {
		return nil, s.errMalformed("cross reference stream /Size missing")
	}
	index := []Integer{0, size}
	if idxArr, ok := dict["Index"].(Array); ok {
		index = index[:0]
		for _, v := range idxArr {
			x, ok := v.(Integer)
			if !ok || x < 0 {
				return nil, s.errMalformed("invalid /Index entry")
			}
			index = append(index, x)
		}
		if len(index)%2 != 0 {
			return nil, s.errMalformed("odd /Index length")
		}
	}

	pos := 0
	for i := 0; i+1 < len(index); i += 2 {
		first, count := index[i], index[i+1]
		if count > maxXRefEntries {
			return nil, s.errMalformed("oversized /Index range")
		}
		for j := Integer(0); j < count; j++ {
			if pos+entryLen > len(data) {
				return nil, s.errMalformed("truncated cross reference stream")
			}
			f1 := readBinaryField(data[pos:], width[0])
			pos += width[0]
			f2 := readBinaryField(data[pos:], width[1])
			pos += width[1]
			f3 := readBinaryField(data[pos:], width[2])
			pos += width[2]
			if width[0] == 0 {
				f1 = 1 // default entry type
			}

			num := int32(first + j)
			if _, exists := r.xref[num]; exists {
				continue
			}
			switch f1 {
			case 0:
				r.xref[num] = &xrefEntry{Type: xrefFree}
			case 1:
				r.xref[num] = &xrefEntry{
					Type:       xrefInFile,
					Offset:     int64(f2),
					Generation: uint16(f3),
				}
			case 2:
				r.xref[num] = &xrefEntry{
					Type:      xrefInStream,
					StreamNum: int32(f2),
					Offset:    int64(f3),
				}
			}
			// other types are reserved and ignored
		}
	}
	return dict, nil
}

// readBinaryField reads a big-endian unsigned integer of the given width.
func readBinaryField(data []byte, width int) uint64 {
	var x uint64
	for i := 0; i < width; i++ {
		x = x<<8 | uint64(data[i])
	}
	return x
}
