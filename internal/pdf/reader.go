package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
)

// Reader provides access to the objects of a PDF file.
type Reader struct {
	r    io.ReaderAt
	size int64

	xref    map[int32]*xrefEntry
	trailer Dict

	// Version is the file format version from the header, e.g. "1.7".
	Version string

	// objStmCache holds decoded object stream containers by their object
	// number, so that neighbouring compressed objects parse cheaply.
	objStmCache map[int32]*objStm
}

type objStm struct {
	data    []byte
	offsets map[int32]int
}

var headerPattern = regexp.MustCompile(`^%PDF-([12]\.[0-9])`)

// NewReader opens a PDF document for reading. Encrypted documents are
// rejected as malformed.
func NewReader(data io.ReaderAt, size int64) (*Reader, error) {
	r := &Reader{
		r:           data,
		size:        size,
		xref:        make(map[int32]*xrefEntry),
		objStmCache: make(map[int32]*objStm),
	}

	version, err := readHeaderVersion(data, size)
	if err != nil {
		return nil, err
	}
	r.Version = version

	if err := r.readXRef(); err != nil {
		return nil, err
	}
	if r.trailer == nil {
		return nil, &MalformedFileError{Err: errors.New("no trailer found")}
	}
	if _, ok := r.trailer["Encrypt"]; ok {
		return nil, &MalformedFileError{Err: errors.New("encrypted documents are not supported")}
	}
	if _, ok := r.trailer["Root"]; !ok {
		return nil, &MalformedFileError{Err: errors.New("trailer has no document catalog")}
	}
	return r, nil
}

// NewReaderFromBytes opens an in-memory PDF document for reading.
func NewReaderFromBytes(data []byte) (*Reader, error) {
	return NewReader(bytes.NewReader(data), int64(len(data)))
}

func readHeaderVersion(r io.ReaderAt, size int64) (string, error) {
	n := int64(16)
	if n > size {
		n = size
	}
	buf := make([]byte, n)
	if _, err := r.ReadAt(buf, 0); err != nil && err != io.EOF {
		return "", err
	}
	m := headerPattern.FindSubmatch(buf)
	if m == nil {
		return "", &MalformedFileError{Err: errors.New("PDF header missing")}
	}
	return string(m[1]), nil
}

// Trailer returns the document trailer dictionary.
func (r *Reader) Trailer() Dict {
	return r.trailer
}

// Catalog returns the document catalog dictionary.
func (r *Reader) Catalog() (Dict, error) {
	cat, err := r.GetDict(r.trailer["Root"])
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, &MalformedFileError{Err: errors.New("document catalog missing")}
	}
	return cat, nil
}

// scannerAt returns a scanner positioned at the given file offset.
func (r *Reader) scannerAt(offset int64) *scanner {
	return newScanner(io.NewSectionReader(r.r, offset, r.size-offset), offset, r.getInt)
}

func (r *Reader) getInt(obj Object) (Integer, error) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return 0, err
	}
	x, ok := resolved.(Integer)
	if !ok {
		return 0, &MalformedFileError{Err: fmt.Errorf("expected integer, got %T", resolved)}
	}
	return x, nil
}

// Resolve follows chains of indirect references and returns the underlying
// object. A nil result without error means the object is absent.
func (r *Reader) Resolve(obj Object) (Object, error) {
	for depth := 0; depth < 16; depth++ {
		ref, ok := obj.(Reference)
		if !ok {
			return obj, nil
		}
		next, err := r.Get(ref)
		if err != nil {
			return nil, err
		}
		obj = next
	}
	return nil, &MalformedFileError{Err: errors.New("reference chain too deep")}
}

// Get loads the indirect object ref points at. Free or absent objects
// yield a nil Object.
func (r *Reader) Get(ref Reference) (Object, error) {
	entry, ok := r.xref[ref.Number]
	if !ok || entry.Type == xrefFree {
		return nil, nil
	}
	switch entry.Type {
	case xrefInFile:
		if entry.Generation != ref.Generation {
			return nil, nil
		}
		return r.readObjectAt(entry.Offset, ref)
	case xrefInStream:
		if ref.Generation != 0 {
			return nil, nil
		}
		return r.getFromObjectStream(ref.Number, entry)
	}
	return nil, nil
}

// readObjectAt parses the indirect object stored at the given offset and
// checks that its header matches the expected reference.
func (r *Reader) readObjectAt(offset int64, expected Reference) (Object, error) {
	if offset < 0 || offset >= r.size {
		return nil, &MalformedFileError{Pos: offset, Err: errors.New("object offset out of range")}
	}
	s := r.scannerAt(offset)
	ref, err := s.readIndirectHeader()
	if err != nil {
		return nil, err
	}
	if ref != expected {
		return nil, &MalformedFileError{
			Pos: offset,
			Err: fmt.Errorf("expected object %d %d, found %d %d",
				expected.Number, expected.Generation, ref.Number, ref.Generation),
		}
	}
	obj, err := s.readObject()
	if err != nil {
		return nil, err
	}
	if dict, ok := obj.(Dict); ok {
		isStream, err := s.peekKeyword("stream")
		if err != nil {
			return nil, err
		}
		if isStream {
			start, length, err := s.readStreamDataStart(dict)
			if err != nil {
				return nil, err
			}
			if start+length > r.size {
				return nil, &MalformedFileError{Pos: start, Err: errors.New("stream extends past end of file")}
			}
			return &Stream{
				Dict: dict,
				R:    io.NewSectionReader(r.r, start, length),
			}, nil
		}
	}
	return obj, nil
}

// getFromObjectStream extracts a compressed object from its container.
func (r *Reader) getFromObjectStream(number int32, entry *xrefEntry) (Object, error) {
	container, err := r.loadObjectStream(entry.StreamNum)
	if err != nil {
		return nil, err
	}
	off, ok := container.offsets[number]
	if !ok {
		return nil, nil
	}
	s := newScanner(bytes.NewReader(container.data[off:]), int64(off), nil)
	obj, err := s.readObject()
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// loadObjectStream fetches, decodes and indexes an object stream.
func (r *Reader) loadObjectStream(num int32) (*objStm, error) {
	if c, ok := r.objStmCache[num]; ok {
		return c, nil
	}

	obj, err := r.Get(Reference{Number: num})
	if err != nil {
		return nil, err
	}
	stm, ok := obj.(*Stream)
	if !ok {
		return nil, &MalformedFileError{Err: fmt.Errorf("object stream %d missing", num)}
	}
	if typ, _ := stm.Dict["Type"].(Name); typ != "ObjStm" {
		return nil, &MalformedFileError{Err: fmt.Errorf("object %d is not an object stream", num)}
	}

	data, err := r.DecodeStream(stm)
	if err != nil {
		return nil, err
	}
	n, err := r.getInt(stm.Dict["N"])
	if err != nil {
		return nil, err
	}
	first, err := r.getInt(stm.Dict["First"])
	if err != nil {
		return nil, err
	}
	if n < 0 || n > maxXRefEntries || first < 0 || int64(first) > int64(len(data)) {
		return nil, &MalformedFileError{Err: fmt.Errorf("object stream %d has an invalid header", num)}
	}

	// the header area lists object number / offset pairs
	s := newScanner(bytes.NewReader(data[:first]), 0, nil)
	container := &objStm{
		data:    data,
		offsets: make(map[int32]int, n),
	}
	for i := Integer(0); i < n; i++ {
		numObj, err := s.readNumber()
		if err != nil {
			return nil, err
		}
		offObj, err := s.readNumber()
		if err != nil {
			return nil, err
		}
		objNum, ok1 := numObj.(Integer)
		objOff, ok2 := offObj.(Integer)
		if !ok1 || !ok2 || objNum < 0 || objOff < 0 || first+objOff > Integer(len(data)) {
			return nil, &MalformedFileError{Err: fmt.Errorf("object stream %d has an invalid index", num)}
		}
		container.offsets[int32(objNum)] = int(first + objOff)
	}
	r.objStmCache[num] = container
	return container, nil
}

// DecodeStream returns the fully decoded stream content, applying the
// /Filter chain in order.
func (r *Reader) DecodeStream(s *Stream) ([]byte, error) {
	if seeker, ok := s.R.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
	}
	data, err := io.ReadAll(s.R)
	if err != nil {
		return nil, err
	}

	filterObj, err := r.Resolve(s.Dict["Filter"])
	if err != nil {
		return nil, err
	}
	parmsObj, err := r.Resolve(s.Dict["DecodeParms"])
	if err != nil {
		return nil, err
	}

	var filters []Name
	var parms []Object
	switch f := filterObj.(type) {
	case nil:
		return data, nil
	case Name:
		filters = []Name{f}
		parms = []Object{parmsObj}
	case Array:
		for _, v := range f {
			fv, err := r.Resolve(v)
			if err != nil {
				return nil, err
			}
			name, ok := fv.(Name)
			if !ok {
				return nil, &MalformedFileError{Err: fmt.Errorf("invalid filter entry %T", fv)}
			}
			filters = append(filters, name)
		}
		if pArr, ok := parmsObj.(Array); ok {
			parms = pArr
		}
		for len(parms) < len(filters) {
			parms = append(parms, nil)
		}
	default:
		return nil, &MalformedFileError{Err: fmt.Errorf("invalid /Filter type %T", filterObj)}
	}

	for i, filter := range filters {
		p, err := r.resolveParms(parms[i])
		if err != nil {
			return nil, err
		}
		data, err = decodeData(data, filter, p)
		if err != nil {
			return nil, &MalformedFileError{Err: err}
		}
	}
	return data, nil
}

// resolveParms resolves a decode parameter dictionary and all its values.
func (r *Reader) resolveParms(obj Object) (Dict, error) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil, err
	}
	dict, ok := resolved.(Dict)
	if !ok {
		return nil, nil
	}
	out := make(Dict, len(dict))
	for k, v := range dict {
		rv, err := r.Resolve(v)
		if err != nil {
			return nil, err
		}
		out[k] = rv
	}
	return out, nil
}

// GetDict resolves obj and returns it as a dictionary. Streams yield their
// stream dictionary. A nil obj yields a nil dictionary without error.
func (r *Reader) GetDict(obj Object) (Dict, error) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil, err
	}
	switch x := resolved.(type) {
	case nil:
		return nil, nil
	case Dict:
		return x, nil
	case *Stream:
		return x.Dict, nil
	}
	return nil, &MalformedFileError{Err: fmt.Errorf("expected dictionary, got %T", resolved)}
}

// GetArray resolves obj and returns it as an array.
func (r *Reader) GetArray(obj Object) (Array, error) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		return nil, nil
	}
	x, ok := resolved.(Array)
	if !ok {
		return nil, &MalformedFileError{Err: fmt.Errorf("expected array, got %T", resolved)}
	}
	return x, nil
}

// GetInt resolves obj and returns it as an integer.
func (r *Reader) GetInt(obj Object) (Integer, error) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return 0, err
	}
	if resolved == nil {
		return 0, nil
	}
	x, ok := resolved.(Integer)
	if !ok {
		return 0, &MalformedFileError{Err: fmt.Errorf("expected integer, got %T", resolved)}
	}
	return x, nil
}

// GetReal resolves obj and returns it as a float64, accepting both integer
// and real objects.
func (r *Reader) GetReal(obj Object) (float64, error) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return 0, err
	}
	if resolved == nil {
		return 0, nil
	}
	x, ok := numeric(resolved)
	if !ok {
		return 0, &MalformedFileError{Err: fmt.Errorf("expected number, got %T", resolved)}
	}
	return x, nil
}

// GetName resolves obj and returns it as a name.
func (r *Reader) GetName(obj Object) (Name, error) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return "", err
	}
	if resolved == nil {
		return "", nil
	}
	x, ok := resolved.(Name)
	if !ok {
		return "", &MalformedFileError{Err: fmt.Errorf("expected name, got %T", resolved)}
	}
	return x, nil
}

// GetString resolves obj and returns it as a string.
func (r *Reader) GetString(obj Object) (String, error) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		return nil, nil
	}
	x, ok := resolved.(String)
	if !ok {
		return nil, &MalformedFileError{Err: fmt.Errorf("expected string, got %T", resolved)}
	}
	return x, nil
}

// GetStream resolves obj and returns it as a stream.
func (r *Reader) GetStream(obj Object) (*Stream, error) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		return nil, nil
	}
	x, ok := resolved.(*Stream)
	if !ok {
		return nil, &MalformedFileError{Err: fmt.Errorf("expected stream, got %T", resolved)}
	}
	return x, nil
}

// GetRect resolves obj as a four-element number array and returns it as a
// normalized rectangle.
func (r *Reader) GetRect(obj Object) (Rect, error) {
	arr, err := r.GetArray(obj)
	if err != nil {
		return Rect{}, err
	}
	if arr == nil {
		return Rect{}, nil
	}
	if len(arr) != 4 {
		return Rect{}, &MalformedFileError{Err: fmt.Errorf("rectangle has %d elements", len(arr))}
	}
	var coords [4]float64
	for i, v := range arr {
		resolved, err := r.Resolve(v)
		if err != nil {
			return Rect{}, err
		}
		x, ok := numeric(resolved)
		if !ok {
			return Rect{}, &MalformedFileError{Err: fmt.Errorf("rectangle element %d is %T", i, resolved)}
		}
		coords[i] = x
	}
	rect := Rect{LLx: coords[0], LLy: coords[1], URx: coords[2], URy: coords[3]}
	if rect.LLx > rect.URx {
		rect.LLx, rect.URx = rect.URx, rect.LLx
	}
	if rect.LLy > rect.URy {
		rect.LLy, rect.URy = rect.URy, rect.LLy
	}
	return rect, nil
}

// Page describes one page of the document, with attributes inherited from
// the page tree already resolved.
type Page struct {
	// Index is the zero-based position of the page in document order.
	Index int

	// Dict is the page dictionary itself.
	Dict Dict

	// Ref is the indirect reference of the page object, or the zero
	// reference when the page dictionary was inlined in its parent.
	Ref Reference

	MediaBox  Rect
	Resources Dict
	Rotate    int
}

type pageInherit struct {
	mediaBox    Rect
	hasMediaBox bool
	resources   Dict
	rotate      int
}

// defaultMediaBox is used when a page tree carries no /MediaBox at all.
var defaultMediaBox = Rect{URx: 612, URy: 792}

// Pages returns the document's pages in order, walking the page tree with
// inherited attributes and cycle protection.
func (r *Reader) Pages() ([]Page, error) {
	catalog, err := r.Catalog()
	if err != nil {
		return nil, err
	}
	var pages []Page
	visited := make(map[Reference]bool)
	if err := r.walkPages(catalog["Pages"], visited, pageInherit{}, &pages); err != nil {
		return nil, err
	}
	return pages, nil
}

func (r *Reader) walkPages(node Object, visited map[Reference]bool, inh pageInherit, out *[]Page) error {
	var ref Reference
	if rf, ok := node.(Reference); ok {
		if visited[rf] {
			return &MalformedFileError{Err: errors.New("page tree contains a cycle")}
		}
		visited[rf] = true
		ref = rf
	}

	dict, err := r.GetDict(node)
	if err != nil {
		return err
	}
	if dict == nil {
		return nil
	}

	// inheritable attributes; unreadable values fall back to the parent's
	if mbObj := dict["MediaBox"]; mbObj != nil {
		if mb, err := r.GetRect(mbObj); err == nil && !mb.IsZero() {
			inh.mediaBox = mb
			inh.hasMediaBox = true
		}
	}
	if resObj := dict["Resources"]; resObj != nil {
		if res, err := r.GetDict(resObj); err == nil && res != nil {
			inh.resources = res
		}
	}
	if rotObj := dict["Rotate"]; rotObj != nil {
		if rot, err := r.GetInt(rotObj); err == nil {
			inh.rotate = int(rot) % 360
		}
	}

	typ, _ := r.GetName(dict["Type"])
	switch {
	case typ == "Pages" || (typ == "" && dict["Kids"] != nil):
		kids, err := r.GetArray(dict["Kids"])
		if err != nil {
			return err
		}
		for _, kid := range kids {
			if err := r.walkPages(kid, visited, inh, out); err != nil {
				return err
			}
		}
	case typ == "Page" || typ == "":
		mb := inh.mediaBox
		if !inh.hasMediaBox {
			mb = defaultMediaBox
		}
		*out = append(*out, Page{
			Index:     len(*out),
			Dict:      dict,
			Ref:       ref,
			MediaBox:  mb,
			Resources: inh.resources,
			Rotate:    inh.rotate,
		})
	default:
		return &MalformedFileError{Err: fmt.Errorf("unexpected page tree node type %q", typ)}
	}
	return nil
}
