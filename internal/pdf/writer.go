package pdf

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
)

var errWriterClosed = errors.New("pdf: writer already closed")

// countingWriter buffers output, tracks the absolute write position and
// remembers the first write error.
type countingWriter struct {
	w   *bufio.Writer
	pos int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.pos += int64(n)
	c.err = err
	return n, err
}

// Writer assembles a new PDF file object by object. Object numbers are
// issued by Alloc and written by Put; Close emits the cross reference
// table and trailer.
type Writer struct {
	out     *countingWriter
	offsets map[int32]int64
	nextNum int32
	closed  bool
}

// NewWriter creates a Writer emitting to w. The file header is written
// immediately.
func NewWriter(w io.Writer) (*Writer, error) {
	out := &countingWriter{w: bufio.NewWriter(w)}
	// the comment line marks the file as binary
	if _, err := out.Write([]byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")); err != nil {
		return nil, err
	}
	return &Writer{
		out:     out,
		offsets: make(map[int32]int64),
		nextNum: 1,
	}, nil
}

// Alloc reserves an object number for a later Put. References issued by
// Alloc always have generation zero.
func (w *Writer) Alloc() Reference {
	ref := Reference{Number: w.nextNum}
	w.nextNum++
	return ref
}

// Put writes one indirect object. A nil obj writes the null object, which
// keeps references to absent source objects valid.
func (w *Writer) Put(ref Reference, obj Object) error {
	if w.closed {
		return errWriterClosed
	}
	if ref.Number <= 0 || ref.Number >= w.nextNum {
		return fmt.Errorf("pdf: object number %d was not allocated", ref.Number)
	}
	if ref.Generation != 0 {
		return fmt.Errorf("pdf: cannot write object with generation %d", ref.Generation)
	}
	if _, dup := w.offsets[ref.Number]; dup {
		return fmt.Errorf("pdf: object %d written twice", ref.Number)
	}

	w.offsets[ref.Number] = w.out.pos
	fmt.Fprintf(w.out, "%d 0 obj\n", ref.Number)
	if obj == nil {
		io.WriteString(w.out, "null")
	} else if err := obj.PDF(w.out); err != nil {
		return err
	}
	io.WriteString(w.out, "\nendobj\n")
	return w.out.err
}

// PutStream writes a stream object. The /Length entry is computed from the
// data; when compress is set the data is Flate encoded first.
func (w *Writer) PutStream(ref Reference, dict Dict, data []byte, compress bool) error {
	d := make(Dict, len(dict)+2)
	maps.Copy(d, dict)
	if compress {
		comp, err := compressFlate(data)
		if err != nil {
			return err
		}
		data = comp
		d["Filter"] = Name("FlateDecode")
	}
	d["Length"] = Integer(len(data))
	return w.Put(ref, &Stream{Dict: d, R: bytes.NewReader(data)})
}

// Close writes the cross reference table and trailer. root must reference
// the document catalog; info may be the zero reference. Allocated but
// unwritten object numbers become free entries.
func (w *Writer) Close(root, info Reference) error {
	if w.closed {
		return errWriterClosed
	}
	if root.IsZero() {
		return errors.New("pdf: document catalog reference missing")
	}
	w.closed = true

	xrefPos := w.out.pos
	size := w.nextNum
	fmt.Fprintf(w.out, "xref\n0 %d\n", size)
	io.WriteString(w.out, "0000000000 65535 f\r\n")
	for num := int32(1); num < size; num++ {
		if off, ok := w.offsets[num]; ok {
			fmt.Fprintf(w.out, "%010d 00000 n\r\n", off)
		} else {
			io.WriteString(w.out, "0000000000 00000 f\r\n")
		}
	}

	trailer := Dict{
		"Size": Integer(size),
		"Root": root,
	}
	if !info.IsZero() {
		trailer["Info"] = info
	}
	io.WriteString(w.out, "trailer\n")
	if err := trailer.PDF(w.out); err != nil {
		return err
	}
	fmt.Fprintf(w.out, "\nstartxref\n%d\n%%%%EOF\n", xrefPos)

	if w.out.err != nil {
		return w.out.err
	}
	return w.out.w.Flush()
}
