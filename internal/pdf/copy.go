package pdf

import (
	"bytes"
	"io"
)

// Copier transplants object graphs from a Reader into a Writer, rewriting
// all indirect references so the copied graph stays consistent. Dictionary
// traversal is key-ordered, so the same input yields the same output object
// numbering.
type Copier struct {
	r     *Reader
	w     *Writer
	trans map[Reference]Reference
}

// NewCopier creates a Copier moving objects from r into w.
func NewCopier(w *Writer, r *Reader) *Copier {
	return &Copier{
		r:     r,
		w:     w,
		trans: make(map[Reference]Reference),
	}
}

// Redirect maps the source object src to the destination object dst before
// copying. Every reference to src in the source document then points at
// dst in the output, and src itself is never copied.
func (c *Copier) Redirect(src, dst Reference) {
	c.trans[src] = dst
}

// Copy deep-copies an object, translating all indirect references.
func (c *Copier) Copy(obj Object) (Object, error) {
	switch x := obj.(type) {
	case Dict:
		out := make(Dict, len(x))
		for _, k := range x.sortedKeys() {
			cv, err := c.Copy(x[k])
			if err != nil {
				return nil, err
			}
			out[k] = cv
		}
		return out, nil
	case Array:
		out := make(Array, len(x))
		for i, v := range x {
			cv, err := c.Copy(v)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	case *Stream:
		dictObj, err := c.Copy(x.Dict)
		if err != nil {
			return nil, err
		}
		dict := dictObj.(Dict)
		// the raw data is carried over unchanged, so the filter chain in
		// the copied dictionary still applies; only /Length is pinned to
		// a direct value
		if seeker, ok := x.R.(io.Seeker); ok {
			if _, err := seeker.Seek(0, io.SeekStart); err != nil {
				return nil, err
			}
		}
		data, err := io.ReadAll(x.R)
		if err != nil {
			return nil, err
		}
		dict["Length"] = Integer(len(data))
		return &Stream{Dict: dict, R: bytes.NewReader(data)}, nil
	case Reference:
		return c.CopyReference(x)
	default:
		// booleans, numbers, strings and names are immutable
		return obj, nil
	}
}

// CopyReference copies the indirect object behind ref into the destination
// file, memoizing the translation so shared and cyclic structures stay
// shared.
func (c *Copier) CopyReference(ref Reference) (Reference, error) {
	if dst, ok := c.trans[ref]; ok {
		return dst, nil
	}
	dst := c.w.Alloc()
	// memoize before descending, reference cycles are legal in PDF
	c.trans[ref] = dst

	obj, err := c.r.Get(ref)
	if err != nil {
		return Reference{}, err
	}
	copied, err := c.Copy(obj)
	if err != nil {
		return Reference{}, err
	}
	if err := c.w.Put(dst, copied); err != nil {
		return Reference{}, err
	}
	return dst, nil
}
