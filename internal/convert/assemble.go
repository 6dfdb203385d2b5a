// assemble.go output document assembly.
package convert

import (
	"bytes"
	"fmt"

	"github.com/gearmap/gearmap-go/internal/extract"
	"github.com/gearmap/gearmap-go/internal/pdf"
	"github.com/gearmap/gearmap-go/internal/render"
)

// placedIcon pairs a source annotation with its rendered replacement.
type placedIcon struct {
	annotation *extract.Annotation
	icon       *render.Icon
	target     string
}

// assemble writes a new document: the source object graph is copied
// wholesale, except that every converted annotation's object is replaced by
// a stamp annotation whose appearance stream is the rendered icon. The
// replacement sits at the original rectangle, so the icon's design space is
// scaled onto the annotation's original footprint by the viewer. Skipped
// annotations pass through byte-for-byte. The input document is never
// mutated.
func assemble(r *pdf.Reader, placed []placedIcon) ([]byte, error) {
	var buf bytes.Buffer
	w, err := pdf.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	copier := pdf.NewCopier(w, r)

	// Reserve the replacement objects and redirect the originals before the
	// page tree copy, so every /Annots entry picks up the replacement.
	replacementRefs := make([]pdf.Reference, len(placed))
	for i := range placed {
		replacementRefs[i] = w.Alloc()
		copier.Redirect(placed[i].annotation.Ref, replacementRefs[i])
	}

	root, err := copyCatalog(w, copier, r)
	if err != nil {
		return nil, err
	}

	for i := range placed {
		formRef, err := placed[i].icon.Embed(w)
		if err != nil {
			return nil, err
		}
		dict := pdf.Dict{
			"Type":    pdf.Name("Annot"),
			"Subtype": pdf.Name("Stamp"),
			"Rect":    placed[i].annotation.Rect.Array(),
			"Subj":    pdf.TextString(placed[i].target),
			"F":       pdf.Integer(4), // print flag
			"AP":      pdf.Dict{"N": formRef},
		}
		if label := placed[i].annotation.Label(); label != "" {
			dict["Contents"] = pdf.TextString(label)
		}
		if err := w.Put(replacementRefs[i], dict); err != nil {
			return nil, err
		}
	}

	info := pdf.Reference{}
	if srcInfo, ok := r.Trailer()["Info"].(pdf.Reference); ok {
		info, err = copier.CopyReference(srcInfo)
		if err != nil {
			return nil, err
		}
	}

	if err := w.Close(root, info); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// copyCatalog copies the document catalog, tolerating the rare direct
// catalog dictionary in the trailer.
func copyCatalog(w *pdf.Writer, copier *pdf.Copier, r *pdf.Reader) (pdf.Reference, error) {
	switch root := r.Trailer()["Root"].(type) {
	case pdf.Reference:
		return copier.CopyReference(root)
	case pdf.Dict:
		copied, err := copier.Copy(root)
		if err != nil {
			return pdf.Reference{}, err
		}
		ref := w.Alloc()
		if err := w.Put(ref, copied); err != nil {
			return pdf.Reference{}, err
		}
		return ref, nil
	default:
		return pdf.Reference{}, fmt.Errorf("document catalog missing from trailer")
	}
}
