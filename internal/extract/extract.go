// Package extract recovers markup annotations and their subjects from PDF
// documents.
package extract

import (
	"strings"

	"github.com/gearmap/gearmap-go/internal/errors"
	"github.com/gearmap/gearmap-go/internal/pdf"
)

// Annotation describes one markup annotation found in a document.
type Annotation struct {
	// Page is the zero-based index of the page carrying the annotation.
	Page int

	// Subject is the decoded /Subj entry, empty when absent or unreadable.
	Subject string

	// Rect is the annotation rectangle in page space. Unreadable
	// rectangles are left zero.
	Rect pdf.Rect

	// Contents is the decoded /Contents entry.
	Contents string

	// Subtype is the annotation subtype name, e.g. "Square" or "Stamp".
	Subtype string

	// Ref is the indirect reference of the annotation object. It is the
	// zero reference when the annotation dictionary is inlined in the
	// /Annots array.
	Ref pdf.Reference
}

// Label returns the text placed on a rendered icon: the first line of the
// annotation contents with surrounding whitespace removed.
func (a Annotation) Label() string {
	line := a.Contents
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// isMarkupSubtype filters out navigation and form artifacts, which appear
// in /Annots arrays but carry no icon subject.
func isMarkupSubtype(subtype pdf.Name) bool {
	switch subtype {
	case "Popup", "Link", "Widget":
		return false
	}
	return true
}

// Extract walks the document's pages in order and returns one record per
// markup annotation, in /Annots array order. Unreadable fields of a single
// annotation are zeroed rather than failing the document; only a
// document-level parse failure returns an error.
func Extract(r *pdf.Reader) ([]Annotation, error) {
	pages, err := r.Pages()
	if err != nil {
		return nil, errors.New(err).
			Component("extract").
			Category(errors.CategoryDocumentParse).
			Context("operation", "extract_annotations").
			Build()
	}
	var out []Annotation
	for _, page := range pages {
		out = append(out, pageAnnotations(r, page)...)
	}
	return out, nil
}

// Count reports the number of pages and markup annotations in the document
// without keeping the records.
func Count(r *pdf.Reader) (pages, annotations int, err error) {
	pgs, err := r.Pages()
	if err != nil {
		return 0, 0, errors.New(err).
			Component("extract").
			Category(errors.CategoryDocumentParse).
			Context("operation", "count_annotations").
			Build()
	}
	total := 0
	for _, page := range pgs {
		total += len(pageAnnotations(r, page))
	}
	return len(pgs), total, nil
}

// pageAnnotations reads one page's /Annots array. Entries that do not
// resolve to a dictionary are dropped; unreadable fields inside an
// annotation degrade to their zero values.
func pageAnnotations(r *pdf.Reader, page pdf.Page) []Annotation {
	annots, err := r.GetArray(page.Dict["Annots"])
	if err != nil || len(annots) == 0 {
		return nil
	}
	out := make([]Annotation, 0, len(annots))
	for _, entry := range annots {
		ref, _ := entry.(pdf.Reference)
		dict, err := r.GetDict(entry)
		if err != nil || dict == nil {
			continue
		}
		subtype, err := r.GetName(dict["Subtype"])
		if err != nil {
			subtype = ""
		}
		if !isMarkupSubtype(subtype) {
			continue
		}

		a := Annotation{
			Page:    page.Index,
			Subtype: string(subtype),
			Ref:     ref,
		}
		if subj, err := r.GetString(dict["Subj"]); err == nil {
			a.Subject = subj.AsText()
		}
		if rect, err := r.GetRect(dict["Rect"]); err == nil {
			a.Rect = rect
		}
		if contents, err := r.GetString(dict["Contents"]); err == nil {
			a.Contents = contents.AsText()
		}
		out = append(out, a)
	}
	return out
}
