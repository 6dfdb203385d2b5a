// document.go embedding rendered icons into PDF output.
package render

import (
	"bytes"

	"github.com/gearmap/gearmap-go/internal/errors"
	"github.com/gearmap/gearmap-go/internal/iconstore"
	"github.com/gearmap/gearmap-go/internal/pdf"
)

// Embed writes the icon's resources and content into w as a Form XObject
// and returns its reference. The form's BBox is the icon design space, a
// consumer maps it onto whatever rectangle the icon should fill. Resources
// are written in sorted name order so embedding is deterministic.
func (i *Icon) Embed(w *pdf.Writer) (pdf.Reference, error) {
	resources := pdf.Dict{}

	if len(i.Fonts) > 0 {
		fonts := pdf.Dict{}
		for _, name := range sortedFontNames(i.Fonts) {
			ref := w.Alloc()
			if err := w.Put(ref, i.Fonts[name]); err != nil {
				return pdf.Reference{}, err
			}
			fonts[name] = ref
		}
		resources["Font"] = fonts
	}

	if len(i.Images) > 0 {
		xobjects := pdf.Dict{}
		for _, name := range sortedImageNames(i.Images) {
			img := i.Images[name]
			dict := make(pdf.Dict, len(img.Dict)+1)
			for k, v := range img.Dict {
				dict[k] = v
			}
			if img.SMaskData != nil {
				smaskRef := w.Alloc()
				if err := w.PutStream(smaskRef, img.SMaskDict, img.SMaskData, true); err != nil {
					return pdf.Reference{}, err
				}
				dict["SMask"] = smaskRef
			}
			ref := w.Alloc()
			if err := w.PutStream(ref, dict, img.Data, true); err != nil {
				return pdf.Reference{}, err
			}
			xobjects[name] = ref
		}
		resources["XObject"] = xobjects
	}

	formRef := w.Alloc()
	formDict := pdf.Dict{
		"Type":      pdf.Name("XObject"),
		"Subtype":   pdf.Name("Form"),
		"BBox":      pdf.Rect{URx: i.Size, URy: i.Size}.Array(),
		"Resources": resources,
	}
	if err := w.PutStream(formRef, formDict, i.Content, true); err != nil {
		return pdf.Reference{}, err
	}
	return formRef, nil
}

// RenderDocument renders one icon and wraps it in a single-page document
// whose page is exactly the icon design space. The tuner preview and the
// CLI use it to show an icon without running a conversion.
func (r *Renderer) RenderDocument(cfg iconstore.IconConfig, label string) ([]byte, error) {
	icon, err := r.Render(cfg, label)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w, err := pdf.NewWriter(&buf)
	if err != nil {
		return nil, r.docError(err, cfg.Subject)
	}

	formRef, err := icon.Embed(w)
	if err != nil {
		return nil, r.docError(err, cfg.Subject)
	}

	const formRes = "Ico0"
	cw := &contentWriter{}
	cw.xobject(formRes)

	contentRef := w.Alloc()
	if err := w.PutStream(contentRef, pdf.Dict{}, cw.bytes(), true); err != nil {
		return nil, r.docError(err, cfg.Subject)
	}

	pagesRef := w.Alloc()
	pageRef := w.Alloc()
	page := pdf.Dict{
		"Type":     pdf.Name("Page"),
		"Parent":   pagesRef,
		"MediaBox": pdf.Rect{URx: icon.Size, URy: icon.Size}.Array(),
		"Contents": contentRef,
		"Resources": pdf.Dict{
			"XObject": pdf.Dict{formRes: formRef},
		},
	}
	if err := w.Put(pageRef, page); err != nil {
		return nil, r.docError(err, cfg.Subject)
	}
	pages := pdf.Dict{
		"Type":  pdf.Name("Pages"),
		"Kids":  pdf.Array{pageRef},
		"Count": pdf.Integer(1),
	}
	if err := w.Put(pagesRef, pages); err != nil {
		return nil, r.docError(err, cfg.Subject)
	}

	catalogRef := w.Alloc()
	catalog := pdf.Dict{
		"Type":  pdf.Name("Catalog"),
		"Pages": pagesRef,
	}
	if err := w.Put(catalogRef, catalog); err != nil {
		return nil, r.docError(err, cfg.Subject)
	}

	if err := w.Close(catalogRef, pdf.Reference{}); err != nil {
		return nil, r.docError(err, cfg.Subject)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) docError(err error, subject string) error {
	return errors.New(err).
		Component("render").
		Category(errors.CategoryDocumentWrite).
		Context("operation", "render_document").
		Context("subject", subject).
		Build()
}
