package extract

import (
	"bytes"
	"testing"

	"github.com/gearmap/gearmap-go/internal/errors"
	"github.com/gearmap/gearmap-go/internal/pdf"
)

// annotSpec describes one annotation to place in a test document.
type annotSpec struct {
	subtype  string
	subject  string
	contents string
	rect     pdf.Rect
	inline   bool       // direct dictionary instead of a reference
	override pdf.Object // when set, used verbatim as the /Annots entry
}

// buildDoc writes a document with one page per annotation list.
func buildDoc(t *testing.T, pageSpecs ...[]annotSpec) *pdf.Reader {
	t.Helper()
	var buf bytes.Buffer
	w, err := pdf.NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	catalog := w.Alloc()
	pagesRef := w.Alloc()
	var kids pdf.Array

	for _, specs := range pageSpecs {
		pageRef := w.Alloc()
		var annots pdf.Array
		for _, spec := range specs {
			if spec.override != nil {
				annots = append(annots, spec.override)
				continue
			}
			dict := pdf.Dict{
				"Type":    pdf.Name("Annot"),
				"Subtype": pdf.Name(spec.subtype),
				"Rect":    spec.rect.Array(),
			}
			if spec.subject != "" {
				dict["Subj"] = pdf.TextString(spec.subject)
			}
			if spec.contents != "" {
				dict["Contents"] = pdf.TextString(spec.contents)
			}
			if spec.inline {
				annots = append(annots, dict)
				continue
			}
			ref := w.Alloc()
			if err := w.Put(ref, dict); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			annots = append(annots, ref)
		}
		pageDict := pdf.Dict{
			"Type":   pdf.Name("Page"),
			"Parent": pagesRef,
		}
		if len(annots) > 0 {
			pageDict["Annots"] = annots
		}
		if err := w.Put(pageRef, pageDict); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		kids = append(kids, pageRef)
	}

	if err := w.Put(pagesRef, pdf.Dict{
		"Type":     pdf.Name("Pages"),
		"Kids":     kids,
		"Count":    pdf.Integer(len(kids)),
		"MediaBox": pdf.Rect{URx: 612, URy: 792}.Array(),
	}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := w.Put(catalog, pdf.Dict{"Type": pdf.Name("Catalog"), "Pages": pagesRef}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := w.Close(catalog, pdf.Reference{}); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := pdf.NewReaderFromBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("NewReaderFromBytes failed: %v", err)
	}
	return r
}

func TestExtractDocumentOrder(t *testing.T) {
	t.Parallel()

	r := buildDoc(t,
		[]annotSpec{
			{subtype: "Square", subject: "CAM-B", rect: pdf.Rect{LLx: 10, LLy: 10, URx: 40, URy: 40}},
			{subtype: "Square", subject: "DOME-B", rect: pdf.Rect{LLx: 50, LLy: 50, URx: 80, URy: 80}},
		},
		[]annotSpec{
			{subtype: "Stamp", subject: "PTZ-B", rect: pdf.Rect{LLx: 5, LLy: 5, URx: 25, URy: 25}},
		},
	)

	annots, err := Extract(r)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(annots) != 3 {
		t.Fatalf("got %d annotations, want 3", len(annots))
	}
	wantSubjects := []string{"CAM-B", "DOME-B", "PTZ-B"}
	wantPages := []int{0, 0, 1}
	for i, a := range annots {
		if a.Subject != wantSubjects[i] {
			t.Errorf("annotation %d subject = %q, want %q", i, a.Subject, wantSubjects[i])
		}
		if a.Page != wantPages[i] {
			t.Errorf("annotation %d page = %d, want %d", i, a.Page, wantPages[i])
		}
		if a.Ref.IsZero() {
			t.Errorf("annotation %d has no reference", i)
		}
	}
	if annots[0].Rect != (pdf.Rect{LLx: 10, LLy: 10, URx: 40, URy: 40}) {
		t.Errorf("rect = %+v", annots[0].Rect)
	}
	if annots[2].Subtype != "Stamp" {
		t.Errorf("subtype = %q", annots[2].Subtype)
	}
}

func TestExtractDecodesText(t *testing.T) {
	t.Parallel()

	r := buildDoc(t, []annotSpec{
		{subtype: "Square", subject: "KAMERA-Ü", contents: "Größe 5"},
	})
	annots, err := Extract(r)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(annots) != 1 {
		t.Fatalf("got %d annotations", len(annots))
	}
	if annots[0].Subject != "KAMERA-Ü" {
		t.Errorf("subject = %q", annots[0].Subject)
	}
	if annots[0].Contents != "Größe 5" {
		t.Errorf("contents = %q", annots[0].Contents)
	}
}

func TestExtractSkipsNonMarkup(t *testing.T) {
	t.Parallel()

	r := buildDoc(t, []annotSpec{
		{subtype: "Link"},
		{subtype: "Square", subject: "CAM-B"},
		{subtype: "Popup"},
		{subtype: "Widget"},
	})
	annots, err := Extract(r)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(annots) != 1 || annots[0].Subject != "CAM-B" {
		t.Fatalf("got %+v, want only the square", annots)
	}
}

func TestExtractDegradedRecords(t *testing.T) {
	t.Parallel()

	r := buildDoc(t, []annotSpec{
		// entry that is not a dictionary at all: dropped
		{override: pdf.Integer(42)},
		// bad /Rect: yielded with a zero rectangle
		{override: pdf.Dict{
			"Subtype": pdf.Name("Square"),
			"Subj":    pdf.TextString("CAM-B"),
			"Rect":    pdf.Array{pdf.Integer(1)},
		}},
		// no subject at all: yielded with an empty subject
		{subtype: "Square", rect: pdf.Rect{URx: 10, URy: 10}},
	})
	annots, err := Extract(r)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(annots) != 2 {
		t.Fatalf("got %d annotations, want 2", len(annots))
	}
	if annots[0].Subject != "CAM-B" || !annots[0].Rect.IsZero() {
		t.Errorf("degraded rect record = %+v", annots[0])
	}
	if annots[1].Subject != "" {
		t.Errorf("subject-less record = %+v", annots[1])
	}
}

func TestExtractInlineAnnotationHasZeroRef(t *testing.T) {
	t.Parallel()

	r := buildDoc(t, []annotSpec{
		{subtype: "Square", subject: "CAM-B", inline: true},
	})
	annots, err := Extract(r)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(annots) != 1 {
		t.Fatalf("got %d annotations", len(annots))
	}
	if !annots[0].Ref.IsZero() {
		t.Errorf("inline annotation has reference %+v", annots[0].Ref)
	}
}

func TestCountMatchesExtract(t *testing.T) {
	t.Parallel()

	r := buildDoc(t,
		[]annotSpec{
			{subtype: "Square", subject: "A"},
			{subtype: "Link"},
		},
		[]annotSpec{},
		[]annotSpec{
			{subtype: "Stamp", subject: "B"},
		},
	)
	pages, count, err := Count(r)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	annots, err := Extract(r)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if pages != 3 {
		t.Errorf("pages = %d, want 3", pages)
	}
	if count != len(annots) {
		t.Errorf("Count = %d, Extract yielded %d", count, len(annots))
	}
}

func TestExtractBrokenPageTree(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w, err := pdf.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	catalog := w.Alloc()
	pages := w.Alloc()
	if err := w.Put(pages, pdf.Dict{"Type": pdf.Name("Pages"), "Kids": pdf.Array{pages}}); err != nil {
		t.Fatal(err)
	}
	if err := w.Put(catalog, pdf.Dict{"Type": pdf.Name("Catalog"), "Pages": pages}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(catalog, pdf.Reference{}); err != nil {
		t.Fatal(err)
	}
	r, err := pdf.NewReaderFromBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("NewReaderFromBytes failed: %v", err)
	}

	_, err = Extract(r)
	if err == nil {
		t.Fatal("expected error for cyclic page tree")
	}
	if !errors.IsCategory(err, errors.CategoryDocumentParse) {
		t.Errorf("category = %v, want document parse", err)
	}
}

func TestLabel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		contents string
		want     string
	}{
		{"Gear 5", "Gear 5"},
		{"Gear 5\nsecond line", "Gear 5"},
		{"Gear 5\r\nsecond line", "Gear 5"},
		{"  padded  ", "padded"},
		{"", ""},
		{"\nleading newline", ""},
	}
	for _, tc := range cases {
		a := Annotation{Contents: tc.contents}
		if got := a.Label(); got != tc.want {
			t.Errorf("Label(%q) = %q, want %q", tc.contents, got, tc.want)
		}
	}
}
