package api

import (
	"bytes"
	"encoding/json"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearmap/gearmap-go/internal/conf"
	"github.com/gearmap/gearmap-go/internal/convert"
	"github.com/gearmap/gearmap-go/internal/errors"
	"github.com/gearmap/gearmap-go/internal/filestore"
	"github.com/gearmap/gearmap-go/internal/iconstore"
	"github.com/gearmap/gearmap-go/internal/mapping"
	"github.com/gearmap/gearmap-go/internal/pdf"
	"github.com/gearmap/gearmap-go/internal/render"
)

// memStore is an in-memory iconstore.Interface for handler tests.
type memStore struct {
	configs       map[string]iconstore.IconConfig
	deleteErr     error
	categoriesErr error
}

func newMemStore(subjects ...string) *memStore {
	s := &memStore{configs: make(map[string]iconstore.IconConfig)}
	for _, subject := range subjects {
		s.configs[subject] = iconstore.NewConfig(subject, "test")
	}
	return s
}

func (s *memStore) Open() error  { return nil }
func (s *memStore) Close() error { return nil }

func (s *memStore) Get(subject string) (iconstore.IconConfig, error) {
	cfg, ok := s.configs[subject]
	if !ok {
		return iconstore.IconConfig{}, errors.NotFoundError("icon configuration", subject)
	}
	return cfg, nil
}

func (s *memStore) List() ([]iconstore.IconConfig, error) {
	out := make([]iconstore.IconConfig, 0, len(s.configs))
	for _, cfg := range s.configs {
		out = append(out, cfg)
	}
	return out, nil
}

func (s *memStore) ListByCategory(string) ([]iconstore.IconConfig, error) { return s.List() }

func (s *memStore) Create(subject, category, cloneFrom string) (iconstore.IconConfig, error) {
	if _, exists := s.configs[subject]; exists {
		return iconstore.IconConfig{}, errors.Newf("subject %q already exists", subject).
			Category(errors.CategoryConflict).Build()
	}
	if cloneFrom != "" {
		if _, ok := s.configs[cloneFrom]; !ok {
			return iconstore.IconConfig{}, errors.NotFoundError("icon configuration", cloneFrom)
		}
	}
	cfg := iconstore.NewConfig(subject, category)
	s.configs[subject] = cfg
	return cfg, nil
}

func (s *memStore) Update(subject string, _ iconstore.FieldPatch) (iconstore.IconConfig, error) {
	return s.Get(subject)
}

func (s *memStore) Delete(subject string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.configs[subject]; !ok {
		return errors.NotFoundError("icon configuration", subject)
	}
	delete(s.configs, subject)
	return nil
}

func (s *memStore) ApplyToAll(iconstore.ApplyToAllRequest) (int, error) {
	return len(s.configs) - 1, nil
}

func (s *memStore) Categories() ([]iconstore.CategoryInfo, error) {
	if s.categoriesErr != nil {
		return nil, s.categoriesErr
	}
	return []iconstore.CategoryInfo{{Name: "test", ConfigCount: len(s.configs)}}, nil
}

func (s *memStore) Snapshot(subject string) (iconstore.IconConfig, func(), error) {
	cfg, err := s.Get(subject)
	if err != nil {
		return iconstore.IconConfig{}, nil, err
	}
	return cfg, func() {}, nil
}

// newTestController wires a controller around in-memory collaborators.
func newTestController(t *testing.T, store iconstore.Interface) *Controller {
	t.Helper()

	settings := &conf.Settings{}
	settings.Version = "test"
	settings.WebServer.MaxUploadSize = 8 << 20
	settings.WebServer.UploadRate = 100
	settings.WebServer.FileTTL = 60
	settings.WebServer.Log.Path = filepath.Join(t.TempDir(), "web.log")
	settings.Conversion.DefaultDirection = string(mapping.BidToDeployment)
	settings.Conversion.MaxPages = 50
	settings.Icons.ImageDir = t.TempDir()
	settings.Icons.RenderSize = 100

	table, err := mapping.Load()
	require.NoError(t, err)
	renderer := render.New(settings)
	engine := convert.New(store, table, renderer, nil)

	e := echo.New()
	c, err := NewWithOptions(e, store, filestore.New(settings), engine, table, settings,
		log.New(&bytes.Buffer{}, "", 0), false, WithRenderer(renderer))
	require.NoError(t, err)
	t.Cleanup(c.Shutdown)
	return c
}

// testContext builds an echo context for a direct handler call.
func testContext(c *Controller, req *http.Request) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	return c.Echo.NewContext(req, rec), rec
}

// buildTestDoc writes a document with the given annotated subjects, one
// square annotation per subject on a single page.
func buildTestDoc(t *testing.T, subjects ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := pdf.NewWriter(&buf)
	require.NoError(t, err)

	catalog := w.Alloc()
	pagesRef := w.Alloc()
	pageRef := w.Alloc()

	var annots pdf.Array
	for i, subject := range subjects {
		dict := pdf.Dict{
			"Type":     pdf.Name("Annot"),
			"Subtype":  pdf.Name("Square"),
			"Rect":     pdf.Rect{LLx: float64(i * 50), URx: float64(i*50 + 40), URy: 40}.Array(),
			"Contents": pdf.TextString("unit-1"),
		}
		if subject != "" {
			dict["Subj"] = pdf.TextString(subject)
		}
		ref := w.Alloc()
		require.NoError(t, w.Put(ref, dict))
		annots = append(annots, ref)
	}

	pageDict := pdf.Dict{"Type": pdf.Name("Page"), "Parent": pagesRef}
	if len(annots) > 0 {
		pageDict["Annots"] = annots
	}
	require.NoError(t, w.Put(pageRef, pageDict))
	require.NoError(t, w.Put(pagesRef, pdf.Dict{
		"Type":     pdf.Name("Pages"),
		"Kids":     pdf.Array{pageRef},
		"Count":    pdf.Integer(1),
		"MediaBox": pdf.Rect{URx: 612, URy: 792}.Array(),
	}))
	require.NoError(t, w.Put(catalog, pdf.Dict{"Type": pdf.Name("Catalog"), "Pages": pagesRef}))
	require.NoError(t, w.Close(catalog, pdf.Reference{}))
	return buf.Bytes()
}

// multipartUpload builds a multipart request carrying data as the "file"
// field.
func multipartUpload(t *testing.T, name string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v2/documents", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	return req
}

func TestStatusForError(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", errors.NotFoundError("thing", "x"), http.StatusNotFound},
		{"conflict", errors.Newf("busy").Category(errors.CategoryConflict).Build(), http.StatusConflict},
		{"validation", errors.Newf("bad").Category(errors.CategoryValidation).Build(), http.StatusBadRequest},
		{"parse", errors.Newf("broken").Category(errors.CategoryDocumentParse).Build(), http.StatusUnprocessableEntity},
		{"limit", errors.Newf("too big").Category(errors.CategoryLimit).Build(), http.StatusRequestEntityTooLarge},
		{"icon config", errors.Newf("corrupt").Category(errors.CategoryIconConfig).Build(), http.StatusInternalServerError},
		{"uncategorized", errors.Newf("eh").Build(), http.StatusBadGateway},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, statusForError(tc.err, http.StatusBadGateway))
		})
	}
}

func TestHandleErrorEnvelope(t *testing.T) {
	t.Parallel()
	c := newTestController(t, newMemStore())

	ctx, rec := testContext(c, httptest.NewRequest(http.MethodGet, "/api/v2/icons/x", http.NoBody))
	err := c.HandleError(ctx, errors.NotFoundError("icon configuration", "x"), "Icon configuration not found", http.StatusInternalServerError)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Icon configuration not found", resp.Message)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Len(t, resp.CorrelationID, 8)
	assert.NotEmpty(t, resp.Timestamp)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	c := newTestController(t, newMemStore("CAM-D"))

	ctx, rec := testContext(c, httptest.NewRequest(http.MethodGet, "/api/v2/health", http.NoBody))
	require.NoError(t, c.HealthCheck(ctx))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "connected", resp["store_status"])
	assert.Contains(t, resp, "mapping")
	assert.Contains(t, resp, "uptime_seconds")
}

func TestHealthCheckDegraded(t *testing.T) {
	t.Parallel()
	store := newMemStore()
	store.categoriesErr = errors.Newf("connection refused").Category(errors.CategoryDatabase).Build()
	c := newTestController(t, store)

	ctx, rec := testContext(c, httptest.NewRequest(http.MethodGet, "/api/v2/health", http.NoBody))
	require.NoError(t, c.HealthCheck(ctx))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
	assert.Equal(t, "disconnected", resp["store_status"])
}

func TestUploadDocument(t *testing.T) {
	t.Parallel()
	c := newTestController(t, newMemStore())

	doc := buildTestDoc(t, "CAM-B", "DOME-B")
	ctx, rec := testContext(c, multipartUpload(t, "plan.pdf", doc))
	require.NoError(t, c.UploadDocument(ctx))

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.UploadID)
	assert.Equal(t, "plan.pdf", resp.Filename)
	assert.Equal(t, 1, resp.PageCount)
	assert.Equal(t, 2, resp.AnnotationCount)
	assert.Equal(t, len(doc), resp.SizeBytes)
}

func TestUploadDocumentMalformed(t *testing.T) {
	t.Parallel()
	c := newTestController(t, newMemStore())

	ctx, rec := testContext(c, multipartUpload(t, "junk.pdf", []byte("not a pdf at all")))
	require.NoError(t, c.UploadDocument(ctx))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUploadDocumentMissingFile(t *testing.T) {
	t.Parallel()
	c := newTestController(t, newMemStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v2/documents", http.NoBody)
	ctx, rec := testContext(c, req)
	require.NoError(t, c.UploadDocument(ctx))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConvertDocument(t *testing.T) {
	t.Parallel()
	c := newTestController(t, newMemStore("CAM-D"))

	uploadID := c.Files.PutUpload(filestore.Upload{
		Name: "plan.pdf",
		Data: buildTestDoc(t, "CAM-B", "UNKNOWN-B"),
	})

	body := bytes.NewBufferString(`{"direction":"bid_to_deployment"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v2/documents/"+uploadID+"/convert", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx, rec := testContext(c, req)
	ctx.SetParamNames("id")
	ctx.SetParamValues(uploadID)

	require.NoError(t, c.ConvertDocument(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)

	var result convert.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Converted)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, []string{"UNKNOWN-B"}, result.SkippedSubjects)
	assert.Equal(t, uploadID, result.UploadID)
	assert.NotEmpty(t, result.FileID)
	assert.Equal(t, "/api/v2/downloads/"+result.FileID, result.DownloadURL)

	// the converted bytes are downloadable
	output, err := c.Files.GetOutput(result.FileID)
	require.NoError(t, err)
	assert.Equal(t, "plan_deployment.pdf", output.Name)
	assert.NotEmpty(t, output.Data)
}

func TestConvertDocumentDefaultDirection(t *testing.T) {
	t.Parallel()
	c := newTestController(t, newMemStore("CAM-D"))

	uploadID := c.Files.PutUpload(filestore.Upload{
		Name: "plan.pdf",
		Data: buildTestDoc(t, "CAM-B"),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v2/documents/"+uploadID+"/convert",
		bytes.NewBufferString(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx, rec := testContext(c, req)
	ctx.SetParamNames("id")
	ctx.SetParamValues(uploadID)

	require.NoError(t, c.ConvertDocument(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)

	var result convert.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, string(mapping.BidToDeployment), result.Direction)
}

func TestConvertDocumentUnknownUpload(t *testing.T) {
	t.Parallel()
	c := newTestController(t, newMemStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v2/documents/ghost/convert",
		bytes.NewBufferString(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx, rec := testContext(c, req)
	ctx.SetParamNames("id")
	ctx.SetParamValues("ghost")

	require.NoError(t, c.ConvertDocument(ctx))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConvertDocumentBadDirection(t *testing.T) {
	t.Parallel()
	c := newTestController(t, newMemStore())

	uploadID := c.Files.PutUpload(filestore.Upload{
		Name: "plan.pdf",
		Data: buildTestDoc(t, "CAM-B"),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v2/documents/"+uploadID+"/convert",
		bytes.NewBufferString(`{"direction":"deployment_to_bid"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx, rec := testContext(c, req)
	ctx.SetParamNames("id")
	ctx.SetParamValues(uploadID)

	require.NoError(t, c.ConvertDocument(ctx))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadFile(t *testing.T) {
	t.Parallel()
	c := newTestController(t, newMemStore())

	fileID := c.Files.PutOutput(filestore.Output{
		Name: "plan_deployment.pdf",
		Data: []byte("%PDF-1.7 fake"),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v2/downloads/"+fileID, http.NoBody)
	ctx, rec := testContext(c, req)
	ctx.SetParamNames("id")
	ctx.SetParamValues(fileID)

	require.NoError(t, c.DownloadFile(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "plan_deployment.pdf")
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")
	assert.Equal(t, []byte("%PDF-1.7 fake"), rec.Body.Bytes())
}

func TestDownloadFileUnknown(t *testing.T) {
	t.Parallel()
	c := newTestController(t, newMemStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v2/downloads/ghost", http.NoBody)
	ctx, rec := testContext(c, req)
	ctx.SetParamNames("id")
	ctx.SetParamValues("ghost")

	require.NoError(t, c.DownloadFile(ctx))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
