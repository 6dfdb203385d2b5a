package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearmap/gearmap-go/internal/errors"
	"github.com/gearmap/gearmap-go/internal/iconstore"
	"github.com/gearmap/gearmap-go/internal/render"
)

func TestListIconConfigs(t *testing.T) {
	t.Parallel()
	c := newTestController(t, newMemStore("CAM-D", "DOME-D"))

	ctx, rec := testContext(c, httptest.NewRequest(http.MethodGet, "/api/v2/icons", http.NoBody))
	require.NoError(t, c.ListIconConfigs(ctx))

	assert.Equal(t, http.StatusOK, rec.Code)
	var configs []iconstore.IconConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &configs))
	assert.Len(t, configs, 2)
}

func TestGetIconConfig(t *testing.T) {
	t.Parallel()
	c := newTestController(t, newMemStore("CAM-D"))

	ctx, rec := testContext(c, httptest.NewRequest(http.MethodGet, "/api/v2/icons/CAM-D", http.NoBody))
	ctx.SetParamNames("subject")
	ctx.SetParamValues("CAM-D")
	require.NoError(t, c.GetIconConfig(ctx))

	assert.Equal(t, http.StatusOK, rec.Code)
	var cfg iconstore.IconConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, "CAM-D", cfg.Subject)
}

func TestGetIconConfigUnknown(t *testing.T) {
	t.Parallel()
	c := newTestController(t, newMemStore())

	ctx, rec := testContext(c, httptest.NewRequest(http.MethodGet, "/api/v2/icons/GHOST", http.NoBody))
	ctx.SetParamNames("subject")
	ctx.SetParamValues("GHOST")
	require.NoError(t, c.GetIconConfig(ctx))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateIconConfig(t *testing.T) {
	t.Parallel()
	c := newTestController(t, newMemStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v2/icons",
		bytes.NewBufferString(`{"subject":"NEW-D","category":"camera"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx, rec := testContext(c, req)
	require.NoError(t, c.CreateIconConfig(ctx))

	assert.Equal(t, http.StatusCreated, rec.Code)
	var cfg iconstore.IconConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, "NEW-D", cfg.Subject)
	assert.Equal(t, "camera", cfg.Category)
}

func TestCreateIconConfigDuplicate(t *testing.T) {
	t.Parallel()
	c := newTestController(t, newMemStore("CAM-D"))

	req := httptest.NewRequest(http.MethodPost, "/api/v2/icons",
		bytes.NewBufferString(`{"subject":"CAM-D","category":"camera"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx, rec := testContext(c, req)
	require.NoError(t, c.CreateIconConfig(ctx))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteIconConfig(t *testing.T) {
	t.Parallel()
	c := newTestController(t, newMemStore("CAM-D"))

	req := httptest.NewRequest(http.MethodDelete, "/api/v2/icons/CAM-D", http.NoBody)
	ctx, rec := testContext(c, req)
	ctx.SetParamNames("subject")
	ctx.SetParamValues("CAM-D")
	require.NoError(t, c.DeleteIconConfig(ctx))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDeleteIconConfigPinned(t *testing.T) {
	t.Parallel()
	store := newMemStore("CAM-D")
	store.deleteErr = errors.Newf("subject pinned by a running conversion").
		Category(errors.CategoryConflict).Build()
	c := newTestController(t, store)

	req := httptest.NewRequest(http.MethodDelete, "/api/v2/icons/CAM-D", http.NoBody)
	ctx, rec := testContext(c, req)
	ctx.SetParamNames("subject")
	ctx.SetParamValues("CAM-D")
	require.NoError(t, c.DeleteIconConfig(ctx))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListCategories(t *testing.T) {
	t.Parallel()
	c := newTestController(t, newMemStore("CAM-D"))

	ctx, rec := testContext(c, httptest.NewRequest(http.MethodGet, "/api/v2/icons/categories", http.NoBody))
	require.NoError(t, c.ListCategories(ctx))

	assert.Equal(t, http.StatusOK, rec.Code)
	var categories []iconstore.CategoryInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &categories))
	require.Len(t, categories, 1)
	assert.Equal(t, 1, categories[0].ConfigCount)
}

func TestListIconImagesEmptyDir(t *testing.T) {
	t.Parallel()
	c := newTestController(t, newMemStore())

	ctx, rec := testContext(c, httptest.NewRequest(http.MethodGet, "/api/v2/icons/images", http.NoBody))
	require.NoError(t, c.ListIconImages(ctx))

	assert.Equal(t, http.StatusOK, rec.Code)
	var images []render.ImageInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &images))
	assert.Empty(t, images)
}

func TestApplyToAll(t *testing.T) {
	t.Parallel()
	c := newTestController(t, newMemStore("CAM-D", "DOME-D", "PTZ-D"))

	req := httptest.NewRequest(http.MethodPost, "/api/v2/icons/apply-to-all",
		bytes.NewBufferString(`{"field_group":"circle","scope":"all","source_subject":"CAM-D"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx, rec := testContext(c, req)
	require.NoError(t, c.ApplyToAll(ctx))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp ApplyToAllResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.UpdatedCount)
}

func TestRenderTest(t *testing.T) {
	t.Parallel()
	c := newTestController(t, newMemStore("CAM-D"))

	req := httptest.NewRequest(http.MethodPost, "/api/v2/icons/CAM-D/render-test",
		bytes.NewBufferString(`{"label":"cam-42"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx, rec := testContext(c, req)
	ctx.SetParamNames("subject")
	ctx.SetParamValues("CAM-D")
	require.NoError(t, c.RenderTest(ctx))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "inline")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestRenderTestUnknownSubject(t *testing.T) {
	t.Parallel()
	c := newTestController(t, newMemStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v2/icons/GHOST/render-test",
		bytes.NewBufferString(`{"label":"x"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx, rec := testContext(c, req)
	ctx.SetParamNames("subject")
	ctx.SetParamValues("GHOST")
	require.NoError(t, c.RenderTest(ctx))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
