// internal/api/v2/icons.go
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gearmap/gearmap-go/internal/errors"
	"github.com/gearmap/gearmap-go/internal/iconstore"
	"github.com/gearmap/gearmap-go/internal/render"
)

// initIconRoutes registers the icon tuner endpoints.
func (c *Controller) initIconRoutes() {
	c.Group.GET("/icons", c.ListIconConfigs)
	c.Group.GET("/icons/categories", c.ListCategories)
	c.Group.GET("/icons/images", c.ListIconImages)
	c.Group.POST("/icons", c.CreateIconConfig)
	c.Group.POST("/icons/apply-to-all", c.ApplyToAll)
	c.Group.GET("/icons/:subject", c.GetIconConfig)
	c.Group.PATCH("/icons/:subject", c.UpdateIconConfig)
	c.Group.DELETE("/icons/:subject", c.DeleteIconConfig)
	c.Group.POST("/icons/:subject/render-test", c.RenderTest)
}

// recordStoreOp feeds the icon store metrics when they are attached.
func (c *Controller) recordStoreOp(operation string, err error) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.IconStore.RecordOperation(operation, status)
}

// ListIconConfigs returns every stored configuration in subject order.
func (c *Controller) ListIconConfigs(ctx echo.Context) error {
	configs, err := c.Store.List()
	c.recordStoreOp("list", err)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list icon configurations", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, configs)
}

// GetIconConfig returns one configuration by subject.
func (c *Controller) GetIconConfig(ctx echo.Context) error {
	cfg, err := c.Store.Get(ctx.Param("subject"))
	c.recordStoreOp("get", err)
	if err != nil {
		return c.HandleError(ctx, err, "Icon configuration not found", http.StatusNotFound)
	}
	return ctx.JSON(http.StatusOK, cfg)
}

// CreateRequest creates a new subject, optionally cloning the style of an
// existing one.
type CreateRequest struct {
	Subject   string `json:"subject"`
	Category  string `json:"category"`
	CloneFrom string `json:"clone_from,omitempty"`
}

// CreateIconConfig creates a configuration for a new subject.
func (c *Controller) CreateIconConfig(ctx echo.Context) error {
	var req CreateRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	cfg, err := c.Store.Create(req.Subject, req.Category, req.CloneFrom)
	c.recordStoreOp("create", err)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to create icon configuration", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusCreated, cfg)
}

// UpdateIconConfig merges a partial field patch into one configuration.
func (c *Controller) UpdateIconConfig(ctx echo.Context) error {
	var patch iconstore.FieldPatch
	if err := ctx.Bind(&patch); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	cfg, err := c.Store.Update(ctx.Param("subject"), patch)
	c.recordStoreOp("update", err)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to update icon configuration", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, cfg)
}

// DeleteIconConfig removes one configuration. A subject pinned by a running
// conversion cannot be deleted until the conversion finishes.
func (c *Controller) DeleteIconConfig(ctx echo.Context) error {
	err := c.Store.Delete(ctx.Param("subject"))
	c.recordStoreOp("delete", err)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to delete icon configuration", http.StatusInternalServerError)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ListCategories returns the categories with their configuration counts.
func (c *Controller) ListCategories(ctx echo.Context) error {
	categories, err := c.Store.Categories()
	c.recordStoreOp("categories", err)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list categories", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, categories)
}

// ListIconImages returns the PNG inventory of the configured image
// directory, optionally filtered by category subdirectory.
func (c *Controller) ListIconImages(ctx echo.Context) error {
	if c.Renderer == nil {
		return c.HandleError(ctx, errors.Newf("renderer not configured").Build(),
			"Image inventory unavailable", http.StatusServiceUnavailable)
	}
	images, err := c.Renderer.ListImages(ctx.QueryParam("category"))
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list images", http.StatusInternalServerError)
	}
	if images == nil {
		images = []render.ImageInfo{}
	}
	return ctx.JSON(http.StatusOK, images)
}

// ApplyToAllResponse reports how many configurations a propagation wrote.
type ApplyToAllResponse struct {
	UpdatedCount int `json:"updated_count"`
}

// ApplyToAll propagates one field group from a source configuration onto
// every configuration in scope.
func (c *Controller) ApplyToAll(ctx echo.Context) error {
	var req iconstore.ApplyToAllRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	updated, err := c.Store.ApplyToAll(req)
	c.recordStoreOp("apply_to_all", err)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to apply field group", http.StatusInternalServerError)
	}
	if c.metrics != nil {
		c.metrics.IconStore.RecordApplyToAll(updated)
	}
	return ctx.JSON(http.StatusOK, ApplyToAllResponse{UpdatedCount: updated})
}

// RenderTestRequest carries the sample label for a render preview.
type RenderTestRequest struct {
	Label string `json:"label"`
}

// RenderTest renders one subject's icon with a sample label and returns it
// as a single-page PDF for inline preview.
func (c *Controller) RenderTest(ctx echo.Context) error {
	if c.Renderer == nil {
		return c.HandleError(ctx, errors.Newf("renderer not configured").Build(),
			"Render preview unavailable", http.StatusServiceUnavailable)
	}

	var req RenderTestRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	cfg, err := c.Store.Get(ctx.Param("subject"))
	if err != nil {
		return c.HandleError(ctx, err, "Icon configuration not found", http.StatusNotFound)
	}

	doc, err := c.Renderer.RenderDocument(cfg, req.Label)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to render icon", http.StatusInternalServerError)
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, `inline; filename="`+cfg.Subject+`.pdf"`)
	return ctx.Blob(http.StatusOK, "application/pdf", doc)
}
