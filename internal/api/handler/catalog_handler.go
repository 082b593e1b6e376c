package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/orderahead/sync-engine/internal/core/domain"
	"github.com/orderahead/sync-engine/internal/core/ports"
)

// CatalogHandler handles HTTP requests for menu items and categories.
type CatalogHandler struct {
	service ports.CatalogService
}

func NewCatalogHandler(service ports.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// ListItems handles GET /v1/catalog/items.
//
// @Summary      List menu items
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Param        category_id  query     int  false  "Only items of this category"
// @Success      200          {object}  listItemsResponse
// @Router       /v1/catalog/items [get]
func (h *CatalogHandler) ListItems(c echo.Context) error {
	var categoryID int64
	if err := echo.QueryParamsBinder(c).Int64("category_id", &categoryID).BindError(); err != nil {
		return domain.Invalid("category_id", "must be an integer")
	}
	items, err := h.service.ListItems(c.Request().Context(), categoryID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listItemsResponse{Data: items})
}

// CreateItem handles POST /v1/catalog/items.
//
// @Summary      Add a menu item
// @Description  Broadcast to staff and customers as catalog:add.
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      menuItemRequest  true  "Menu item"
// @Success      201   {object}  domain.MenuItem
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /v1/catalog/items [post]
func (h *CatalogHandler) CreateItem(c echo.Context) error {
	in, err := bindMenuItem(c)
	if err != nil {
		return err
	}
	item, err := h.service.CreateItem(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, item)
}

// UpdateItem handles PUT /v1/catalog/items/:id.
//
// @Summary      Replace a menu item
// @Description  Broadcast to staff and customers as catalog:update.
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int              true  "Menu item id"
// @Param        body  body      menuItemRequest  true  "Menu item"
// @Success      200   {object}  domain.MenuItem
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/catalog/items/{id} [put]
func (h *CatalogHandler) UpdateItem(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	in, err := bindMenuItem(c)
	if err != nil {
		return err
	}
	item, err := h.service.UpdateItem(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

// DeleteItem handles DELETE /v1/catalog/items/:id.
//
// @Summary      Remove a menu item
// @Description  Broadcast to staff and customers as catalog:delete.
// @Tags         catalog
// @Security     BearerAuth
// @Param        id  path  int  true  "Menu item id"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /v1/catalog/items/{id} [delete]
func (h *CatalogHandler) DeleteItem(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteItem(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListCategories handles GET /v1/catalog/categories.
//
// @Summary      List categories
// @Tags         catalog
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  listCategoriesResponse
// @Router       /v1/catalog/categories [get]
func (h *CatalogHandler) ListCategories(c echo.Context) error {
	cs, err := h.service.ListCategories(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listCategoriesResponse{Data: cs})
}

// CreateCategory handles POST /v1/catalog/categories.
//
// @Summary      Add a category
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      categoryRequest  true  "Category"
// @Success      201   {object}  domain.Category
// @Failure      400   {object}  errorResponse
// @Router       /v1/catalog/categories [post]
func (h *CatalogHandler) CreateCategory(c echo.Context) error {
	in, err := bindCategory(c)
	if err != nil {
		return err
	}
	cat, err := h.service.CreateCategory(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cat)
}

// UpdateCategory handles PUT /v1/catalog/categories/:id.
//
// @Summary      Replace a category
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int              true  "Category id"
// @Param        body  body      categoryRequest  true  "Category"
// @Success      200   {object}  domain.Category
// @Failure      404   {object}  errorResponse
// @Router       /v1/catalog/categories/{id} [put]
func (h *CatalogHandler) UpdateCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	in, err := bindCategory(c)
	if err != nil {
		return err
	}
	cat, err := h.service.UpdateCategory(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cat)
}

func bindMenuItem(c echo.Context) (ports.MenuItemInput, error) {
	var req menuItemRequest
	if err := c.Bind(&req); err != nil {
		return ports.MenuItemInput{}, fmt.Errorf("%w: invalid payload", domain.ErrValidation)
	}
	if err := c.Validate(&req); err != nil {
		return ports.MenuItemInput{}, err
	}
	return ports.MenuItemInput{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
		Available:   boolOr(req.Available, true),
	}, nil
}

func bindCategory(c echo.Context) (ports.CategoryInput, error) {
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return ports.CategoryInput{}, fmt.Errorf("%w: invalid payload", domain.ErrValidation)
	}
	if err := c.Validate(&req); err != nil {
		return ports.CategoryInput{}, err
	}
	return ports.CategoryInput{Name: req.Name, SortOrder: req.SortOrder, Active: boolOr(req.Active, true)}, nil
}
