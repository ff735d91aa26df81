package handler

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dmoreira/shoplist/internal/model"
	"github.com/dmoreira/shoplist/internal/repository"
)

// ItemHandler manages the catalog items of a list. Creation happens
// under the list route; update and delete address the item directly
// and re-resolve its list for the permission check.
type ItemHandler struct {
	Items *repository.ItemRepo
	Lists *repository.ListRepo
}

func NewItemHandler(items *repository.ItemRepo, lists *repository.ListRepo) *ItemHandler {
	if items == nil || lists == nil {
		panic("nil repository passed to NewItemHandler")
	}
	return &ItemHandler{Items: items, Lists: lists}
}

type itemReq struct {
	Name          string  `json:"name"`
	CategoryID    *uint64 `json:"category_id"`
	PriceCents    int64   `json:"price_cents"`
	QuantityMilli int64   `json:"quantity_milli"`
	Position      *int    `json:"position"`
}

func (req *itemReq) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return "name is required"
	}
	if req.PriceCents < 0 {
		return "price_cents cannot be negative"
	}
	if req.QuantityMilli < 0 {
		return "quantity_milli cannot be negative"
	}
	return ""
}

// Create handles POST /v1/lists/:id/items. Requires edit rights on
// the list. A zero quantity defaults to one unit.
func (h *ItemHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid list id"})
	}
	var req itemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	if req.QuantityMilli == 0 {
		req.QuantityMilli = 1000
	}
	ctx := c.Request().Context()

	canEdit, err := h.Lists.CanEdit(ctx, listID, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !canEdit {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "list not found"})
	}

	it := model.Item{
		ListID:        listID,
		Name:          req.Name,
		CategoryID:    req.CategoryID,
		PriceCents:    req.PriceCents,
		QuantityMilli: req.QuantityMilli,
	}
	id, err := h.Items.Create(ctx, &it)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create item failed"})
	}
	it.ID = id
	return c.JSON(http.StatusCreated, echo.Map{
		"id":             it.ID,
		"list_id":        it.ListID,
		"name":           it.Name,
		"category_id":    it.CategoryID,
		"price_cents":    it.PriceCents,
		"quantity_milli": it.QuantityMilli,
		"position":       it.Position,
	})
}

// Update handles PUT /v1/items/:id.
func (h *ItemHandler) Update(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	itemID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}
	var req itemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	if req.QuantityMilli == 0 {
		req.QuantityMilli = 1000
	}
	ctx := c.Request().Context()

	it, err := h.loadEditable(c, itemID, userID)
	if err != nil {
		return respondItemErr(c, err)
	}
	pos := it.Position
	if req.Position != nil {
		pos = *req.Position
	}
	if err := h.Items.Update(ctx, itemID, req.Name, req.CategoryID, req.PriceCents, req.QuantityMilli, pos); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update item failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":             itemID,
		"name":           req.Name,
		"category_id":    req.CategoryID,
		"price_cents":    req.PriceCents,
		"quantity_milli": req.QuantityMilli,
		"position":       pos,
	})
}

// Delete handles DELETE /v1/items/:id. Marks cascade away with the
// item; lines of past purchases are snapshots and stay intact.
func (h *ItemHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	itemID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}
	if _, err := h.loadEditable(c, itemID, userID); err != nil {
		return respondItemErr(c, err)
	}
	if err := h.Items.Delete(c.Request().Context(), itemID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete item failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// loadEditable loads the item and verifies the user may edit its list.
// Both a missing item and a foreign one come back as sql.ErrNoRows.
func (h *ItemHandler) loadEditable(c echo.Context, itemID, userID uint64) (model.Item, error) {
	ctx := c.Request().Context()
	it, err := h.Items.GetByID(ctx, itemID)
	if err != nil {
		return model.Item{}, err
	}
	canEdit, err := h.Lists.CanEdit(ctx, it.ListID, userID)
	if err != nil {
		return model.Item{}, err
	}
	if !canEdit {
		return model.Item{}, sql.ErrNoRows
	}
	return it, nil
}

func respondItemErr(c echo.Context, err error) error {
	if err == sql.ErrNoRows {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "item not found"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}
