package handler

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dmoreira/shoplist/internal/repository"
)

// ListHandler groups the endpoints for shopping lists and their
// sharing. Only the owner may modify, delete or share a list;
// collaborators see it through their shares.
type ListHandler struct {
	Lists *repository.ListRepo
	Users *repository.UserRepo
}

func NewListHandler(lists *repository.ListRepo, users *repository.UserRepo) *ListHandler {
	if lists == nil || users == nil {
		panic("nil repository passed to NewListHandler")
	}
	return &ListHandler{Lists: lists, Users: users}
}

type listReq struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// Index handles GET /v1/lists: every list the user owns or was shared.
func (h *ListHandler) Index(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	lists, err := h.Lists.ListForUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"lists": lists})
}

// Show handles GET /v1/lists/:id, returning the list with its items.
func (h *ListHandler) Show(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid list id"})
	}
	ctx := c.Request().Context()

	allowed, err := h.Lists.CanAccess(ctx, listID, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !allowed {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "list not found"})
	}
	det, err := h.Lists.GetWithItems(ctx, listID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "list not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, det)
}

// Create handles POST /v1/lists.
func (h *ListHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req listReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	id, err := h.Lists.Create(c.Request().Context(), userID, req.Name, req.Description)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create list failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id, "name": req.Name})
}

// Update handles PUT /v1/lists/:id. Owner only.
func (h *ListHandler) Update(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid list id"})
	}
	var req listReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	ctx := c.Request().Context()

	if err := h.ownerCheck(c, listID, userID); err != nil {
		return respondOwnerErr(c, err)
	}
	if err := h.Lists.Update(ctx, listID, req.Name, req.Description); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update list failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": listID, "name": req.Name})
}

// Delete handles DELETE /v1/lists/:id. The list is soft-deleted so
// finalized purchases keep pointing at a valid row.
func (h *ListHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid list id"})
	}
	if err := h.ownerCheck(c, listID, userID); err != nil {
		return respondOwnerErr(c, err)
	}
	if err := h.Lists.SoftDelete(c.Request().Context(), listID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete list failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

type shareReq struct {
	Username string `json:"username"`
	CanEdit  bool   `json:"can_edit"`
}

// Shares handles GET /v1/lists/:id/shares. Owner only.
func (h *ListHandler) Shares(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid list id"})
	}
	if err := h.ownerCheck(c, listID, userID); err != nil {
		return respondOwnerErr(c, err)
	}
	shares, err := h.Lists.SharesByList(c.Request().Context(), listID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"shares": shares})
}

// AddShare handles POST /v1/lists/:id/shares. Owner only. The target
// user is looked up by username.
func (h *ListHandler) AddShare(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid list id"})
	}
	var req shareReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if req.Username == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username is required"})
	}
	ctx := c.Request().Context()

	if err := h.ownerCheck(c, listID, userID); err != nil {
		return respondOwnerErr(c, err)
	}
	target, err := h.Users.GetByUsername(ctx, req.Username)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if target.ID == userID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot share a list with its owner"})
	}
	if err := h.Lists.AddShare(ctx, listID, target.ID, req.CanEdit); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "list already shared with this user"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "share failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"list_id":  listID,
		"user_id":  target.ID,
		"username": target.Username,
		"can_edit": req.CanEdit,
	})
}

// RemoveShare handles DELETE /v1/lists/:id/shares/:userId. Owner only.
func (h *ListHandler) RemoveShare(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid list id"})
	}
	targetID, ok := pathID(c, "userId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	if err := h.ownerCheck(c, listID, userID); err != nil {
		return respondOwnerErr(c, err)
	}
	if err := h.Lists.RemoveShare(c.Request().Context(), listID, targetID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "share not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unshare failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ownerCheck verifies the user owns the list. A missing list and a
// foreign list both surface as sql.ErrNoRows so responses read as 404
// and do not leak ids.
func (h *ListHandler) ownerCheck(c echo.Context, listID, userID uint64) error {
	owner, err := h.Lists.OwnerID(c.Request().Context(), listID)
	if err != nil {
		return err
	}
	if owner != userID {
		return sql.ErrNoRows
	}
	return nil
}

func respondOwnerErr(c echo.Context, err error) error {
	if err == sql.ErrNoRows {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "list not found"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}
