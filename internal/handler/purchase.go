package handler

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/dmoreira/shoplist/internal/repository"
	"github.com/dmoreira/shoplist/internal/service/priceevo"
)

// PurchaseHandler serves the purchase history. Purchases are immutable
// snapshots, so these endpoints are read only and sit behind the Redis
// response cache.
type PurchaseHandler struct {
	Purchases    *repository.PurchaseRepo
	HistoryLimit int
	Log          *logrus.Logger
}

func NewPurchaseHandler(purchases *repository.PurchaseRepo, historyLimit int, log *logrus.Logger) *PurchaseHandler {
	if purchases == nil {
		panic("nil repository passed to NewPurchaseHandler")
	}
	if historyLimit <= 0 {
		historyLimit = 10
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PurchaseHandler{Purchases: purchases, HistoryLimit: historyLimit, Log: log}
}

// History handles GET /v1/purchases. Optional query parameters:
// list_id restricts to one list, limit caps the page size (bounded by
// the configured maximum). Only purchases of lists the user owns or
// was shared appear.
func (h *PurchaseHandler) History(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var listID *uint64
	if raw := c.QueryParam("list_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid list_id"})
		}
		listID = &id
	}
	limit := h.HistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		if n < limit {
			limit = n
		}
	}

	purchases, err := h.Purchases.ListHistory(c.Request().Context(), userID, listID, limit)
	if err != nil {
		h.Log.WithError(err).WithField("user_id", userID).Error("list purchase history failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"purchases": purchases})
}

// Detail handles GET /v1/purchases/:id. The response carries the line
// snapshots plus, for each product also present in the list's previous
// purchase, how its price moved since then.
func (h *PurchaseHandler) Detail(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	purchaseID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid purchase id"})
	}
	ctx := c.Request().Context()

	det, err := h.Purchases.GetWithLines(ctx, purchaseID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "purchase not found"})
		}
		h.Log.WithError(err).WithField("purchase_id", purchaseID).Error("load purchase failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	var prevLines []priceevo.Line
	prev, err := h.Purchases.GetPrecedingWithLines(ctx, det.ListID, det.FinalizedAt, det.ID)
	switch err {
	case nil:
		prevLines = toEvoLines(prev.Lines)
	case sql.ErrNoRows:
		// first purchase of the list, nothing to compare against
	default:
		h.Log.WithError(err).WithField("purchase_id", purchaseID).Error("load preceding purchase failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	evolution := priceevo.Compare(toEvoLines(det.Lines), prevLines)

	return c.JSON(http.StatusOK, echo.Map{
		"purchase":  det,
		"evolution": evolution,
	})
}

func toEvoLines(lines []repository.LineDetail) []priceevo.Line {
	out := make([]priceevo.Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, priceevo.Line{Name: l.Name, PriceCents: l.PriceCents})
	}
	return out
}
