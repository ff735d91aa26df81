package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/dmoreira/shoplist/internal/queue"
	"github.com/dmoreira/shoplist/internal/repository"
	queue_publisher "github.com/dmoreira/shoplist/internal/service"
)

// MarkingHandler drives a shopping trip: reading the current marks,
// toggling them while walking the aisles, and finalizing the session
// into an immutable purchase. All methods assume JWT authentication
// has already run. Finalization executes inside a single transaction
// so a purchase is either fully recorded or not at all.
type MarkingHandler struct {
	Sessions  *repository.SessionRepo
	Marks     *repository.MarkRepo
	Lists     *repository.ListRepo
	Items     *repository.ItemRepo
	Purchases *repository.PurchaseRepo
	Users     *repository.UserRepo
	Log       *logrus.Logger
}

func NewMarkingHandler(sessions *repository.SessionRepo, marks *repository.MarkRepo, lists *repository.ListRepo, items *repository.ItemRepo, purchases *repository.PurchaseRepo, users *repository.UserRepo, log *logrus.Logger) *MarkingHandler {
	if sessions == nil || marks == nil || lists == nil || items == nil || purchases == nil || users == nil {
		panic("nil repository passed to NewMarkingHandler")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &MarkingHandler{Sessions: sessions, Marks: marks, Lists: lists, Items: items, Purchases: purchases, Users: users, Log: log}
}

// GetMarks handles GET /v1/lists/:id/marks. It returns the active
// session id and the mark state per item id. Clients poll this while
// several people shop the same list.
func (h *MarkingHandler) GetMarks(c echo.Context) error {
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
		h.Log.WithError(err).WithField("list_id", listID).Error("access check failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !allowed {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	sess, err := h.Sessions.GetOrCreateActive(ctx, listID)
	if err != nil {
		h.Log.WithError(err).WithField("list_id", listID).Error("get or create session failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	marks, err := h.Marks.MarkedStates(ctx, sess.ID)
	if err != nil {
		h.Log.WithError(err).WithField("session_id", sess.ID).Error("load marks failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"session_id": sess.ID,
		"marks":      marks,
	})
}

type toggleReq struct {
	ItemID uint64 `json:"item_id"`
	Marked bool   `json:"marked"`
}

// ToggleMark handles POST /v1/lists/:id/marks/toggle. Marking is a
// collaborative action: read access to the list is enough, edit rights
// are not required. Concurrent toggles of the same item resolve as
// last write wins.
func (h *MarkingHandler) ToggleMark(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	listID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid list id"})
	}
	var req toggleReq
	if err := c.Bind(&req); err != nil || req.ItemID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "item_id is required"})
	}
	ctx := c.Request().Context()

	allowed, err := h.Lists.CanAccess(ctx, listID, userID)
	if err != nil {
		h.Log.WithError(err).WithField("list_id", listID).Error("access check failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !allowed {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	// The item must belong to the list being shopped.
	it, err := h.Items.GetByID(ctx, req.ItemID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "item not found"})
		}
		h.Log.WithError(err).WithField("item_id", req.ItemID).Error("load item failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if it.ListID != listID {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "item not found"})
	}

	sess, err := h.Sessions.GetOrCreateActive(ctx, listID)
	if err != nil {
		h.Log.WithError(err).WithField("list_id", listID).Error("get or create session failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := h.Marks.Toggle(ctx, sess.ID, req.ItemID, userID, req.Marked); err != nil {
		h.Log.WithError(err).WithFields(logrus.Fields{
			"session_id": sess.ID,
			"item_id":    req.ItemID,
		}).Error("toggle mark failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "toggle failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"session_id": sess.ID,
		"item_id":    req.ItemID,
		"marked":     req.Marked,
	})
}

// Finalize handles POST /v1/lists/:id/finalize. It snapshots every
// marked item into an immutable purchase, clears the marks and closes
// the session, all in one transaction. A session with no marked items
// is rejected and left untouched.
func (h *MarkingHandler) Finalize(c echo.Context) error {
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
		h.Log.WithError(err).WithField("list_id", listID).Error("access check failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if !allowed {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	tx, err := h.Lists.DB().BeginTx(ctx, nil)
	if err != nil {
		h.Log.WithError(err).Error("begin transaction failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	sess, err := h.Sessions.GetOrCreateActiveTx(ctx, tx, listID)
	if err != nil {
		h.Log.WithError(err).WithField("list_id", listID).Error("resolve session failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	marked, err := h.Marks.MarkedItemsTx(ctx, tx, sess.ID)
	if err != nil {
		h.Log.WithError(err).WithField("session_id", sess.ID).Error("load marked items failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if len(marked) == 0 {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": repository.ErrNothingMarked.Error()})
	}

	totalCents, totalItems := repository.ComputeTotals(marked)
	purchase := repository.PurchaseRecord{
		ListID:     listID,
		TotalCents: totalCents,
		TotalItems: totalItems,
	}
	if err := h.Purchases.CreateTx(ctx, tx, &purchase); err != nil {
		h.Log.WithError(err).WithField("list_id", listID).Error("insert purchase failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "finalize failed"})
	}

	lines := make([]repository.PurchaseLineRecord, 0, len(marked))
	for _, m := range marked {
		lines = append(lines, repository.PurchaseLineRecord{
			PurchaseID:    purchase.ID,
			Name:          m.Name,
			CategoryLabel: m.CategoryLabel,
			PriceCents:    m.PriceCents,
			QuantityMilli: m.QuantityMilli,
			SubtotalCents: repository.Subtotal(m.PriceCents, m.QuantityMilli),
		})
	}
	if err := h.Purchases.CreateLinesBulkTx(ctx, tx, lines); err != nil {
		h.Log.WithError(err).WithField("purchase_id", purchase.ID).Error("insert purchase lines failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "finalize failed"})
	}
	if err := h.Marks.DeleteBySessionTx(ctx, tx, sess.ID); err != nil {
		h.Log.WithError(err).WithField("session_id", sess.ID).Error("clear marks failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "finalize failed"})
	}
	if err := h.Sessions.DeactivateTx(ctx, tx, sess.ID); err != nil {
		h.Log.WithError(err).WithField("session_id", sess.ID).Error("close session failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "finalize failed"})
	}
	if err := tx.Commit(); err != nil {
		h.Log.WithError(err).Error("commit failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	h.Log.WithFields(logrus.Fields{
		"purchase_id": purchase.ID,
		"list_id":     listID,
		"user_id":     userID,
		"total_cents": totalCents,
		"total_items": totalItems,
	}).Info("purchase finalized")

	go h.publishFinalized(purchase, userID)

	return c.JSON(http.StatusCreated, echo.Map{
		"purchase_id":  purchase.ID,
		"list_id":      listID,
		"total_cents":  totalCents,
		"total_items":  totalItems,
		"finalized_at": purchase.FinalizedAt.Format(time.RFC3339),
	})
}

// publishFinalized emits the broker event after commit. Failures are
// logged only; the purchase is already durable.
func (h *MarkingHandler) publishFinalized(p repository.PurchaseRecord, userID uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ev := queue.PurchaseFinalizedEvent{
		PurchaseID:  p.ID,
		ListID:      p.ListID,
		UserID:      userID,
		TotalCents:  p.TotalCents,
		TotalItems:  p.TotalItems,
		FinalizedAt: p.FinalizedAt.UTC().Format(time.RFC3339),
	}
	if det, err := h.Lists.GetWithItems(ctx, p.ListID, userID); err == nil {
		ev.ListName = det.Name
	}
	if u, err := h.Users.GetByID(ctx, userID); err == nil {
		ev.Username = u.Username
	}
	if err := queue_publisher.PublishPurchaseFinalized(ctx, ev); err != nil {
		h.Log.WithError(err).WithField("purchase_id", p.ID).Warn("publish purchase event failed")
	}
}
