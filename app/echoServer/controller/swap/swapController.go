package swap

import (
	"log/slog"
	"net/http"
	"strconv"

	ss "bookswap/service/swap"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc ss.Service
	V   *validator.Validate
	Log *slog.Logger
}

func (h *Controller) respondErr(c echo.Context, op string, err error) error {
	switch ss.Code(err) {
	case ss.ErrValidation:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	case ss.ErrPermission:
		return c.JSON(http.StatusForbidden, echo.Map{"message": err.Error()})
	case ss.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": err.Error()})
	case ss.ErrConflict:
		return c.JSON(http.StatusConflict, echo.Map{"message": err.Error()})
	case ss.ErrInvariant:
		h.Log.Error("swap settlement aborted", "op", op, "err", err,
			"req_id", c.Response().Header().Get(echo.HeaderXRequestID))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "swap could not be settled"})
	default:
		h.Log.Error("swap "+op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}

func swapID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Create a swap request
// @Summary      Request a swap
// @Tags         swaps
// @Accept       json
// @Produce      json
// @Param        payload  body  CreateSwapReq  true  "Swap payload"
// @Success      201  {object}  map[string]any
// @Failure      400  {object}  map[string]any
// @Failure      409  {object}  map[string]any "book no longer available"
// @Security     BearerAuth
// @Router       /v1/swaps [post]
func (h *Controller) Create(c echo.Context) error {
	var req CreateSwapReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	uid, _ := c.Get("user_id").(int64)

	out, err := h.Svc.Create(c.Request().Context(), uid, req.BookID, req.OfferedBookID, req.Message)
	if err != nil {
		return h.respondErr(c, "create", err)
	}
	return c.JSON(http.StatusCreated, out)
}

// POST /v1/swaps/:id/counter-offer
func (h *Controller) CounterOffer(c echo.Context) error {
	id, ok := swapID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req CounterOfferReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	uid, _ := c.Get("user_id").(int64)

	out, err := h.Svc.CounterOffer(c.Request().Context(), uid, id, req.CounterBookID, req.Message)
	if err != nil {
		return h.respondErr(c, "counter-offer", err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /v1/swaps/:id/accept
func (h *Controller) Accept(c echo.Context) error {
	id, ok := swapID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, _ := c.Get("user_id").(int64)

	out, err := h.Svc.Accept(c.Request().Context(), uid, id)
	if err != nil {
		return h.respondErr(c, "accept", err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /v1/swaps/:id/cancel
func (h *Controller) Cancel(c echo.Context) error {
	id, ok := swapID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, _ := c.Get("user_id").(int64)

	out, err := h.Svc.Cancel(c.Request().Context(), uid, id)
	if err != nil {
		return h.respondErr(c, "cancel", err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /v1/swaps/:id/complete
func (h *Controller) Complete(c echo.Context) error {
	id, ok := swapID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req CompleteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	uid, _ := c.Get("user_id").(int64)

	out, err := h.Svc.Complete(c.Request().Context(), uid, id, req.Rating, req.Feedback)
	if err != nil {
		return h.respondErr(c, "complete", err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /v1/swaps/:id/rating attaches a missing rating to a completed swap.
func (h *Controller) AttachRating(c echo.Context) error {
	id, ok := swapID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req AttachRatingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}
	uid, _ := c.Get("user_id").(int64)

	if err := h.Svc.AttachRating(c.Request().Context(), uid, id, req.Rating, req.Feedback); err != nil {
		return h.respondErr(c, "rating", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "rating recorded"})
}

// GET /v1/swaps/:id
func (h *Controller) Get(c echo.Context) error {
	id, ok := swapID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, _ := c.Get("user_id").(int64)

	out, err := h.Svc.Get(c.Request().Context(), uid, id)
	if err != nil {
		return h.respondErr(c, "get", err)
	}
	return c.JSON(http.StatusOK, out)
}

// GET /v1/swaps/incoming
func (h *Controller) Incoming(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	rows, err := h.Svc.ListIncoming(c.Request().Context(), uid)
	if err != nil {
		return h.respondErr(c, "incoming", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/swaps/outgoing
func (h *Controller) Outgoing(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	rows, err := h.Svc.ListOutgoing(c.Request().Context(), uid)
	if err != nil {
		return h.respondErr(c, "outgoing", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}
