package stats

import (
	"log/slog"
	"net/http"
	"strconv"

	statssvc "bookswap/service/stats"

	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc statssvc.Service
	Log *slog.Logger
}

// GET /v1/users/:id/stats
func (h *Controller) ForUser(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	st, err := h.Svc.ForUser(c.Request().Context(), id)
	if err != nil {
		h.Log.Error("user stats error", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, st)
}
