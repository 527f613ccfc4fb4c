package ops

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	opssvc "github.com/Japan-Automation-Technology/Lifecast-sub000/service/ops"
)

type Controller struct {
	Svc *opssvc.Service
	Log *slog.Logger
}

// GET /v1/ops/queues
func (h *Controller) QueueStatus(c echo.Context) error {
	status, err := h.Svc.QueueStatus(c.Request().Context())
	if err != nil {
		h.Log.Error("queue status", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": status})
}
