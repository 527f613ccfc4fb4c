package journal

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
	journalsvc "github.com/Japan-Automation-Technology/Lifecast-sub000/service/journal"
)

type Controller struct {
	Svc journalsvc.Engine
	Log *slog.Logger
}

// GET /v1/journal/entries?project_id=&support_id=&limit=
func (h *Controller) List(c echo.Context) error {
	var f model.JournalFilter

	if s := c.QueryParam("project_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid project_id"})
		}
		f.ProjectID = &id
	}
	if s := c.QueryParam("support_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid support_id"})
		}
		f.SupportID = &id
	}
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid limit"})
		}
		f.Limit = n
	}

	rows, err := h.Svc.List(c.Request().Context(), f)
	if err != nil {
		h.Log.Error("journal list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}
