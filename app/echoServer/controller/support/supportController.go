package support

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	supportsvc "github.com/Japan-Automation-Technology/Lifecast-sub000/service/support"
	"github.com/Japan-Automation-Technology/Lifecast-sub000/util/errs"
)

type Controller struct {
	Svc supportsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/projects/:projectId/plans/:planId/supports
func (h *Controller) Prepare(c echo.Context) error {
	projectID, err := strconv.ParseInt(c.Param("projectId"), 10, 64)
	if err != nil || projectID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid project id"})
	}
	planID, err := strconv.ParseInt(c.Param("planId"), 10, 64)
	if err != nil || planID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid plan id"})
	}

	var req PrepareSupportReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}
	uid, _ := c.Get("user_id").(int64)

	st, err := h.Svc.Prepare(c.Request().Context(), projectID, planID, uid, req.Quantity)
	if err != nil {
		h.Log.Error("support prepare", "err", err)
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"data": st})
}

// POST /v1/supports/:id/confirm
func (h *Controller) Confirm(c echo.Context) error {
	id, err := supportID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	st, err := h.Svc.Confirm(c.Request().Context(), id)
	if err != nil {
		h.Log.Error("support confirm", "id", id, "err", err)
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": st})
}

// POST /v1/supports/:id/cancel
func (h *Controller) Cancel(c echo.Context) error {
	id, err := supportID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	st, err := h.Svc.Cancel(c.Request().Context(), id)
	if err != nil {
		h.Log.Error("support cancel", "id", id, "err", err)
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": st})
}

// GET /v1/supports/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := supportID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	st, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": st})
}

func supportID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.ErrBadRequest
	}
	return id, nil
}

func writeErr(c echo.Context, err error) error {
	switch errs.Code(err) {
	case errs.CodeValidation:
		return c.JSON(http.StatusBadRequest, echo.Map{"code": errs.CodeValidation, "message": err.Error()})
	case errs.CodeNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"code": errs.CodeNotFound, "message": err.Error()})
	case errs.CodeStateConflict:
		return c.JSON(http.StatusConflict, echo.Map{"code": errs.CodeStateConflict, "message": err.Error()})
	case errs.CodeTransientStore:
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"code": errs.CodeTransientStore, "message": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}
