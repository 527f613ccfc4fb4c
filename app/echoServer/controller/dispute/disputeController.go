package dispute

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	disputesvc "github.com/Japan-Automation-Technology/Lifecast-sub000/service/dispute"
	"github.com/Japan-Automation-Technology/Lifecast-sub000/util/errs"
)

type Controller struct {
	Svc disputesvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// GET /v1/disputes/:providerId
func (h *Controller) Detail(c echo.Context) error {
	providerID := c.Param("providerId")
	if providerID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	d, err := h.Svc.Get(c.Request().Context(), providerID)
	if err != nil {
		if errs.Code(err) == errs.CodeNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "dispute not found"})
		}
		h.Log.Error("dispute detail", "provider_dispute_id", providerID, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": d})
}

// POST /v1/disputes/:id/recovery-attempts
func (h *Controller) RecoveryAttempt(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req RecoveryAttemptReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	if err := h.Svc.RecoveryAttempt(c.Request().Context(), id, req.Action, req.AmountMinor, req.Currency, req.Note); err != nil {
		h.Log.Error("dispute recovery attempt", "dispute_id", id, "err", err)
		switch errs.Code(err) {
		case errs.CodeValidation:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
		case errs.CodeNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "dispute not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "recorded"})
}
