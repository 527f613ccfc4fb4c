package payout

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	payoutsvc "github.com/Japan-Automation-Technology/Lifecast-sub000/service/payout"
	"github.com/Japan-Automation-Technology/Lifecast-sub000/util/errs"
)

type ReleaseReq struct {
	AmountMinor int64  `json:"amount_minor" validate:"required,gt=0"`
	Currency    string `json:"currency" validate:"required,len=3"`
	Note        string `json:"note"`
}

type Controller struct {
	Svc payoutsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/projects/:id/payouts
func (h *Controller) Release(c echo.Context) error {
	projectID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || projectID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid project id"})
	}

	var req ReleaseReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	entry, err := h.Svc.Release(c.Request().Context(), projectID, req.AmountMinor, req.Currency, req.Note)
	if err != nil {
		h.Log.Error("payout release", "project_id", projectID, "err", err)
		switch errs.Code(err) {
		case errs.CodeValidation:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{"data": entry})
}
