package webhook

import (
	"crypto/subtle"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	webhooksvc "github.com/Japan-Automation-Technology/Lifecast-sub000/service/webhook"
	"github.com/Japan-Automation-Technology/Lifecast-sub000/util/errs"
)

type Controller struct {
	Svc           webhooksvc.Service
	CallbackToken string
	Log           *slog.Logger
}

// POST /v1/payment/webhook
//
// The provider always gets a 2xx for events we processed, deduplicated or
// chose to ignore; only verification failures and transient errors make it
// redeliver.
func (h *Controller) Handle(c echo.Context) error {
	sig := c.Request().Header.Get("X-Callback-Token")
	if h.CallbackToken != "" && subtle.ConstantTimeCompare([]byte(sig), []byte(h.CallbackToken)) != 1 {
		h.Log.Warn("webhook rejected: bad callback token", "ip", c.RealIP())
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid callback token"})
	}
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}

	res, err := h.Svc.Handle(c.Request().Context(), raw)
	if err != nil {
		h.Log.Error("webhook handling failed", "err", err)
		switch errs.Code(err) {
		case errs.CodeValidation:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "malformed event"})
		case errs.CodeNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "unknown resource"})
		case errs.CodeStateConflict:
			return c.JSON(http.StatusConflict, echo.Map{"message": "event conflicts with current state"})
		case errs.CodeTransientStore:
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"message": "durable store unavailable, retry later"})
		default:
			// 5xx so the provider retries
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": res.ProviderEventID, "outcome": res.Outcome})
}
