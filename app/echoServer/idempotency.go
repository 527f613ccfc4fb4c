package echoServer

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/model"
	idemstore "github.com/Japan-Automation-Technology/Lifecast-sub000/repository/idempotency"
)

const idempotencyHeader = "Idempotency-Key"

// Idempotency replays the cached first response for a repeated
// (route, key, payload) and rejects key reuse with a different payload.
// Requests without the header pass through untouched.
func Idempotency(store idemstore.Store, ttl time.Duration, log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Request().Header.Get(idempotencyHeader)
			if key == "" {
				return next(c)
			}

			body, err := io.ReadAll(c.Request().Body)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
			}
			c.Request().Body = io.NopCloser(bytes.NewReader(body))

			// routeKey is the route pattern; the fingerprint hashes the
			// concrete URL so path params distinguish payloads too.
			routeKey := c.Request().Method + " " + c.Path()
			fp := fingerprint(c.Request().Method, c.Request().URL.Path, body)

			rec, err := store.Lookup(c.Request().Context(), routeKey, key)
			if err != nil {
				log.Error("idempotency lookup failed", "route", routeKey, "err", err)
				return c.JSON(http.StatusServiceUnavailable, echo.Map{
					"code":    "TRANSIENT_STORE_FAILURE",
					"message": "idempotency store unavailable",
				})
			}
			if rec != nil {
				if rec.Fingerprint != fp {
					return c.JSON(http.StatusConflict, echo.Map{
						"code":    "STATE_CONFLICT",
						"message": "idempotency key reused with a different payload",
					})
				}
				log.Info("idempotent replay", "route", routeKey, "key", key)
				return c.JSONBlob(rec.StatusCode, rec.Body)
			}

			buf := &bodyCapture{ResponseWriter: c.Response().Writer}
			c.Response().Writer = buf

			if err := next(c); err != nil {
				return err
			}

			status := c.Response().Status
			if status >= 200 && status < 300 {
				saveErr := store.Save(c.Request().Context(), &model.IdempotencyRecord{
					RouteKey:    routeKey,
					Key:         key,
					Fingerprint: fp,
					StatusCode:  status,
					Body:        buf.body.Bytes(),
					CreatedAt:   time.Now().UTC(),
					ExpiresAt:   time.Now().UTC().Add(ttl),
				})
				if saveErr != nil {
					// the operation already committed; losing the cache entry
					// only costs replay protection for this key
					log.Error("idempotency save failed", "route", routeKey, "key", key, "err", saveErr)
				}
			}
			return nil
		}
	}
}

func fingerprint(method, path string, body []byte) string {
	h := sha256.New()
	io.WriteString(h, method)
	io.WriteString(h, "|")
	io.WriteString(h, path)
	io.WriteString(h, "|")
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type bodyCapture struct {
	http.ResponseWriter
	body bytes.Buffer
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}
