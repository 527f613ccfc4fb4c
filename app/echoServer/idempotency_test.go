package echoServer_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/app/echoServer"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	idemstore "github.com/Japan-Automation-Technology/Lifecast-sub000/repository/idempotency"
)

func newApp(store idemstore.Store, calls *int) *echo.Echo {
	e := echo.New()
	mw := echoServer.Idempotency(store, time.Hour, slog.Default())
	e.POST("/v1/supports", func(c echo.Context) error {
		*calls++
		return c.JSON(http.StatusCreated, echo.Map{"support_id": *calls})
	}, mw)
	return e
}

func post(e *echo.Echo, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/supports", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestReplaySameKeySamePayload(t *testing.T) {
	var calls int
	e := newApp(idemstore.NewMemory(), &calls)

	first := post(e, "key-1", `{"plan_id":1}`)
	require.Equal(t, http.StatusCreated, first.Code)

	second := post(e, "key-1", `{"plan_id":1}`)
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, 1, calls, "handler must run once")
	require.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestSameKeyDifferentPayloadConflicts(t *testing.T) {
	var calls int
	e := newApp(idemstore.NewMemory(), &calls)

	require.Equal(t, http.StatusCreated, post(e, "key-1", `{"plan_id":1}`).Code)

	rec := post(e, "key-1", `{"plan_id":2}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "STATE_CONFLICT")
	require.Equal(t, 1, calls)
}

func TestMissingKeyPassesThrough(t *testing.T) {
	var calls int
	e := newApp(idemstore.NewMemory(), &calls)

	require.Equal(t, http.StatusCreated, post(e, "", `{"plan_id":1}`).Code)
	require.Equal(t, http.StatusCreated, post(e, "", `{"plan_id":1}`).Code)
	require.Equal(t, 2, calls)
}

func TestDifferentKeysAreIndependent(t *testing.T) {
	var calls int
	e := newApp(idemstore.NewMemory(), &calls)

	require.Equal(t, http.StatusCreated, post(e, "key-1", `{"plan_id":1}`).Code)
	require.Equal(t, http.StatusCreated, post(e, "key-2", `{"plan_id":1}`).Code)
	require.Equal(t, 2, calls)
}
