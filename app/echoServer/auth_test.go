package echoServer_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Japan-Automation-Technology/Lifecast-sub000/app/echoServer"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	jwtutil "github.com/Japan-Automation-Technology/Lifecast-sub000/util/jwt"
)

const testSecret = "test-secret"

func newOperatorApp() *echo.Echo {
	e := echo.New()
	g := e.Group("/v1", echoServer.OperatorAuth(testSecret))
	g.GET("/ops/queues", func(c echo.Context) error {
		uid, _ := c.Get("operator_id").(int64)
		return c.JSON(http.StatusOK, echo.Map{"operator_id": uid})
	})
	return e
}

func getQueues(e *echo.Echo, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/ops/queues", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestOperatorAuthAcceptsOperatorToken(t *testing.T) {
	e := newOperatorApp()
	token, err := jwtutil.Issue(testSecret, 9, "operator", 1)
	require.NoError(t, err)

	rec := getQueues(e, "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"operator_id":9`)
}

func TestOperatorAuthRejectsSupporterRole(t *testing.T) {
	e := newOperatorApp()
	token, err := jwtutil.Issue(testSecret, 9, "supporter", 1)
	require.NoError(t, err)

	rec := getQueues(e, "Bearer "+token)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOperatorAuthRejectsGarbage(t *testing.T) {
	e := newOperatorApp()

	require.Equal(t, http.StatusUnauthorized, getQueues(e, "").Code)
	require.Equal(t, http.StatusUnauthorized, getQueues(e, "Bearer not-a-token").Code)
}

func TestOperatorAuthRejectsWrongSecret(t *testing.T) {
	e := newOperatorApp()
	token, err := jwtutil.Issue("another-secret", 9, "operator", 1)
	require.NoError(t, err)

	rec := getQueues(e, "Bearer "+token)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
