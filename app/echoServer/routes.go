package echoServer

import (
	"net/http"

	disputectrl "github.com/Japan-Automation-Technology/Lifecast-sub000/app/echoServer/controller/dispute"
	journalctrl "github.com/Japan-Automation-Technology/Lifecast-sub000/app/echoServer/controller/journal"
	opsctrl "github.com/Japan-Automation-Technology/Lifecast-sub000/app/echoServer/controller/ops"
	payoutctrl "github.com/Japan-Automation-Technology/Lifecast-sub000/app/echoServer/controller/payout"
	supportctrl "github.com/Japan-Automation-Technology/Lifecast-sub000/app/echoServer/controller/support"
	webhookctrl "github.com/Japan-Automation-Technology/Lifecast-sub000/app/echoServer/controller/webhook"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

type C struct {
	Support *supportctrl.Controller
	Webhook *webhookctrl.Controller
	Journal *journalctrl.Controller
	Dispute *disputectrl.Controller
	Payout  *payoutctrl.Controller
	Ops     *opsctrl.Controller

	// IdempotencyMW guards the supporter write routes. nil disables replay
	// protection entirely rather than approximating it.
	IdempotencyMW echo.MiddlewareFunc

	JWTSecret string
}

// Register wires the route table. Controllers left nil are skipped, which is
// how transient mode exposes only the support surface.
func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/v1")
	pub.POST("/payment/webhook", c.Webhook.Handle)

	// Supporter
	auth := e.Group("/v1")
	auth.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(c.JWTSecret),

		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization",
	}))
	auth.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			tokenObj := ctx.Get("user")
			tok, ok := tokenObj.(*jwt.Token)
			if !ok || tok == nil {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			sub, ok := claims["sub"].(float64)
			if !ok {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			ctx.Set("user_id", int64(sub))
			return next(ctx)
		}
	})

	idem := c.IdempotencyMW
	if idem == nil {
		idem = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	auth.POST("/projects/:projectId/plans/:planId/supports", c.Support.Prepare, idem)
	auth.POST("/supports/:id/confirm", c.Support.Confirm, idem)
	auth.POST("/supports/:id/cancel", c.Support.Cancel, idem)
	auth.GET("/supports/:id", c.Support.Detail)

	// Operator
	op := e.Group("/v1", OperatorAuth(c.JWTSecret))
	if c.Journal != nil {
		op.GET("/journal/entries", c.Journal.List)
	}
	if c.Dispute != nil {
		op.GET("/disputes/:providerId", c.Dispute.Detail)
		op.POST("/disputes/:id/recovery-attempts", c.Dispute.RecoveryAttempt)
	}
	if c.Payout != nil {
		op.POST("/projects/:id/payouts", c.Payout.Release, idem)
	}
	if c.Ops != nil {
		op.GET("/ops/queues", c.Ops.QueueStatus)
	}
}
