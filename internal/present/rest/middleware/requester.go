package middleware

import (
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"

	"github.com/parley-chat/parley/internal/domain"
)

var tracer = otel.Tracer("requester")

// IdentifyRequester resolves the caller's address and display name from
// request headers into echo context values. Identity is threaded
// explicitly from here on; nothing below the transport reads ambient
// state.
func IdentifyRequester(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Requester.Middleware.IdentifyRequester")
		defer span.End()

		address := c.Request().Header.Get(domain.RequesterHeader)
		if address != "" {
			c.Set(domain.RequesterIdentityCtxKey, domain.Normalize(address))

			name := c.Request().Header.Get(domain.RequesterNameHeader)
			if name == "" {
				name = address
			}
			c.Set(domain.RequesterNameCtxKey, name)
		}

		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
