package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/quillmarket/order-service/internal/domain"
	pkgdto "github.com/quillmarket/order-service/pkg/dto"
	"github.com/quillmarket/order-service/pkg/errs"
	"github.com/quillmarket/order-service/pkg/utils"
)

const actorContextKey = "actor"

// IsLoggedIn validates the bearer token and stores the acting user on the
// request context.
func IsLoggedIn(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return pkgdto.WriteErrorResponse(c, errs.ErrNotLoggedIn, nil)
			}

			userID, role, err := utils.ParseJWTToken(token, jwtSecret)
			if err != nil {
				return pkgdto.WriteErrorResponse(c, errs.ErrNotLoggedIn, nil)
			}

			c.Set(actorContextKey, domain.Actor{ID: userID, Role: role})

			return next(c)
		}
	}
}

func ExtractActor(c echo.Context) domain.Actor {
	actor, ok := c.Get(actorContextKey).(domain.Actor)
	if !ok {
		return domain.Actor{}
	}
	return actor
}
