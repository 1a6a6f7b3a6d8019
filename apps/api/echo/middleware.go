package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutortrack/core/user"
)

// sessionMiddleware checks that the token's session is still live and loads the user with its current role.
func sessionMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			usr, err := svc.ValidateSession(ctx.Request().Context(), claims.ID, claims.Subject)
			if err != nil {
				switch errors.Cause(err) {
				case user.ErrSessionNotFound, user.ErrNotFound:
					return errSessionEnded
				case user.ErrAccountDeactivated:
					return errAccountDeactivated
				}
				return errors.Wrap(err, "validating session")
			}
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

// roleMiddleware lets through only users whose current role is role.
func roleMiddleware(role user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			if usr.Role != role {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}
