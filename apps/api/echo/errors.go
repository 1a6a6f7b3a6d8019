package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutortrack/core"
	"github.com/trezcool/tutortrack/core/flow"
	"github.com/trezcool/tutortrack/core/user"
)

// userErrorStatus returns the status a user sentinel error is reported with, or 0.
func userErrorStatus(err error) int {
	switch err {
	case user.ErrInvalidCredential, user.ErrProfileIncomplete, user.ErrInvalidIDToken, user.ErrEmailExists:
		return http.StatusBadRequest
	case user.ErrAccountNotFound, user.ErrNotFound:
		return http.StatusNotFound
	case user.ErrAccountDeactivated:
		return http.StatusForbidden
	case user.ErrSessionNotFound:
		return http.StatusUnauthorized
	}
	return 0
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = core.TranslateErrors(origErr, translator)
		case *core.ValidationError:
			if origErr.Fields != nil {
				message = origErr.FieldMap()
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *flow.Error:
			code = http.StatusBadGateway
			message = origErr.Message
		default:
			if status := userErrorStatus(origErr); status != 0 {
				code = status
				message = origErr.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var uid string
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				uid = claims.Subject
			}
			logger.Error(msg, errors.Wrap(err, msg), uid)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			body := echo.Map{"error": m}
			// unauthenticated or wrong-portal clients are sent back to the landing page
			if code == http.StatusUnauthorized || code == http.StatusForbidden {
				body["redirect"] = "/"
			}
			message = body
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
