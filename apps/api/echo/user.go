package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutortrack/core"
	"github.com/trezcool/tutortrack/core/dashboard"
	"github.com/trezcool/tutortrack/core/user"
)

const passwordResetSentMsg = "If an account exists for this email, a password reset link has been sent."

type (
	userApi struct {
		conf     *core.Config
		svc      user.Service
		validate *validator.Validate
	}

	// AuthResponse is returned on every successful sign-in.
	AuthResponse struct {
		Token    string    `json:"token"`
		User     user.User `json:"user"`
		Redirect string    `json:"redirect"`
	}

	guestRequest struct {
		Role user.Role `json:"role" validate:"required,role"`
	}
)

func registerUserAPI(
	g *echo.Group,
	authed []echo.MiddlewareFunc,
	conf *core.Config,
	svc user.Service,
	validate *validator.Validate,
) {
	api := userApi{
		conf:     conf,
		svc:      svc,
		validate: validate,
	}

	g.GET("/roles", api.roles)

	// un-authed endpoints
	// TODO: rate limit `/auth/signin`, `/auth/password-reset` & `/auth/password-reset-confirm`
	ag := g.Group("/auth")
	ag.POST("/signup", api.signUp)
	ag.POST("/signin", api.signIn)
	ag.POST("/federated", api.signInFederated)
	ag.POST("/guest", api.startGuest)
	ag.POST("/password-reset", api.resetPassword)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)
	ag.POST("/verify-email", api.verifyEmail)

	// authed endpoints
	ag.POST("/token-refresh", api.refreshToken, authed...)
	ag.POST("/logout", api.logout, authed...)
	ag.POST("/verify-email/resend", api.resendVerification, authed...)

	ug := g.Group("", authed...)
	ug.GET("/users/me", api.me)
	ug.PUT("/users/me/role", api.setRole)
	ug.GET("/navigation", api.navigation)
}

// Handlers

func (api *userApi) roles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func (api *userApi) signUp(ctx echo.Context) error {
	var data user.SignUpRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SignUpRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	// a signed-in guest upgrades their account instead of creating a new one
	if guest, ok := optionalUser(ctx, api.conf, api.svc); ok && guest.IsAnonymous {
		data.GuestID = guest.ID
	}

	usr, sess, err := api.svc.SignUp(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return api.authResponse(ctx, http.StatusCreated, usr, sess)
}

func (api *userApi) signIn(ctx echo.Context) error {
	var data user.SignInRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SignInRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, sess, err := api.svc.SignIn(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return api.authResponse(ctx, http.StatusOK, usr, sess)
}

func (api *userApi) signInFederated(ctx echo.Context) error {
	var data user.FederatedSignInRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FederatedSignInRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, sess, err := api.svc.SignInFederated(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return api.authResponse(ctx, http.StatusOK, usr, sess)
}

func (api *userApi) startGuest(ctx echo.Context) error {
	var data guestRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to guestRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	usr, sess, err := api.svc.StartGuest(ctx.Request().Context(), data.Role)
	if err != nil {
		return err
	}
	return api.authResponse(ctx, http.StatusCreated, usr, sess)
}

func (api *userApi) resetPassword(ctx echo.Context) error {
	var data user.PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	// unknown emails get the same answer
	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil &&
		errors.Cause(err) != user.ErrNotFound {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": passwordResetSentMsg})
}

func (api *userApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetPasswordRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPasswordRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusOK)
}

func (api *userApi) verifyEmail(ctx echo.Context) error {
	var data user.VerifyEmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyEmailRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.VerifyEmail(ctx.Request().Context(), data); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusOK)
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.conf)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"token": token})
}

func (api *userApi) logout(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Logout(ctx.Request().Context(), claims.ID); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"redirect": "/"})
}

func (api *userApi) resendVerification(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.SendVerification(ctx.Request().Context(), usr.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusOK)
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

// setRole writes the role document and returns a token carrying the new role.
func (api *userApi) setRole(ctx echo.Context) error {
	var data user.SetRoleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetRoleRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	usr, err := api.svc.SetRole(ctx.Request().Context(), claims.Subject, data.Role)
	if err != nil {
		return err
	}
	token, err := issueToken(api.conf, usr, claims.ID, claims.OrigIssuedAt)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, AuthResponse{Token: token, User: usr, Redirect: dashboard.HomePath(usr.Role)})
}

func (api *userApi) navigation(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dashboard.Navigation(usr.Role))
}

// Helpers

func (api *userApi) authResponse(ctx echo.Context, code int, usr user.User, sess user.Session) error {
	token, err := issueToken(api.conf, usr, sess.ID)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(code, AuthResponse{Token: token, User: usr, Redirect: dashboard.HomePath(usr.Role)})
}
