package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutortrack/core"
	"github.com/trezcool/tutortrack/core/user"
)

const (
	contextClaimsKey = "claims"
	contextUserKey   = "user"
	tokenQueryParam  = "token" // browsers cannot set headers on websocket upgrades
)

var signingMethod = jwt.SigningMethodHS256

// Claims represents the authorization claims transmitted via a JWT.
// The registered `jti` claim holds the server-side session id.
type Claims struct {
	jwt.RegisteredClaims
	OrigIssuedAt int64     `json:"oriat,omitempty"`
	Role         user.Role `json:"role,omitempty"`
	IsStudent    bool      `json:"is_student,omitempty"` // -> STUDENT PORTAL
	IsTeacher    bool      `json:"is_teacher,omitempty"` // -> TEACHER PORTAL
	IsAnonymous  bool      `json:"is_anonymous,omitempty"`
}

// NewClaims returns the claims of usr's session sid. origIat carries the original issue time over refreshes.
func NewClaims(conf *core.Config, usr user.User, sid string, origIat ...int64) *Claims {
	now := time.Now()
	oriat := now.Unix()
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			ID:        sid,
			ExpiresAt: jwt.NewNumericDate(now.Add(conf.Server.JWTExpirationDelta)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrigIssuedAt: oriat,
		Role:         usr.Role,
		IsStudent:    usr.IsStudent(),
		IsTeacher:    usr.IsTeacher(),
		IsAnonymous:  usr.IsAnonymous,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(signingMethod, claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func parseToken(conf *core.Config, raw string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != signingMethod.Alg() {
			return nil, errors.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(conf.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	return claims, nil
}

func bearerToken(ctx echo.Context) string {
	auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
	if scheme := "Bearer "; len(auth) > len(scheme) && strings.EqualFold(auth[:len(scheme)], scheme) {
		return auth[len(scheme):]
	}
	return ""
}

func bearerOrQueryToken(ctx echo.Context) string {
	if raw := bearerToken(ctx); raw != "" {
		return raw
	}
	return ctx.QueryParam(tokenQueryParam)
}

// jwtMiddleware authenticates the request's bearer token and stores its Claims in the context.
func jwtMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return newJWTMiddleware(conf, bearerToken)
}

// websocketJWTMiddleware is jwtMiddleware for websocket upgrades: the token may also come from the query string.
func websocketJWTMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return newJWTMiddleware(conf, bearerOrQueryToken)
}

func newJWTMiddleware(conf *core.Config, extract func(echo.Context) string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			raw := extract(ctx)
			if raw == "" {
				return errMissingToken
			}
			claims, err := parseToken(conf, raw)
			if err != nil {
				return err
			}
			ctx.Set(contextClaimsKey, claims)
			return next(ctx)
		}
	}
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*Claims); ok {
		return *claims, nil
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}

// optionalUser returns the signed-in user of a request that may or may not carry a token.
func optionalUser(ctx echo.Context, conf *core.Config, svc user.Service) (user.User, bool) {
	raw := bearerToken(ctx)
	if raw == "" {
		return user.User{}, false
	}
	claims, err := parseToken(conf, raw)
	if err != nil {
		return user.User{}, false
	}
	usr, err := svc.ValidateSession(ctx.Request().Context(), claims.ID, claims.Subject)
	return usr, err == nil
}

func issueToken(conf *core.Config, usr user.User, sid string, origIat ...int64) (string, error) {
	return GenerateToken(conf, NewClaims(conf, usr, sid, origIat...))
}

func refreshToken(ctx echo.Context, conf *core.Config) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return "", err
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := issueToken(conf, usr, claims.ID, claims.OrigIssuedAt)
	return token, errors.Wrap(err, "generating token")
}

var (
	errMissingToken       = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed jwt")
	errInvalidToken       = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired jwt")
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errSessionEnded       = echo.NewHTTPError(http.StatusUnauthorized, "session has ended, please sign in again")
	errAccountDeactivated = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired     = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden      = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)
