package echoapi

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/matricula/core"
	"github.com/trezcool/matricula/core/user"
)

const (
	contextClaimsKey = "userClaims"
	contextUserKey   = "user"
	tokenQueryParam  = "token"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	ID           string `json:"id"`
	Username     string `json:"username"`
	Role         string `json:"role"`
}

type authenticator struct {
	appName       string
	secretKey     []byte
	expiration    time.Duration
	refreshExpiry time.Duration
	svc           *user.Service
}

func newAuthenticator(conf *core.Config, svc *user.Service) *authenticator {
	return &authenticator{
		appName:       conf.AppName,
		secretKey:     []byte(conf.SecretKey),
		expiration:    conf.Server.JWTExpirationDelta,
		refreshExpiry: conf.Server.JWTRefreshExpirationDelta,
		svc:           svc,
	}
}

func (a *authenticator) claimsFor(usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	oriat := now.Unix()
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.appName,
			Subject:   usr.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(a.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrigIssuedAt: oriat,
		ID:           usr.ID,
		Username:     usr.Username,
		Role:         usr.Role,
	}
}

// GenerateToken signs claims with HS256.
func (a *authenticator) GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(a.secretKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (a *authenticator) parseToken(raw string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, echo.NewHTTPError(errInvalidToken.Code, errInvalidToken.Message).SetInternal(err)
	}
	return claims, nil
}

// authenticate checks credentials and returns claims for an active user.
func (a *authenticator) authenticate(ctx echo.Context, uname, pwd string) (*Claims, error) {
	reqCtx := ctx.Request().Context()
	usr, err := a.svc.GetByUsernameOrEmail(reqCtx, uname)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	if !usr.IsActive {
		return nil, errAccountDeactivated
	}
	if usr, err = a.svc.SetLastLogin(reqCtx, usr); err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}
	return a.claimsFor(usr), nil
}

// refresh issues a new token for the context user while the original login is recent enough.
func (a *authenticator) refresh(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return "", err
	}

	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.refreshExpiry)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}
	return a.GenerateToken(a.claimsFor(usr, claims.OrigIssuedAt))
}

// middleware authenticates the bearer token and loads the principal user.
func (a *authenticator) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
		const prefix = "Bearer "
		if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
			return errMissingToken
		}
		if err := a.loadPrincipal(ctx, auth[len(prefix):]); err != nil {
			return err
		}
		return next(ctx)
	}
}

// queryTokenMiddleware authenticates the `token` query parameter.
func (a *authenticator) queryTokenMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		raw := ctx.QueryParam(tokenQueryParam)
		if raw == "" {
			return errMissingToken
		}
		if err := a.loadPrincipal(ctx, raw); err != nil {
			return err
		}
		return next(ctx)
	}
}

func (a *authenticator) loadPrincipal(ctx echo.Context, raw string) error {
	claims, err := a.parseToken(raw)
	if err != nil {
		return err
	}
	usr, err := a.svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if core.IsNotFound(err) {
			return errInvalidToken
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return errAccountDeactivated
	}
	ctx.Set(contextClaimsKey, *claims)
	ctx.Set(contextUserKey, usr)
	return nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(Claims); ok {
		return claims, nil
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}

// IssueToken returns a fresh token for usr.
func (s *Server) IssueToken(usr user.User) (string, error) {
	return s.auth.GenerateToken(s.auth.claimsFor(usr))
}
