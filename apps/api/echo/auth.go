package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/collab"
)

var (
	// appJWTConfig is the default JWT auth middleware config. Tokens are also
	// accepted via the `token` query param: browsers cannot set headers on a
	// websocket upgrade request.
	appJWTConfig = middleware.JWTConfig{
		SigningKey:    []byte(core.Conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "userToken",
		TokenLookup:   "header:" + echo.HeaderAuthorization + ",query:token",
		Claims:        new(Claims),
	}
)

// Claims represents the authorization claims transmitted via a JWT. Identity
// is issued by the platform's auth service; this API only verifies and reads
// it.
type Claims struct {
	jwt.StandardClaims
	Name  string `json:"name,omitempty"`
	Image string `json:"image,omitempty"`
	Email string `json:"email,omitempty"`
}

// GetIdentityClaims builds the claims the platform issues for a user; kept
// here for tests and tooling.
func GetIdentityClaims(identity collab.Identity) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   identity.ID,
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:  identity.Name,
		Image: identity.Image,
		Email: identity.Email,
	}
}

// GenerateToken signs claims into a compact JWT.
func GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(core.Conf.SecretKey))
}

// contextIdentity snapshots the authenticated user's identity from the
// request's verified claims.
func contextIdentity(ctx echo.Context) (collab.Identity, error) {
	token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token)
	if !ok {
		return collab.Identity{}, errUnauthorized
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return collab.Identity{}, errUnauthorized
	}
	return collab.Identity{
		ID:    claims.Subject,
		Name:  claims.Name,
		Image: claims.Image,
		Email: claims.Email,
	}, nil
}
