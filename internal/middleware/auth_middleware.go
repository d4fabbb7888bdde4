package middleware

import (
	"strings"

	"github.com/fadilmartias/cv-builder/internal/apperror"
	"github.com/fadilmartias/cv-builder/internal/util"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const userIDKey = "userId"

// Claims are the fields read from tokens issued by the auth provider.
type Claims struct {
	jwt.RegisteredClaims
}

// Auth verifies HS256 bearer tokens. Tokens are issued elsewhere; this
// package only checks them.
type Auth struct {
	secret []byte
	issuer string
}

func NewAuth(secret, issuer string) *Auth {
	return &Auth{secret: []byte(secret), issuer: issuer}
}

// Optional sets the user id when a valid token is present and lets every
// request through. A present but invalid token is still rejected.
func (a *Auth) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return c.Next()
		}
		return a.authenticate(c)
	}
}

// Required rejects requests without a valid token.
func (a *Auth) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return unauthorized(c, "missing Authorization header")
		}
		return a.authenticate(c)
	}
}

func (a *Auth) authenticate(c *fiber.Ctx) error {
	subject, err := a.Verify(bearer(c.Get(fiber.HeaderAuthorization)))
	if err != nil {
		return unauthorized(c, apperror.From(err).Message)
	}
	c.Locals(userIDKey, subject)
	return c.Next()
}

// Verify parses tokenStr and returns its subject.
func (a *Auth) Verify(tokenStr string) (string, error) {
	if tokenStr == "" {
		return "", apperror.New(apperror.CodeUnauthorized, "empty token")
	}
	if len(a.secret) == 0 {
		return "", apperror.New(apperror.CodeUnauthorized, "authentication is not configured")
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil || !token.Valid {
		return "", apperror.New(apperror.CodeUnauthorized, "invalid or expired token")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return "", apperror.New(apperror.CodeUnauthorized, "invalid token claims")
	}
	if a.issuer != "" && claims.Issuer != a.issuer {
		return "", apperror.New(apperror.CodeUnauthorized, "invalid token issuer")
	}
	if claims.Subject == "" {
		return "", apperror.New(apperror.CodeUnauthorized, "token has no subject")
	}
	return claims.Subject, nil
}

// UserID returns the authenticated user id, or "" for guests.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}

// Support both "Bearer <token>" and a bare token.
func bearer(header string) string {
	header = strings.TrimSpace(header)
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return header
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return util.ErrorResponse(c, util.ErrorResponseFormat{
		Code:      fiber.StatusUnauthorized,
		ErrorCode: apperror.CodeUnauthorized,
		Message:   msg,
	})
}
