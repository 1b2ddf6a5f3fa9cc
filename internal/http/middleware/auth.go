package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// UserIDLocalKey is the key used to store the authenticated user ID in
// Fiber's context locals.
const UserIDLocalKey = "user_id"

// Auth validates the Bearer token on each request and stores the subject
// claim in locals under UserIDLocalKey. Tokens are HS256-signed with the
// given secret; anything else is a 401.
func Auth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "malformed authorization header")
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "token has no subject")
		}

		c.Locals(UserIDLocalKey, sub)
		return c.Next()
	}
}

// UserID reads the authenticated user ID set by Auth. Empty when the
// request did not pass through Auth.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserIDLocalKey).(string)
	return id
}
