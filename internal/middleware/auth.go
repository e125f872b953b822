package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// TokenVerifier resolves an access token to the user it was issued for.
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (uint, error)
}

// AuthOptions tunes where AuthRequired looks for the token.
type AuthOptions struct {
	// AllowQueryToken accepts ?token= when no Authorization header is sent.
	// Browsers cannot set headers on a WebSocket handshake.
	AllowQueryToken bool
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// AuthRequired rejects requests without a valid access token and stores the
// caller in c.Locals("userID") and in the user context.
func AuthRequired(verifier TokenVerifier, opts AuthOptions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var token string
		if header := c.Get(fiber.HeaderAuthorization); header != "" {
			t, ok := BearerToken(header)
			if !ok {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid authorization header format",
				})
			}
			token = t
		} else if opts.AllowQueryToken {
			token = c.Query("token")
		}

		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization header required",
			})
		}

		userID, err := verifier.VerifyAccessToken(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("userID", userID)
		c.Locals("accessToken", token)
		c.SetUserContext(WithUserID(c.UserContext(), userID))
		return c.Next()
	}
}
