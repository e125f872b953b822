package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier map[string]uint

func (s stubVerifier) VerifyAccessToken(_ context.Context, token string) (uint, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return 0, errors.New("invalid token")
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	tok, ok = BearerToken("bearer   xyz ")
	assert.True(t, ok)
	assert.Equal(t, "xyz", tok)

	_, ok = BearerToken("Basic dXNlcjpwYXNz")
	assert.False(t, ok)

	_, ok = BearerToken("Bearer")
	assert.False(t, ok)
}

func TestAuthRequired(t *testing.T) {
	verifier := stubVerifier{"good": 123}

	newApp := func(opts AuthOptions) *fiber.App {
		app := fiber.New()
		app.Get("/test", AuthRequired(verifier, opts), func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"userID": c.Locals("userID")})
		})
		return app
	}

	tests := []struct {
		name           string
		opts           AuthOptions
		target         string
		authHeader     string
		expectedStatus int
		expectedUserID uint
	}{
		{"happy path", AuthOptions{}, "/test", "Bearer good", http.StatusOK, 123},
		{"missing header", AuthOptions{}, "/test", "", http.StatusUnauthorized, 0},
		{"invalid format", AuthOptions{}, "/test", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, 0},
		{"invalid token", AuthOptions{}, "/test", "Bearer nope", http.StatusUnauthorized, 0},
		{"query token ignored by default", AuthOptions{}, "/test?token=good", "", http.StatusUnauthorized, 0},
		{"query token allowed", AuthOptions{AllowQueryToken: true}, "/test?token=good", "", http.StatusOK, 123},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := newApp(tt.opts).Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var body map[string]interface{}
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, float64(tt.expectedUserID), body["userID"])
			}
		})
	}
}
