package server

import (
	"socialapi/internal/middleware"
	"socialapi/internal/models"
	"socialapi/internal/service"

	"github.com/gofiber/fiber/v2"
)

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	FirstName   string `json:"first_name" validate:"max=100"`
	LastName    string `json:"last_name" validate:"max=100"`
	Username    string `json:"username" validate:"required"`
	Email       string `json:"email" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"max=32"`
	Password    string `json:"password" validate:"required"`
}

// LoginRequest accepts an email address or a username as identifier.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// respondAuthError reports credential failures as 401 rather than the 403
// used for ownership checks.
func respondAuthError(c *fiber.Ctx, err error) error {
	if models.ErrorCode(err) == models.CodeUnauthorized {
		return models.RespondWithError(c, fiber.StatusUnauthorized, err)
	}
	return respondError(c, err)
}

// Register handles POST /api/auth/register
// @Summary Register
// @Description Create an account and return a token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Account details"
// @Success 201 {object} service.TokenPair
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	pair, err := s.authService.Register(c.UserContext(), service.CreateUserInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Username:    req.Username,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(pair)
}

// Login handles POST /api/auth/login
// @Summary Login
// @Description Authenticate by email or username
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} service.TokenPair
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	pair, err := s.authService.Login(c.UserContext(), req.Identifier, req.Password)
	if err != nil {
		return respondAuthError(c, err)
	}
	return c.JSON(pair)
}

// Refresh handles POST /api/auth/refresh
// @Summary Refresh tokens
// @Description Rotate a refresh token into a new token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} service.TokenPair
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/refresh [post]
func (s *Server) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	pair, err := s.authService.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return respondAuthError(c, err)
	}
	return c.JSON(pair)
}

// Logout handles POST /api/auth/logout
// @Summary Logout
// @Description Revoke the refresh token and the current access token
// @Tags auth
// @Accept json
// @Security BearerAuth
// @Param request body LogoutRequest false "Refresh token to revoke"
// @Success 204
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	var req LogoutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
	}

	access, _ := c.Locals("accessToken").(string)
	if access == "" {
		access, _ = middleware.BearerToken(c.Get(fiber.HeaderAuthorization))
	}

	if err := s.authService.Logout(c.UserContext(), access, req.RefreshToken); err != nil {
		return respondAuthError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
