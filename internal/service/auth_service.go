package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"socialapi/internal/middleware"
	"socialapi/internal/models"
	"socialapi/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	TokenIssuer   = "socialapi"
	TokenAudience = "socialapi-client"

	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 30 * 24 * time.Hour

	blacklistPrefix = "blacklist:"
)

// dummyHash keeps the cost of a failed lookup close to a failed compare.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("socialapi-timing-pad"), bcrypt.DefaultCost)

// TokenPair is returned by register, login and refresh.
type TokenPair struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	User         *models.User `json:"user"`
}

type accessClaims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

type AuthConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// AuthService issues and verifies HS256 access tokens and rotating refresh
// tokens. Revoked access tokens are tracked in Redis by jti.
type AuthService struct {
	users      *UserService
	userRepo   repository.UserRepository
	tokenRepo  repository.RefreshTokenRepository
	redis      *redis.Client
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewAuthService(
	users *UserService,
	userRepo repository.UserRepository,
	tokenRepo repository.RefreshTokenRepository,
	redisClient *redis.Client,
	cfg AuthConfig,
) *AuthService {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	return &AuthService{
		users:      users,
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		redis:      redisClient,
		secret:     []byte(cfg.Secret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}
}

func invalidCredentials() error {
	return models.NewUnauthorizedError("Invalid credentials")
}

func (s *AuthService) Register(ctx context.Context, in CreateUserInput) (*TokenPair, error) {
	user, err := s.users.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user)
}

// Login accepts either an email address or a username as identifier.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*TokenPair, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, models.NewValidationError("Identifier and password are required")
	}

	var (
		user *models.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.userRepo.GetByEmail(ctx, strings.ToLower(identifier))
	} else {
		user, err = s.userRepo.GetByUsername(ctx, identifier)
	}
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, invalidCredentials()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, invalidCredentials()
	}
	return s.issue(ctx, user)
}

// Refresh exchanges a refresh token for a new pair. Each refresh token works
// once; presenting a rotated token revokes every session of its user.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, models.NewValidationError("refresh_token is required")
	}
	stored, err := s.tokenRepo.GetByHash(ctx, hashToken(refreshToken))
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return nil, models.NewUnauthorizedError("Invalid refresh token")
		}
		return nil, err
	}

	now := s.now()
	if stored.RevokedAt != nil {
		middleware.Logger.WarnContext(ctx, "refresh token reuse detected", slog.Uint64("user_id", uint64(stored.UserID)))
		if err := s.tokenRepo.RevokeAllForUser(ctx, stored.UserID); err != nil {
			return nil, err
		}
		return nil, models.NewUnauthorizedError("Refresh token has already been used")
	}
	if !stored.Active(now) {
		return nil, models.NewUnauthorizedError("Refresh token expired")
	}
	if err := s.tokenRepo.Revoke(ctx, stored.ID); err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return nil, models.NewUnauthorizedError("Refresh token has already been used")
		}
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, stored.UserID)
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return nil, models.NewUnauthorizedError("Invalid refresh token")
		}
		return nil, err
	}
	return s.issue(ctx, user)
}

// Logout revokes the refresh token, if given, and blacklists the access
// token's jti for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if refreshToken != "" {
		stored, err := s.tokenRepo.GetByHash(ctx, hashToken(refreshToken))
		switch {
		case err == nil:
			if err := s.tokenRepo.Revoke(ctx, stored.ID); err != nil && models.ErrorCode(err) != models.CodeNotFound {
				return err
			}
		case models.ErrorCode(err) != models.CodeNotFound:
			return err
		}
	}

	if accessToken == "" || s.redis == nil {
		return nil
	}
	claims, err := s.parse(accessToken)
	if err != nil {
		return nil
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if claims.ID == "" || ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, blacklistPrefix+claims.ID, "1", ttl).Err(); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// VerifyAccessToken validates signature, issuer, audience and expiry, and
// rejects blacklisted tokens. It returns the subject user id.
func (s *AuthService) VerifyAccessToken(ctx context.Context, token string) (uint, error) {
	claims, err := s.parse(token)
	if err != nil {
		return 0, models.NewUnauthorizedError("Invalid or expired token")
	}
	userID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || userID == 0 {
		return 0, models.NewUnauthorizedError("Invalid subject claim")
	}

	if s.redis != nil && claims.ID != "" {
		n, err := s.redis.Exists(ctx, blacklistPrefix+claims.ID).Result()
		switch {
		case err != nil:
			// fail open: an unreachable Redis must not log everyone out
			middleware.Logger.WarnContext(ctx, "token blacklist check failed", slog.String("error", err.Error()))
		case n > 0:
			return 0, models.NewUnauthorizedError("Token has been revoked")
		}
	}
	return uint(userID), nil
}

func (s *AuthService) parse(token string) (*accessClaims, error) {
	claims := &accessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (*TokenPair, error) {
	if len(s.secret) == 0 {
		return nil, models.NewInternalError(errors.New("JWT secret not configured"))
	}
	now := s.now()
	claims := accessClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	refresh, err := newRefreshToken()
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := s.tokenRepo.Create(ctx, &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(refresh),
		ExpiresAt: now.Add(s.refreshTTL),
	}); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		User:         user,
	}, nil
}

func newRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
