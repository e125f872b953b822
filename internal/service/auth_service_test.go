package service

import (
	"context"
	"testing"
	"time"

	"socialapi/internal/models"
	"socialapi/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

func newAuthService(t *testing.T, env *testEnv) (*AuthService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	svc := NewAuthService(env.users, env.userRepo, repository.NewRefreshTokenRepository(env.db), rdb, AuthConfig{Secret: testSecret})
	return svc, mr
}

func register(t *testing.T, svc *AuthService) *TokenPair {
	t.Helper()
	pair, err := svc.Register(context.Background(), CreateUserInput{
		Username: "jane_doe",
		Email:    "jane@example.com",
		Password: "SecurePass12!@",
	})
	require.NoError(t, err)
	return pair
}

func TestAuth_RegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newAuthService(t, env)
	ctx := context.Background()

	pair := register(t, svc)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int64(DefaultAccessTTL.Seconds()), pair.ExpiresIn)

	userID, err := svc.VerifyAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, pair.User.ID, userID)

	byEmail, err := svc.Login(ctx, "JANE@example.com", "SecurePass12!@")
	require.NoError(t, err)
	assert.Equal(t, pair.User.ID, byEmail.User.ID)

	byUsername, err := svc.Login(ctx, "jane_doe", "SecurePass12!@")
	require.NoError(t, err)
	assert.Equal(t, pair.User.ID, byUsername.User.ID)

	_, err = svc.Login(ctx, "jane_doe", "WrongPass12!@")
	assertCode(t, err, models.CodeUnauthorized)
	_, err = svc.Login(ctx, "nobody", "SecurePass12!@")
	assertCode(t, err, models.CodeUnauthorized)
}

func TestAuth_RefreshRotatesAndDetectsReuse(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newAuthService(t, env)
	ctx := context.Background()
	pair := register(t, svc)

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assertCode(t, err, models.CodeUnauthorized)

	// reuse revoked the whole family, including the token issued above
	_, err = svc.Refresh(ctx, next.RefreshToken)
	assertCode(t, err, models.CodeUnauthorized)

	_, err = svc.Refresh(ctx, "not-a-token")
	assertCode(t, err, models.CodeUnauthorized)
}

func TestAuth_LogoutBlacklistsAccessToken(t *testing.T) {
	env := newTestEnv(t)
	svc, mr := newAuthService(t, env)
	ctx := context.Background()
	pair := register(t, svc)

	require.NoError(t, svc.Logout(ctx, pair.AccessToken, pair.RefreshToken))

	_, err := svc.VerifyAccessToken(ctx, pair.AccessToken)
	assertCode(t, err, models.CodeUnauthorized)
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assertCode(t, err, models.CodeUnauthorized)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], blacklistPrefix)
	assert.LessOrEqual(t, mr.TTL(keys[0]), DefaultAccessTTL)
}

func TestAuth_VerifyRejectsForeignTokens(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newAuthService(t, env)
	ctx := context.Background()

	sign := func(secret string, claims jwt.RegisteredClaims) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return tok
	}
	valid := jwt.RegisteredClaims{
		Subject:   "1",
		Issuer:    TokenIssuer,
		Audience:  jwt.ClaimStrings{TokenAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}

	_, err := svc.VerifyAccessToken(ctx, sign(testSecret, valid))
	require.NoError(t, err)

	wrongIssuer := valid
	wrongIssuer.Issuer = "someone-else"
	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	noExpiry := valid
	noExpiry.ExpiresAt = nil

	for name, tok := range map[string]string{
		"wrong secret":   sign("another-secret-another-secret-xx", valid),
		"wrong issuer":   sign(testSecret, wrongIssuer),
		"expired":        sign(testSecret, expired),
		"missing expiry": sign(testSecret, noExpiry),
		"garbage":        "abc.def.ghi",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.VerifyAccessToken(ctx, tok)
			assertCode(t, err, models.CodeUnauthorized)
		})
	}
}
