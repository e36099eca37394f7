package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenon007/tasktracker/internal/apperr"
	"github.com/xenon007/tasktracker/internal/config"
	"github.com/xenon007/tasktracker/internal/models"
)

func testAuthConfig() config.Auth {
	cfg := config.Default().Auth
	cfg.SigningKey = "0123456789abcdef0123456789abcdef"
	cfg.BcryptCost = bcrypt.MinCost
	return cfg
}

type memUsers struct {
	byEmail map[string]models.User
	hashes  map[string]string
}

func newMemUsers() *memUsers {
	return &memUsers{byEmail: map[string]models.User{}, hashes: map[string]string{}}
}

func (m *memUsers) CreateUser(_ context.Context, name, email, hash string) (int64, error) {
	if _, ok := m.byEmail[email]; ok {
		return 0, apperr.New(apperr.KindDuplicateEmail, "email %s is already registered", email)
	}
	u := models.User{ID: int64(len(m.byEmail) + 1), Name: name, Email: email}
	m.byEmail[email] = u
	m.hashes[email] = hash
	return u.ID, nil
}

func (m *memUsers) UserCredentials(_ context.Context, email string) (models.User, string, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return models.User{}, "", apperr.New(apperr.KindNotFound, "user not found")
	}
	return u, m.hashes[email], nil
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	ok, err := CheckPassword(hash, "correct horse")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "correct horsE")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CheckPassword("not-a-hash", "x")
	assert.Error(t, err)
}

func TestTokenIssueAndVerify(t *testing.T) {
	tokens := NewTokens(testAuthConfig())

	tok, err := tokens.Issue(42, "ada@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(3*time.Hour), tok.ExpiresAt, time.Minute)

	claims, err := tokens.Verify(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
}

func TestTokenIDsAreUniqueAtSameInstant(t *testing.T) {
	tokens := NewTokens(testAuthConfig())
	frozen := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return frozen }

	first, err := tokens.Issue(1, "a@example.com")
	require.NoError(t, err)
	second, err := tokens.Issue(1, "a@example.com")
	require.NoError(t, err)

	firstClaims, err := tokens.Verify(first.Value)
	require.NoError(t, err)
	secondClaims, err := tokens.Verify(second.Value)
	require.NoError(t, err)

	assert.NotEmpty(t, firstClaims.ID)
	assert.NotEqual(t, firstClaims.ID, secondClaims.ID)
	assert.NotEqual(t, first.Value, second.Value)
}

func TestTokenVerifyRejects(t *testing.T) {
	cfg := testAuthConfig()
	tokens := NewTokens(cfg)
	tok, err := tokens.Issue(1, "a@example.com")
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		late := NewTokens(cfg)
		late.now = func() time.Time { return time.Now().Add(4 * time.Hour) }
		_, err := late.Verify(tok.Value)
		assert.ErrorIs(t, err, apperr.ErrAuthFailed)
	})

	t.Run("wrong key", func(t *testing.T) {
		other := cfg
		other.SigningKey = "ffffffffffffffffffffffffffffffff"
		_, err := NewTokens(other).Verify(tok.Value)
		assert.ErrorIs(t, err, apperr.ErrAuthFailed)
	})

	t.Run("wrong audience", func(t *testing.T) {
		other := cfg
		other.Audience = "someone-else"
		_, err := NewTokens(other).Verify(tok.Value)
		assert.ErrorIs(t, err, apperr.ErrAuthFailed)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Verify("not.a.token")
		assert.ErrorIs(t, err, apperr.ErrAuthFailed)
	})
}

func TestServiceRegisterAndAuthenticate(t *testing.T) {
	cfg := testAuthConfig()
	svc := NewService(newMemUsers(), NewTokens(cfg), cfg, nil)
	ctx := context.Background()

	id, err := svc.Register(ctx, "Ada", "ada@example.com", "s3cret!")
	require.NoError(t, err)

	tok, err := svc.Authenticate(ctx, "ada@example.com", "s3cret!")
	require.NoError(t, err)
	claims, err := svc.Verify(tok.Value)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)

	_, err = svc.Authenticate(ctx, "ada@example.com", "s3cret?")
	assert.ErrorIs(t, err, apperr.ErrAuthFailed)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "s3cret!")
	assert.ErrorIs(t, err, apperr.ErrAuthFailed)

	_, err = svc.Register(ctx, "Ada again", "ada@example.com", "other")
	assert.ErrorIs(t, err, apperr.ErrDuplicateEmail)

	_, err = svc.Register(ctx, "", "x@example.com", "pw")
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestRequireIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := NewTokens(testAuthConfig())

	router := gin.New()
	router.GET("/me", RequireIdentity(tokens), func(c *gin.Context) {
		claims, ok := Caller(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID})
	})

	tok, err := tokens.Issue(9, "nine@example.com")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + tok.Value, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)

			if tc.want == http.StatusUnauthorized {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, string(apperr.KindAuthFailed), body["kind"])
			}
		})
	}
}
