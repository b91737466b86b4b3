package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/adriaticbluegrowth/portal/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-0123456789abcdef-xyz"

func newTestCodec(t *testing.T) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec(testSecret, time.Hour)
	require.NoError(t, err)
	return codec
}

func TestNewTokenCodec_RejectsEmptySecret(t *testing.T) {
	_, err := NewTokenCodec("", time.Hour)
	assert.Error(t, err)
}

func TestNewTokenCodec_DefaultTTL(t *testing.T) {
	codec, err := NewTokenCodec(testSecret, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultSessionTTL, codec.TTL())
}

func TestTokenCodec_IssueVerifyRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	token, issued, err := codec.Issue("user-1", "marija", models.RoleEditor)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "marija", claims.Username)
	assert.Equal(t, models.RoleEditor, claims.Role)
	assert.Equal(t, TokenIssuer, claims.Issuer)
	assert.Equal(t, issued.ID, claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestTokenCodec_UniqueSessionIDs(t *testing.T) {
	codec := newTestCodec(t)
	_, a, err := codec.Issue("user-1", "marija", models.RoleUser)
	require.NoError(t, err)
	_, b, err := codec.Issue("user-1", "marija", models.RoleUser)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestTokenCodec_RejectsTokenFromOtherSecret(t *testing.T) {
	other, err := NewTokenCodec("another-secret-0123456789abcdef!", time.Hour)
	require.NoError(t, err)
	token, _, err := other.Issue("user-1", "marija", models.RoleAdmin)
	require.NoError(t, err)

	_, err = newTestCodec(t).Verify(token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestTokenCodec_RejectsExpiredToken(t *testing.T) {
	codec := newTestCodec(t)
	token, _, err := codec.Issue("user-1", "marija", models.RoleUser)
	require.NoError(t, err)

	codec.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = codec.Verify(token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestTokenCodec_RejectsTamperedPayload(t *testing.T) {
	codec := newTestCodec(t)
	token, _, err := codec.Issue("user-1", "marija", models.RoleUser)
	require.NoError(t, err)

	adminToken, _, err := codec.Issue("user-1", "marija", models.RoleAdmin)
	require.NoError(t, err)

	// Splice the admin payload onto the user token's signature.
	userParts := strings.Split(token, ".")
	adminParts := strings.Split(adminToken, ".")
	forged := userParts[0] + "." + adminParts[1] + "." + userParts[2]

	_, err = codec.Verify(forged)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestTokenCodec_RejectsOtherAlgorithms(t *testing.T) {
	codec := newTestCodec(t)
	claims := &models.SessionClaims{
		UserID: "user-1",
		Role:   models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti-1",
			Issuer:    TokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = codec.Verify(hs512)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = codec.Verify(none)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestTokenCodec_RejectsBadClaims(t *testing.T) {
	codec := newTestCodec(t)

	sign := func(c *models.SessionClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return s
	}
	valid := func() jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			ID:        "jti-1",
			Issuer:    TokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"missing user id", sign(&models.SessionClaims{Role: models.RoleUser, RegisteredClaims: valid()})},
		{"unknown role", sign(&models.SessionClaims{UserID: "u", Role: "superuser", RegisteredClaims: valid()})},
		{"wrong issuer", func() string {
			rc := valid()
			rc.Issuer = "someone-else"
			return sign(&models.SessionClaims{UserID: "u", Role: models.RoleUser, RegisteredClaims: rc})
		}()},
		{"missing expiry", func() string {
			rc := valid()
			rc.ExpiresAt = nil
			return sign(&models.SessionClaims{UserID: "u", Role: models.RoleUser, RegisteredClaims: rc})
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Verify(tt.token)
			assert.ErrorIs(t, err, models.ErrUnauthorized)
		})
	}
}
