package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken(&Payload{ID: "u1", Username: "neo", Role: "admin"}, "secret", time.Hour)
	req.NoError(err)

	p, err := ParseToken(token, "secret")
	req.NoError(err)
	req.Equal("u1", p.ID)
	req.Equal("neo", p.Username)
	req.Equal("admin", p.Role)
	req.WithinDuration(time.Now().Add(time.Hour), p.ExpiresAtTime(), 2*time.Second)

	_, err = ParseToken(token, "other")
	req.Error(err)

	expired, err := GenerateToken(&Payload{ID: "u1"}, "secret", -time.Minute)
	req.NoError(err)
	_, err = ParseToken(expired, "secret")
	req.Error(err)

	anonymous, err := GenerateToken(&Payload{}, "secret", time.Hour)
	req.NoError(err)
	_, err = ParseToken(anonymous, "secret")
	req.Error(err)
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		header string
		query  string
		want   string
	}{
		{name: "bearer", header: "Bearer abc", want: "abc"},
		{name: "query", query: "?token=xyz", want: "xyz"},
		{name: "header wins", header: "Bearer abc", query: "?token=xyz", want: "abc"},
		{name: "other scheme", header: "Basic abc", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws"+tt.query, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			require.Equal(t, tt.want, TokenFromRequest(r))
		})
	}
}

func TestIdentityExtractorMiddleware(t *testing.T) {
	req := require.New(t)
	token, err := GenerateToken(&Payload{ID: "u1"}, "secret", time.Hour)
	req.NoError(err)

	var seen *Payload
	h := IdentityExtractorMiddleware("secret")(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetPayloadFromContext(r)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), r)
	req.NotNil(seen)
	req.Equal("u1", seen.ID)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer garbage")
	h.ServeHTTP(httptest.NewRecorder(), r)
	req.Nil(seen)
}
