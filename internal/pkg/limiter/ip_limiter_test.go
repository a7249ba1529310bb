package limiter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestMiddleware_LimitsPerIP(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewIPRateLimiter(ctx, rate.Limit(0.001), 2)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	hit := func(addr string) int {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}

	req.Equal(http.StatusNoContent, hit("10.0.0.1:1000"))
	req.Equal(http.StatusNoContent, hit("10.0.0.1:1001"))
	req.Equal(http.StatusTooManyRequests, hit("10.0.0.1:1002"))

	// Another client has its own bucket
	req.Equal(http.StatusNoContent, hit("10.0.0.2:1000"))
}

func TestSweep_DropsFullBuckets(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewIPRateLimiter(ctx, rate.Limit(1), 1)
	req.True(l.Allow("a"))
	l.GetLimiter("b")

	// "b" never spent a token; "a" is empty right now
	req.Equal(1, l.sweep(time.Now()))
	req.Equal(1, l.sweep(time.Now().Add(10*time.Second)))
}
