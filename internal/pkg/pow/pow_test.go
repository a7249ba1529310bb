package pow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func solve(nonce string, difficulty int) string {
	for i := 0; ; i++ {
		if c := strconv.Itoa(i); Satisfies(nonce, c, difficulty) {
			return c
		}
	}
}

func withToken(token string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set(TokenHeaderKey, token)
	return r
}

func TestProofRoundTrip(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewPoWManager(ctx, 2)
	req.True(m.Enabled())

	ch := m.NewChallenge()
	req.Equal(2, ch.Difficulty)

	counter := solve(ch.Nonce, ch.Difficulty)
	token, err := m.ValidateProof(ch.Nonce, counter)
	req.NoError(err)

	// A nonce can be redeemed once
	_, err = m.ValidateProof(ch.Nonce, counter)
	req.ErrorIs(err, ErrNonceInvalid)

	req.NoError(m.ConsumeProofToken(withToken(token)))
	req.ErrorIs(m.ConsumeProofToken(withToken(token)), ErrTokenNotIssued)
	req.ErrorIs(m.ConsumeProofToken(httptest.NewRequest(http.MethodPost, "/", nil)), ErrTokenRequired)
}

func TestValidateProof_Rejects(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewPoWManager(ctx, 3)

	ch := m.NewChallenge()
	counter := solve(ch.Nonce, ch.Difficulty)

	_, err := m.ValidateProof("unknown", solve("unknown", 3))
	req.ErrorIs(err, ErrNonceInvalid)

	bad := 0
	for Satisfies(ch.Nonce, strconv.Itoa(bad), 3) {
		bad++
	}
	_, err = m.ValidateProof(ch.Nonce, strconv.Itoa(bad))
	req.ErrorIs(err, ErrProofTooWeak)

	// Expired nonces are refused and purged
	m.now = func() time.Time { return time.Now().Add(NonceExpiryDuration + time.Second) }
	_, err = m.ValidateProof(ch.Nonce, counter)
	req.ErrorIs(err, ErrNonceInvalid)

	stale := m.NewChallenge()
	m.now = func() time.Time { return time.Now().Add(3 * NonceExpiryDuration) }
	m.purge()
	req.NotContains(m.nonceStore, stale.Nonce)
}

func TestDisabled(t *testing.T) {
	var m *PoWManager
	require.False(t, m.Enabled())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.False(t, NewPoWManager(ctx, 0).Enabled())
}
