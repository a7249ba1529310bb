/*
Package pow implements a hashcash-style Proof-of-Work gate for account registration.

A client fetches a nonce, searches for a counter whose SHA-256(nonce+counter) hex digest
starts with the configured number of zeros, and trades the solution for a short-lived,
single-use proof token that it presents on the guarded request.
*/
package pow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// TokenHeaderKey is the HTTP header key used by the client to send the proof token.
	TokenHeaderKey = "X-PoW-Token"

	// ProofTokenDuration is the validity period of a proof token.
	ProofTokenDuration = 30 * time.Second

	// NonceExpiryDuration is the validity period of a challenge nonce.
	NonceExpiryDuration = 5 * time.Minute
)

var (
	ErrNonceInvalid   = errors.New("nonce expired or invalid")
	ErrProofTooWeak   = errors.New("proof does not meet difficulty requirement")
	ErrNonceConsumed  = errors.New("nonce consumed by concurrent request")
	ErrTokenRequired  = errors.New("proof token required")
	ErrTokenNotIssued = errors.New("proof token invalid or expired")
)

// Challenge is handed to the client.
type Challenge struct {
	Nonce      string `json:"nonce"`
	Difficulty int    `json:"difficulty"`
}

// PoWManager manages outstanding nonces and issued proof tokens. Safe for concurrent use.
type PoWManager struct {
	// difficulty is the required number of leading hex zeros. Zero disables the gate.
	difficulty int

	mu         sync.Mutex
	nonceStore map[string]time.Time
	tokenStore map[string]time.Time

	now func() time.Time
}

// NewPoWManager creates a manager and starts the expiry janitor, which stops with ctx.
func NewPoWManager(ctx context.Context, difficulty int) *PoWManager {
	mgr := &PoWManager{
		difficulty: difficulty,
		nonceStore: make(map[string]time.Time),
		tokenStore: make(map[string]time.Time),
		now:        time.Now,
	}

	go mgr.cleanupExpiredEntries(ctx)

	return mgr
}

// Enabled reports whether proofs are required at all.
func (m *PoWManager) Enabled() bool {
	return m != nil && m.difficulty > 0
}

// NewChallenge issues a fresh nonce.
func (m *PoWManager) NewChallenge() Challenge {
	m.mu.Lock()
	defer m.mu.Unlock()

	nonce := uuid.NewString()
	m.nonceStore[nonce] = m.now().Add(NonceExpiryDuration)
	return Challenge{Nonce: nonce, Difficulty: m.difficulty}
}

// ValidateProof checks the solution for nonce and, on success, consumes the nonce
// and returns a proof token.
func (m *PoWManager) ValidateProof(nonce, counter string) (string, error) {
	if !Satisfies(nonce, counter, m.difficulty) {
		return "", ErrProofTooWeak
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.nonceStore[nonce]
	if !ok {
		return "", ErrNonceInvalid
	}
	delete(m.nonceStore, nonce)

	if m.now().After(expiry) {
		return "", ErrNonceInvalid
	}

	token := uuid.NewString()
	m.tokenStore[token] = m.now().Add(ProofTokenDuration)
	return token, nil
}

// ConsumeProofToken validates and burns the proof token carried by r.
// The token is read from the X-PoW-Token header or the pow_token query parameter.
func (m *PoWManager) ConsumeProofToken(r *http.Request) error {
	token := r.Header.Get(TokenHeaderKey)
	if token == "" {
		token = r.URL.Query().Get("pow_token")
	}

	if token == "" {
		return ErrTokenRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.tokenStore[token]
	if !ok || m.now().After(expiry) {
		return ErrTokenNotIssued
	}
	delete(m.tokenStore, token)

	return nil
}

// Satisfies reports whether SHA-256(nonce+counter) has difficulty leading hex zeros.
func Satisfies(nonce, counter string, difficulty int) bool {
	hash := sha256.Sum256([]byte(nonce + counter))
	return strings.HasPrefix(hex.EncodeToString(hash[:]), strings.Repeat("0", difficulty))
}

func (m *PoWManager) cleanupExpiredEntries(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.purge()
		}
	}
}

func (m *PoWManager) purge() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for nonce, expiry := range m.nonceStore {
		if now.After(expiry) {
			delete(m.nonceStore, nonce)
		}
	}
	for token, expiry := range m.tokenStore {
		if now.After(expiry) {
			delete(m.tokenStore, token)
		}
	}
}
