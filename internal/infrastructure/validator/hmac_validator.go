package validator

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"atmnet.com/internal/domain/port"
	"atmnet.com/internal/infrastructure/logger"
)

const (
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"
	HeaderSignature = "X-Signature"

	nonceRetention     = time.Hour
	nonceSweepSize     = 10000
	nonceSweepInterval = time.Minute
)

var (
	ErrMissingHeader = errors.New("missing signing header")
	ErrStaleRequest  = errors.New("timestamp out of tolerance")
	ErrReplayedNonce = errors.New("nonce already used")
	ErrBadSignature  = errors.New("invalid signature")
)

// NonceStore remembers nonces for an hour so a signed request cannot be replayed
type NonceStore struct {
	mu        sync.Mutex
	nonces    map[string]time.Time
	lastSweep time.Time
	now       func() time.Time
}

// NewNonceStore creates a new nonce store
func NewNonceStore() *NonceStore {
	return &NonceStore{
		nonces: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Claim records nonce and reports whether it was unused
func (ns *NonceStore) Claim(nonce string) bool {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	now := ns.now()
	if seen, exists := ns.nonces[nonce]; exists && now.Sub(seen) <= nonceRetention {
		return false
	}

	ns.nonces[nonce] = now

	// Expired nonces are swept once the store is large, at most once per interval.
	if len(ns.nonces) > nonceSweepSize && now.Sub(ns.lastSweep) >= nonceSweepInterval {
		ns.lastSweep = now
		for n, seen := range ns.nonces {
			if now.Sub(seen) > nonceRetention {
				delete(ns.nonces, n)
			}
		}
	}

	return true
}

// HMACValidator authenticates terminal requests signed with a shared secret.
// The signed message is timestamp, nonce, method and path, and the raw body, joined by newlines.
type HMACValidator struct {
	secret             []byte
	nonceStore         *NonceStore
	timestampTolerance time.Duration
	now                func() time.Time
	logger             logger.Logger
}

var _ port.RequestValidator = (*HMACValidator)(nil)

// NewHMACValidator creates a new HMAC validator
func NewHMACValidator(
	secret string,
	timestampTolerance time.Duration,
	logger logger.Logger,
) *HMACValidator {
	return &HMACValidator{
		secret:             []byte(secret),
		nonceStore:         NewNonceStore(),
		timestampTolerance: timestampTolerance,
		now:                time.Now,
		logger:             logger,
	}
}

// ValidateRequest checks the signing headers of r against body
func (v *HMACValidator) ValidateRequest(ctx context.Context, r *http.Request, body []byte) error {
	timestampStr := r.Header.Get(HeaderTimestamp)
	nonce := r.Header.Get(HeaderNonce)
	signature := r.Header.Get(HeaderSignature)

	if timestampStr == "" {
		return fmt.Errorf("%w: %s", ErrMissingHeader, HeaderTimestamp)
	}
	if nonce == "" {
		return fmt.Errorf("%w: %s", ErrMissingHeader, HeaderNonce)
	}
	if signature == "" {
		return fmt.Errorf("%w: %s", ErrMissingHeader, HeaderSignature)
	}

	timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s format: %w", HeaderTimestamp, err)
	}

	drift := v.now().Sub(time.Unix(timestamp, 0))
	if drift < 0 {
		drift = -drift
	}
	if drift > v.timestampTolerance {
		v.logger.LogWarning(ctx, "Request timestamp out of tolerance",
			"timestamp", timestamp,
			"drift_seconds", drift.Seconds(),
			"tolerance_seconds", v.timestampTolerance.Seconds())
		return fmt.Errorf("%w: drift %v exceeds %v", ErrStaleRequest, drift, v.timestampTolerance)
	}

	expected := Sign(v.secret, timestampStr, nonce, r.Method, r.URL.Path, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		v.logger.LogWarning(ctx, "Invalid request signature",
			"method", r.Method,
			"path", r.URL.Path)
		return ErrBadSignature
	}

	// Only correctly signed requests claim a nonce.
	if !v.nonceStore.Claim(nonce) {
		v.logger.LogWarning(ctx, "Replayed nonce", "nonce", nonce)
		return ErrReplayedNonce
	}

	return nil
}

// Sign computes the hex HMAC-SHA256 signature a terminal attaches to a request
func Sign(secret []byte, timestamp, nonce, method, path string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp + "\n" + nonce + "\n" + method + " " + path + "\n"))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
