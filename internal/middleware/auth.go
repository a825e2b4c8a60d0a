// Package middleware provides the HTTP middleware chain: caller
// authentication, request identification, CORS and rate limiting.
package middleware

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/OmniStable-Network/bridge_layer/pkg/logger"
)

const (
	// CallerHeader carries the claimed caller address.
	CallerHeader = "X-Caller-Address"
	// SignatureHeader carries the 65-byte hex signature over the request
	// payload, produced with the Ethereum personal-sign scheme.
	SignatureHeader = "X-Signature"
	// TimestampHeader carries the unix-seconds timestamp bound into the
	// signature.
	TimestampHeader = "X-Timestamp"

	maxSignedBody = 1 << 20
)

type contextKey string

const callerKey contextKey = "caller"

// CallerAuth authenticates callers by recovering the signer of each request.
// With AllowUnsigned set, a bare caller header is trusted; deployments use
// that only for local development.
type CallerAuth struct {
	skipPaths     map[string]bool
	skipPrefixes  []string
	allowUnsigned bool
	maxSkew       time.Duration
	log           *logger.Logger
}

// NewCallerAuth builds the authentication middleware. Paths ending in "*"
// skip authentication by prefix, exact entries by full match.
func NewCallerAuth(allowUnsigned bool, skipPaths []string, log *logger.Logger) *CallerAuth {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	skip := make(map[string]bool)
	var prefixes []string
	for _, path := range skipPaths {
		if strings.HasSuffix(path, "*") {
			prefixes = append(prefixes, strings.TrimSuffix(path, "*"))
			continue
		}
		skip[path] = true
	}
	return &CallerAuth{
		skipPaths:     skip,
		skipPrefixes:  prefixes,
		allowUnsigned: allowUnsigned,
		maxSkew:       5 * time.Minute,
		log:           log,
	}
}

// Handler returns the authentication handler.
func (m *CallerAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipped(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		claimed := r.Header.Get(CallerHeader)
		if claimed == "" {
			// Anonymous requests proceed without a caller; handlers that
			// need authority reject them there.
			next.ServeHTTP(w, r)
			return
		}
		if !common.IsHexAddress(claimed) {
			unauthorized(w, "caller address is not valid hex")
			return
		}
		caller := common.HexToAddress(claimed)

		sig := r.Header.Get(SignatureHeader)
		if sig == "" {
			if !m.allowUnsigned {
				unauthorized(w, "missing request signature")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxSignedBody+1))
		if err != nil {
			unauthorized(w, "unreadable request body")
			return
		}
		_ = r.Body.Close()
		if len(body) > maxSignedBody {
			unauthorized(w, "signed body too large")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		if err := m.verify(caller, sig, r.Method, r.URL.Path, body, r.Header.Get(TimestampHeader)); err != nil {
			m.log.WithError(err).WithField("caller", caller.Hex()).Warn("request signature rejected")
			unauthorized(w, err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

func (m *CallerAuth) skipped(path string) bool {
	if m.skipPaths[path] {
		return true
	}
	for _, prefix := range m.skipPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (m *CallerAuth) verify(caller common.Address, sigHex, method, path string, body []byte, timestamp string) error {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp header is not unix seconds")
	}
	skew := time.Since(time.Unix(ts, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > m.maxSkew {
		return fmt.Errorf("signature timestamp outside the %s window", m.maxSkew)
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil || len(sig) != crypto.SignatureLength {
		return fmt.Errorf("signature must be %d hex-encoded bytes", crypto.SignatureLength)
	}
	// personal_sign produces V of 27 or 28; recovery wants 0 or 1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig = bytes.Clone(sig)
		sig[crypto.RecoveryIDOffset] -= 27
	}

	digest := accounts.TextHash(SignaturePayload(method, path, body, timestamp))
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return fmt.Errorf("signature does not recover: %w", err)
	}
	if crypto.PubkeyToAddress(*pub) != caller {
		return fmt.Errorf("signature does not match the claimed caller")
	}
	return nil
}

// SignaturePayload is the canonical byte string callers personal-sign. The
// body is bound by digest so large payloads sign cheaply.
func SignaturePayload(method, path string, body []byte, timestamp string) []byte {
	bodyDigest := crypto.Keccak256(body)
	msg := strings.Join([]string{
		strings.ToUpper(method),
		path,
		hex.EncodeToString(bodyDigest),
		timestamp,
	}, "\n")
	return []byte(msg)
}

// WithCaller stores the authenticated caller on the context.
func WithCaller(ctx context.Context, caller common.Address) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// CallerFromContext returns the authenticated caller, if any.
func CallerFromContext(ctx context.Context) (common.Address, bool) {
	caller, ok := ctx.Value(callerKey).(common.Address)
	return caller, ok
}

// RequireCaller rejects requests that carry no authenticated caller.
func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CallerFromContext(r.Context()); !ok {
			unauthorized(w, "caller identity required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
