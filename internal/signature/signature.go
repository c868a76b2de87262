// Package signature verifies that a webhook was sent by Slack.
//
// Slack signs "v0:<timestamp>:<raw body>" with HMAC-SHA256 using the app's
// signing secret and sends the result as "v0=<hex>" in X-Slack-Signature.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	HeaderTimestamp = "X-Slack-Request-Timestamp"
	HeaderSignature = "X-Slack-Signature"

	version = "v0"

	// MaxSkew is the replay window around the local clock.
	MaxSkew = 300 * time.Second
)

// AuthError explains a rejected request. The reason is for logs only.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "slack request verification failed: " + e.Reason
}

type Verifier struct {
	secret []byte
	now    func() time.Time
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), now: time.Now}
}

// WithClock replaces the clock used for the replay window.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	return &Verifier{secret: v.secret, now: now}
}

// Headers builds a case-insensitive header set from the map API Gateway
// delivers.
func Headers(m map[string]string) http.Header {
	h := make(http.Header, len(m))
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}

// Verify returns nil when the request is authentic and fresh, an
// *AuthError otherwise.
func (v *Verifier) Verify(headers http.Header, body string) error {
	ts := strings.TrimSpace(headers.Get(HeaderTimestamp))
	sig := strings.TrimSpace(headers.Get(HeaderSignature))
	if ts == "" || sig == "" {
		return &AuthError{Reason: "missing timestamp or signature header"}
	}

	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return &AuthError{Reason: fmt.Sprintf("malformed timestamp %q", ts)}
	}
	if !withinWindow(v.now().Unix(), sec) {
		return &AuthError{Reason: fmt.Sprintf("timestamp %d outside replay window", sec)}
	}

	expected := Sign(v.secret, ts, body)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return &AuthError{Reason: "signature mismatch"}
	}
	return nil
}

// withinWindow compares whole seconds. The far bound keeps now-sec from
// overflowing int64.
func withinWindow(now, sec int64) bool {
	const far = int64(1) << 40
	if sec > now+far || sec < now-far {
		return false
	}
	d := now - sec
	limit := int64(MaxSkew / time.Second)
	return d <= limit && d >= -limit
}

// Sign computes the signature Slack would send for body at timestamp ts.
func Sign(secret []byte, ts, body string) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(version + ":" + ts + ":" + body))
	return version + "=" + hex.EncodeToString(mac.Sum(nil))
}
