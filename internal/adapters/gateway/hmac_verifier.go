package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/SscSPs/exchange_ledger/internal/core/domain"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw callback body.
const SignatureHeader = "X-Gateway-Signature"

// HMACVerifier authenticates callbacks signed with a shared secret.
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

// Sign returns the signature a gateway would send for body.
func (v *HMACVerifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify accepts "<hex>" and "sha256=<hex>" signatures. Without a secret nothing is trusted.
func (v *HMACVerifier) Verify(n domain.RawNotification) error {
	if len(v.secret) == 0 {
		return fmt.Errorf("%w: no webhook secret configured for %s", apperrors.ErrUntrustedNotification, n.GatewayName)
	}
	sig := strings.TrimPrefix(strings.TrimSpace(n.Signature), "sha256=")
	got, err := hex.DecodeString(sig)
	if err != nil || len(got) == 0 {
		return fmt.Errorf("%w: malformed signature", apperrors.ErrUntrustedNotification)
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(n.Body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return fmt.Errorf("%w: signature mismatch", apperrors.ErrUntrustedNotification)
	}
	return nil
}
