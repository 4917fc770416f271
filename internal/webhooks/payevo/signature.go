package payevo

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the gateway's HMAC of the raw body.
const SignatureHeader = "X-Payevo-Signature"

// VerifySignature checks the hex HMAC-SHA256 of the raw body against the
// provided header value. A "sha256=" prefix on the header is tolerated.
func VerifySignature(secret string, body []byte, provided string) bool {
	if secret == "" {
		return false
	}
	provided = strings.TrimSpace(provided)
	provided = strings.TrimPrefix(provided, "sha256=")
	if provided == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.ToLower(provided)))
}
