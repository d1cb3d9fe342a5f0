package payments

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// ValidSignature checks the x-paystack-signature header: an HMAC-SHA512 of
// the raw body keyed with the account secret. Webhook payloads that fail
// this check must be discarded unprocessed.
func ValidSignature(body []byte, signature, secret string) bool {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
