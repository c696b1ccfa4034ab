package verify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// MaxSkew is the replay window: requests whose timestamp header is
// further than this from the server clock are rejected outright.
const MaxSkew = 5 * time.Minute

// Request checks that a webhook request was signed with the shared
// secret and is fresh. Pure over its inputs; callers reject the request
// with an authentication error when it returns false.
func Request(rawBody []byte, timestampHeader, signatureHeader, secret string, now time.Time) bool {
	if timestampHeader == "" {
		return false
	}

	ts, err := strconv.ParseInt(timestampHeader, 10, 64)
	if err != nil {
		return false
	}

	skew := now.Unix() - ts
	if skew < 0 {
		skew = -skew
	}
	if skew > int64(MaxSkew.Seconds()) {
		return false
	}

	expected := Signature(rawBody, timestampHeader, secret)
	return hmac.Equal([]byte(expected), []byte(signatureHeader))
}

// Signature computes the v0 signature for a body/timestamp pair.
func Signature(rawBody []byte, timestampHeader, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + timestampHeader + ":"))
	mac.Write(rawBody)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}
