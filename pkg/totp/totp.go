// Package totp implements RFC 6238 time-based one-time passwords over a
// per-user base32 secret established at enrollment.
package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// Digits is the code length presented to and expected from users.
	Digits = 6
	// Period is the validity window of a single code.
	Period = 30 * time.Second

	secretBytes = 20
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecret returns a new random base32 secret.
func GenerateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate totp secret: %w", err)
	}
	return encoding.EncodeToString(buf), nil
}

// Code derives the 6-digit code for the secret at the given instant.
func Code(secret string, at time.Time) (string, error) {
	key, err := encoding.DecodeString(strings.ToUpper(strings.TrimSpace(secret)))
	if err != nil {
		return "", fmt.Errorf("decode totp secret: %w", err)
	}
	counter := uint64(at.Unix()) / uint64(Period/time.Second)

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)
	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	value := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
	return fmt.Sprintf("%06d", value%1000000), nil
}

// Validate reports whether code matches the secret at the given instant,
// accepting one period of clock skew in either direction.
func Validate(secret, code string, at time.Time) bool {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != Digits {
		return false
	}
	for _, skew := range []time.Duration{0, -Period, Period} {
		expected, err := Code(secret, at.Add(skew))
		if err != nil {
			return false
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(trimmed)) == 1 {
			return true
		}
	}
	return false
}

// ProvisioningURL builds the otpauth:// URL encoded into enrollment QR codes.
func ProvisioningURL(issuer, account, secret string) string {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", issuer)
	v.Set("digits", fmt.Sprintf("%d", Digits))
	v.Set("period", fmt.Sprintf("%d", int(Period/time.Second)))
	label := url.PathEscape(issuer + ":" + account)
	return "otpauth://totp/" + label + "?" + v.Encode()
}
