package totp

import (
	"strings"
	"testing"
	"time"
)

// rfcSecret is the RFC 6238 appendix B test key "12345678901234567890".
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestCodeMatchesRFCVectors(t *testing.T) {
	cases := []struct {
		unix int64
		want string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1234567890, "005924"},
		{2000000000, "279037"},
	}
	for _, tc := range cases {
		got, err := Code(rfcSecret, time.Unix(tc.unix, 0))
		if err != nil {
			t.Fatalf("code at %d: %v", tc.unix, err)
		}
		if got != tc.want {
			t.Errorf("code at %d = %q, want %q", tc.unix, got, tc.want)
		}
	}
}

func TestValidateAcceptsAdjacentWindow(t *testing.T) {
	now := time.Unix(1234567890, 0)
	code, err := Code(rfcSecret, now.Add(-Period))
	if err != nil {
		t.Fatalf("code: %v", err)
	}
	if !Validate(rfcSecret, code, now) {
		t.Error("expected previous-window code to validate")
	}
}

func TestValidateRejectsWrongCode(t *testing.T) {
	now := time.Unix(1234567890, 0)
	if Validate(rfcSecret, "000000", now) {
		t.Error("expected wrong code to be rejected")
	}
	if Validate(rfcSecret, "28708", now) {
		t.Error("expected short code to be rejected")
	}
}

func TestGenerateSecretRoundTrips(t *testing.T) {
	secret, err := GenerateSecret()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if secret == "" {
		t.Fatal("empty secret")
	}
	if _, err := Code(secret, time.Now()); err != nil {
		t.Fatalf("code from generated secret: %v", err)
	}
}

func TestProvisioningURL(t *testing.T) {
	u := ProvisioningURL("Tracking System", "jane@example.com", "SECRETBASE32")
	if want := "otpauth://totp/"; u[:len(want)] != want {
		t.Fatalf("unexpected scheme: %q", u)
	}
	for _, fragment := range []string{"secret=SECRETBASE32", "digits=6", "period=30"} {
		if !strings.Contains(u, fragment) {
			t.Errorf("url %q missing %q", u, fragment)
		}
	}
}
