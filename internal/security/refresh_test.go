package security

import (
	"strings"
	"testing"
)

func TestNewRefreshSecret(t *testing.T) {
	a, err := NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret: %v", err)
	}
	b, err := NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret: %v", err)
	}
	if a == b {
		t.Fatal("two secrets should not collide")
	}
	// 32 bytes -> 43 chars of unpadded base64.
	if len(a) != 43 {
		t.Errorf("secret length: want 43, got %d", len(a))
	}
	if strings.ContainsAny(a, "+/=") {
		t.Errorf("secret not URL-safe: %q", a)
	}
}

func TestParseRefreshToken_RoundTrip(t *testing.T) {
	secret, _ := NewRefreshSecret()
	token := FormatRefreshToken("session-1", secret)
	id, s, err := ParseRefreshToken(token)
	if err != nil {
		t.Fatalf("ParseRefreshToken: %v", err)
	}
	if id != "session-1" || s != secret {
		t.Errorf("got id=%q secret=%q", id, s)
	}
}

func TestParseRefreshToken_Malformed(t *testing.T) {
	cases := []string{
		"",
		"no-separator",
		".leading",
		"trailing.",
		strings.Repeat("x", 300) + ".y",
	}
	for _, c := range cases {
		if _, _, err := ParseRefreshToken(c); err != ErrInvalidToken {
			t.Errorf("ParseRefreshToken(%q): want ErrInvalidToken, got %v", c, err)
		}
	}
}
