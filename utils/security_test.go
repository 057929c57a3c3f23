// sixchan/utils/security_test.go
package utils

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	testCases := []struct {
		name     string
		seeds    []string
		expected string
	}{
		{"IP and date", []string{"127.0.0.1", "20240101"}, "2O-Sl4OwpWolAIM-SzO5mA"},
		{"Same IP next day", []string{"127.0.0.1", "20240102"}, "vuOcfg_W4bTMxZUujryJew"},
		{"Seeds are concatenated", []string{"127.0.0.", "120240101"}, "2O-Sl4OwpWolAIM-SzO5mA"},
		{"No seeds", nil, "1B2M2Y8AsgTpgAmY7PhCfg"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Fingerprint(tc.seeds...)
			if got != tc.expected {
				t.Errorf("Expected fingerprint '%s', but got '%s'", tc.expected, got)
			}
			if len(got) != 22 {
				t.Errorf("Expected 22 characters, got %d", len(got))
			}
			if strings.ContainsAny(got, "+/=") {
				t.Errorf("Fingerprint '%s' is not URL safe", got)
			}
		})
	}
}

func TestFingerprintDistinct(t *testing.T) {
	seen := make(map[string]string)
	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "192.168.1.1", "::1", "2001:db8::1"} {
		for _, day := range []string{"20240101", "20240102", "20241231"} {
			tag := Fingerprint(ip, day)
			key := ip + "|" + day
			if prev, dup := seen[tag]; dup {
				t.Fatalf("collision between %s and %s", prev, key)
			}
			seen[tag] = key
			assert.Equal(t, tag, Fingerprint(ip, day), "deterministic")
		}
	}
}

func TestWhoSeeds(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	now := time.Date(2024, 3, 1, 2, 0, 0, 0, jst)
	assert.Equal(t, []string{"10.0.0.1", "20240229"}, WhoSeeds("10.0.0.1", now), "date is taken in UTC")
}

func TestGetIPAddress(t *testing.T) {
	testCases := []struct {
		name     string
		headers  map[string]string
		remote   string
		expected string
	}{
		{"Socket address", nil, "8.8.8.8:12345", "8.8.8.8"},
		{"IPv6 socket", nil, "[::1]:12345", "::1"},
		{"Unparseable socket", nil, "not-an-ip", "not-an-ip"},
		{"X-Real-IP", map[string]string{"X-Real-IP": "192.168.1.50"}, "8.8.8.8:1", "192.168.1.50"},
		{"X-Forwarded-For first hop", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "8.8.8.8:1", "1.2.3.4"},
		{"Cloudflare wins", map[string]string{"CF-Connecting-IP": "5.6.7.8", "X-Real-IP": "1.1.1.1"}, "8.8.8.8:1", "5.6.7.8"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tc.expected, GetIPAddress(req))
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!pass")
	assert.NoError(t, err)
	assert.True(t, CheckPassword(hash, "s3cret!pass"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestValidPassword(t *testing.T) {
	testCases := []struct {
		in       string
		expected bool
	}{
		{"abc123!x", true},
		{"Passw0rd#", true},
		{"short1!", false},
		{"abcdefgh1", false},
		{"abcdefgh!", false},
		{"12345678!", false},
		{"abc 123!x", false},
		{"ábc1234!x", false},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.expected, ValidPassword(tc.in))
		})
	}
}

func TestValidUsername(t *testing.T) {
	assert.True(t, ValidUsername("nanashi_1"))
	assert.False(t, ValidUsername("nana shi"))
	assert.False(t, ValidUsername(""))
}

func TestNewToken(t *testing.T) {
	a, b := NewToken(), NewToken()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestShortID(t *testing.T) {
	id := uuid.NewString()
	short := ShortID(id)
	assert.Len(t, short, 22)
	assert.Equal(t, id, NormalizeID(short))
	assert.Equal(t, id, NormalizeID(id))

	tests := []struct {
		name string
		in   string
	}{
		{"Not a uuid", "news"},
		{"Wrong length", "abc"},
		{"Outside the alphabet", strings.Repeat("0", 22)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.in, NormalizeID(tt.in))
		})
	}
	assert.Equal(t, "news", ShortID("news"))
}
