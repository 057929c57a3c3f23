// sixchan/utils/security.go
package utils

import (
	"crypto/md5"
	"encoding/base64"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/crypto/bcrypt"
)

// GetIPAddress extracts the client IP, preferring proxy headers over the socket address.
func GetIPAddress(r *http.Request) string {
	if cf := r.Header.Get("CF-Connecting-IP"); cf != "" {
		return cf
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// Fingerprint joins the seeds without a delimiter and returns the unpadded
// URL-safe base64 of their MD5 digest. The result is always 22 characters.
func Fingerprint(seeds ...string) string {
	sum := md5.Sum([]byte(strings.Join(seeds, "")))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// WhoSeeds returns the standard seed set for a poster's per-day tag.
func WhoSeeds(ip string, now time.Time) []string {
	return []string{ip, TodayUTC(now)}
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ShortID returns the 22-character form of a UUID id. Ids that are not
// UUIDs come back unchanged.
func ShortID(id string) string {
	u, err := uuid.Parse(id)
	if err != nil {
		return id
	}
	return shortuuid.DefaultEncoder.Encode(u)
}

// NormalizeID maps a 22-character short id back to the canonical UUID that
// boards and threads are stored under. Anything else passes through.
func NormalizeID(id string) string {
	if len(id) != 22 {
		return id
	}
	u, err := shortuuid.DefaultEncoder.Decode(id)
	if err != nil {
		return id
	}
	return u.String()
}

// NewToken returns an opaque single-use token.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

var usernamePattern = regexp.MustCompile(`^\w+$`)

// ValidUsername accepts word characters only.
func ValidUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

const passwordSymbols = "@$!%*#?&"

// ValidPassword requires at least 8 characters drawn from letters, digits and
// @$!%*#?&, with at least one of each class.
func ValidPassword(s string) bool {
	if len(s) < 8 {
		return false
	}
	var letter, digit, symbol bool
	for _, r := range s {
		switch {
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		default:
			return false
		}
	}
	return letter && digit && symbol
}
