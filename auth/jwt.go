package auth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultName is used when a token carries no usable name.
const DefaultName = "Player"

// ErrNotConfigured is returned when no auth base URL is set.
var ErrNotConfigured = errors.New("AUTH_BASE_URL is not set")

// ValidateToken validates a JWT against the JWKS published under baseURL and
// returns the claims. The issuer must be the scheme and host of baseURL.
func ValidateToken(baseURL, tokenString string) (jwt.MapClaims, error) {
	if baseURL == "" {
		return nil, ErrNotConfigured
	}
	baseURL = strings.TrimRight(baseURL, "/")

	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid auth base URL %q", baseURL)
	}

	jwks, err := keyfunc.NewDefault([]string{baseURL + "/.well-known/jwks.json"})
	if err != nil {
		return nil, fmt.Errorf("loading jwks: %w", err)
	}
	return parse(tokenString, jwks.Keyfunc, u.Scheme+"://"+u.Host)
}

func parse(tokenString string, kf jwt.Keyfunc, issuer string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, kf,
		jwt.WithIssuer(issuer),
		jwt.WithValidMethods([]string{"EdDSA", "RS256", "ES256"}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// NameFromClaims returns the first word of the "name" claim, cut to maxLen
// runes, or DefaultName.
func NameFromClaims(claims jwt.MapClaims, maxLen int) string {
	name, _ := claims["name"].(string)
	return CleanName(name, maxLen)
}

// CleanName trims a display name to its first word and at most maxLen runes.
// An empty result becomes DefaultName.
func CleanName(name string, maxLen int) string {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return DefaultName
	}
	first := parts[0]
	if maxLen > 0 && utf8.RuneCountInString(first) > maxLen {
		first = string([]rune(first)[:maxLen])
	}
	return first
}

// UserIDFromClaims returns the user id from claims ("sub" or "id").
func UserIDFromClaims(claims jwt.MapClaims) string {
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub
	}
	if id, ok := claims["id"].(string); ok && id != "" {
		return id
	}
	return ""
}
