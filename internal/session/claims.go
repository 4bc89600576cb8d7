package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type claims struct {
	Subject   string
	Email     string
	Role      string
	ExpiresAt time.Time
}

var parser = jwt.NewParser(jwt.WithJSONNumber())

// decodeClaims reads the payload without verifying the signature; the
// backend verifies on every request, the client only needs the claims.
func decodeClaims(token string) (claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(strings.TrimSpace(token), mc); err != nil {
		return claims{}, fmt.Errorf("decode token: %w", err)
	}

	var c claims
	exp, err := mc.GetExpirationTime()
	if err != nil {
		return claims{}, fmt.Errorf("decode exp claim: %w", err)
	}
	if exp != nil {
		c.ExpiresAt = exp.Time
	}

	c.Subject = claimString(mc["sub"])
	c.Email = claimString(mc["email"])
	c.Role = claimString(mc["role"])
	return c, nil
}

// claimString accepts string and numeric claims; the backend issues integer
// account ids as "sub".
func claimString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return ""
	}
}
