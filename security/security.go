// Package security validates the bearer JWT on every authenticated
// request and exposes the ownership/admin checks the recommendation and
// assistant handlers need.
package security

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the caller identity extracted from a validated token. UserID
// comes from the "sub" claim, falling back to "nameid" — both are
// accepted since the auth provider has used either name across its
// history.
type Claims struct {
	UserID int64
	Email  string
	Name   string
	Admin  bool
}

// Verifier validates bearer tokens against a fixed secret/algorithm/
// audience, per the JWT_SECRET/JWT_ALGORITHM/JWT_AUDIENCE configuration.
type Verifier struct {
	secret    []byte
	algorithm string
	audience  string
}

func NewVerifier(secret, algorithm, audience string) *Verifier {
	if algorithm == "" {
		algorithm = "HS256"
	}
	return &Verifier{secret: []byte(secret), algorithm: algorithm, audience: audience}
}

// Verify parses and validates tokenString, returning the caller's Claims.
func (v *Verifier) Verify(tokenString string) (Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{v.algorithm})}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != v.algorithm {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Claims{}, fmt.Errorf("invalid token: %w", err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Claims{}, fmt.Errorf("invalid token claims")
	}

	sub := stringClaim(mapClaims, "sub")
	if sub == "" {
		sub = stringClaim(mapClaims, "nameid")
	}
	userID, err := parseUserID(sub)
	if err != nil {
		return Claims{}, fmt.Errorf("invalid subject claim: %w", err)
	}

	return Claims{
		UserID: userID,
		Email:  stringClaim(mapClaims, "email"),
		Name:   stringClaim(mapClaims, "name"),
		Admin:  boolClaim(mapClaims, "admin"),
	}, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

func boolClaim(claims jwt.MapClaims, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}

func parseUserID(sub string) (int64, error) {
	var id int64
	if sub == "" {
		return 0, fmt.Errorf("empty subject")
	}
	// Strings like "42" parse directly; some providers prefix with a
	// realm, e.g. "user:42" — take the final colon-separated segment.
	sub = lastSegment(sub)
	if _, err := fmt.Sscanf(sub, "%d", &id); err != nil {
		return 0, err
	}
	return id, nil
}

func lastSegment(s string) string {
	if idx := strings.LastIndex(s, ":"); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

// CanAccess reports whether the caller may act on behalf of subjectID:
// either they are that user, or they carry the admin claim.
func (c Claims) CanAccess(subjectID int64) bool {
	return c.Admin || c.UserID == subjectID
}
