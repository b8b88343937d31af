package serve

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ViewerClaims identifies a browser viewer authorized to watch one
// recording key for a bounded time, the same RegisteredClaims-embedding
// pattern used to hand browsers short-lived access in direct mode.
type ViewerClaims struct {
	jwt.RegisteredClaims
	RecordingKey string `json:"rec,omitempty"`
}

// IssueViewerToken creates an HS256 JWT scoping a viewer to recordingKey
// for ttl. Serve mode uses a symmetric secret since the viewer population
// is whoever the operator hands the link to, not a federated identity.
func IssueViewerToken(secret []byte, recordingKey string, ttl time.Duration) (string, error) {
	claims := ViewerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		RecordingKey: recordingKey,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateViewerToken verifies tokenString and confirms it authorizes
// recordingKey specifically, so a link minted for one session can't be
// replayed against another.
func ValidateViewerToken(secret []byte, tokenString, recordingKey string) (*ViewerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ViewerClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse viewer token: %w", err)
	}
	claims, ok := token.Claims.(*ViewerClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid viewer token")
	}
	if claims.RecordingKey != recordingKey {
		return nil, fmt.Errorf("token not authorized for this recording")
	}
	return claims, nil
}
