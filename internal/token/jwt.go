// Package token mints and checks the team access tokens that clients present
// to the hub server. Every device of a team shares one HMAC secret; the
// subject of a token is the device id that minted it.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/teamdesk/internal/common"
)

const issuer = "teamdesk"

// Claims carries the standard claims plus the minting device.
type Claims struct {
	jwt.RegisteredClaims
	DeviceID string `json:"device_id"`
}

// Generate returns an HS256 token for deviceID valid for validity.
func Generate(deviceID string, secretKey []byte, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		DeviceID: deviceID,
	})

	return token.SignedString(secretKey)
}

// DeviceID validates tokenString and returns the device that minted it.
// Expired tokens yield common.ErrTokenExpired; anything else invalid yields
// common.ErrInvalidToken.
func DeviceID(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.DeviceID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.DeviceID, nil
}
