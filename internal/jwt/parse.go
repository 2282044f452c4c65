package jwt

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid_jwt")

// GatewayTokenLifetime es la ventana durante la que el gateway acepta un iat.
const GatewayTokenLifetime = time.Hour

// Claims es la vista decodificada de un token emitido por Signer.
type Claims struct {
	KeyID    string
	TeamID   string
	IssuedAt time.Time
}

// Fresh indica si el gateway todavía aceptaría el token en now.
func (c Claims) Fresh(now time.Time) bool {
	age := now.Sub(c.IssuedAt)
	return age >= -time.Minute && age < GatewayTokenLifetime
}

// Verify valida la firma ES256 con pub y devuelve kid/iss/iat.
// No exige frescura; para eso está Claims.Fresh.
func Verify(token string, pub *ecdsa.PublicKey) (*Claims, error) {
	if pub == nil {
		return nil, fmt.Errorf("%w: nil public key", ErrInvalidToken)
	}
	var rc jwtv5.RegisteredClaims
	tok, err := jwtv5.ParseWithClaims(token, &rc,
		func(*jwtv5.Token) (any, error) { return pub, nil },
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodES256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}

	kid, _ := tok.Header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("%w: kid_missing", ErrInvalidToken)
	}
	if rc.IssuedAt == nil {
		return nil, fmt.Errorf("%w: iat_missing", ErrInvalidToken)
	}
	return &Claims{
		KeyID:    kid,
		TeamID:   rc.Issuer,
		IssuedAt: rc.IssuedAt.Time,
	}, nil
}
