// Package jwt arma y firma los bearer tokens ES256 que exige el gateway de push.
//
// Un token es header.claims.firma en base64url sin padding:
//
//	header = {"alg":"ES256","kid":<key id>}
//	claims = {"iss":<team id>,"iat":<unix seconds>}
//	firma  = ECDSA P-256 sobre SHA-256(header.claims), r‖s de 64 bytes
//
// No hay cache: cada Sign emite un token nuevo. El gateway aplica su propia
// ventana de validez sobre iat.
package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/dropDatabas3/hellopush/internal/credential"
	"github.com/dropDatabas3/hellopush/internal/cryptort"
	"github.com/dropDatabas3/hellopush/internal/metrics"
	"github.com/dropDatabas3/hellopush/internal/observability/logger"
)

var (
	ErrSigning       = errors.New("token_signing_failed")
	ErrInvalidClaims = errors.New("token_invalid_claims")
)

// Token es un JWS compacto listo para el header authorization.
type Token string

func (t Token) String() string { return string(t) }

// Segments separa header, claims y firma (sin decodificar).
func (t Token) Segments() (header, claims, signature string) {
	parts := strings.SplitN(string(t), ".", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return parts[0], parts[1], parts[2]
}

// AuthorizationHeader devuelve el valor del header authorization para el transporte.
func AuthorizationHeader(t Token) string {
	return "bearer " + string(t)
}

// Signer emite tokens a partir de una credencial SigningKey.
// No guarda estado mutable: se puede usar desde varias goroutines.
type Signer struct {
	rt  *cryptort.Runtime
	log *zap.Logger
}

func NewSigner(rt *cryptort.Runtime) *Signer {
	return &Signer{rt: rt, log: logger.Named("jwt")}
}

// Sign emite un token nuevo para keyID/teamID con iat = floor(now).
func (s *Signer) Sign(cred credential.Credential, keyID, teamID string, now time.Time) (Token, error) {
	start := time.Now()
	tok, err := s.sign(cred, keyID, teamID, now)
	metrics.TokenSignDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TokensSigned.WithLabelValues(metrics.ResultError).Inc()
		return "", err
	}
	metrics.TokensSigned.WithLabelValues(metrics.ResultOK).Inc()
	s.log.Debug("token signed", logger.KeyID(keyID), logger.TeamID(teamID))
	return tok, nil
}

func (s *Signer) sign(cred credential.Credential, keyID, teamID string, now time.Time) (Token, error) {
	if err := s.rt.Check(); err != nil {
		return "", err
	}
	key, ok := cred.(*credential.SigningKey)
	if !ok || key == nil {
		return "", fmt.Errorf("%w: %s cannot sign tokens", credential.ErrCapability, kindOf(cred))
	}
	if strings.TrimSpace(keyID) == "" {
		return "", fmt.Errorf("%w: empty key id", ErrInvalidClaims)
	}
	if strings.TrimSpace(teamID) == "" {
		return "", fmt.Errorf("%w: empty team id", ErrInvalidClaims)
	}

	claims := jwtv5.RegisteredClaims{
		Issuer:   teamID,
		IssuedAt: jwtv5.NewNumericDate(now),
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodES256, claims)
	// el gateway espera solo alg + kid
	delete(tk.Header, "typ")
	tk.Header["kid"] = keyID

	signingInput, err := tk.SigningString()
	if err != nil {
		return "", fmt.Errorf("%w: encode segments: %w", ErrSigning, err)
	}
	sig, err := key.SignES256(signingInput)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSigning, err)
	}
	if len(sig) != 64 {
		return "", fmt.Errorf("%w: unexpected signature length %d", ErrSigning, len(sig))
	}
	return Token(signingInput + "." + tk.EncodeSegment(sig)), nil
}

func kindOf(c credential.Credential) string {
	if c == nil {
		return "nil credential"
	}
	return c.Kind().String()
}
