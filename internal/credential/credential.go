// Package credential carga y modela las credenciales contra el gateway de push.
//
// Una Credential es una de dos variantes disjuntas:
//
//   - *SigningKey: clave EC P-256 (archivo .p8) usada solo para firmar tokens ES256.
//   - *TrustIdentity: identidad PKCS#12 (clave + certificado + cadena) usada solo
//     para autenticación TLS de cliente.
//
// Ninguna variante expone material privado; son inmutables y seguras para uso
// concurrente.
package credential

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var (
	ErrCredentialLoad = errors.New("credential_load_failed")
	ErrCapability     = errors.New("credential_capability_missing")
)

// Kind identifica la variante de una Credential.
type Kind int

const (
	KindSigningKey Kind = iota + 1
	KindTrustIdentity
)

func (k Kind) String() string {
	switch k {
	case KindSigningKey:
		return "signing_key"
	case KindTrustIdentity:
		return "trust_identity"
	default:
		return "unknown"
	}
}

// Credential es la unión cerrada de SigningKey y TrustIdentity.
type Credential interface {
	Kind() Kind
	CanSign() bool
	CanAuthenticate() bool

	sealed()
}

// ───────────────────────────────────────────────────────────────
// SigningKey
// ───────────────────────────────────────────────────────────────

// SigningKey es una clave privada ECDSA P-256.
type SigningKey struct {
	priv *ecdsa.PrivateKey
}

func (*SigningKey) sealed()               {}
func (*SigningKey) Kind() Kind            { return KindSigningKey }
func (*SigningKey) CanSign() bool         { return true }
func (*SigningKey) CanAuthenticate() bool { return false }

// Public devuelve una copia de la clave pública.
func (k *SigningKey) Public() *ecdsa.PublicKey {
	pub := k.priv.PublicKey
	return &pub
}

// SignES256 firma signingInput (header.claims) con ECDSA P-256 sobre SHA-256 y
// devuelve la firma cruda r‖s de 64 bytes, como la espera un verificador JWS.
func (k *SigningKey) SignES256(signingInput string) ([]byte, error) {
	if k == nil || k.priv == nil {
		return nil, fmt.Errorf("%w: empty signing key", ErrCapability)
	}
	return jwtv5.SigningMethodES256.Sign(signingInput, k.priv)
}

func (k *SigningKey) String() string { return "SigningKey(P-256)" }

// ───────────────────────────────────────────────────────────────
// TrustIdentity
// ───────────────────────────────────────────────────────────────

// TrustIdentity agrupa clave privada, certificado hoja y cadena.
type TrustIdentity struct {
	key   crypto.Signer
	leaf  *x509.Certificate
	chain []*x509.Certificate
}

func (*TrustIdentity) sealed()               {}
func (*TrustIdentity) Kind() Kind            { return KindTrustIdentity }
func (*TrustIdentity) CanSign() bool         { return false }
func (*TrustIdentity) CanAuthenticate() bool { return true }

// LeafInfo son los metadatos públicos del certificado hoja.
type LeafInfo struct {
	Subject      string
	Issuer       string
	SerialNumber string
	NotBefore    time.Time
	NotAfter     time.Time
	ChainLength  int
}

// Leaf devuelve metadatos del certificado hoja (sin material privado).
func (id *TrustIdentity) Leaf() LeafInfo {
	return LeafInfo{
		Subject:      id.leaf.Subject.String(),
		Issuer:       id.leaf.Issuer.String(),
		SerialNumber: id.leaf.SerialNumber.String(),
		NotBefore:    id.leaf.NotBefore,
		NotAfter:     id.leaf.NotAfter,
		ChainLength:  len(id.chain),
	}
}

// TLSCertificate arma la credencial de handshake {clave, hoja + cadena}.
// Cada llamada devuelve un valor nuevo; el llamador puede mutarlo sin afectar
// a la identidad.
func (id *TrustIdentity) TLSCertificate() (*tls.Certificate, error) {
	if id == nil || id.leaf == nil || id.key == nil {
		return nil, fmt.Errorf("%w: incomplete identity", ErrCapability)
	}
	if !publicKeysEqual(id.key.Public(), id.leaf.PublicKey) {
		return nil, errors.New("identity key does not match leaf certificate")
	}
	raw := make([][]byte, 0, 1+len(id.chain))
	raw = append(raw, id.leaf.Raw)
	for i, c := range id.chain {
		if c == nil || len(c.Raw) == 0 {
			return nil, fmt.Errorf("malformed certificate at chain position %d", i+1)
		}
		raw = append(raw, c.Raw)
	}
	return &tls.Certificate{
		Certificate: raw,
		PrivateKey:  id.key,
		Leaf:        id.leaf,
	}, nil
}

func (id *TrustIdentity) String() string {
	if id == nil || id.leaf == nil {
		return "TrustIdentity(<nil>)"
	}
	return "TrustIdentity(" + id.leaf.Subject.CommonName + ")"
}

type publicKeyEqualer interface {
	Equal(crypto.PublicKey) bool
}

func publicKeysEqual(a, b crypto.PublicKey) bool {
	ea, ok := a.(publicKeyEqualer)
	return ok && ea.Equal(b)
}
