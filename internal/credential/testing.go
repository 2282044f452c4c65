package credential

import (
	"crypto"
	"crypto/x509"
)

// --- Helpers para tests ---

// UnsafeTrustIdentityForTests arma una identidad sin validar que la clave
// corresponda a la hoja. Usar sólo en tests de paquetes que consumen identidades.
func UnsafeTrustIdentityForTests(key crypto.Signer, leaf *x509.Certificate, chain ...*x509.Certificate) *TrustIdentity {
	return &TrustIdentity{key: key, leaf: leaf, chain: chain}
}
