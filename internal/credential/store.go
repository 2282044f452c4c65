package credential

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"software.sslmate.com/src/go-pkcs12"

	"github.com/dropDatabas3/hellopush/internal/cryptort"
	"github.com/dropDatabas3/hellopush/internal/metrics"
	"github.com/dropDatabas3/hellopush/internal/observability/logger"
)

// Store carga credenciales desde formatos externos. Es stateless salvo por el
// runtime y el logger, y puede compartirse entre goroutines.
type Store struct {
	rt  *cryptort.Runtime
	log *zap.Logger
}

func NewStore(rt *cryptort.Runtime) *Store {
	return &Store{rt: rt, log: logger.Named("credential")}
}

// LoadTrustIdentity decodifica un archivo PKCS#12. Una passphrase vacía es válida
// (archivo sin contraseña) y distinta de una passphrase incorrecta.
func (s *Store) LoadTrustIdentity(data []byte, passphrase string) (*TrustIdentity, error) {
	if err := s.rt.Check(); err != nil {
		return nil, err
	}
	id, err := decodeIdentity(data, passphrase)
	if err != nil {
		metrics.CredentialLoads.WithLabelValues(KindTrustIdentity.String(), metrics.ResultError).Inc()
		return nil, err
	}
	metrics.CredentialLoads.WithLabelValues(KindTrustIdentity.String(), metrics.ResultOK).Inc()
	s.log.Debug("trust identity loaded",
		logger.CredentialKind(KindTrustIdentity.String()),
		logger.Subject(id.leaf.Subject.String()),
		logger.NotAfter(id.leaf.NotAfter),
	)
	return id, nil
}

// LoadSigningKey parsea una clave EC P-256 en PEM sin cifrar (PKCS#8 "PRIVATE KEY",
// el formato de los .p8, o SEC 1 "EC PRIVATE KEY").
func (s *Store) LoadSigningKey(data []byte) (*SigningKey, error) {
	if err := s.rt.Check(); err != nil {
		return nil, err
	}
	k, err := decodeSigningKey(data)
	if err != nil {
		metrics.CredentialLoads.WithLabelValues(KindSigningKey.String(), metrics.ResultError).Inc()
		return nil, err
	}
	metrics.CredentialLoads.WithLabelValues(KindSigningKey.String(), metrics.ResultOK).Inc()
	s.log.Debug("signing key loaded", logger.CredentialKind(KindSigningKey.String()))
	return k, nil
}

// LoadTrustIdentityFile lee y decodifica un .p12 desde disco.
func (s *Store) LoadTrustIdentityFile(path, passphrase string) (*TrustIdentity, error) {
	if err := s.rt.Check(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read identity: %w", ErrCredentialLoad, err)
	}
	s.log.Debug("reading trust identity", logger.Path(path))
	return s.LoadTrustIdentity(b, passphrase)
}

// LoadSigningKeyFile lee y parsea un .p8 desde disco.
func (s *Store) LoadSigningKeyFile(path string) (*SigningKey, error) {
	if err := s.rt.Check(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read signing key: %w", ErrCredentialLoad, err)
	}
	s.log.Debug("reading signing key", logger.Path(path))
	return s.LoadSigningKey(b)
}

// ───────────────────────────────────────────────────────────────
// decoders
// ───────────────────────────────────────────────────────────────

func decodeIdentity(data []byte, passphrase string) (*TrustIdentity, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty pkcs12 archive", ErrCredentialLoad)
	}
	// DecodeChain soporta tanto archivos legacy (3DES/RC2, MAC SHA-1) como los
	// de OpenSSL 3 (PBES2/AES-256, MAC SHA-256).
	rawKey, cert, caCerts, err := pkcs12.DecodeChain(data, passphrase)
	if err != nil {
		switch {
		case errors.Is(err, pkcs12.ErrIncorrectPassword):
			return nil, fmt.Errorf("%w: incorrect passphrase", ErrCredentialLoad)
		case strings.Contains(err.Error(), "private key missing"):
			return nil, fmt.Errorf("%w: no identity in archive (private key missing)", ErrCredentialLoad)
		case strings.Contains(err.Error(), "certificate missing"):
			return nil, fmt.Errorf("%w: no identity in archive (certificate missing)", ErrCredentialLoad)
		}
		return nil, fmt.Errorf("%w: decode pkcs12: %w", ErrCredentialLoad, err)
	}
	key, ok := rawKey.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported private key type %T", ErrCredentialLoad, rawKey)
	}

	// hoja = el certificado cuya clave pública corresponde a la privada; no
	// todos los exportadores marcan la hoja con localKeyID
	certs := append([]*x509.Certificate{cert}, caCerts...)
	leafIdx := -1
	for i, c := range certs {
		if c != nil && publicKeysEqual(key.Public(), c.PublicKey) {
			leafIdx = i
			break
		}
	}
	if leafIdx < 0 {
		return nil, fmt.Errorf("%w: no identity in archive (no certificate matches the private key)", ErrCredentialLoad)
	}

	chain := make([]*x509.Certificate, 0, len(certs)-1)
	for i, c := range certs {
		if i != leafIdx && c != nil {
			chain = append(chain, c)
		}
	}
	return &TrustIdentity{key: key, leaf: certs[leafIdx], chain: chain}, nil
}

func decodeSigningKey(data []byte) (*SigningKey, error) {
	rest := data
	var block *pem.Block
	for {
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, fmt.Errorf("%w: no PEM private key found", ErrCredentialLoad)
		}
		// openssl ecparam sin -noout antepone un bloque de parámetros
		if block.Type != "EC PARAMETERS" {
			break
		}
	}
	if strings.Contains(block.Headers["Proc-Type"], "ENCRYPTED") {
		return nil, fmt.Errorf("%w: encrypted PEM keys are not supported", ErrCredentialLoad)
	}

	var parsed any
	var err error
	switch block.Type {
	case "PRIVATE KEY":
		parsed, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		parsed, err = x509.ParseECPrivateKey(block.Bytes)
	case "ENCRYPTED PRIVATE KEY":
		return nil, fmt.Errorf("%w: encrypted PEM keys are not supported", ErrCredentialLoad)
	default:
		return nil, fmt.Errorf("%w: unsupported PEM block %q", ErrCredentialLoad, block.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: parse EC private key: %w", ErrCredentialLoad, err)
	}

	priv, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: expected EC private key, got %T", ErrCredentialLoad, parsed)
	}
	if name := priv.Curve.Params().Name; name != "P-256" {
		return nil, fmt.Errorf("%w: curve %s not supported (ES256 requires P-256)", ErrCredentialLoad, name)
	}
	return &SigningKey{priv: priv}, nil
}
