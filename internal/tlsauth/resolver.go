// Package tlsauth resuelve los challenges de autenticación del handshake TLS
// contra el gateway de push.
//
// El Resolver es una función pura Challenge -> Resolution, independiente del
// stack TLS; ClientConfig lo adapta a crypto/tls.
package tlsauth

import (
	"crypto/tls"

	"go.uber.org/zap"

	"github.com/dropDatabas3/hellopush/internal/credential"
	"github.com/dropDatabas3/hellopush/internal/cryptort"
	"github.com/dropDatabas3/hellopush/internal/metrics"
	"github.com/dropDatabas3/hellopush/internal/observability/logger"
)

// ChallengeKind es el tipo de autenticación pedida por el peer.
type ChallengeKind int

const (
	ServerTrust ChallengeKind = iota + 1
	ClientCertificate
)

func (k ChallengeKind) String() string {
	switch k {
	case ServerTrust:
		return "server_trust"
	case ClientCertificate:
		return "client_certificate"
	default:
		return "unknown"
	}
}

// Challenge describe un pedido de autenticación durante el handshake.
type Challenge struct {
	Kind ChallengeKind
	Host string
}

// Disposition indica cómo sigue el handshake.
type Disposition int

const (
	// PerformDefaultHandling deja la decisión al stack TLS (verificación con
	// las raíces del sistema, o ningún certificado de cliente).
	PerformDefaultHandling Disposition = iota
	// UseCredential presenta Resolution.Certificate.
	UseCredential
)

func (d Disposition) String() string {
	if d == UseCredential {
		return "use_credential"
	}
	return "default"
}

// Resolution es la respuesta a un Challenge.
type Resolution struct {
	Disposition Disposition
	Certificate *tls.Certificate
}

var defaultHandling = Resolution{Disposition: PerformDefaultHandling}

// Resolver responde challenges con una credencial fija.
type Resolver struct {
	rt   *cryptort.Runtime
	cred credential.Credential
	log  *zap.Logger
}

func NewResolver(cred credential.Credential, rt *cryptort.Runtime) *Resolver {
	return &Resolver{rt: rt, cred: cred, log: logger.Named("tlsauth")}
}

// Resolve nunca devuelve error: cualquier falla se loguea y termina en
// PerformDefaultHandling, y el transporte falla el handshake por su cuenta.
func (r *Resolver) Resolve(ch Challenge) Resolution {
	return r.resolve(r.log, ch)
}

func (r *Resolver) resolve(log *zap.Logger, ch Challenge) Resolution {
	res := r.decide(log, ch)
	metrics.TLSChallenges.WithLabelValues(ch.Kind.String(), res.Disposition.String()).Inc()
	return res
}

func (r *Resolver) decide(log *zap.Logger, ch Challenge) Resolution {
	log = log.With(logger.Challenge(ch.Kind.String()), logger.Host(ch.Host))

	if err := r.rt.Check(); err != nil {
		log.Error("tls challenge before crypto runtime init", logger.Err(err))
		return defaultHandling
	}

	id, ok := r.cred.(*credential.TrustIdentity)
	if !ok || id == nil {
		// SigningKey (o nada): el gateway autentica por bearer token
		return defaultHandling
	}

	switch ch.Kind {
	case ClientCertificate:
		cert, err := id.TLSCertificate()
		if err != nil {
			log.Warn("cannot build client certificate from identity", logger.Err(err))
			return defaultHandling
		}
		log.Debug("presenting client certificate", logger.Subject(id.Leaf().Subject))
		return Resolution{Disposition: UseCredential, Certificate: cert}
	case ServerTrust:
		// El certificado del gateway lo verifica el stack con las raíces del
		// sistema; nunca se acepta a ciegas.
		return defaultHandling
	default:
		return defaultHandling
	}
}

// ClientConfig devuelve una copia de base (o una config nueva con TLS >= 1.2)
// que presenta la identidad cuando el servidor pide certificado de cliente.
func (r *Resolver) ClientConfig(base *tls.Config) *tls.Config {
	var cfg *tls.Config
	if base != nil {
		cfg = base.Clone()
	} else {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	host := cfg.ServerName
	cfg.GetClientCertificate = func(cri *tls.CertificateRequestInfo) (*tls.Certificate, error) {
		log := logger.Scoped(cri.Context(), "tlsauth")
		res := r.resolve(log, Challenge{Kind: ClientCertificate, Host: host})
		if res.Disposition != UseCredential || res.Certificate == nil {
			// sin certificado: crypto/tls espera un Certificate vacío, no nil
			return &tls.Certificate{}, nil
		}
		if err := cri.SupportsCertificate(res.Certificate); err != nil {
			log.Warn("server may reject client certificate", logger.Err(err))
		}
		return res.Certificate, nil
	}
	return cfg
}
