package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Métricas del subsistema de credenciales y firma. Viven en un paquete propio
// para que credential, jwt y tlsauth no dependan del paquete http.

var (
	CredentialLoads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hellopush",
		Name:      "credential_loads_total",
		Help:      "Cargas de credenciales por tipo y resultado",
	}, []string{"kind", "result"})

	CredentialCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hellopush",
		Name:      "credential_cache_lookups_total",
		Help:      "Búsquedas en el cache de credenciales por archivo (hit|miss)",
	}, []string{"result"})

	TokensSigned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hellopush",
		Name:      "tokens_signed_total",
		Help:      "Tokens ES256 emitidos por resultado",
	}, []string{"result"})

	TokenSignDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "hellopush",
		Name:      "token_sign_duration_seconds",
		Help:      "Latencia de armado y firma de un token",
		Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12),
	})

	TLSChallenges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hellopush",
		Name:      "tls_challenges_total",
		Help:      "Challenges de handshake resueltos por tipo y disposición",
	}, []string{"challenge", "disposition"})

	RuntimeReady = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hellopush",
		Name:      "crypto_runtime_ready",
		Help:      "1 si el runtime criptográfico está inicializado",
	})
)

// Resultados usados como label.
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultHit   = "hit"
	ResultMiss  = "miss"
)

// Register registra las métricas en el registry dado (o el default si es nil).
// Tolera AlreadyRegisteredError para poder llamarse más de una vez.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		CredentialLoads,
		CredentialCache,
		TokensSigned,
		TokenSignDuration,
		TLSChallenges,
		RuntimeReady,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
