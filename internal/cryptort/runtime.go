// Package cryptort modela el ciclo de vida del runtime criptográfico del proceso.
//
// Ninguna operación de credenciales o firma corre antes de Initialize() ni
// después de Shutdown(). Initialize verifica que el CSPRNG del sistema, la
// curva P-256 y ES256 en golang-jwt estén disponibles.
package cryptort

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/hellopush/internal/metrics"
	"github.com/dropDatabas3/hellopush/internal/observability/logger"
)

var (
	ErrRuntimeNotInitialized = errors.New("crypto_runtime_not_initialized")
	ErrRuntimeSelfTest       = errors.New("crypto_runtime_self_test_failed")
)

const (
	stateNew int32 = iota
	stateReady
	stateShutdown
)

// Runtime es el objeto de ciclo de vida. El valor cero no sirve: usar New().
type Runtime struct {
	mu      sync.Mutex
	state   atomic.Int32
	entropy io.Reader
}

// Option configura un Runtime.
type Option func(*Runtime)

// WithEntropy reemplaza la fuente de aleatoriedad usada en el self-test (tests).
func WithEntropy(r io.Reader) Option {
	return func(rt *Runtime) { rt.entropy = r }
}

func New(opts ...Option) *Runtime {
	rt := &Runtime{entropy: rand.Reader}
	for _, o := range opts {
		o(rt)
	}
	return rt
}

// Initialize corre el self-test y habilita el runtime. Es idempotente mientras
// el runtime esté listo; después de Shutdown vuelve a inicializar.
func (r *Runtime) Initialize() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Load() == stateReady {
		return nil
	}
	if err := r.selfTest(); err != nil {
		logger.Named("cryptort").Error("crypto runtime self-test failed", logger.Err(err))
		return err
	}
	r.state.Store(stateReady)
	metrics.RuntimeReady.Set(1)
	logger.Named("cryptort").Debug("crypto runtime initialized")
	return nil
}

// Shutdown deshabilita el runtime. Debe ser la última llamada del subsistema.
func (r *Runtime) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Load() != stateReady {
		return nil
	}
	r.state.Store(stateShutdown)
	metrics.RuntimeReady.Set(0)
	logger.Named("cryptort").Debug("crypto runtime shut down")
	return nil
}

// Ready indica si el runtime acepta operaciones.
func (r *Runtime) Ready() bool {
	return r != nil && r.state.Load() == stateReady
}

// Check devuelve ErrRuntimeNotInitialized si el runtime no está listo.
// Un *Runtime nil también falla: nunca hay inicialización implícita.
func (r *Runtime) Check() error {
	if !r.Ready() {
		return ErrRuntimeNotInitialized
	}
	return nil
}

func (r *Runtime) selfTest() error {
	var seed [32]byte
	if _, err := io.ReadFull(r.entropy, seed[:]); err != nil {
		return fmt.Errorf("%w: entropy: %w", ErrRuntimeSelfTest, err)
	}

	m := jwtv5.GetSigningMethod("ES256")
	if m == nil {
		return fmt.Errorf("%w: ES256 not registered", ErrRuntimeSelfTest)
	}

	// Firma y verificación de ida y vuelta sobre P-256.
	key, err := ecdsa.GenerateKey(elliptic.P256(), r.entropy)
	if err != nil {
		return fmt.Errorf("%w: p256 keygen: %w", ErrRuntimeSelfTest, err)
	}
	const probe = "hellopush.selftest"
	sig, err := m.Sign(probe, key)
	if err != nil {
		return fmt.Errorf("%w: es256 sign: %w", ErrRuntimeSelfTest, err)
	}
	if err := m.Verify(probe, sig, &key.PublicKey); err != nil {
		return fmt.Errorf("%w: es256 verify: %w", ErrRuntimeSelfTest, err)
	}
	return nil
}
