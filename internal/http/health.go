package http

import (
	"net/http"
	"time"

	"github.com/dropDatabas3/hellopush/internal/credential"
	"github.com/dropDatabas3/hellopush/internal/cryptort"
	"github.com/dropDatabas3/hellopush/internal/observability/logger"
)

// CredentialSource devuelve la credencial configurada. Se llama en cada /readyz,
// así que debe ser barata (p.ej. respaldada por credential.FileCache).
type CredentialSource func() (credential.Credential, error)

// Health resuelve /healthz y /readyz.
type Health struct {
	Runtime     *cryptort.Runtime
	Credential  CredentialSource
	GatewayHost string
	Version     string
}

type componentStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"` // ok | error | skipped
	Error  string `json:"error,omitempty"`
}

type credentialInfo struct {
	Kind            string     `json:"kind"`
	CanSign         bool       `json:"can_sign"`
	CanAuthenticate bool       `json:"can_authenticate"`
	Subject         string     `json:"subject,omitempty"`
	NotAfter        *time.Time `json:"not_after,omitempty"`
}

type readyResponse struct {
	Status      string            `json:"status"` // ready | unavailable
	Version     string            `json:"version,omitempty"`
	GatewayHost string            `json:"gateway_host,omitempty"`
	Components  []componentStatus `json:"components"`
	Credential  *credentialInfo   `json:"credential,omitempty"`
}

// Healthz maneja GET /healthz (liveness).
func (h *Health) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Readyz maneja GET /readyz: runtime inicializado y credencial cargable.
func (h *Health) Readyz(w http.ResponseWriter, r *http.Request) {
	log := logger.Scoped(r.Context(), "ops", logger.Op("Health.Readyz"))

	resp := readyResponse{Status: "ready", Version: h.Version, GatewayHost: h.GatewayHost}

	rtStatus := componentStatus{Name: "crypto_runtime", Status: "ok"}
	if err := h.Runtime.Check(); err != nil {
		rtStatus.Status, rtStatus.Error = "error", err.Error()
		resp.Status = "unavailable"
	}
	resp.Components = append(resp.Components, rtStatus)

	credStatus := componentStatus{Name: "credential", Status: "ok"}
	switch {
	case h.Credential == nil:
		credStatus.Status = "skipped"
	case resp.Status != "ready":
		credStatus.Status = "skipped"
	default:
		cred, err := h.Credential()
		if err != nil {
			credStatus.Status, credStatus.Error = "error", err.Error()
			resp.Status = "unavailable"
			log.Warn("credential not loadable", logger.Err(err))
			break
		}
		resp.Credential = describe(cred)
	}
	resp.Components = append(resp.Components, credStatus)

	code := http.StatusOK
	if resp.Status != "ready" {
		code = http.StatusServiceUnavailable
	}
	if h.Version != "" {
		w.Header().Set("X-Service-Version", h.Version)
	}
	WriteJSON(w, code, resp)
}

func describe(c credential.Credential) *credentialInfo {
	info := &credentialInfo{
		Kind:            c.Kind().String(),
		CanSign:         c.CanSign(),
		CanAuthenticate: c.CanAuthenticate(),
	}
	if id, ok := c.(*credential.TrustIdentity); ok {
		leaf := id.Leaf()
		info.Subject = leaf.Subject
		info.NotAfter = &leaf.NotAfter
	}
	return info
}
