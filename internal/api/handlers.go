package api

import (
	"encoding/json"
	"net/http"

	"github.com/LeventeLantos/wa-relay/internal/auth"
	"github.com/LeventeLantos/wa-relay/internal/repo"
	"github.com/LeventeLantos/wa-relay/internal/service"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	sender    *service.Sender
	inbound   *service.Inbound
	dashboard *service.Dashboard
	authn     *auth.Authenticator
	sessions  *auth.SessionManager
	users     repo.UserRepository
}

type Deps struct {
	Sender    *service.Sender
	Inbound   *service.Inbound
	Dashboard *service.Dashboard
	Authn     *auth.Authenticator
	Sessions  *auth.SessionManager
	Users     repo.UserRepository
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		sender:    d.Sender,
		inbound:   d.Inbound,
		dashboard: d.Dashboard,
		authn:     d.Authn,
		sessions:  d.Sessions,
		users:     d.Users,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
