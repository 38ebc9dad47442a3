package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/LeventeLantos/wa-relay/internal/auth"
	"github.com/LeventeLantos/wa-relay/internal/metrics"
	"github.com/LeventeLantos/wa-relay/internal/model"
	"github.com/LeventeLantos/wa-relay/internal/service"
)

const (
	msgInvalidLogin     = "Invalid email or password."
	msgNotPrivileged    = "Your account is not allowed to access the dashboard."
	msgLoginRequired    = "Please log in to see this page."
	msgLoginUnavailable = "Login is temporarily unavailable. Try again later."
)

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "Log in", Next: r.URL.Query().Get("next")}
	switch r.URL.Query().Get("reason") {
	case auth.ReasonUnauthenticated:
		data.Error = msgLoginRequired
	case auth.ReasonForbidden:
		data.Error = msgNotPrivileged
	}
	render(w, http.StatusOK, "login.html", data)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		render(w, http.StatusBadRequest, "login.html", pageData{Title: "Log in", Error: msgInvalidLogin})
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))
	next := r.PostForm.Get("next")
	data := pageData{Title: "Log in", Next: next, EmailInput: email}

	u, err := h.authn.Login(r.Context(), email, r.PostForm.Get("password"))
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		slog.Info("login rejected", "reason", "invalid_credentials")
		data.Error = msgInvalidLogin
		render(w, http.StatusOK, "login.html", data)
		return
	case errors.Is(err, auth.ErrNotPrivileged):
		metrics.LoginAttempts.WithLabelValues("not_privileged").Inc()
		slog.Info("login rejected", "reason", "not_privileged", "user_id", u.ID)
		data.Error = msgNotPrivileged
		render(w, http.StatusOK, "login.html", data)
		return
	case err != nil:
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		slog.Error("login failed", "err", err)
		data.Error = msgLoginUnavailable
		render(w, http.StatusInternalServerError, "login.html", data)
		return
	}

	if _, err := h.sessions.Issue(w, u); err != nil {
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		slog.Error("issue session failed", "user_id", u.ID, "err", err)
		data.Error = msgLoginUnavailable
		render(w, http.StatusInternalServerError, "login.html", data)
		return
	}

	metrics.LoginAttempts.WithLabelValues("ok").Inc()
	slog.Info("login succeeded", "user_id", u.ID)
	http.Redirect(w, r, auth.SafeNext(next, "/dashboard/"), http.StatusFound)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(w, r); err != nil {
		slog.Warn("session revocation failed", "err", err)
	}
	http.Redirect(w, r, "/login/", http.StatusFound)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.dashboard.ListEntries(r.Context())
	if err != nil {
		slog.Error("list records failed", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	render(w, http.StatusOK, "dashboard.html", pageData{
		Title:   "Dashboard",
		Email:   sessionEmail(r),
		Entries: entries,
	})
}

func (h *Handler) SendForm(w http.ResponseWriter, r *http.Request) {
	render(w, http.StatusOK, "send.html", pageData{Title: "Send message", Email: sessionEmail(r)})
}

type sendRequest struct {
	PhoneNumber string `json:"phone_number"`
	Message     string `json:"message"`
}

// SendMessage always answers 200; the outcome is in the body.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	jsonBody := isJSON(r.Header.Get("Content-Type"))
	asJSON := jsonBody || strings.Contains(r.Header.Get("Accept"), "application/json")

	var in sendRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if jsonBody {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			h.respondSend(w, r, asJSON, in, model.Failed, "invalid request body")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			h.respondSend(w, r, asJSON, in, model.Failed, "invalid request body")
			return
		}
		in.PhoneNumber = r.PostForm.Get("phone_number")
		in.Message = r.PostForm.Get("message")
	}

	res, err := h.sender.Send(r.Context(), in.PhoneNumber, in.Message)
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		h.respondSend(w, r, asJSON, in, res.Status, res.Message)
		return
	case err != nil:
		slog.Error("outbound record not stored", "to", in.PhoneNumber, "status", res.Status, "err", err)
	}

	slog.Info("outbound message", "to", in.PhoneNumber, "status", res.Status)

	// Sent forms are cleared, failed ones keep their input for a retry.
	if res.Status == model.Sent {
		in = sendRequest{}
	}
	h.respondSend(w, r, asJSON, in, res.Status, res.Message)
}

func (h *Handler) respondSend(w http.ResponseWriter, r *http.Request, asJSON bool, in sendRequest, status model.Status, message string) {
	if asJSON {
		writeJSON(w, http.StatusOK, map[string]any{"status": status, "message": message})
		return
	}
	render(w, http.StatusOK, "send.html", pageData{
		Title:       "Send message",
		Email:       sessionEmail(r),
		Flash:       &flash{Status: string(status), Message: message},
		PhoneNumber: in.PhoneNumber,
		MessageText: in.Message,
	})
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/json"
}

func sessionEmail(r *http.Request) string {
	if s, ok := auth.SessionFromContext(r.Context()); ok && s != nil {
		return s.Email
	}
	return ""
}
