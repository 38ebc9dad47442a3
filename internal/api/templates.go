package api

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/LeventeLantos/wa-relay/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type flash struct {
	Status  string
	Message string
}

type pageData struct {
	Title string
	Email string

	// login
	Error      string
	Next       string
	EmailInput string

	// dashboard and send
	Entries     []service.Entry
	Flash       *flash
	PhoneNumber string
	MessageText string
}

// render executes name into a buffer so a template error still yields a
// clean 500.
func render(w http.ResponseWriter, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("render template failed", "template", name, "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
