package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LeventeLantos/wa-relay/internal/config"
)

func newTestClient(url string, timeout time.Duration) *WhatsAppClient {
	return NewWhatsAppClient(config.WhatsAppConfig{
		APIDomain:   url,
		PhoneID:     "1234567890",
		AccessToken: "test-token",
		Timeout:     timeout,
	})
}

func TestWhatsAppClient_SendText_Success(t *testing.T) {
	t.Parallel()

	type gotReq struct {
		Method        string
		Path          string
		ContentType   string
		Authorization string
		Body          []byte
	}

	var captured gotReq

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Method = r.Method
		captured.Path = r.URL.Path
		captured.ContentType = r.Header.Get("Content-Type")
		captured.Authorization = r.Header.Get("Authorization")
		captured.Body, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"messaging_product":"whatsapp","contacts":[{"input":"15551234567","wa_id":"15551234567"}],"messages":[{"id":"wamid.abc"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, time.Second)

	res, err := c.SendText(context.Background(), "15551234567", "hello")
	if err != nil {
		t.Fatalf("SendText() error: %v", err)
	}
	if !res.OK() {
		t.Fatalf("expected OK result, got %+v", res)
	}
	if res.MessageID != "wamid.abc" {
		t.Fatalf("expected message id %q, got %q", "wamid.abc", res.MessageID)
	}

	if captured.Method != http.MethodPost {
		t.Fatalf("expected method POST, got %q", captured.Method)
	}
	if captured.Path != "/1234567890/messages" {
		t.Fatalf("unexpected path %q", captured.Path)
	}
	if captured.ContentType != "application/json" {
		t.Fatalf("expected Content-Type application/json, got %q", captured.ContentType)
	}
	if captured.Authorization != "Bearer test-token" {
		t.Fatalf("unexpected Authorization %q", captured.Authorization)
	}

	var req sendRequest
	if err := json.Unmarshal(captured.Body, &req); err != nil {
		t.Fatalf("failed to decode request json: %v body=%q", err, string(captured.Body))
	}
	if req.MessagingProduct != "whatsapp" || req.RecipientType != "individual" || req.Type != "text" {
		t.Fatalf("unexpected envelope: %+v", req)
	}
	if req.To != "15551234567" {
		t.Fatalf("expected to %q, got %q", "15551234567", req.To)
	}
	if req.Text.Body != "hello" {
		t.Fatalf("expected body %q, got %q", "hello", req.Text.Body)
	}
}

func TestWhatsAppClient_SendText_ProviderError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"(#131030) Recipient phone number not in allowed list","type":"OAuthException","code":131030}}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL, time.Second).SendText(context.Background(), "1", "hi")
	if err != nil {
		t.Fatalf("SendText() error: %v", err)
	}
	if res.OK() {
		t.Fatalf("expected non-OK result")
	}
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.StatusCode)
	}
	if !strings.Contains(res.ErrorMessage, "not in allowed list") {
		t.Fatalf("expected provider error text, got %q", res.ErrorMessage)
	}
}

func TestWhatsAppClient_SendText_NonJSONBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL, time.Second).SendText(context.Background(), "1", "hi")
	if err != nil {
		t.Fatalf("SendText() error: %v", err)
	}
	if res.StatusCode != http.StatusBadGateway || res.ErrorMessage != "" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestWhatsAppClient_SendText_Timeout(t *testing.T) {
	t.Parallel()

	// Server that intentionally blocks longer than the client timeout.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 20*time.Millisecond).SendText(context.Background(), "1", "hi")
	if err == nil {
		t.Fatalf("expected timeout error, got nil")
	}
}

func TestWhatsAppClient_SendText_ContextCanceled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(srv.URL, time.Second).SendText(ctx, "1", "hi")
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "context") {
		t.Fatalf("expected context error, got: %v", err)
	}
}

func TestWhatsAppClient_SendText_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	if _, err := newTestClient(url, time.Second).SendText(context.Background(), "1", "hi"); err == nil {
		t.Fatalf("expected dial error, got nil")
	}
}
