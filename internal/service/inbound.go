package service

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/LeventeLantos/wa-relay/internal/model"
	"github.com/LeventeLantos/wa-relay/internal/repo"
)

// WebhookPayload is the Cloud API notification envelope. Only the fields
// used for text messages are modelled.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Metadata         WebhookMetadata  `json:"metadata"`
	Messages         []WebhookMessage `json:"messages"`
}

type WebhookMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type WebhookMessage struct {
	From string `json:"from"`
	ID   string `json:"id"`
	// Timestamp is epoch seconds, sent as a string by the provider. Numbers
	// are accepted too.
	Timestamp json.RawMessage `json:"timestamp"`
	Type      string          `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
}

// Notification is the fixed-shape result of parsing a payload.
type Notification struct {
	From      string
	To        string
	Body      string
	Timestamp time.Time
}

// Inbound handles the webhook handshake and message notifications.
type Inbound struct {
	verifyToken string
	records     repo.RecordRepository
}

func NewInbound(verifyToken string, records repo.RecordRepository) *Inbound {
	return &Inbound{verifyToken: verifyToken, records: records}
}

// Verify returns challenge unchanged when token matches the configured secret.
func (p *Inbound) Verify(token, challenge string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(token), []byte(p.verifyToken)) != 1 {
		return "", ErrInvalidVerifyToken
	}
	return challenge, nil
}

// Ingest parses body and stores it as a Received record. Replayed
// notifications are stored again; there is no deduplication.
func (p *Inbound) Ingest(ctx context.Context, body []byte) (*model.Record, error) {
	n, err := ParseNotification(body)
	if err != nil {
		return nil, err
	}

	rec := &model.Record{
		Sender:    n.From,
		Receiver:  n.To,
		Content:   n.Body,
		Timestamp: n.Timestamp,
		Status:    model.Received,
	}
	if err := p.records.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("record inbound message: %w", err)
	}
	return rec, nil
}

// ParseNotification reads entry[0].changes[0].value.messages[0]. It either
// returns a complete Notification or a *ValidationError.
func ParseNotification(body []byte) (*Notification, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &ValidationError{Problems: []string{"decode: " + err.Error()}}
	}

	// Each level needs the one above it, so these stop at the first gap.
	if len(payload.Entry) == 0 {
		return nil, &ValidationError{Problems: []string{"entry is missing or empty"}}
	}
	if len(payload.Entry[0].Changes) == 0 {
		return nil, &ValidationError{Problems: []string{"entry[0].changes is missing or empty"}}
	}
	value := payload.Entry[0].Changes[0].Value
	if len(value.Messages) == 0 {
		return nil, &ValidationError{Problems: []string{"entry[0].changes[0].value.messages is missing or empty"}}
	}

	var problems []string
	msg := value.Messages[0]
	if strings.TrimSpace(msg.From) == "" {
		problems = append(problems, "messages[0].from is missing")
	}
	secs, err := parseEpoch(msg.Timestamp)
	if err != nil {
		problems = append(problems, "messages[0].timestamp: "+err.Error())
	}
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	n := &Notification{
		From:      msg.From,
		To:        value.Metadata.DisplayPhoneNumber,
		Timestamp: time.Unix(secs, 0).UTC(),
	}
	if msg.Text != nil {
		n.Body = msg.Text.Body
	}
	return n, nil
}

// maxEpoch is 9999-12-31T23:59:59Z, the last second both stores can hold.
const maxEpoch = 253402300799

// parseEpoch accepts a JSON string or integer in [0, maxEpoch]. Absent, null
// and "" mean 0.
func parseEpoch(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}

	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
	}

	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not epoch seconds: %s", raw)
	}
	if secs < 0 || secs > maxEpoch {
		return 0, fmt.Errorf("epoch seconds out of range [0, %d]: %d", maxEpoch, secs)
	}
	return secs, nil
}
