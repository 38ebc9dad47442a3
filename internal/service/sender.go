package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/LeventeLantos/wa-relay/internal/client"
	"github.com/LeventeLantos/wa-relay/internal/model"
	"github.com/LeventeLantos/wa-relay/internal/repo"
)

const unknownProviderError = "Unknown error"

type SendClient interface {
	SendText(ctx context.Context, to, body string) (client.SendResult, error)
}

// Result is the outcome of one send attempt as shown to the user.
type Result struct {
	Status            model.Status
	Message           string
	Record            *model.Record
	ProviderMessageID string
}

type Sender struct {
	client      SendClient
	records     repo.RecordRepository
	senderPhone string
	now         func() time.Time

	onSent   func(ctx context.Context, rec model.Record, providerMessageID string)
	onFailed func(ctx context.Context, rec model.Record, reason string)
}

func NewSender(client SendClient, records repo.RecordRepository, senderPhone string) *Sender {
	return &Sender{
		client:      client,
		records:     records,
		senderPhone: senderPhone,
		now:         time.Now,
	}
}

// WithHooks registers callbacks that run after the record write was
// attempted. rec.ID is zero if that write failed.
func (s *Sender) WithHooks(
	onSent func(ctx context.Context, rec model.Record, providerMessageID string),
	onFailed func(ctx context.Context, rec model.Record, reason string),
) *Sender {
	s.onSent = onSent
	s.onFailed = onFailed
	return s
}

// Send relays messageText to phoneNumber and always records the attempt.
// Provider and transport failures are reported in Result, not as an error.
// The returned error is ErrInvalidInput or a failure to persist the record.
func (s *Sender) Send(ctx context.Context, phoneNumber, messageText string) (Result, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" || strings.TrimSpace(messageText) == "" {
		return Result{Status: model.Failed, Message: ErrInvalidInput.Error()}, ErrInvalidInput
	}

	// The provider call and the record write outlive a disconnected caller.
	ctx = context.WithoutCancel(ctx)
	attemptedAt := s.now().UTC()

	res, err := s.client.SendText(ctx, phoneNumber, messageText)

	var (
		status = model.Sent
		reason string
	)
	switch {
	case err != nil:
		status = model.Failed
		reason = err.Error()
	case !res.OK():
		status = model.Failed
		reason = res.ErrorMessage
		if reason == "" {
			reason = unknownProviderError
		}
	}

	result := Result{Status: status, ProviderMessageID: res.MessageID}
	if status == model.Sent {
		result.Message = fmt.Sprintf("Message sent successfully to %s", phoneNumber)
	} else {
		result.Message = "Failed to send message: " + reason
		slog.Warn("outbound send failed", "to", phoneNumber, "provider_status", res.StatusCode, "reason", reason)
	}

	rec := &model.Record{
		Sender:    s.senderPhone,
		Receiver:  phoneNumber,
		Content:   messageText,
		Timestamp: attemptedAt,
		Status:    status,
	}
	writeErr := s.records.Create(ctx, rec)
	result.Record = rec

	if status == model.Sent {
		if s.onSent != nil {
			s.onSent(ctx, *rec, res.MessageID)
		}
	} else if s.onFailed != nil {
		s.onFailed(ctx, *rec, reason)
	}

	if writeErr != nil {
		return result, fmt.Errorf("record outbound message: %w", writeErr)
	}
	return result, nil
}
