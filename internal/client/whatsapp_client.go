package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/LeventeLantos/wa-relay/internal/config"
)

const maxResponseBytes = 1 << 20

// WhatsAppClient posts text messages to the Cloud API messages endpoint.
type WhatsAppClient struct {
	endpoint    string
	accessToken string
	client      *http.Client
}

func NewWhatsAppClient(cfg config.WhatsAppConfig) *WhatsAppClient {
	return &WhatsAppClient{
		endpoint:    fmt.Sprintf("%s/%s/messages", cfg.APIDomain, cfg.PhoneID),
		accessToken: cfg.AccessToken,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type textBody struct {
	Body string `json:"body"`
}

type sendRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendResult is what the provider answered. ErrorMessage is empty when the
// provider gave no error text.
type SendResult struct {
	StatusCode   int
	MessageID    string
	ErrorMessage string
}

func (r SendResult) OK() bool {
	return r.StatusCode == http.StatusOK
}

// SendText issues one POST. A non-nil error means the request never got an
// HTTP answer (bad request construction, dial failure, timeout).
func (c *WhatsAppClient) SendText(ctx context.Context, to, body string) (SendResult, error) {
	reqBody, err := json.Marshal(sendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: body},
	})
	if err != nil {
		return SendResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return SendResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return SendResult{}, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	result := SendResult{StatusCode: resp.StatusCode}

	var sr sendResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		// Non-JSON bodies (proxies, HTML error pages) carry no usable fields.
		return result, nil
	}
	if len(sr.Messages) > 0 {
		result.MessageID = sr.Messages[0].ID
	}
	if sr.Error != nil {
		result.ErrorMessage = sr.Error.Message
	}
	return result, nil
}
