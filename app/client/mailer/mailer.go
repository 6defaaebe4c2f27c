package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"pamubot/app/config"

	"github.com/samber/do"
	"github.com/samber/oops"
)

const sendEndpoint = "https://api.brevo.com/v3/smtp/email"

type Message struct {
	To      string
	CC      string
	Subject string
	Body    string
}

type Receipt struct {
	MessageID string
}

// Client sends transactional email through the Brevo API.
type Client struct {
	apiKey      string
	senderEmail string
	senderName  string
	httpClient  *http.Client
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Client{
		apiKey:      cfg.Mail.APIKey,
		senderEmail: cfg.Mail.SenderEmail,
		senderName:  cfg.Mail.SenderName,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

type recipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendRequest struct {
	Sender      recipient   `json:"sender"`
	To          []recipient `json:"to"`
	CC          []recipient `json:"cc,omitempty"`
	Subject     string      `json:"subject"`
	HTMLContent string      `json:"htmlContent"`
}

type sendResponse struct {
	MessageID string `json:"messageId"`
	Message   string `json:"message"`
}

func (c *Client) Send(ctx context.Context, msg Message) (*Receipt, error) {
	if c.apiKey == "" {
		return nil, oops.Errorf("mail api key is not configured")
	}

	payload := sendRequest{
		Sender:      recipient{Email: c.senderEmail, Name: c.senderName},
		To:          []recipient{{Email: msg.To}},
		Subject:     msg.Subject,
		HTMLContent: msg.Body,
	}
	if msg.CC != "" {
		payload.CC = []recipient{{Email: msg.CC}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to marshal email payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, oops.Wrapf(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to send email")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, oops.Wrapf(err, "failed to read send response")
	}

	var parsed sendResponse
	if err = json.Unmarshal(respBody, &parsed); err != nil {
		return nil, oops.Wrapf(err, "failed to parse send response")
	}

	if resp.StatusCode >= 300 {
		return nil, oops.Errorf("email send failed with status %d: %s", resp.StatusCode, parsed.Message)
	}

	return &Receipt{MessageID: parsed.MessageID}, nil
}
