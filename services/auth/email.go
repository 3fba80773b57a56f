package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// EmailClient fires best-effort outbound requests to the external email
// delivery service. Per spec §4.1, send failures are logged but never
// fatal to the caller-facing flow, except resend-verification.
type EmailClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     zerolog.Logger
}

func NewEmailClient(baseURL, apiKey string, log zerolog.Logger) *EmailClient {
	return &EmailClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

type emailPayload struct {
	To       string `json:"to"`
	Template string `json:"template"`
	Data     any    `json:"data"`
}

// Send posts a templated email request; delivery errors are logged and
// returned. SendBestEffort discards the returned error; resend-verification
// calls Send directly and treats the error as fatal.
func (c *EmailClient) Send(ctx context.Context, to, template string, data any) error {
	if c.baseURL == "" {
		c.log.Warn().Str("template", template).Msg("email service url not configured, skipping send")
		return nil
	}

	body, err := json.Marshal(emailPayload{To: to, Template: template, Data: data})
	if err != nil {
		return fmt.Errorf("email: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("email: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("template", template).Msg("email send failed")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		err := fmt.Errorf("email: service returned status %d", resp.StatusCode)
		c.log.Warn().Err(err).Str("template", template).Msg("email send failed")
		return err
	}
	return nil
}

func (c *EmailClient) SendBestEffort(ctx context.Context, to, template string, data any) {
	if err := c.Send(ctx, to, template, data); err != nil {
		c.log.Warn().Err(err).Str("to", to).Msg("best-effort email send failed, continuing")
	}
}
