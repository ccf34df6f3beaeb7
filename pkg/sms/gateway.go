// Package sms sends passenger-facing text messages through the configured
// gateway. Delivery is best effort; booking and settlement flows never
// block on it.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Sender is the delivery interface the notification layer depends on.
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// Gateway sends messages through an HTTP SMS provider.
type Gateway struct {
	apiURL   string
	username string
	password string
	senderID string
	client   *http.Client
}

// Config holds gateway credentials.
type Config struct {
	APIURL   string
	Username string
	Password string
	SenderID string
}

// NewGateway creates a new HTTP SMS gateway client.
func NewGateway(cfg Config) *Gateway {
	return &Gateway{
		apiURL:   cfg.APIURL,
		username: cfg.Username,
		password: cfg.Password,
		senderID: cfg.SenderID,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type sendRequest struct {
	To       string `json:"to"`
	Message  string `json:"message"`
	SenderID string `json:"sender_id,omitempty"`
}

type sendResponse struct {
	Status  string `json:"status"`
	Comment string `json:"comment,omitempty"`
	ErrCode string `json:"errCode,omitempty"`
}

// Send delivers one message to one recipient.
func (g *Gateway) Send(ctx context.Context, phone, message string) error {
	body, err := json.Marshal(sendRequest{
		To:       phone,
		Message:  message,
		SenderID: g.senderID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal SMS request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build SMS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.username, g.password)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read SMS response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("SMS gateway returned HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed sendResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fmt.Errorf("failed to parse SMS response: %w", err)
	}
	if parsed.Status != "success" {
		return fmt.Errorf("SMS gateway rejected message: %s (%s)", parsed.Comment, parsed.ErrCode)
	}
	return nil
}

// DevSender logs messages instead of sending them. Used outside
// production so local flows do not need gateway credentials.
type DevSender struct {
	Logger *logrus.Logger
}

// Send implements Sender by logging the message.
func (d *DevSender) Send(_ context.Context, phone, message string) error {
	d.Logger.WithFields(logrus.Fields{
		"phone":   phone,
		"message": message,
	}).Info("SMS (dev mode, not sent)")
	return nil
}
