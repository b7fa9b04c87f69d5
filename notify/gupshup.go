package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultGupshupURL  = "https://api.gupshup.io"
	gupshupMessagePath = "/wa/api/v1/msg"
)

type GupshupConfig struct {
	BaseURL string // defaults to DefaultGupshupURL
	APIKey  string
	Source  string // sending number, digits only
	AppName string // src.name
	Timeout time.Duration
}

// Gupshup sends WhatsApp text messages through the Gupshup HTTP API.
type Gupshup struct {
	client *resty.Client
	cfg    GupshupConfig
}

func NewGupshup(cfg GupshupConfig) *Gupshup {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGupshupURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0)
	return &Gupshup{client: client, cfg: cfg}
}

type gupshupText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Send posts one form-encoded message. Any non-2xx status is an error.
func (g *Gupshup) Send(ctx context.Context, destination, text string) error {
	message, err := json.Marshal(gupshupText{Type: "text", Text: text})
	if err != nil {
		return err
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("apikey", g.cfg.APIKey).
		SetHeader("Cache-Control", "no-cache").
		SetFormData(map[string]string{
			"channel":     "whatsapp",
			"source":      g.cfg.Source,
			"destination": destination,
			"message":     string(message),
			"src.name":    g.cfg.AppName,
		}).
		Post(gupshupMessagePath)
	if err != nil {
		return fmt.Errorf("gupshup request: %w", err)
	}
	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return fmt.Errorf("gupshup status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
