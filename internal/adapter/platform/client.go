package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"guildmint/config"

	"github.com/rs/zerolog"
)

// Client implements ports.ChatPlatform against the chat platform's REST API.
// The bot's own HTTP surface handles commands; this client covers the reverse
// direction: member directory reads and operator alerts.
type Client struct {
	http     *http.Client
	baseURL  string
	botToken string
	alertURL string
	log      zerolog.Logger
}

// NewClient creates a platform API client from configuration.
func NewClient(cfg config.PlatformConfig, log zerolog.Logger) *Client {
	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		baseURL:  cfg.BaseURL,
		botToken: cfg.BotToken,
		alertURL: cfg.AlertWebhookURL,
		log:      log,
	}
}

type memberPage struct {
	Members []string `json:"members"`
}

// ListGuildMembers fetches one page of member external ids from the platform
// directory. An empty page signals the end of the listing.
func (c *Client) ListGuildMembers(ctx context.Context, externalGuildID string, page, pageSize int) ([]string, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("platform base_url not configured")
	}

	endpoint := fmt.Sprintf("%s/guilds/%s/members", c.baseURL, url.PathEscape(externalGuildID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building member list request: %w", err)
	}
	q := req.URL.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))
	req.URL.RawQuery = q.Encode()
	if c.botToken != "" {
		req.Header.Set("Authorization", "Bot "+c.botToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing guild members: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("platform member list returned status %d", resp.StatusCode)
	}

	var body memberPage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding member list: %w", err)
	}
	return body.Members, nil
}

// SendAlert delivers an operator alert through the configured webhook. Without
// a webhook the alert still lands in the log, so it is never silently lost.
func (c *Client) SendAlert(ctx context.Context, message string) error {
	if c.alertURL == "" {
		c.log.Warn().Str("alert", message).Msg("no alert webhook configured, logging only")
		return nil
	}

	payload, err := json.Marshal(map[string]string{"content": message})
	if err != nil {
		return fmt.Errorf("encoding alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.alertURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("delivering alert: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode)
	}
	return nil
}
