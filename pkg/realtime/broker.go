package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/vobuild/vobuild/pkg/fault"
)

// brokerResponse is the broker's session creation response.
type brokerResponse struct {
	ID           string `json:"id"`
	Model        string `json:"model"`
	ClientSecret struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`
}

// createSession asks the broker for an ephemeral credential.
func (c *Client) createSession(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"action": "create-session",
		"model":  c.config.model,
		"voice":  c.config.voice,
	})
	if err != nil {
		return "", fmt.Errorf("realtime: marshal broker request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.brokerURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("realtime: build broker request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.config.httpClient.Do(req)
	if err != nil {
		return "", fault.Wrap(fault.KindNegotiation, fmt.Errorf("realtime: broker request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fault.New(fault.KindNegotiation, "broker returned status %d: %s", resp.StatusCode, detail)
	}

	var br brokerResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return "", fault.Wrap(fault.KindNegotiation, fmt.Errorf("realtime: decode broker response: %w", err))
	}
	if br.ClientSecret.Value == "" {
		return "", fault.New(fault.KindNegotiation, "broker response carried no credential")
	}
	return br.ClientSecret.Value, nil
}
