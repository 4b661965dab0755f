package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ttbtrackr/internal/domain/notify"
)

// SocialChannel posts DMs through an external gateway service that owns the
// social-platform session. The gateway takes a JSON body and a bearer token.
type SocialChannel struct {
	gatewayURL string
	token      string
	httpClient *http.Client
}

func NewSocialChannel(gatewayURL, token string) *SocialChannel {
	return &SocialChannel{
		gatewayURL: gatewayURL,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *SocialChannel) Kind() notify.Kind {
	return notify.KindSocialMessage
}

func (c *SocialChannel) Send(ctx context.Context, destination, text string) error {
	payload, err := json.Marshal(map[string]string{
		"handle":  destination,
		"message": text,
	})
	if err != nil {
		return fmt.Errorf("error encoding social message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("error building social gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error calling social gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("social gateway returned status %d", resp.StatusCode)
	}
	return nil
}
