// Package contact holds the out-of-band contact adapters: Twilio for phone
// channels and a webhook gateway for social DMs.
package contact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ttbtrackr/internal/domain/notify"
)

const (
	twilioAPIBase         = "https://api.twilio.com/2010-04-01"
	defaultContactTimeout = 10 * time.Second
)

// TwilioClient talks to the Twilio REST API for SMS and voice calls.
type TwilioClient struct {
	accountSID string
	authToken  string
	fromNumber string
	apiBase    string
	httpClient *http.Client
}

func NewTwilioClient(accountSID, authToken, fromNumber string) *TwilioClient {
	return &TwilioClient{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		apiBase:    twilioAPIBase,
		httpClient: &http.Client{Timeout: defaultContactTimeout},
	}
}

// SendSMS sends a text message to the given E.164 number.
func (c *TwilioClient) SendSMS(ctx context.Context, number, text string) error {
	form := url.Values{}
	form.Set("From", c.fromNumber)
	form.Set("To", number)
	form.Set("Body", text)
	return c.post(ctx, fmt.Sprintf("%s/Accounts/%s/Messages.json", c.apiBase, c.accountSID), form)
}

// PlaceCall places a voice call that reads the message out and hangs up.
func (c *TwilioClient) PlaceCall(ctx context.Context, number, text string) error {
	twiml := fmt.Sprintf(
		`<Response><Say voice="Polly.Joanna">%s</Say><Hangup/></Response>`,
		escapeTwiML(text))
	form := url.Values{}
	form.Set("From", c.fromNumber)
	form.Set("To", number)
	form.Set("Twiml", twiml)
	form.Set("MachineDetection", "DetectMessageEnd")
	return c.post(ctx, fmt.Sprintf("%s/Accounts/%s/Calls.json", c.apiBase, c.accountSID), form)
}

func (c *TwilioClient) post(ctx context.Context, endpoint string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("error building twilio request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error calling twilio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("twilio returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func escapeTwiML(s string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return replacer.Replace(s)
}

// SMSChannel exposes TwilioClient.SendSMS as a notification channel.
type SMSChannel struct {
	client *TwilioClient
}

func NewSMSChannel(client *TwilioClient) *SMSChannel {
	return &SMSChannel{client: client}
}

func (c *SMSChannel) Kind() notify.Kind {
	return notify.KindSMS
}

func (c *SMSChannel) Send(ctx context.Context, destination, text string) error {
	return c.client.SendSMS(ctx, destination, text)
}

// VoiceChannel exposes TwilioClient.PlaceCall as a notification channel.
type VoiceChannel struct {
	client *TwilioClient
}

func NewVoiceChannel(client *TwilioClient) *VoiceChannel {
	return &VoiceChannel{client: client}
}

func (c *VoiceChannel) Kind() notify.Kind {
	return notify.KindVoiceCall
}

func (c *VoiceChannel) Send(ctx context.Context, destination, text string) error {
	return c.client.PlaceCall(ctx, destination, text)
}
