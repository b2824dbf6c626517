package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioConfig holds configuration for the Twilio WhatsApp gateway
type TwilioConfig struct {
	// APIURL redirects SDK calls to another host (a relay or a test server).
	// Empty uses Twilio's own endpoints.
	APIURL     string
	AccountSID string
	AuthToken  string
	FromNumber string // E.164 WhatsApp sender, with or without "whatsapp:" prefix
	Timeout    time.Duration
}

// TwilioGateway sends WhatsApp messages through Twilio's Messages API
type TwilioGateway struct {
	accountSID string
	from       string
	client     *twilio.RestClient
}

// NewTwilioGateway creates a new Twilio WhatsApp client
func NewTwilioGateway(config TwilioConfig) *TwilioGateway {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	httpClient := &http.Client{Timeout: timeout}
	if target, err := url.Parse(strings.TrimRight(config.APIURL, "/")); err == nil && target.Host != "" {
		httpClient.Transport = &hostOverride{target: target, next: http.DefaultTransport}
	}

	base := &twilioclient.Client{
		Credentials: twilioclient.NewCredentials(config.AccountSID, config.AuthToken),
		HTTPClient:  httpClient,
	}
	base.SetAccountSid(config.AccountSID)

	return &TwilioGateway{
		accountSID: config.AccountSID,
		from:       whatsAppAddress(config.FromNumber),
		client:     twilio.NewRestClientWithParams(twilio.ClientParams{Client: base}),
	}
}

// Send posts one message to Twilio. The SDK call is not context-aware, so a
// cancelled ctx abandons the wait while the HTTP client timeout bounds the call.
func (g *TwilioGateway) Send(ctx context.Context, msg Message) (string, error) {
	if msg.To == "" {
		return "", fmt.Errorf("whatsapp: recipient is required")
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetPathAccountSid(g.accountSID)
	params.SetFrom(g.from)
	params.SetTo(whatsAppAddress(msg.To))
	params.SetBody(msg.Body)
	if msg.MediaURL != "" {
		params.SetMediaUrl([]string{msg.MediaURL})
	}

	type result struct {
		resp *twilioApi.ApiV2010Message
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := g.client.Api.CreateMessage(params)
		done <- result{resp: resp, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		return "", fmt.Errorf("whatsapp send abandoned: %w", ctx.Err())
	}

	if res.err != nil {
		var apiErr *twilioclient.TwilioRestError
		if errors.As(res.err, &apiErr) {
			return "", fmt.Errorf("whatsapp send failed: %s (code %d, http %d)", apiErr.Message, apiErr.Code, apiErr.Status)
		}
		return "", fmt.Errorf("whatsapp send failed: %w", res.err)
	}

	if res.resp.ErrorCode != nil {
		message := ""
		if res.resp.ErrorMessage != nil {
			message = *res.resp.ErrorMessage
		}
		return "", fmt.Errorf("whatsapp send failed: %s (code %d)", message, *res.resp.ErrorCode)
	}
	if res.resp.Sid == nil {
		return "", fmt.Errorf("whatsapp send failed: response carried no message sid")
	}
	return *res.resp.Sid, nil
}

// GetName returns the gateway name
func (g *TwilioGateway) GetName() string {
	return "twilio-whatsapp"
}

// hostOverride sends every request to target, keeping the SDK-built path
type hostOverride struct {
	target *url.URL
	next   http.RoundTripper
}

func (h *hostOverride) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = h.target.Scheme
	out.URL.Host = h.target.Host
	out.URL.Path = h.target.Path + req.URL.Path
	out.Host = h.target.Host
	return h.next.RoundTrip(out)
}

func whatsAppAddress(number string) string {
	if number == "" || strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}
