package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sendgrid/rest"

	"github.com/lifeline-response/lifeline-api/config"
)

// requestTimeout bounds every outbound notification attempt. There are no
// retries: the state change is already committed and the message is best
// effort.
const requestTimeout = 10 * time.Second

const twilioAPIBase = "https://api.twilio.com"

// SMSSender sends one text message with a single bounded attempt.
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

// TwilioSender posts messages to the Twilio REST API.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	client     *rest.Client
}

// NewTwilioSender builds a sender from the configured gateway credentials.
func NewTwilioSender(conf config.TwilioConfig) *TwilioSender {
	return &TwilioSender{
		accountSID: conf.AccountSID,
		authToken:  conf.AuthToken,
		from:       conf.FromNumber,
		baseURL:    twilioAPIBase,
		client:     &rest.Client{HTTPClient: &http.Client{Timeout: requestTimeout}},
	}
}

// Send posts one message to the Messages endpoint. A non-2xx reply is an
// error; the caller decides whether that matters.
func (t *TwilioSender) Send(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", t.from)
	form.Set("Body", body)

	req := rest.Request{
		Method:  rest.Post,
		BaseURL: fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, t.accountSID),
		Headers: map[string]string{
			"Authorization": "Basic " + base64.StdEncoding.EncodeToString([]byte(t.accountSID+":"+t.authToken)),
			"Content-Type":  "application/x-www-form-urlencoded",
		},
		Body: []byte(form.Encode()),
	}

	resp, err := t.client.SendWithContext(ctx, req)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("twilio returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
