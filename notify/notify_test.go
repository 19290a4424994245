package notify

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeline-response/lifeline-api/config"
	"github.com/lifeline-response/lifeline-api/models"
)

type sentSMS struct {
	to   string
	body string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentSMS
	err  error
}

func (f *fakeSender) Send(ctx context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentSMS{to: to, body: body})
	return nil
}

func claimedReport() *models.Report {
	return &models.Report{
		ID:        "rep-1",
		ShortCode: "AB12",
		Phone:     "+94771234567",
		Status:    models.StatusClaimed,
		ETA:       "10m",
		Claimant:  &models.Claimant{ID: "resc-1", Name: "Nadia"},
	}
}

func TestService_ReportClaimedTextsReporter(t *testing.T) {
	sender := &fakeSender{}
	svc := New(&config.Config{}).WithSender(sender)

	svc.ReportClaimed(context.Background(), claimedReport())

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "+94771234567", sender.sent[0].to)
	assert.Contains(t, sender.sent[0].body, "Nadia")
	assert.Contains(t, sender.sent[0].body, "AB12")
	assert.Contains(t, sender.sent[0].body, "10m")
}

func TestService_ReportClaimedSkipsWhenUnreachable(t *testing.T) {
	sender := &fakeSender{}
	svc := New(&config.Config{}).WithSender(sender)

	noPhone := claimedReport()
	noPhone.Phone = ""
	svc.ReportClaimed(context.Background(), noPhone)
	assert.Empty(t, sender.sent)

	noClaimant := claimedReport()
	noClaimant.Claimant = nil
	svc.ReportClaimed(context.Background(), noClaimant)
	assert.Empty(t, sender.sent)

	// No gateway configured at all: must stay a silent no-op.
	bare := New(&config.Config{})
	bare.ReportClaimed(context.Background(), claimedReport())
}

func TestService_StatusMilestones(t *testing.T) {
	sender := &fakeSender{}
	svc := New(&config.Config{}).WithSender(sender)

	report := claimedReport()
	for _, status := range []models.Status{
		models.StatusEnRoute, models.StatusArrived, models.StatusRescued, models.StatusClosed,
	} {
		report.Status = status
		svc.ReportStatusChanged(context.Background(), report)
	}

	// Only en_route and rescued are worth a text.
	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[0].body, "on the way")
	assert.Contains(t, sender.sent[1].body, "rescued")
}

func TestService_SendFailureIsSwallowed(t *testing.T) {
	sender := &fakeSender{err: assert.AnError}
	svc := New(&config.Config{}).WithSender(sender)

	svc.ReportClaimed(context.Background(), claimedReport())
	assert.Empty(t, sender.sent)
}

func TestService_ReportCreatedWithoutMailConfigIsNoop(t *testing.T) {
	svc := New(&config.Config{})
	report := claimedReport()
	report.Severity = models.SeverityCritical
	svc.ReportCreated(context.Background(), report)
}

func TestNew_EnablesTwilioOnlyWhenFullyConfigured(t *testing.T) {
	svc := New(&config.Config{Twilio: config.TwilioConfig{AccountSID: "AC123"}})
	assert.Nil(t, svc.sms, "partial credentials must not enable the gateway")

	svc = New(&config.Config{Twilio: config.TwilioConfig{
		AccountSID: "AC123", AuthToken: "secret", FromNumber: "+15550001111",
	}})
	assert.NotNil(t, svc.sms)
}

func TestTwilioSender_Send(t *testing.T) {
	var gotPath, gotAuth string
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotForm, _ = url.ParseQuery(string(body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM123"}`))
	}))
	defer srv.Close()

	sender := NewTwilioSender(config.TwilioConfig{
		AccountSID: "AC123", AuthToken: "secret", FromNumber: "+15550001111",
	})
	sender.baseURL = srv.URL

	err := sender.Send(context.Background(), "+94771234567", "Help is on the way")
	assert.NoError(t, err)
	assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", gotPath)
	assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("AC123:secret")), gotAuth)
	assert.Equal(t, "+94771234567", gotForm.Get("To"))
	assert.Equal(t, "+15550001111", gotForm.Get("From"))
	assert.Equal(t, "Help is on the way", gotForm.Get("Body"))
}

func TestTwilioSender_SendRejectedByGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"invalid number"}`))
	}))
	defer srv.Close()

	sender := NewTwilioSender(config.TwilioConfig{
		AccountSID: "AC123", AuthToken: "secret", FromNumber: "+15550001111",
	})
	sender.baseURL = srv.URL

	err := sender.Send(context.Background(), "not-a-number", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "invalid number")
}
