package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/lifeline-response/lifeline-api/config"
	"github.com/lifeline-response/lifeline-api/models"
)

// Service pushes best-effort notifications out of band: texts to the
// reporter's phone and an ops email for critical reports. Every channel that
// is not configured simply stays quiet. Failures are logged and swallowed;
// by the time a notification runs the state change is already committed and
// must not be rolled back.
type Service struct {
	sms       SMSSender
	mailKey   string
	alertTo   string
	alertFrom string
}

// New wires up the channels that have credentials. A Service built from an
// empty config is a usable no-op.
func New(conf *config.Config) *Service {
	svc := &Service{
		mailKey:   conf.Sendgrid.APIKey,
		alertTo:   conf.Sendgrid.AlertTo,
		alertFrom: conf.Sendgrid.AlertFrom,
	}
	if svc.alertFrom == "" {
		svc.alertFrom = "alerts@lifeline-response.org"
	}
	if conf.Twilio.AccountSID != "" && conf.Twilio.AuthToken != "" && conf.Twilio.FromNumber != "" {
		svc.sms = NewTwilioSender(conf.Twilio)
	}
	return svc
}

// WithSender swaps the SMS gateway, mainly for tests.
func (s *Service) WithSender(sender SMSSender) *Service {
	s.sms = sender
	return s
}

// ReportCreated alerts the ops mailbox about critical reports. Ordinary
// reports generate no outbound traffic; the websocket broadcast covers them.
func (s *Service) ReportCreated(ctx context.Context, report *models.Report) {
	if report.Severity != models.SeverityCritical {
		return
	}
	s.sendOpsAlert(ctx, report)
}

// ReportClaimed texts the reporter that someone is coming.
func (s *Service) ReportClaimed(ctx context.Context, report *models.Report) {
	if report.Claimant == nil {
		return
	}
	name := report.Claimant.Name
	if name == "" {
		name = "A rescuer"
	}
	msg := fmt.Sprintf("%s is responding to your report %s.", name, report.ShortCode)
	if report.ETA != "" {
		msg += fmt.Sprintf(" Estimated arrival: %s.", report.ETA)
	}
	s.sendSMS(ctx, report, msg)
}

// ReportStatusChanged texts the reporter on the milestones worth a message:
// help moving (en_route) and the rescue itself.
func (s *Service) ReportStatusChanged(ctx context.Context, report *models.Report) {
	var msg string
	switch report.Status {
	case models.StatusEnRoute:
		msg = fmt.Sprintf("Help is on the way for report %s.", report.ShortCode)
	case models.StatusRescued:
		msg = fmt.Sprintf("Report %s has been marked rescued. Stay safe.", report.ShortCode)
	default:
		return
	}
	s.sendSMS(ctx, report, msg)
}

func (s *Service) sendSMS(ctx context.Context, report *models.Report, msg string) {
	if s.sms == nil || report.Phone == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	if err := s.sms.Send(ctx, report.Phone, msg); err != nil {
		zap.S().Errorw("failed to send sms notification", "report", report.ID, "error", err)
		return
	}
	zap.S().Debugw("sms notification sent", "report", report.ID)
}

func (s *Service) sendOpsAlert(ctx context.Context, report *models.Report) {
	if s.mailKey == "" || s.alertTo == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	subject := fmt.Sprintf("Critical report %s", report.ShortCode)
	plain := fmt.Sprintf("Critical report %s at (%.5f, %.5f): %s. People affected: %d.",
		report.ShortCode, report.Location.Lat, report.Location.Lng, report.Message, report.PeopleCount)
	html := fmt.Sprintf("<p><strong>Critical report %s</strong> at (%.5f, %.5f)</p><p>%s</p><p>People affected: %d</p>",
		report.ShortCode, report.Location.Lat, report.Location.Lng, report.Message, report.PeopleCount)

	from := mail.NewEmail("Lifeline Response", s.alertFrom)
	to := mail.NewEmail("Operations", s.alertTo)
	message := mail.NewSingleEmail(from, subject, to, plain, html)

	client := sendgrid.NewSendClient(s.mailKey)
	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		zap.S().Errorw("failed to send ops alert email", "report", report.ID, "error", err)
		return
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body)
	}
}
