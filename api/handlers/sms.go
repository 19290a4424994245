package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/lifeline-response/lifeline-api/config"
	"github.com/lifeline-response/lifeline-api/dispatch"
	"github.com/lifeline-response/lifeline-api/models"
	"github.com/lifeline-response/lifeline-api/sms"
)

// smsHelpText is sent back when a message carries no usable location.
const smsHelpText = "We could not read a location in your message. " +
	"Please text: HELP <latitude> <longitude> <details>. " +
	"Example: HELP 6.9271 79.8612 roof collapsed 3 people"

// SMS handles the inbound SMS webhook.
type SMS struct {
	Engine *dispatch.Engine
}

// IncomingSMSHandler ingests a Twilio-style form webhook. The response is
// always 200 with a TwiML body, even when the message cannot be parsed,
// so the gateway does not retry and the sender gets instructions instead
// of silence.
func (s SMS) IncomingSMSHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		config.ErrorStatus("failed to parse webhook form", http.StatusBadRequest, w, err)
		return
	}
	from := r.FormValue("From")
	body := r.FormValue("Body")

	parsed, err := sms.Parse(body)
	if err != nil {
		zap.S().Infow("sms report rejected", "from", from, "error", err)
		writeTwiML(w, smsHelpText)
		return
	}

	report, err := s.Engine.CreateReport(r.Context(), dispatch.CreateReportInput{
		Location:     &parsed.Location,
		Message:      parsed.Message,
		IsMedical:    parsed.IsMedical,
		IsFragile:    parsed.IsFragile,
		PeopleCount:  parsed.PeopleCount,
		BatteryLevel: parsed.BatteryLevel,
		Phone:        from,
		Source:       models.SourceSMS,
	})
	if err != nil {
		zap.S().Errorw("failed to create report from sms", "from", from, "error", err)
		writeTwiML(w, "We could not log your report. "+smsHelpText)
		return
	}

	writeTwiML(w, fmt.Sprintf("Help request received. Your report code is %s. Rescuers in the area have been notified.", report.ShortCode))
}

func writeTwiML(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", sms.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(sms.TwiML(message))
}
