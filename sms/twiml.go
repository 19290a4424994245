package sms

import "encoding/xml"

// ContentType is the response content type SMS providers expect from a
// webhook.
const ContentType = "text/xml"

type twiML struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// TwiML renders the single-message reply document understood by
// Twilio-compatible SMS providers.
func TwiML(message string) []byte {
	body, _ := xml.Marshal(twiML{Message: message})
	return append([]byte(xml.Header), body...)
}
