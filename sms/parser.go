package sms

import (
	"errors"
	"strconv"
	"strings"

	"github.com/lifeline-response/lifeline-api/models"
)

// ErrNoLocation means the message carried no usable coordinate pair. The
// webhook answers it with a help text instead of creating a report.
var ErrNoLocation = errors.New("sms: no usable coordinates in message")

// ParsedReport is the structured form of an inbound help text. Defaulting of
// absent fields (message, severity, people count) is the engine's job, not
// the parser's.
type ParsedReport struct {
	Location     models.Location
	Message      string
	IsMedical    bool
	IsFragile    bool
	PeopleCount  int
	BatteryLevel *int
}

// Parse reads the keyword grammar used by the SMS channel:
//
//	[H|HELP|SOS] <lat> <lng> [M] [F] [P<n>|<n>] [B<n>] [free text...]
//
// The leading keyword is optional. The first two numeric tokens become the
// coordinates and must be in range. Single-letter flags mark a medical (M)
// or fragile (F) situation, P<n> or a bare integer gives the people count,
// B<n> the phone's battery percent. Whatever is left over is kept as the
// message.
func Parse(body string) (*ParsedReport, error) {
	tokens := strings.Fields(body)
	if len(tokens) > 0 && isKeyword(tokens[0]) {
		tokens = tokens[1:]
	}

	parsed := &ParsedReport{}
	var lat, lng *float64
	var words []string

	for _, token := range tokens {
		if lat == nil || lng == nil {
			if f, err := strconv.ParseFloat(token, 64); err == nil {
				if lat == nil {
					lat = &f
				} else {
					lng = &f
				}
				continue
			}
		}

		upper := strings.ToUpper(token)
		switch {
		case upper == "M":
			parsed.IsMedical = true
		case upper == "F":
			parsed.IsFragile = true
		case strings.HasPrefix(upper, "P") && isInt(upper[1:]):
			parsed.PeopleCount, _ = strconv.Atoi(upper[1:])
		case strings.HasPrefix(upper, "B") && isInt(upper[1:]):
			b, _ := strconv.Atoi(upper[1:])
			parsed.BatteryLevel = &b
		case isInt(token):
			parsed.PeopleCount, _ = strconv.Atoi(token)
		default:
			words = append(words, token)
		}
	}

	if lat == nil || lng == nil {
		return nil, ErrNoLocation
	}
	parsed.Location = models.Location{Lat: *lat, Lng: *lng}
	if !parsed.Location.Valid() {
		return nil, ErrNoLocation
	}
	parsed.Message = strings.Join(words, " ")
	return parsed, nil
}

func isKeyword(token string) bool {
	switch strings.ToUpper(token) {
	case "H", "HELP", "SOS":
		return true
	}
	return false
}

func isInt(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.Atoi(s)
	return err == nil
}
