package config

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/lifeline-response/lifeline-api/models"
)

// Config holds the project config values
type Config struct {
	Port                  string
	BaseUrl               string
	Url                   string
	DatabaseName          string
	StoreBackend          string
	AllowSelfReclaim      bool
	RescuerLivenessWindow time.Duration

	Twilio     TwilioConfig
	Sendgrid   SendgridConfig
	Cloudinary CloudinaryConfig
}

// TwilioConfig carries the SMS gateway credentials. Leaving them empty
// disables outbound SMS without affecting inbound webhook parsing.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// SendgridConfig carries the ops alert mail settings. An empty recipient
// disables alert mail.
type SendgridConfig struct {
	APIKey    string
	AlertTo   string
	AlertFrom string
}

// CloudinaryConfig carries the photo upload signing credentials.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

// New sets up all config related services
func New() *Config {

	//setup zap logger and replace default logger
	logger, err := setLogger(os.Getenv("APP_ENV"))
	if err != nil {
		logger = zap.NewExample()
	}
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	return &Config{
		Port:                  envOr("PORT", "8080"),
		BaseUrl:               os.Getenv("BASE_URL"),
		Url:                   os.Getenv("DB_URI"),
		DatabaseName:          os.Getenv("DB_NAME"),
		StoreBackend:          envOr("STORE_BACKEND", "memory"),
		AllowSelfReclaim:      envBool("ALLOW_SELF_RECLAIM"),
		RescuerLivenessWindow: envDuration("RESCUER_LIVENESS_WINDOW", 5*time.Minute),
		Twilio: TwilioConfig{
			AccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
			FromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
		},
		Sendgrid: SendgridConfig{
			APIKey:    os.Getenv("SENDGRID_API_KEY"),
			AlertTo:   os.Getenv("OPS_ALERT_EMAIL"),
			AlertFrom: os.Getenv("OPS_ALERT_FROM"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:    os.Getenv("CLOUDINARY_API_KEY"),
			APISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		},
	}

}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With(err).Error(message)
	w.WriteHeader(httpStatusCode)
	b, _ := json.Marshal(models.ErrorMessageResponse{Response: models.MessageError{Message: message, Error: err.Error()}})
	w.Write(b)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return false
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
