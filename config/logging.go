package config

import "go.uber.org/zap"

// setLogger builds the zap logger for the given APP_ENV value. Anything
// other than development or production falls back to the example logger,
// which keeps local output human readable.
func setLogger(env string) (*zap.Logger, error) {
	switch env {
	case "development":
		return zap.NewDevelopment()
	case "production":
		return zap.NewProduction()
	default:
		return zap.NewExample(), nil
	}
}
