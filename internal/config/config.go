// Package config handles application configuration via environment variables.
package config

import (
	"log"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"callcard-relay/internal/apperror"
)

// Config holds all configurable values for the app.
type Config struct {
	Env      string
	Port     string
	LogLevel string

	PipedriveAPIToken string `validate:"required"`
	PipedriveBaseURL  string `validate:"required,url"`
	PipedriveAppURL   string `validate:"required,url"`

	AircallAPIID    string `validate:"required"`
	AircallAPIToken string `validate:"required"`
	AircallBaseURL  string `validate:"required,url"`

	HTTPTimeout  time.Duration
	CardTimezone *time.Location
}

// Load reads environment variables, seeded from a .env file when one exists,
// and populates a Config struct. Invalid values panic.
func Load() *Config {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	timeout, err := time.ParseDuration(getEnv("HTTP_TIMEOUT", "15s"))
	if err != nil {
		log.Panicf("Invalid HTTP_TIMEOUT: %v", err)
	}

	loc, err := time.LoadLocation(getEnv("CARD_TIMEZONE", "UTC"))
	if err != nil {
		log.Panicf("Invalid CARD_TIMEZONE: %v", err)
	}

	return &Config{
		Env:               getEnv("ENV", "development"),
		Port:              getEnv("PORT", "3000"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
		PipedriveAPIToken: os.Getenv("PIPEDRIVE_API_TOKEN"),
		PipedriveBaseURL:  getEnv("PIPEDRIVE_BASE_URL", "https://api.pipedrive.com/v1"),
		PipedriveAppURL:   getEnv("PIPEDRIVE_APP_URL", "https://app.pipedrive.com"),
		AircallAPIID:      os.Getenv("AIRCALL_API_ID"),
		AircallAPIToken:   os.Getenv("AIRCALL_API_TOKEN"),
		AircallBaseURL:    getEnv("AIRCALL_BASE_URL", "https://api.aircall.io"),
		HTTPTimeout:       timeout,
		CardTimezone:      loc,
	}
}

// Validate reports missing credentials and malformed URLs as {field: message} pairs.
func (c *Config) Validate(v *validator.Validate) []map[string]string {
	if err := v.Struct(c); err != nil {
		return apperror.CustomValidationError(err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
