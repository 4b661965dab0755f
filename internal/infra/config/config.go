package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken string
	DatabaseURL   string
	AdminChatID   int64 // operator chat for diagnostics and admin commands
	LogLevel      string
	Environment   string

	// Timetable API
	TimetableURL string
	Sessions     []string // session codes sent with every lookup, e.g. 20239
	Divisions    []string

	// Reconciliation loop
	PollInterval              time.Duration
	CycleTimeout              time.Duration
	EnforceEnrollmentControls bool
	CronSpecMaintenance       string

	// Twilio (phone channels)
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	// Social DM gateway
	SocialGatewayURL   string
	SocialGatewayToken string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	adminIDStr := os.Getenv("ADMIN_CHAT_ID")
	if adminIDStr == "" {
		return nil, fmt.Errorf("ADMIN_CHAT_ID is not set")
	}
	cfg.AdminChatID, err = strconv.ParseInt(adminIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_CHAT_ID: %w", err)
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.TimetableURL = os.Getenv("TIMETABLE_API_URL")
	if cfg.TimetableURL == "" {
		cfg.TimetableURL = "https://api.easi.utoronto.ca/ttb/getPageableCourses"
	}
	cfg.Sessions = splitList(os.Getenv("TIMETABLE_SESSIONS"))
	if len(cfg.Sessions) == 0 {
		return nil, fmt.Errorf("TIMETABLE_SESSIONS is not set")
	}
	cfg.Divisions = splitList(os.Getenv("TIMETABLE_DIVISIONS"))
	if len(cfg.Divisions) == 0 {
		cfg.Divisions = []string{"APSC", "ARTSC", "FPEH", "MUSIC", "ARCLA", "ERIN", "SCAR"}
	}

	pollSecondsStr := os.Getenv("POLL_INTERVAL_SECONDS")
	if pollSecondsStr == "" {
		pollSecondsStr = "45"
	}
	pollSeconds, err := strconv.Atoi(pollSecondsStr)
	if err != nil || pollSeconds <= 0 {
		return nil, fmt.Errorf("invalid POLL_INTERVAL_SECONDS %q", pollSecondsStr)
	}
	cfg.PollInterval = time.Duration(pollSeconds) * time.Second
	// A slow cycle is cut off at the next tick boundary rather than allowed
	// to pile up behind the API.
	cfg.CycleTimeout = cfg.PollInterval

	enforceStr := os.Getenv("ENFORCE_ENROLLMENT_CONTROLS")
	if enforceStr == "" {
		cfg.EnforceEnrollmentControls = true
	} else {
		cfg.EnforceEnrollmentControls, err = strconv.ParseBool(enforceStr)
		if err != nil {
			return nil, fmt.Errorf("invalid ENFORCE_ENROLLMENT_CONTROLS: %w", err)
		}
	}

	cfg.CronSpecMaintenance = os.Getenv("CRON_SPEC_MAINTENANCE")
	if cfg.CronSpecMaintenance == "" {
		cfg.CronSpecMaintenance = "0 4 * * *" // Default: 4:00 AM daily
	}

	cfg.TwilioAccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	cfg.TwilioAuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	cfg.TwilioFromNumber = os.Getenv("TWILIO_FROM_NUMBER")
	if cfg.TwilioAccountSID != "" && (cfg.TwilioAuthToken == "" || cfg.TwilioFromNumber == "") {
		return nil, fmt.Errorf("TWILIO_ACCOUNT_SID is set but TWILIO_AUTH_TOKEN or TWILIO_FROM_NUMBER is missing")
	}

	cfg.SocialGatewayURL = os.Getenv("SOCIAL_GATEWAY_URL")
	cfg.SocialGatewayToken = os.Getenv("SOCIAL_GATEWAY_TOKEN")

	return cfg, nil
}

// PhoneChannelsConfigured reports whether the Twilio credentials needed for
// SMS and voice-call notifications are present.
func (c *AppConfig) PhoneChannelsConfigured() bool {
	return c.TwilioAccountSID != ""
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
