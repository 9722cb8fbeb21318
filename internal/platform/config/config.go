package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName     string
	HTTPPort        string
	PostgresDSN     string
	NatsURL         string
	OperatorAccount string
	FeePercent      int64

	EventRelaySubject  string
	EventRelayBatch    int
	EventRelayInterval int
}

func Load() (Config, error) {
	// Local development reads a .env file when present; real environments set
	// variables directly.
	_ = godotenv.Load()

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "croakmarket"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	subject := os.Getenv("EVENT_RELAY_SUBJECT")
	if subject == "" {
		subject = "market.events"
	}

	return Config{
		ServiceName:     service,
		HTTPPort:        port,
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		NatsURL:         os.Getenv("NATS_URL"),
		OperatorAccount: os.Getenv("OPERATOR_ACCOUNT"),
		FeePercent:      envInt64("FEE_PERCENT", 2),

		EventRelaySubject:  subject,
		EventRelayBatch:    int(envInt64("EVENT_RELAY_BATCH", 100)),
		EventRelayInterval: int(envInt64("EVENT_RELAY_INTERVAL_SECONDS", 5)),
	}, nil
}

func envInt64(name string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
