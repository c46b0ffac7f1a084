package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string

	DelegationTopic   string
	SweepInterval     time.Duration
	SweepBatchSize    int
	RelayInterval     time.Duration
	RelayBatchSize    int
	EnableExpirySweep bool
	EnableOutboxRelay bool
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "tenantkit"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	topic := os.Getenv("DELEGATION_EVENTS_TOPIC")
	if topic == "" {
		topic = "identity-access.delegations.v1"
	}

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		KafkaBrokers: brokers,

		DelegationTopic:   topic,
		SweepInterval:     envDuration("DELEGATION_SWEEP_INTERVAL", time.Hour),
		SweepBatchSize:    envInt("DELEGATION_SWEEP_BATCH_SIZE", 100),
		RelayInterval:     envDuration("DELEGATION_RELAY_INTERVAL", 5*time.Second),
		RelayBatchSize:    envInt("DELEGATION_RELAY_BATCH_SIZE", 100),
		EnableExpirySweep: envBool("ENABLE_DELEGATION_EXPIRY_SWEEP", true),
		EnableOutboxRelay: envBool("ENABLE_DELEGATION_OUTBOX_RELAY", true),
	}, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
