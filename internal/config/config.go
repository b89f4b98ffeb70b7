package config

import (
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all client settings, populated from environment variables.
type Config struct {
	// Storm backend.
	APIURL         string
	RainURL        string
	HTTPTimeout    time.Duration
	ImageCacheSize int

	LogFile         string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	WatchInterval   time.Duration

	// Kafka event publishing (feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS).
	KafkaBrokers     []string
	KafkaEventsTopic string
	KafkaEnabled     bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	httpTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("STORMVIEW_HTTP_TIMEOUT", "10s"))
	if err != nil || httpTimeout <= 0 {
		return nil, errors.New("invalid STORMVIEW_HTTP_TIMEOUT")
	}

	watchInterval, err := time.ParseDuration(sharedcfg.EnvOrDefault("WATCH_INTERVAL", "5m"))
	if err != nil || watchInterval <= 0 {
		return nil, errors.New("invalid WATCH_INTERVAL")
	}

	apiURL := strings.TrimRight(sharedcfg.EnvOrDefault("STORMVIEW_API_URL", "http://localhost:8000/api"), "/")
	if !validBaseURL(apiURL) {
		return nil, errors.New("invalid STORMVIEW_API_URL")
	}
	rainURL := strings.TrimRight(sharedcfg.EnvOrDefault("STORMVIEW_RAIN_URL", apiURL), "/")
	if !validBaseURL(rainURL) {
		return nil, errors.New("invalid STORMVIEW_RAIN_URL")
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); strings.TrimSpace(raw) != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		APIURL:           apiURL,
		RainURL:          rainURL,
		HTTPTimeout:      httpTimeout,
		ImageCacheSize:   parseImageCacheSize(),
		LogFile:          os.Getenv("STORMVIEW_LOG_FILE"),
		HTTPAddr:         sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:  shutdownTimeout,
		WatchInterval:    watchInterval,
		KafkaBrokers:     brokers,
		KafkaEventsTopic: sharedcfg.EnvOrDefault("KAFKA_EVENTS_TOPIC", "stormview-events"),
		KafkaEnabled:     kafkaEnabled,
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaEventsTopic == "" {
		return nil, errors.New("KAFKA_EVENTS_TOPIC is required")
	}

	return cfg, nil
}

func validBaseURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func parseImageCacheSize() int {
	if s := os.Getenv("STORMVIEW_IMAGE_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 128
}
