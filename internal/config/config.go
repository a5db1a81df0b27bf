package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	KafkaBrokers    []string
	KafkaAlertTopic string

	DatabasePath string

	// FIRMS feed configuration. FIRMSKeyParam names the secret holding the API key.
	FIRMSBaseURL  string
	FIRMSSource   string
	FIRMSCountry  string
	FIRMSDays     int
	FIRMSTimeout  time.Duration
	FIRMSKeyParam string

	// OpenCage geocoding configuration.
	OpenCageBaseURL   string
	OpenCageKeyParam  string
	OpenCageTimeout   time.Duration
	OpenCageCacheSize int
	OpenCageRate      float64

	// Run scheduling and tuning.
	RunInterval  time.Duration
	RunOnStart   bool
	Concurrency  int
	RadiusMiles  float64
	MinIntensity float64
	GridSize     float64
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	firmsTimeout, err := parseDuration("FIRMS_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	openCageTimeout, err := parseDuration("OPENCAGE_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	runInterval, err := parseDuration("RUN_INTERVAL", "24h")
	if err != nil {
		return nil, err
	}

	firmsDays, err := parsePositiveInt("FIRMS_DAYS", 1)
	if err != nil {
		return nil, err
	}
	concurrency, err := parsePositiveInt("CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}

	radius, err := parsePositiveFloat("RADIUS_MILES", 100)
	if err != nil {
		return nil, err
	}
	minFRP, err := parseNonNegativeFloat("MIN_FRP", 50)
	if err != nil {
		return nil, err
	}
	gridSize, err := parsePositiveFloat("GRID_SIZE", 0.0725)
	if err != nil {
		return nil, err
	}
	openCageRate, err := parseNonNegativeFloat("OPENCAGE_RATE", 1)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAlertTopic: sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "wildfire-alerts"),

		DatabasePath: sharedcfg.EnvOrDefault("DATABASE_PATH", "wildfire-alerts.db"),

		FIRMSBaseURL:  sharedcfg.EnvOrDefault("FIRMS_BASE_URL", "https://firms.modaps.eosdis.nasa.gov"),
		FIRMSSource:   sharedcfg.EnvOrDefault("FIRMS_SOURCE", "MODIS_NRT"),
		FIRMSCountry:  sharedcfg.EnvOrDefault("FIRMS_COUNTRY", "USA"),
		FIRMSDays:     firmsDays,
		FIRMSTimeout:  firmsTimeout,
		FIRMSKeyParam: os.Getenv("NASA_API_PARAMETER_NAME"),

		OpenCageBaseURL:   sharedcfg.EnvOrDefault("OPENCAGE_BASE_URL", "https://api.opencagedata.com"),
		OpenCageKeyParam:  os.Getenv("OPENCAGE_API_PARAMETER_NAME"),
		OpenCageTimeout:   openCageTimeout,
		OpenCageCacheSize: parseCacheSize(),
		OpenCageRate:      openCageRate,

		RunInterval:  runInterval,
		RunOnStart:   os.Getenv("RUN_ON_START") == "true",
		Concurrency:  concurrency,
		RadiusMiles:  radius,
		MinIntensity: minFRP,
		GridSize:     gridSize,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaAlertTopic == "" {
		return nil, errors.New("KAFKA_ALERT_TOPIC is required")
	}
	if cfg.FIRMSKeyParam == "" {
		return nil, errors.New("NASA_API_PARAMETER_NAME is required")
	}
	if cfg.OpenCageKeyParam == "" {
		return nil, errors.New("OPENCAGE_API_PARAMETER_NAME is required")
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parsePositiveFloat(key string, def float64) (float64, error) {
	v, err := parseFloat(key, def)
	if err == nil && v <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return v, err
}

func parseNonNegativeFloat(key string, def float64) (float64, error) {
	v, err := parseFloat(key, def)
	if err == nil && v < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return v, err
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseCacheSize() int {
	if s := os.Getenv("OPENCAGE_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
