// Package config loads process configuration from environment variables,
// optionally seeded from .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/hupe1980/decalflow/logging"
)

// Environment variable names.
const (
	EnvProvider           = "DECALFLOW_PROVIDER"
	EnvModel              = "DECALFLOW_MODEL"
	EnvImageModel         = "DECALFLOW_IMAGE_MODEL"
	EnvSpeechModel        = "DECALFLOW_SPEECH_MODEL"
	EnvGeminiAPIKey       = "GEMINI_API_KEY"
	EnvGoogleAPIKey       = "GOOGLE_API_KEY"
	EnvOpenAIAPIKey       = "OPENAI_API_KEY"
	EnvAnthropicAPIKey    = "ANTHROPIC_API_KEY"
	EnvLogLevel           = "DECALFLOW_LOG_LEVEL"
	EnvLogFormat          = "DECALFLOW_LOG_FORMAT"
	EnvHTTPAddr           = "DECALFLOW_HTTP_ADDR"
	EnvMongoURI           = "DECALFLOW_MONGO_URI"
	EnvMongoDatabase      = "DECALFLOW_MONGO_DATABASE"
	EnvS3Bucket           = "DECALFLOW_S3_BUCKET"
	EnvS3Region           = "DECALFLOW_S3_REGION"
	EnvS3Endpoint         = "DECALFLOW_S3_ENDPOINT"
	EnvS3AccessKey        = "DECALFLOW_S3_ACCESS_KEY"
	EnvS3SecretKey        = "DECALFLOW_S3_SECRET_KEY"
	EnvPartnerURL         = "DECALFLOW_PARTNER_URL"
	EnvPartnerID          = "DECALFLOW_PARTNER_ID"
	EnvPartnerAPIKey      = "DECALFLOW_PARTNER_API_KEY"
	EnvPartnerFailureRate = "DECALFLOW_PARTNER_FAILURE_RATE"
)

// Config is the process configuration.
type Config struct {
	Provider    string
	Model       string
	ImageModel  string
	SpeechModel string
	APIKey      string

	Log *logging.Config

	HTTPAddr string

	Mongo   MongoConfig
	S3      S3Config
	Partner PartnerConfig
}

// MongoConfig selects the gallery's MongoDB. An empty URI keeps the gallery
// in memory.
type MongoConfig struct {
	URI      string
	Database string
}

// S3Config selects the artifact bucket. An empty bucket keeps artifacts in
// memory.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// PartnerConfig selects the fulfillment partner. Without a URL orders go to
// a simulated partner failing at FailureRate.
type PartnerConfig struct {
	ID          string
	URL         string
	APIKey      string
	FailureRate float64
}

// Load reads the given .env files (".env" when none are given; a missing
// default file is ignored) and then builds the Config from the process
// environment. Variables already set in the environment win over file
// values.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	} else if err := godotenv.Load(files...); err != nil {
		return nil, fmt.Errorf("load %s: %w", strings.Join(files, ", "), err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, typically os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := &Config{
		Provider:    strings.ToLower(get(EnvProvider, "gemini")),
		Model:       get(EnvModel, ""),
		ImageModel:  get(EnvImageModel, ""),
		SpeechModel: get(EnvSpeechModel, ""),
		Log:         logging.DefaultConfig(),
		HTTPAddr:    get(EnvHTTPAddr, ":8080"),
		Mongo: MongoConfig{
			URI:      get(EnvMongoURI, ""),
			Database: get(EnvMongoDatabase, "decalflow"),
		},
		S3: S3Config{
			Bucket:    get(EnvS3Bucket, ""),
			Region:    get(EnvS3Region, "us-east-1"),
			Endpoint:  get(EnvS3Endpoint, ""),
			AccessKey: get(EnvS3AccessKey, ""),
			SecretKey: get(EnvS3SecretKey, ""),
		},
		Partner: PartnerConfig{
			ID:          get(EnvPartnerID, "printco"),
			URL:         get(EnvPartnerURL, ""),
			APIKey:      get(EnvPartnerAPIKey, ""),
			FailureRate: 0.1,
		},
	}

	switch cfg.Provider {
	case "gemini", "google":
		cfg.APIKey = get(EnvGeminiAPIKey, get(EnvGoogleAPIKey, ""))
	case "openai":
		cfg.APIKey = get(EnvOpenAIAPIKey, "")
	case "anthropic", "claude":
		cfg.APIKey = get(EnvAnthropicAPIKey, "")
	}

	if lvl := get(EnvLogLevel, ""); lvl != "" {
		level, err := logging.ParseLevel(lvl)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
		cfg.Log.Level = level
	}
	cfg.Log.Format = get(EnvLogFormat, cfg.Log.Format)

	if raw := get(EnvPartnerFailureRate, ""); raw != "" {
		rate, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvPartnerFailureRate, err)
		}
		cfg.Partner.FailureRate = rate
	}

	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error
	switch c.Provider {
	case "gemini", "google", "openai", "anthropic", "claude":
		if c.APIKey == "" {
			errs = append(errs, fmt.Errorf("provider %s requires an api key", c.Provider))
		}
	case "mock":
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}
	if c.Partner.FailureRate < 0 || c.Partner.FailureRate > 1 {
		errs = append(errs, fmt.Errorf("partner failure rate %v is outside [0,1]", c.Partner.FailureRate))
	}
	if c.S3.AccessKey != "" && c.S3.SecretKey == "" {
		errs = append(errs, errors.New("s3 access key given without secret key"))
	}
	if c.Mongo.URI != "" && c.Mongo.Database == "" {
		errs = append(errs, errors.New("mongo database name is required"))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
