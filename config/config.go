package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config holds every external setting the server needs. All provider
// credentials are required at startup; the process must not come up
// half-configured and fail mid-pipeline instead.
type Config struct {
	Port      string
	PublicDir string

	LumaAPIKey      string
	ReplicateAPIKey string

	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string
	S3Bucket           string
}

// Load reads configuration from the environment, loading a local .env file
// first if one exists.
func Load() (*Config, error) {
	// .env is optional; deployments usually set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		PublicDir:          getEnv("PUBLIC_DIR", "public"),
		LumaAPIKey:         os.Getenv("LUMA_API_KEY"),
		ReplicateAPIKey:    os.Getenv("REPLICATE_API_KEY"),
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		AWSRegion:          getEnv("AWS_REGION", "us-east-2"),
		S3Bucket:           getEnv("AWS_S3_BUCKET", "mimg2video"),
	}

	required := []struct {
		name  string
		value string
	}{
		{"LUMA_API_KEY", cfg.LumaAPIKey},
		{"REPLICATE_API_KEY", cfg.ReplicateAPIKey},
		{"AWS_ACCESS_KEY_ID", cfg.AWSAccessKeyID},
		{"AWS_SECRET_ACCESS_KEY", cfg.AWSSecretAccessKey},
	}
	for _, v := range required {
		if v.value == "" {
			return nil, fmt.Errorf("%s environment variable is required", v.name)
		}
	}

	return cfg, nil
}

// GenerationsDir is the root under which every session directory lives.
func (c *Config) GenerationsDir() string {
	return filepath.Join(c.PublicDir, "generations")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
