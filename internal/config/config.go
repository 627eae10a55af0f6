package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the server configuration. Every field has a default so the
// server can run without a config file.
type Config struct {
	// HTTPAddr is the listen address of the HTTP API.
	HTTPAddr string `yaml:"http_addr"`

	// MongoURI is the MongoDB connection string.
	MongoURI string `yaml:"mongo_uri"`

	// MongoDatabase is the database holding accounts, devices and groups.
	MongoDatabase string `yaml:"mongo_database"`

	// RedisAddr is the Redis server holding parked withdrawal responses.
	RedisAddr string `yaml:"redis_addr"`

	// MaxBundlesPerDevice bounds how many pre-key bundles one device may
	// have pending at any time.
	MaxBundlesPerDevice int `yaml:"max_bundles_per_device"`

	// MaxWithdrawKeys bounds how many device keys a single withdrawal
	// request may name.
	MaxWithdrawKeys int `yaml:"max_withdraw_keys"`

	// ResponseTTLSeconds is how long a parked withdrawal response is kept
	// before Redis expires it.
	ResponseTTLSeconds int `yaml:"response_ttl_seconds"`
}

func (c *Config) ResponseTTL() time.Duration {
	return time.Duration(c.ResponseTTLSeconds) * time.Second
}

func Default() *Config {
	return &Config{
		HTTPAddr:            "localhost:9090",
		MongoURI:            "mongodb://localhost:27017",
		MongoDatabase:       "keyserver",
		RedisAddr:           "localhost:6379",
		MaxBundlesPerDevice: 50,
		MaxWithdrawKeys:     50,
		ResponseTTLSeconds:  int((2 * time.Hour).Seconds()),
	}
}

// Load reads a yaml config file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}
