package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Sample returns a starter configuration for --create-config.
func Sample() *Config {
	return &Config{
		Host:       "localhost",
		Port:       1433,
		User:       "sa",
		Password:   "YourPassword123",
		Database:   "mydb",
		DriverType: DriverMSSQL,
		ConnectionOptions: map[string]string{
			"TrustServerCertificate": "true",
		},
		StartDate:         "2024-01-01T00:00:00Z",
		HDJSONSchemaTypes: false,
		StateInterval:     1000,
		Batch: &BatchConfig{
			Encoding: BatchEncodingConfig{
				Format:      "jsonl",
				Compression: "gzip",
			},
			Storage: BatchStorageConfig{
				Root:   "file:///tmp/tap-mssql-batches",
				Prefix: "batch-",
			},
			BatchSize: 10000,
		},
	}
}

// Save writes a configuration to a YAML file.
func Save(filename string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
