package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// JobPath names a single .hcl job file or a directory of them.
	JobPath string

	LogFormat string
	LogLevel  string

	// Workers overrides the job file's worker count when positive.
	Workers int
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.JobPath == "" {
		return nil, errors.New("JobPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
