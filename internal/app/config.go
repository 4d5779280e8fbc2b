package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PlanPath string // one .hcl plan file or a directory of them

	// Trainer and Tester override the plan's defaults block when non-empty.
	Trainer    []string
	Tester     []string
	OutputRoot string

	LedgerPath   string // "" disables the run ledger
	DryRun       bool
	ValidateOnly bool
	Watch        bool

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.PlanPath == "" {
		return nil, errors.New("PlanPath is a required configuration field and cannot be empty")
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	return &cfg, nil
}
