package config

import (
	"os"
	"strconv"
)

// RuntimeConfig holds process level settings that do not live in esg.ini.
type RuntimeConfig struct {
	ConfigPath       string
	ValidatorCommand string
	Offline          bool
	Address          string
	MetricsAddress   string
}

// LoadFromEnv reads the runtime settings from ESGINI and the ESGHANDLERS_*
// variables.
func LoadFromEnv() *RuntimeConfig {
	cfg := &RuntimeConfig{
		ConfigPath:       GetConfigPath(),
		ValidatorCommand: getEnv("ESGHANDLERS_PREPARE", "PrePARE"),
		Address:          getEnv("ESGHANDLERS_ADDRESS", ":9090"),
		MetricsAddress:   getEnv("ESGHANDLERS_METRICS_ADDRESS", ":9091"),
	}

	if v := os.Getenv("ESGHANDLERS_OFFLINE"); v != "" {
		if offline, err := strconv.ParseBool(v); err == nil {
			cfg.Offline = offline
		}
	}

	return cfg
}
