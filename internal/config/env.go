package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read at start-up
const (
	EnvURL           = "MG_URL"
	EnvAuthToken     = "AUTHTOKEN"
	EnvTechnicianKey = "TECHNICIAN_KEY"
	EnvVerifySSL     = "MG_VERIFY_SSL"
	EnvTimeout       = "MG_TIMEOUT"
)

var envKeys = []string{EnvURL, EnvAuthToken, EnvTechnicianKey, EnvVerifySSL, EnvTimeout}

// ReadEnv collects the known variables from dotenv files and the process
// environment. Later files override earlier ones and the process environment
// overrides all files. Missing files are skipped. The process environment is
// never modified.
func ReadEnv(files ...string) (map[string]string, error) {
	env := make(map[string]string)
	for _, file := range files {
		if file == "" {
			continue
		}
		values, err := godotenv.Read(file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read env file %s: %w", file, err)
		}
		for _, key := range envKeys {
			if v, ok := values[key]; ok {
				env[key] = v
			}
		}
	}

	for _, key := range envKeys {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	return env, nil
}

// ApplyEnv copies non-empty environment values into cfg
func ApplyEnv(cfg *Config, env map[string]string) error {
	if v := env[EnvURL]; v != "" {
		cfg.API.URL = v
	}
	if v := env[EnvAuthToken]; v != "" {
		cfg.API.AuthToken = v
	}
	if v := env[EnvTechnicianKey]; v != "" {
		cfg.API.TechnicianKey = v
	}
	if v := env[EnvVerifySSL]; v != "" {
		verify, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvVerifySSL, v, err)
		}
		cfg.API.VerifySSL = verify
	}
	if v := env[EnvTimeout]; v != "" {
		timeout, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvTimeout, v, err)
		}
		cfg.API.Timeout = timeout
	}
	return nil
}

// parseTimeout accepts a Go duration ("45s") or a bare number of seconds
func parseTimeout(v string) (time.Duration, error) {
	if seconds, err := strconv.Atoi(v); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	return time.ParseDuration(v)
}
