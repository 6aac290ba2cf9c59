// Package config loads service configuration from an optional YAML file
// with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	yaml "gopkg.in/yaml.v3"
)

// Solver holds default search knobs applied when a request leaves them unset.
type Solver struct {
	TimeLimitSeconds int     `yaml:"timeLimitSeconds"`
	Workers          int     `yaml:"workers"`
	StallLimit       int     `yaml:"stallLimit"`
	LambdaFactor     float64 `yaml:"lambdaFactor"`
}

type Config struct {
	Addr        string `yaml:"addr"`
	DatabaseURL string `yaml:"databaseUrl"`
	RedisURL    string `yaml:"redisUrl"`
	RateRPS     int    `yaml:"rateRps"`
	RateBurst   int    `yaml:"rateBurst"`
	Solver      Solver `yaml:"solver"`
}

// Load reads the YAML file at path (skipped when path is empty or the
// file does not exist), applies env overrides, and fills defaults.
func Load(path string) (Config, error) {
	cfg := Config{
		Addr:      ":8080",
		RateRPS:   5,
		RateBurst: 10,
		Solver: Solver{
			TimeLimitSeconds: 30,
			Workers:          1,
			StallLimit:       500,
			LambdaFactor:     0.1,
		},
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("config: parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, err
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Addr = ":" + v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("RATE_RPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateRPS = n
		}
	}
	if v := os.Getenv("RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateBurst = n
		}
	}
	if v := os.Getenv("SOLVER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Solver.Workers = n
		}
	}
	return cfg, nil
}
