// Copyright (c) 2024-2026 httpcore Authors.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package httpcore

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds the tunables for a Server. The zero Config is not valid on
// its own; use DefaultConfig, LoadConfigYAML, or LoadConfigEnv, all of
// which start from the defaults and only override what's actually present
// in the source.
type Config struct {
	MaxRequestHeadSize      int           `yaml:"max_request_head_size" env:"HTTPCORE_MAX_REQUEST_HEAD_SIZE"`
	MaxErrorRecoveryAttempts int          `yaml:"max_error_recovery_attempts" env:"HTTPCORE_MAX_ERROR_RECOVERY_ATTEMPTS"`
	WorkerPoolSize          int           `yaml:"worker_pool_size" env:"HTTPCORE_WORKER_POOL_SIZE"`
	RejectHTTP10            bool          `yaml:"reject_http_1_0" env:"HTTPCORE_REJECT_HTTP_1_0"`
	HeadTimeout             time.Duration `yaml:"head_timeout" env:"HTTPCORE_HEAD_TIMEOUT"`
	BodyTimeout             time.Duration `yaml:"body_timeout" env:"HTTPCORE_BODY_TIMEOUT"`
	ResponseTimeout         time.Duration `yaml:"response_timeout" env:"HTTPCORE_RESPONSE_TIMEOUT"`
	IgnoreRejectedInterim   bool          `yaml:"ignore_rejected_interim" env:"HTTPCORE_IGNORE_REJECTED_INTERIM"`
}

// DefaultConfig returns the baseline defaults: 8000-byte head cap, 5 recovery
// attempts, a worker pool sized to GOMAXPROCS (WorkerPoolSize 0, resolved
// at pool.go's first use), HTTP/1.0 accepted, no timeouts enforced, and
// rejected interim responses ignored rather than surfaced as an error.
func DefaultConfig() Config {
	return Config{
		MaxRequestHeadSize:       8000,
		MaxErrorRecoveryAttempts: 5,
		WorkerPoolSize:           0,
		RejectHTTP10:             false,
		IgnoreRejectedInterim:    true,
	}
}

// LoadConfigYAML reads a Config from a YAML file at path, starting from
// DefaultConfig so any field the file omits keeps its default.
func LoadConfigYAML(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfigEnv reads a Config from HTTPCORE_-prefixed environment
// variables, starting from DefaultConfig so any variable that isn't set
// keeps its default.
func LoadConfigEnv() (*Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
