package main

import (
	"crosstls/shared"

	"github.com/joho/godotenv"
)

type Config struct {
	// Vector execution settings
	VectorDir string `json:"vector_dir"`
	FailFast  bool   `json:"fail_fast"`
	StopAfter int    `json:"stop_after"`

	// Logging settings
	Development bool `json:"development"`
}

func LoadConfig() *Config {
	// A .env file is optional for the harness. godotenv never overrides
	// variables already present in the process environment.
	_ = godotenv.Load()

	return &Config{
		VectorDir:   shared.GetEnvOrDefault("VECTOR_DIR", "testdata"),
		FailFast:    shared.GetEnvBoolOrDefault("FAIL_FAST", false),
		StopAfter:   shared.GetEnvIntOrDefault("STOP_AFTER", 0),
		Development: shared.GetEnvBoolOrDefault("DEVELOPMENT", false),
	}
}
