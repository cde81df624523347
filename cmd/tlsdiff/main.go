package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"crosstls/shared"
	"crosstls/tls12"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type outcome int

const (
	outcomePass outcome = iota
	outcomeCaptured
	outcomeMismatch
	outcomeFailure
)

func main() {
	config := LoadConfig()

	logger, err := shared.NewLogger(shared.LoggerConfig{
		ServiceName: "tlsdiff",
		Development: config.Development,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(2)
	}

	code := run(config, logger)
	_ = logger.Close()
	os.Exit(code)
}

// run executes every vector and reports the exit code: 0 when everything
// passed or was captured, 1 when any comparison mismatched, 2 when the
// harness itself failed.
func run(config *Config, logger *shared.Logger) int {
	runID, err := uuid.NewRandom()
	if err != nil {
		logger.Critical("failed to generate run ID", zap.Error(err))
		return 2
	}
	logger = logger.WithRun(runID.String())

	logger.Info("starting conformance run",
		zap.String("vector_dir", config.VectorDir),
		zap.Bool("fail_fast", config.FailFast))

	files, err := LoadVectorFiles(config.VectorDir)
	if err != nil {
		logger.Critical("failed to load vector files", zap.Error(err))
		return 2
	}

	var executed, captured, mismatches, failures int
fileLoop:
	for _, file := range files {
		logger.Info("running vector file",
			zap.String("file", file.Name),
			zap.Int("vectors", len(file.Vectors)))

		for i := range file.Vectors {
			if config.StopAfter > 0 && executed >= config.StopAfter {
				logger.Info("stop limit reached", zap.Int("executed", executed))
				break fileLoop
			}
			executed++

			switch runVector(&file.Vectors[i], logger) {
			case outcomeCaptured:
				captured++
			case outcomeMismatch:
				mismatches++
				if config.FailFast {
					break fileLoop
				}
			case outcomeFailure:
				failures++
				if config.FailFast {
					break fileLoop
				}
			}
		}
	}

	logger.Info("conformance run complete",
		zap.Int("executed", executed),
		zap.Int("captured", captured),
		zap.Int("mismatches", mismatches),
		zap.Int("failures", failures))

	switch {
	case failures > 0:
		return 2
	case mismatches > 0:
		return 1
	}
	fmt.Printf("✅ %d vectors executed, no mismatches\n", executed)
	return 0
}

// runVector executes one vector and classifies the result against its
// expected value or expected alert.
func runVector(v *Vector, logger *shared.Logger) outcome {
	logger.WithCryptoOp(v.Op).Debug("executing vector", zap.String("vector", v.Name))

	computed, err := ExecuteVector(v)
	if err != nil {
		if v.ExpectedError != "" {
			if name := alertName(err); name == v.ExpectedError {
				logger.WithVector(v.Name).Debug("vector passed",
					zap.String("op", v.Op), zap.String("alert", name))
				return outcomePass
			}
			logger.Mismatch("wrong failure alert",
				zap.String("vector", v.Name),
				zap.String("op", v.Op),
				zap.String("want", v.ExpectedError),
				zap.String("got", alertName(err)),
				zap.Error(err))
			return outcomeMismatch
		}
		logger.Critical("vector execution failed",
			zap.String("vector", v.Name),
			zap.String("op", v.Op),
			zap.Error(err))
		return outcomeFailure
	}

	if v.ExpectedError != "" {
		logger.Mismatch("operation succeeded, expected failure",
			zap.String("vector", v.Name),
			zap.String("op", v.Op),
			zap.String("want", v.ExpectedError),
			zap.String("got", hex.EncodeToString(computed)))
		return outcomeMismatch
	}

	if v.Expected == "" {
		// Capture mode: print the computed bytes for recording.
		fmt.Printf("%s %s = %s\n", v.Op, v.Name, hex.EncodeToString(computed))
		return outcomeCaptured
	}

	if !strings.EqualFold(hex.EncodeToString(computed), v.Expected) {
		logger.Mismatch("computed bytes diverge",
			zap.String("vector", v.Name),
			zap.String("op", v.Op),
			zap.String("want", strings.ToLower(v.Expected)),
			zap.String("got", hex.EncodeToString(computed)))
		return outcomeMismatch
	}

	logger.WithVector(v.Name).Debug("vector passed", zap.String("op", v.Op))
	return outcomePass
}

// alertName maps a core error to its TLS alert description name; errors
// from outside the core taxonomy report as an empty string.
func alertName(err error) string {
	var cryptoErr *tls12.CryptoError
	if errors.As(err, &cryptoErr) {
		return cryptoErr.AlertName()
	}
	return ""
}
