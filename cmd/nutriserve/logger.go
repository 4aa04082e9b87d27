// Copyright 2025 The NutriServe Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"

	"github.com/nutriserve/nutriserve/pkg/config"
	"github.com/nutriserve/nutriserve/pkg/logger"
)

const (
	// LogLevelEnvVar is the environment variable for the log level.
	LogLevelEnvVar = "LOG_LEVEL"
	// LogFileEnvVar is the environment variable for the log file path.
	LogFileEnvVar = "LOG_FILE"
	// LogFormatEnvVar is the environment variable for the log format.
	LogFormatEnvVar = "LOG_FORMAT"
	// DefaultLogFormat is used when neither flags nor env set a format.
	DefaultLogFormat = "simple"
)

// initLoggerFromCLI initializes the logger before any command runs.
// Priority: CLI flags > env vars > defaults. The returned cleanup closes
// the log file, if one was opened.
func initLoggerFromCLI(cliLogLevel, cliLogFile, cliLogFormat string) (func(), error) {
	logLevel := cliLogLevel
	if logLevel == "" {
		logLevel = os.Getenv(LogLevelEnvVar)
	}
	if logLevel == "" {
		logLevel = "info"
	}

	logFile := cliLogFile
	if logFile == "" {
		logFile = os.Getenv(LogFileEnvVar)
	}

	logFormat := cliLogFormat
	if logFormat == "" {
		logFormat = os.Getenv(LogFormatEnvVar)
	}
	if logFormat == "" {
		logFormat = DefaultLogFormat
	}

	return initLogger(logLevel, logFile, logFormat)
}

// initLoggerFromConfig re-initializes the logger from the config file's
// logger section. Called by serve after config load, only when the logger
// was not already configured through flags or environment.
func initLoggerFromConfig(cfg *config.LoggerConfig) (func(), error) {
	if cfg == nil {
		return nil, nil
	}

	logLevel := cfg.Level
	if logLevel == "" {
		logLevel = "info"
	}
	logFormat := cfg.Format
	if logFormat == "" {
		logFormat = DefaultLogFormat
	}

	return initLogger(logLevel, cfg.File, logFormat)
}

// loggerOverridden reports whether any flag or env var configured the
// logger, in which case the config file's logger section is ignored.
func loggerOverridden(cli *CLI) bool {
	return cli.LogLevel != "" || cli.LogFile != "" || cli.LogFormat != "" ||
		os.Getenv(LogLevelEnvVar) != "" || os.Getenv(LogFileEnvVar) != "" ||
		os.Getenv(LogFormatEnvVar) != ""
}

func initLogger(logLevel, logFile, logFormat string) (func(), error) {
	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	output := os.Stderr
	var cleanup func()
	if logFile != "" {
		file, cleanupFn, err := logger.OpenLogFile(logFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
		cleanup = cleanupFn
	}

	logger.Init(level, output, logFormat)
	return cleanup, nil
}
