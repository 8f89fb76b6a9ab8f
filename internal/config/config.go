// Package config loads application configuration from command-line flags,
// environment variables, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App        AppConfig
	Logger     LoggerConfig
	Storage    StorageConfig
	Server     ServerConfig
	GenAI      GenAIConfig
	Refinement RefinementConfig
	Codec      CodecConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig holds on-disk locations.
type StorageConfig struct {
	// DataPath is the root for the project database and cover blobs
	// (default: ~/Inkwell/data).
	DataPath string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
	// RateLimit is the number of API requests allowed per client IP per
	// minute. Zero disables limiting.
	RateLimit int
}

// GenAIConfig holds generative backend configuration.
type GenAIConfig struct {
	BaseURL    string
	APIKey     string
	ImageModel string
	TextModel  string
	// RequestTimeout bounds every backend call.
	RequestTimeout time.Duration
	// Variants is the number of cover candidates requested per generation.
	Variants int
}

// RefinementConfig holds batch refinement pacing.
type RefinementConfig struct {
	// Interval is the minimum spacing between consecutive refine calls.
	Interval time.Duration
}

// CodecConfig holds storage encoding settings.
type CodecConfig struct {
	Format  string  // jpeg or webp
	Quality float64 // 0 < q <= 1
}

// LoadConfig loads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for project data and covers")

	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 120s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	allowedOrigins := flag.String("allowed-origins", "", "Comma separated CORS origins")
	rateLimit := flag.String("rate-limit", "", "API requests per client per minute, 0 disables (default: 120)")

	genaiURL := flag.String("genai-url", "", "Generative backend base URL")
	genaiTimeout := flag.String("genai-timeout", "", "Per-request backend timeout (default: 90s)")
	variants := flag.String("variants", "", "Cover candidates per generation (default: 4)")

	refineInterval := flag.String("refine-interval", "", "Delay between batch refine calls (default: 31s)")

	codecFormat := flag.String("cover-format", "", "Storage format for covers: jpeg or webp (default: jpeg)")
	codecQuality := flag.String("cover-quality", "", "Lossy quality 0-1 (default: 0.75)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Missing .env files are fine.
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			DataPath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			AllowedOrigins: splitList(getConfigValue(*allowedOrigins, "ALLOWED_ORIGINS", "http://localhost:5173")),
			RateLimit:      getIntConfigValue(*rateLimit, "SERVER_RATE_LIMIT", 120),
		},
		GenAI: GenAIConfig{
			BaseURL:    getConfigValue(*genaiURL, "GENAI_BASE_URL", "http://localhost:9090"),
			APIKey:     getConfigValue("", "GENAI_API_KEY", ""),
			ImageModel: getConfigValue("", "GENAI_IMAGE_MODEL", "imagen-3"),
			TextModel:  getConfigValue("", "GENAI_TEXT_MODEL", "gemini-flash"),
			Variants:   getIntConfigValue(*variants, "GENAI_VARIANTS", 4),
		},
		Codec: CodecConfig{
			Format:  strings.ToLower(getConfigValue(*codecFormat, "COVER_FORMAT", "jpeg")),
			Quality: getFloatConfigValue(*codecQuality, "COVER_QUALITY", 0.75),
		},
	}

	durations := []struct {
		dst      *time.Duration
		flagVal  string
		envKey   string
		fallback string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "120s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.GenAI.RequestTimeout, *genaiTimeout, "GENAI_TIMEOUT", "90s"},
		{&cfg.Refinement.Interval, *refineInterval, "REFINE_INTERVAL", "31s"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagVal, d.envKey, d.fallback)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", strings.ToLower(d.envKey), raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Storage.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if c.Server.RateLimit < 0 {
		return errors.New("rate limit cannot be negative")
	}

	if c.GenAI.BaseURL == "" {
		return errors.New("GENAI_BASE_URL is required")
	}
	if c.GenAI.Variants < 1 || c.GenAI.Variants > 8 {
		return fmt.Errorf("invalid variant count %d (must be 1-8)", c.GenAI.Variants)
	}
	if c.GenAI.RequestTimeout <= 0 {
		return errors.New("backend request timeout must be positive")
	}
	if c.Refinement.Interval < 0 {
		return errors.New("refine interval cannot be negative")
	}

	switch c.Codec.Format {
	case "jpeg", "webp":
	default:
		return fmt.Errorf("invalid cover format: %s (must be jpeg or webp)", c.Codec.Format)
	}
	if c.Codec.Quality <= 0 || c.Codec.Quality > 1 {
		return fmt.Errorf("invalid cover quality %.2f (must be in (0, 1])", c.Codec.Quality)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	expanded, err := expandPath(c.Storage.DataPath, filepath.Join(homeDir, "Inkwell", "data"))
	if err != nil {
		return err
	}
	c.Storage.DataPath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(strValue))
	if err != nil {
		return defaultValue
	}
	return n
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(strValue), 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Real environment variables win over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
