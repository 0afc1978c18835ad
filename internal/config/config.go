package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Analytics AnalyticsConfig `yaml:"analytics" envconfig:"ANALYTICS"`
}

// ServerConfig contains HTTP server configuration for the dashboard
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" default:"50"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" default:"25"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/asistencia.log"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir       string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	OutputsDir    string `yaml:"outputs_dir" envconfig:"OUTPUTS_DIR" default:"outputs"`
	StudentsCSV   string `yaml:"students_csv" envconfig:"STUDENTS_CSV"`
	AttendanceCSV string `yaml:"attendance_csv" envconfig:"ATTENDANCE_CSV"`
}

// AnalyticsConfig contains the attendance analytics parameters
type AnalyticsConfig struct {
	RiskThreshold float64 `yaml:"risk_threshold" envconfig:"RISK_THRESHOLD" default:"0.80" validate:"gte=0,lte=1"`
}

// UnmarshalYAML parses durations from the human-readable form ("15s",
// "2h") that time.Duration does not accept natively under yaml.v2.
func (s *ServerConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type raw struct {
		Port            int     `yaml:"port"`
		ReadTimeout     string  `yaml:"read_timeout"`
		WriteTimeout    string  `yaml:"write_timeout"`
		IdleTimeout     string  `yaml:"idle_timeout"`
		ShutdownTimeout string  `yaml:"shutdown_timeout"`
		RateLimitRPS    float64 `yaml:"rate_limit_rps"`
		RateLimitBurst  int     `yaml:"rate_limit_burst"`
	}
	var r raw
	if err := unmarshal(&r); err != nil {
		return err
	}

	s.Port = r.Port
	s.RateLimitRPS = r.RateLimitRPS
	s.RateLimitBurst = r.RateLimitBurst

	for _, d := range []struct {
		raw string
		dst *time.Duration
	}{
		{r.ReadTimeout, &s.ReadTimeout},
		{r.WriteTimeout, &s.WriteTimeout},
		{r.IdleTimeout, &s.IdleTimeout},
		{r.ShutdownTimeout, &s.ShutdownTimeout},
	} {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", d.raw, err)
		}
		*d.dst = parsed
	}
	return nil
}

// Load loads configuration from environment variables and an optional
// YAML config file. Precedence, lowest to highest: struct defaults, the
// config file, ASISTENCIA_* environment variables, then the short-form
// overrides (ASISTENCIA_INPUT, ASISTENCIA_OUTDIR, ASISTENCIA_RISK) that
// allow swapping in real data without a code or config change.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("ASISTENCIA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := configFilePath()
	if _, err := os.Stat(configFile); err == nil {
		fileCfg, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg.applyFileConfig(*fileCfg)
	}

	cfg.applyOverrides()
	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyFileConfig overlays set file values onto the config. envconfig
// fills defaults for unset variables, so the struct value alone cannot
// tell "default" from "explicitly set in the environment"; the file only
// loses to variables that are actually present in the environment.
func (c *Config) applyFileConfig(file Config) {
	setFromFile("SERVER_PORT", &c.Server.Port, file.Server.Port)
	setFromFile("SERVER_READ_TIMEOUT", &c.Server.ReadTimeout, file.Server.ReadTimeout)
	setFromFile("SERVER_WRITE_TIMEOUT", &c.Server.WriteTimeout, file.Server.WriteTimeout)
	setFromFile("SERVER_IDLE_TIMEOUT", &c.Server.IdleTimeout, file.Server.IdleTimeout)
	setFromFile("SERVER_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout, file.Server.ShutdownTimeout)
	setFromFile("SERVER_RATE_LIMIT_RPS", &c.Server.RateLimitRPS, file.Server.RateLimitRPS)
	setFromFile("SERVER_RATE_LIMIT_BURST", &c.Server.RateLimitBurst, file.Server.RateLimitBurst)
	setFromFile("LOGGING_LEVEL", &c.Logging.Level, file.Logging.Level)
	setFromFile("LOGGING_OUTPUT", &c.Logging.Output, file.Logging.Output)
	setFromFile("LOGGING_FILE_PATH", &c.Logging.FilePath, file.Logging.FilePath)
	setFromFile("PATHS_DATA_DIR", &c.Paths.DataDir, file.Paths.DataDir)
	setFromFile("PATHS_OUTPUTS_DIR", &c.Paths.OutputsDir, file.Paths.OutputsDir)
	setFromFile("PATHS_STUDENTS_CSV", &c.Paths.StudentsCSV, file.Paths.StudentsCSV)
	setFromFile("PATHS_ATTENDANCE_CSV", &c.Paths.AttendanceCSV, file.Paths.AttendanceCSV)
	setFromFile("ANALYTICS_RISK_THRESHOLD", &c.Analytics.RiskThreshold, file.Analytics.RiskThreshold)
}

// setFromFile writes a file value over the current one unless the file
// left it unset or the matching environment variable is present.
func setFromFile[T comparable](envKey string, dst *T, fileValue T) {
	var zero T
	if fileValue == zero {
		return
	}
	if _, set := os.LookupEnv("ASISTENCIA_" + envKey); set {
		return
	}
	*dst = fileValue
}

// applyOverrides honors the short-form environment overrides kept for
// compatibility with existing deployment scripts.
func (c *Config) applyOverrides() {
	if v := os.Getenv("ASISTENCIA_INPUT"); v != "" {
		c.Paths.AttendanceCSV = v
	}
	if v := os.Getenv("ASISTENCIA_OUTDIR"); v != "" {
		c.Paths.OutputsDir = v
	}
	if v := os.Getenv("ASISTENCIA_RISK"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			c.Analytics.RiskThreshold = t
		}
	}
}

// resolvePaths fills in the per-file paths from the data directory when
// they were not set explicitly.
func (c *Config) resolvePaths() {
	if c.Paths.StudentsCSV == "" {
		c.Paths.StudentsCSV = filepath.Join(c.Paths.DataDir, "students.csv")
	}
	if c.Paths.AttendanceCSV == "" {
		c.Paths.AttendanceCSV = filepath.Join(c.Paths.DataDir, "attendance.csv")
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// EnsureDirectories creates the data and outputs directories if missing
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.OutputsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// OutputPath returns the path of a derived table file inside the outputs dir
func (c *Config) OutputPath(name string) string {
	return filepath.Join(c.Paths.OutputsDir, name)
}

func configFilePath() string {
	if v := os.Getenv("ASISTENCIA_CONFIG"); v != "" {
		return v
	}
	return "config.yaml"
}
