package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/cardmap/internal/records"
	"github.com/agentstation/cardmap/pkg/constants"
	"github.com/agentstation/cardmap/pkg/errors"
	"github.com/agentstation/cardmap/pkg/save"
	"github.com/agentstation/cardmap/pkg/scheduler"
)

// EnvPrefix prefixes the environment variables that override config keys,
// e.g. CARDMAP_DATA_DIR.
const EnvPrefix = "CARDMAP"

// apiKeyEnv are the API key variables, checked in order.
var apiKeyEnv = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}

// Config holds the application configuration loaded from the config file,
// environment variables and .env files. Flags are applied on top by
// UpdateFromFlags.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Output  string

	// Config file
	ConfigFile string

	// Locations
	DataDir        string
	StateDir       string
	OutputDir      string
	RecordsBackend string

	// Scheduling
	Quota     int
	BatchSize int
	Keywords  []string

	// Reader
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	TaskDelay      time.Duration
	Models         []string
	DiscoverModels bool
	PromptFile     string
	APIKey         string

	// Run
	SkipAnnotation bool
	Formats        []string

	// Logging configuration. LogLevel is the --log-level flag; EnvLogLevel
	// comes from LOG_LEVEL and loses to -v and -q.
	LogLevel    string
	EnvLogLevel string
	LogFormat   string
	LogOutput   string
}

// LoadConfig loads configuration in order of precedence:
//  1. Environment variables (CARDMAP_* and the API keys)
//  2. .env and .env.local
//  3. Config file (configFile, or .cardmap.yaml in the working or home directory)
//  4. Defaults
//
// Command-line flags are applied later by UpdateFromFlags.
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := bindAPIKeys(v); err != nil {
		return nil, err
	}

	if err := readConfigFile(v, configFile); err != nil {
		return nil, err
	}

	config := &Config{
		ConfigFile: v.ConfigFileUsed(),

		DataDir:        v.GetString("data_dir"),
		StateDir:       v.GetString("state_dir"),
		OutputDir:      v.GetString("output_dir"),
		RecordsBackend: v.GetString("records_backend"),

		Quota:     v.GetInt("quota"),
		BatchSize: v.GetInt("batch_size"),
		Keywords:  splitList(v.GetStringSlice("keywords")),

		MaxAttempts:    v.GetInt("max_attempts"),
		BaseDelay:      v.GetDuration("base_delay"),
		MaxDelay:       v.GetDuration("max_delay"),
		TaskDelay:      v.GetDuration("task_delay"),
		Models:         splitList(v.GetStringSlice("models")),
		DiscoverModels: v.GetBool("discover_models"),
		PromptFile:     v.GetString("prompt_file"),
		APIKey:         apiKey(v),

		SkipAnnotation: v.GetBool("skip_annotation"),
		Formats:        splitList(v.GetStringSlice("formats")),

		Output:      v.GetString("output"),
		EnvLogLevel: os.Getenv("LOG_LEVEL"),
		LogFormat:   getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput:   getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// setDefaults registers the default of every key, which also makes the
// keys visible to AutomaticEnv.
func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "data")
	v.SetDefault("state_dir", ".")
	v.SetDefault("output_dir", ".")
	v.SetDefault("records_backend", string(records.BackendDir))

	v.SetDefault("quota", constants.DefaultQuota)
	v.SetDefault("batch_size", constants.DefaultBatchSize)
	v.SetDefault("keywords", scheduler.DefaultKeywords)

	v.SetDefault("max_attempts", constants.DefaultMaxAttempts)
	v.SetDefault("base_delay", constants.DefaultBaseDelay)
	v.SetDefault("max_delay", constants.DefaultMaxDelay)
	v.SetDefault("task_delay", constants.DefaultTaskDelay)
	v.SetDefault("models", []string{})
	v.SetDefault("discover_models", false)
	v.SetDefault("prompt_file", "")

	v.SetDefault("skip_annotation", false)
	v.SetDefault("formats", []string{save.FormatJSON.String()})
	v.SetDefault("output", "")
}

// readConfigFile reads an explicit config file, or searches for
// .cardmap.yaml. Only an explicit file is required to exist.
func readConfigFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.NewConfigError("config", "read "+configFile, err)
		}
		return nil
	}

	v.SetConfigName(".cardmap")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errors.NewConfigError("config", "read .cardmap.yaml", err)
		}
	}
	return nil
}

// Validate checks the values that cannot be checked by the library
// constructors.
func (c *Config) Validate() error {
	if _, err := records.ParseBackend(c.RecordsBackend); err != nil {
		return err
	}
	if _, err := save.ParseFormats(c.Formats); err != nil {
		return errors.NewValidationError("formats", c.Formats, err.Error())
	}
	return nil
}

// UpdateFromFlags updates config values from parsed command flags, so flag
// values take precedence over the config file and environment.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, output, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if output != "" {
		c.Output = output
	}
	c.LogLevel = logLevel
}

// ExportFormats returns the parsed export formats.
func (c *Config) ExportFormats() []save.Format {
	formats, _ := save.ParseFormats(c.Formats)
	return formats
}

// loadEnvFiles loads environment variables from .env files. Variables that
// are already set are not overridden, so .env.local is loaded first to take
// precedence over .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

// bindAPIKeys binds the unprefixed API key variables.
func bindAPIKeys(v *viper.Viper) error {
	for _, key := range apiKeyEnv {
		if err := v.BindEnv(strings.ToLower(key), key); err != nil {
			return errors.NewConfigError("config", "bind "+key, err)
		}
	}
	return nil
}

func apiKey(v *viper.Viper) string {
	for _, key := range apiKeyEnv {
		if s := strings.TrimSpace(v.GetString(strings.ToLower(key))); s != "" {
			return s
		}
	}
	return ""
}

// splitList flattens comma-separated entries, so "a,b" from an
// environment variable and [a, b] from YAML read the same.
func splitList(items []string) []string {
	out := []string{}
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
