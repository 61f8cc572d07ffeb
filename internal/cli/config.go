package cli

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

// Config keys, also read from USERCTL_<KEY> environment variables.
const (
	keyBackendURL  = "backend_url"
	keySessionFile = "session_file"
	keyTimeout     = "timeout"
	keyOutput      = "output"
	keyLogLevel    = "log_level"
)

// Config holds the CLI settings after flags, environment and defaults are
// merged.
type Config struct {
	BackendURL  string
	SessionFile string
	Timeout     time.Duration
	Output      string
	LogLevel    string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("USERCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault(keyBackendURL, "http://localhost:8081/api")
	v.SetDefault(keySessionFile, defaultSessionFile())
	v.SetDefault(keyTimeout, 10*time.Second)
	v.SetDefault(keyOutput, OutputTable)
	v.SetDefault(keyLogLevel, "error")
	return v
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".userctl-session.json"
	}
	return filepath.Join(dir, "userctl", "session.json")
}

func registerFlags(flags *pflag.FlagSet, v *viper.Viper) error {
	flags.String("backend-url", "", "user-management API base URL (env USERCTL_BACKEND_URL)")
	flags.String("session-file", "", "where the login session is kept (env USERCTL_SESSION_FILE)")
	flags.Duration("timeout", 0, "backend request timeout (env USERCTL_TIMEOUT)")
	flags.StringP("output", "o", "", "output format: table or json (env USERCTL_OUTPUT)")
	flags.String("log-level", "", "diagnostic log level on stderr (env USERCTL_LOG_LEVEL)")

	for key, flag := range map[string]string{
		keyBackendURL:  "backend-url",
		keySessionFile: "session-file",
		keyTimeout:     "timeout",
		keyOutput:      "output",
		keyLogLevel:    "log-level",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// LoadConfig reads and validates the merged settings.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		BackendURL:  strings.TrimRight(v.GetString(keyBackendURL), "/"),
		SessionFile: v.GetString(keySessionFile),
		Timeout:     v.GetDuration(keyTimeout),
		Output:      strings.ToLower(v.GetString(keyOutput)),
		LogLevel:    v.GetString(keyLogLevel),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend URL must be absolute, got %q", c.BackendURL)
	}
	if c.SessionFile == "" {
		return errors.New("session file must be set")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	switch c.Output {
	case OutputTable, OutputJSON:
	default:
		return fmt.Errorf("output must be %q or %q, got %q", OutputTable, OutputJSON, c.Output)
	}
	return nil
}
