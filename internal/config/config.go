// Package config loads server settings from defaults, an optional YAML file
// and command-line flags, in that order.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds runtime settings for the server.
type Config struct {
	DBPath        string `yaml:"db"`
	Addr          string `yaml:"addr"`
	AdminUser     string `yaml:"admin_user"`
	LogPath       string `yaml:"log"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb"`
	LogMaxBackups int    `yaml:"log_max_backups"`
	SessionMaxAge int    `yaml:"session_max_age"`
	SecureCookies bool   `yaml:"secure_cookies"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		DBPath:        "shelfkeeper.sqlite3",
		Addr:          ":8080",
		AdminUser:     "admin",
		LogMaxSizeMB:  64,
		LogMaxBackups: 7,
		SessionMaxAge: 7 * 24 * 60 * 60,
	}
}

const usage = `Usage: shelfkeeper [flags]

Flags:
  -c, -config <path>      YAML configuration file (default: none)
  -d, -db <path>          SQLite database path (default: shelfkeeper.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        account created on first run (default: admin)
  -l, -log <path>         log file path, rotated by size (default: stdout/stderr only)
  -secure-cookies         mark the session cookie Secure (serve over HTTPS)
  -h, -help               show this help and exit
`

// Load builds the configuration from args (without the program name).
// Values from the file given by -c override the defaults and flags override
// both. It returns flag.ErrHelp when help was requested.
func Load(args []string, out io.Writer) (*Config, error) {
	// First pass only finds the config file.
	var path string
	probe := newFlagSet(Default(), &path, io.Discard)
	if err := probe.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprint(out, usage)
		}
		return nil, err
	}
	if probe.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", probe.Arg(0))
	}

	cfg := Default()
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	fs := newFlagSet(cfg, &path, io.Discard)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newFlagSet(cfg *Config, configPath *string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("shelfkeeper", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {}

	fs.StringVar(configPath, "config", *configPath, "")
	fs.StringVar(configPath, "c", *configPath, "")

	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "")

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "")
	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "")

	fs.StringVar(&cfg.AdminUser, "user", cfg.AdminUser, "")
	fs.StringVar(&cfg.AdminUser, "u", cfg.AdminUser, "")

	fs.StringVar(&cfg.LogPath, "log", cfg.LogPath, "")
	fs.StringVar(&cfg.LogPath, "l", cfg.LogPath, "")

	fs.BoolVar(&cfg.SecureCookies, "secure-cookies", cfg.SecureCookies, "")
	return fs
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	switch {
	case c.DBPath == "":
		return errors.New("db path is required")
	case c.Addr == "":
		return errors.New("listen address is required")
	case c.LogMaxSizeMB <= 0:
		return fmt.Errorf("log_max_size_mb must be positive, got %d", c.LogMaxSizeMB)
	case c.LogMaxBackups < 0:
		return fmt.Errorf("log_max_backups must not be negative, got %d", c.LogMaxBackups)
	case c.SessionMaxAge <= 0:
		return fmt.Errorf("session_max_age must be positive, got %d", c.SessionMaxAge)
	}
	return nil
}
