// Package config loads the server configuration. Values come from the
// defaults, then an optional YAML file, then command line flags; a flag set
// on the command line always wins.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config is the server configuration.
type Config struct {
	// DB is the SQLite database path.
	DB string `yaml:"db"`

	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`

	// AdminUser is the username of the admin created on first run.
	AdminUser string `yaml:"admin_user"`

	// LogFile, when set, receives a copy of every log line.
	LogFile string `yaml:"log_file"`

	Audit     AuditConfig     `yaml:"audit"`
	Transfers TransfersConfig `yaml:"transfers"`
	HTTP      HTTPConfig      `yaml:"http"`
}

// AuditConfig configures the audit queue.
type AuditConfig struct {
	// QueueSize is how many events may wait for the writer before new
	// ones are dropped.
	QueueSize int `yaml:"queue_size"`
}

// TransfersConfig configures the transfer workflow.
type TransfersConfig struct {
	// DirectCompletion lets an approved transfer complete without a
	// recorded departure.
	DirectCompletion bool `yaml:"direct_completion"`
}

// HTTPConfig holds the server timeouts.
type HTTPConfig struct {
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		DB:        "arsenal.sqlite3",
		Addr:      ":8080",
		AdminUser: "admin",
		Audit:     AuditConfig{QueueSize: 1024},
		HTTP: HTTPConfig{
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
			ShutdownTimeout:   5 * time.Second,
		},
	}
}

// LoadFile merges the YAML file at path into c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// Validate reports the first invalid value.
func (c *Config) Validate() error {
	switch {
	case c.DB == "":
		return errors.New("db path required")
	case c.Addr == "":
		return errors.New("listen address required")
	case c.AdminUser == "":
		return errors.New("admin username required")
	case c.Audit.QueueSize <= 0:
		return fmt.Errorf("audit queue size must be positive, got %d", c.Audit.QueueSize)
	}
	for name, d := range map[string]time.Duration{
		"read_header_timeout": c.HTTP.ReadHeaderTimeout,
		"read_timeout":        c.HTTP.ReadTimeout,
		"write_timeout":       c.HTTP.WriteTimeout,
		"idle_timeout":        c.HTTP.IdleTimeout,
		"shutdown_timeout":    c.HTTP.ShutdownTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("http %s must not be negative", name)
		}
	}
	return nil
}

const usage = `Usage: arsenal [flags]

Flags:
  -d, --db <path>          SQLite database path (default: arsenal.sqlite3)
  -a, --addr <host:port>   listen address (default: :8080)
  -u, --user <name>        admin username on first run (default: admin)
  -l, --log <path>         log file path (default: no file, stdout/stderr only)
  -c, --config <path>      YAML config file
      --direct-completion  allow completing approved transfers without departure
  -h, --help               show this help and exit
`

// Parse builds the configuration from args (without the program name).
// It returns pflag.ErrHelp after printing usage to out when help was asked
// for.
func Parse(args []string, out io.Writer) (*Config, error) {
	fs := pflag.NewFlagSet("arsenal", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { fmt.Fprint(out, usage) }

	flags := Default()
	var path string
	fs.StringVarP(&flags.DB, "db", "d", flags.DB, "")
	fs.StringVarP(&flags.Addr, "addr", "a", flags.Addr, "")
	fs.StringVarP(&flags.AdminUser, "user", "u", flags.AdminUser, "")
	fs.StringVarP(&flags.LogFile, "log", "l", flags.LogFile, "")
	fs.StringVarP(&path, "config", "c", "", "")
	fs.BoolVar(&flags.Transfers.DirectCompletion, "direct-completion", false, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	cfg := Default()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if fs.Changed("db") {
		cfg.DB = flags.DB
	}
	if fs.Changed("addr") {
		cfg.Addr = flags.Addr
	}
	if fs.Changed("user") {
		cfg.AdminUser = flags.AdminUser
	}
	if fs.Changed("log") {
		cfg.LogFile = flags.LogFile
	}
	if fs.Changed("direct-completion") {
		cfg.Transfers.DirectCompletion = flags.Transfers.DirectCompletion
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
