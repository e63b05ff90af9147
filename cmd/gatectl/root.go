package main

import (
	"fmt"
	"os"
	"path/filepath"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/internal/logging"
	"github.com/spf13/cobra"
)

const defaultDBPath = ".gogate/session.db"

// app holds the persistent flags shared by every subcommand.
type app struct {
	configPath string
	dbPath     string
	baseURL    string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "gatectl",
		Short: "Inspect and drive the goGate session control plane",
		Long: `gatectl runs the goGate engine against a bbolt session file.

Every command opens the same file, so a session stored by "login" is seen by
"eval", "session" and "impersonate" until "logout" removes it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (defaults apply when empty)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", defaultDBPath, "bbolt session file")
	root.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "backend API base URL, overrides the config")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn, error or off")

	root.AddCommand(
		a.loginCmd(),
		a.logoutCmd(),
		a.sessionCmd(),
		a.evalCmd(),
		a.classifyCmd(),
		a.impersonateCmd(),
	)
	return root
}

// config loads the config file, if any, and points the session store at the
// bbolt file.
func (a *app) config() (goGate.Config, error) {
	cfg := goGate.DefaultConfig()
	if a.configPath != "" {
		loaded, err := goGate.LoadConfigFile(a.configPath)
		if err != nil {
			return goGate.Config{}, err
		}
		cfg = loaded
	}
	cfg.Session.Backend = goGate.BackendBolt
	cfg.Session.BoltPath = a.dbPath
	if a.baseURL != "" {
		cfg.Client.BaseURL = a.baseURL
	}
	cfg.Logging.Level = a.logLevel
	return cfg, nil
}

// open builds an engine for one command. The caller must Close it.
func (a *app) open(cmd *cobra.Command) (*goGate.Engine, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(a.dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create session dir: %w", err)
		}
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}

	return goGate.New().
		WithConfig(cfg).
		WithLogger(logger).
		Build()
}

// withEngine opens an engine, runs fn and closes the engine.
func (a *app) withEngine(cmd *cobra.Command, fn func(*goGate.Engine) error) (err error) {
	e, err := a.open(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(e)
}
