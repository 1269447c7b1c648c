package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/config"
)

// Version is the application version.
const Version = "0.1.0"

// cli holds the flags and configuration shared by every subcommand.
type cli struct {
	configPath string
	logLevel   string
	envFile    string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "mudra",
		Short:         "Hand gesture feedback with typed dialogs and speech",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before MUDRA_* overrides")

	root.AddCommand(
		newRunCmd(c),
		newClassifyCmd(c),
		newGesturesCmd(c),
		newSayCmd(c),
	)
	return root
}

// load resolves the configuration: defaults, then the config file, then the
// environment, then flags.
func (c *cli) load() error {
	if err := config.LoadEnvFile(c.envFile); err != nil {
		return err
	}

	cfg := config.Default()
	if c.configPath != "" {
		var err error
		if cfg, err = config.Load(c.configPath); err != nil {
			return err
		}
	}
	if err := config.ApplyEnv(cfg, os.LookupEnv); err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = config.LogLevel(c.logLevel)
		if !cfg.LogLevel.IsValid() {
			return fmt.Errorf("invalid --log-level %q", c.logLevel)
		}
	}

	c.cfg = cfg
	slog.SetDefault(newLogger(cfg.LogLevel))
	return nil
}

func newLogger(level config.LogLevel) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level.Level()}))
}
