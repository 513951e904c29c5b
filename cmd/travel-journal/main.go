// Package main is the entry point for the Travel Journal server and its
// maintenance commands. Its sole responsibility is wiring dependencies
// together; no business logic belongs here.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pkordes/travel-journal/internal/config"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "travel-journal",
		Short:         "Offline-aware travel journal server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API (default)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending database migrations to the remote backend",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate(cmd.Context())
			},
		},
		remindersCommand(),
		cacheCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		// Plain stderr: the logger may not be configured yet.
		slog.Error("travel-journal failed", "error", err)
		os.Exit(1)
	}
}

func remindersCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "reminders", Short: "Manage arrival reminders"}
	cmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Reconcile pending reminders with the backend's trip places",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := runReminderSync(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cancelled %d, scheduled %d\n", res.Cancelled, res.Scheduled)
			return nil
		},
	})
	return cmd
}

func cacheCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "cache", Short: "Manage the local offline cache"}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop cached trip data (the diary is kept)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheClear(cmd.Context())
		},
	})
	return cmd
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("port", defaults.GetString("port"), "HTTP listen port")
	cmd.PersistentFlags().String("database-url", "", "Postgres connection string (overrides env)")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("cache-path", defaults.GetString("cache.path"), "SQLite file for cache, diary and reminders")
	cmd.PersistentFlags().Int("reminder-hour", defaults.GetInt("reminder.hour"), "Local hour at which arrival reminders fire")
	cmd.PersistentFlags().String("reminder-timezone", defaults.GetString("reminder.timezone"), "IANA time zone for reminder-hour")
	cmd.PersistentFlags().Duration("probe-interval", defaults.GetDuration("network.probe_interval"), "Backend reachability check interval")

	bindFlag(cmd, "port", "port")
	bindFlag(cmd, "database.url", "database-url")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "cache.path", "cache-path")
	bindFlag(cmd, "reminder.hour", "reminder-hour")
	bindFlag(cmd, "reminder.timezone", "reminder-timezone")
	bindFlag(cmd, "network.probe_interval", "probe-interval")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("travel-journal")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &configNotFound) {
			return err
		}
	}
	return nil
}

// newLogger builds the JSON slog logger at the configured level.
func newLogger(level string) *slog.Logger {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}
