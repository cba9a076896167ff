// Package cmd implements the command-line interface for webhoard.
// It provides the root command and subcommands for managing the
// archive collection.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/webhoard/webhoard/cmd/add"
	"github.com/webhoard/webhoard/cmd/initialize"
	"github.com/webhoard/webhoard/cmd/list"
	"github.com/webhoard/webhoard/cmd/remove"
	"github.com/webhoard/webhoard/cmd/schedule"
	cmdstatus "github.com/webhoard/webhoard/cmd/status"
	"github.com/webhoard/webhoard/cmd/update"
	"github.com/webhoard/webhoard/internal/config"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// Debug enables debug logging for all commands.
	Debug bool

	// rootCmd represents the root command for the webhoard CLI.
	rootCmd = &cobra.Command{
		Use:   "webhoard",
		Short: "A self-hosted web page archiver",
		Long: `Webhoard archives web pages into a self-contained on-disk
collection: every page is captured by multiple methods (title, headers,
DOM, wget, media) into its own timestamped folder, with a sqlite index
over the whole collection.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are available.
	_ = godotenv.Load()

	// Parse flags early so --debug influences logger construction.
	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := initConfig(); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

// init initializes the root command and its subcommands.
func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml)",
	)
	rootCmd.PersistentFlags().String(
		"data-dir",
		"",
		"collection root directory (default is ., or WEBHOARD_DATA_DIR)",
	)
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("webhoard version %s\n", "1.0.0")
		},
	})

	rootCmd.AddCommand(initialize.Command())
	rootCmd.AddCommand(add.Command())
	rootCmd.AddCommand(update.Command())
	rootCmd.AddCommand(cmdstatus.Command())
	rootCmd.AddCommand(list.Command())
	rootCmd.AddCommand(remove.Command())
	rootCmd.AddCommand(schedule.Command())
}

// initConfig reads the config file and environment variables.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	// Environment variables take precedence over defaults.
	viper.AutomaticEnv()
	viper.SetEnvPrefix("webhoard")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	// Config file is optional: defaults plus environment are enough.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && cfgFile != "" {
			return fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
	}

	if err := bindFlags(); err != nil {
		return err
	}
	if err := bindEnvVars(); err != nil {
		return err
	}

	if Debug || viper.GetBool("app.debug") {
		viper.Set("logger.level", "debug")
		viper.Set("logger.development", true)
	}

	return nil
}

// bindFlags binds command-line flags to viper keys.
func bindFlags() error {
	if err := viper.BindPFlag("app.debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("failed to bind debug flag: %w", err)
	}
	if flag := rootCmd.PersistentFlags().Lookup("data-dir"); flag.Changed {
		viper.Set("storage.data_dir", flag.Value.String())
	}
	return nil
}

// bindEnvVars maps environment variables to config keys.
func bindEnvVars() error {
	binds := map[string][]string{
		"storage.data_dir":        {"WEBHOARD_DATA_DIR"},
		"app.environment":         {"APP_ENV"},
		"app.debug":               {"APP_DEBUG"},
		"logger.level":            {"LOG_LEVEL"},
		"logger.encoding":         {"LOG_FORMAT"},
		"archiver.pool_size":      {"WEBHOARD_POOL_SIZE"},
		"archiver.method_timeout": {"WEBHOARD_METHOD_TIMEOUT"},
		"archiver.wget_binary":    {"WEBHOARD_WGET_BINARY"},
		"archiver.media_binary":   {"WEBHOARD_MEDIA_BINARY"},
	}
	for key, envs := range binds {
		if err := viper.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	viper.SetDefault("app", map[string]any{
		"name":        "webhoard",
		"environment": "production",
		"debug":       false,
	})

	viper.SetDefault("logger", map[string]any{
		"level":       "info",
		"development": false,
		"encoding":    "console",
	})

	viper.SetDefault("storage", map[string]any{
		"data_dir": ".",
	})

	viper.SetDefault("archiver", map[string]any{
		"pool_size":        config.DefaultPoolSize,
		"method_timeout":   config.DefaultMethodTimeout.String(),
		"disabled_methods": []string{},
		"user_agent":       config.DefaultUserAgent,
		"wget_binary":      "",
		"media_binary":     "",
	})

	viper.SetDefault("importer", map[string]any{
		"fetch_timeout": config.DefaultFetchTimeout.String(),
		"user_agent":    config.DefaultUserAgent,
	})
}
