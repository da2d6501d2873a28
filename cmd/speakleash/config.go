package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/speakleash/pkg/speakleash/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage speakleash configuration settings.

Configuration is loaded from:
  1. --config, when given
  2. $XDG_CONFIG_HOME/speakleash/config.yaml (if set)
  3. ~/.config/speakleash/config.yaml

Environment variables can override config file settings using the SPEAKLEASH_ prefix:
  SPEAKLEASH_LANG=hr
  SPEAKLEASH_REPLICATE_DIR=/data/speakleash
  SPEAKLEASH_HTTP_TIMEOUT=2m`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after files, environment and flags are applied.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	path, err := activeConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(out, "Config file: %s\n\n", path)
	} else {
		fmt.Fprintln(out, "Config file: (using defaults, no file found)")
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "Current Configuration:")
	fmt.Fprintln(out, "----------------------")
	fmt.Fprintf(out, "replicate_dir:        %s\n", cfg.ReplicateDir)
	fmt.Fprintf(out, "lang:                 %s\n", cfg.Lang)
	fmt.Fprintf(out, "host:                 %s\n", cfg.Host)
	fmt.Fprintf(out, "base_url:             %s\n", cfg.BaseURL)
	fmt.Fprintf(out, "labels_url:           %s\n", cfg.LabelsURL)
	fmt.Fprintf(out, "http.timeout:         %s\n", cfg.HTTP.Timeout)
	fmt.Fprintf(out, "http.user_agent:      %s\n", cfg.HTTP.UserAgent)
	fmt.Fprintf(out, "labels.store:         %s\n", cfg.Labels.Store)
	fmt.Fprintf(out, "labels.path:          %s\n", cfg.LabelsPath())
	fmt.Fprintf(out, "logging.level:        %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "logging.path:         %s\n", cfg.Logging.Path)

	fmt.Fprintln(out, "\nEnvironment Overrides:")
	fmt.Fprintln(out, "----------------------")
	envVars := []string{
		"SPEAKLEASH_REPLICATE_DIR",
		"SPEAKLEASH_LANG",
		"SPEAKLEASH_HOST",
		"SPEAKLEASH_BASE_URL",
		"SPEAKLEASH_LABELS_URL",
		"SPEAKLEASH_HTTP_TIMEOUT",
		"SPEAKLEASH_HTTP_USER_AGENT",
		"SPEAKLEASH_LABELS_STORE",
		"SPEAKLEASH_LABELS_PATH",
		"SPEAKLEASH_LOGGING_LEVEL",
		"SPEAKLEASH_LOGGING_PATH",
	}

	anyOverrides := false
	for _, name := range envVars {
		if val := os.Getenv(name); val != "" {
			fmt.Fprintf(out, "%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Fprintln(out, "(none)")
	}

	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, _ []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		printInfo(cmd, "Config file already exists: %s", configPath)
		return nil
	}

	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo(cmd, "Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, _ []string) error {
	path, err := activeConfigPath()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)

	if _, err := os.Stat(path); err == nil {
		printVerbose(cmd, "File exists")
	} else if os.IsNotExist(err) {
		printVerbose(cmd, "File does not exist (will use defaults)")
	}
	return nil
}

// activeConfigPath returns --config when given and the default path otherwise.
func activeConfigPath() (string, error) {
	if cfgFile != "" {
		return config.ExpandPath(cfgFile)
	}
	path, err := config.ConfigPath()
	if err != nil {
		return "", fmt.Errorf("failed to get config path: %w", err)
	}
	return path, nil
}
