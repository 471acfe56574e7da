// Package cli provides configuration management commands.
package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mediasink/mediasink/internal/config"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage mediasink configuration",
		Long: `Configuration management commands for mediasink.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  set   - Set a single configuration value
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigSetCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for mediasink.

The configuration is saved to ~/.config/mediasink/config (or the path
given with --config). Use --force to overwrite an existing file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolveConfigPath()
			if err != nil {
				return err
			}

			if !force {
				if _, err := os.Stat(configPath); err == nil {
					fmt.Printf("Configuration already exists at: %s\n", configPath)
					fmt.Println("Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			fmt.Println("mediasink Configuration Setup")
			fmt.Println("=============================")
			fmt.Println()

			cfg := config.New()

			cfg.OutputDir = promptLine("Output directory", cfg.OutputDir)
			cfg.InputDir = promptLine("Input directory", cfg.InputDir)

			fmt.Println()
			fmt.Println("Default cloud destination (press Enter to skip)")
			fmt.Println("------------------------------------------------")
			cfg.Destination.Provider = promptLine("Provider (run 'mediasink providers' for IDs)", "")
			if cfg.Destination.Provider != "" {
				cfg.Destination.Locator = promptLine("Locator (bucket, URL or folder)", "")
				cfg.Destination.FolderPath = promptLine("Folder path", "")

				apiKey, err := promptSecret("Credential (stored in the config file, leave blank to use MEDIASINK_API_KEY): ")
				if err != nil {
					return fmt.Errorf("failed to read credential: %w", err)
				}
				cfg.Destination.APIKey = apiKey
			}

			fmt.Println()
			notify := promptLine("Desktop notifications (y/n)", "n")
			cfg.Notifications.Enabled = strings.HasPrefix(strings.ToLower(notify), "y")

			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(cfg, configPath); err != nil {
				return err
			}

			fmt.Println()
			fmt.Printf("✓ Configuration saved to: %s\n", configPath)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")

	return cmd
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the merged configuration from:
  1. Built-in defaults
  2. Configuration file (~/.config/mediasink/config)
  3. MEDIASINK_* environment variables

Priority: environment > config file > defaults`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			configPath, err := resolveConfigPath()
			if err != nil {
				return err
			}

			fmt.Println("Current Configuration")
			fmt.Println("=====================")
			fmt.Println()

			fmt.Println("Directories:")
			fmt.Printf("  Output Dir: %s\n", cfg.OutputDir)
			fmt.Printf("  Input Dir:  %s\n", cfg.InputDir)
			fmt.Printf("  Log Level:  %s\n", cfg.LogLevel)
			fmt.Println()

			fmt.Println("Default Destination:")
			if cfg.Destination.Provider != "" {
				fmt.Printf("  Provider:    %s\n", cfg.Destination.Provider)
				fmt.Printf("  Locator:     %s\n", cfg.Destination.Locator)
				fmt.Printf("  Folder Path: %s\n", cfg.Destination.FolderPath)
				if cfg.Destination.APIKey != "" {
					// Never display any portion of the credential.
					fmt.Printf("  Credential:  <set (%d chars)>\n", len(cfg.Destination.APIKey))
				} else {
					fmt.Println("  Credential:  <not set>")
				}
			} else {
				fmt.Println("  <not set>")
			}
			fmt.Println()

			fmt.Println("Proxy Settings:")
			fmt.Printf("  Mode: %s\n", cfg.Proxy.Mode)
			if cfg.Proxy.Host != "" {
				fmt.Printf("  Host: %s\n", cfg.Proxy.Host)
				fmt.Printf("  Port: %d\n", cfg.Proxy.Port)
			}
			if cfg.Proxy.NoProxy != "" {
				fmt.Printf("  No Proxy: %s\n", cfg.Proxy.NoProxy)
			}
			fmt.Println()

			fmt.Println("Notifications:")
			fmt.Printf("  Enabled:       %t\n", cfg.Notifications.Enabled)
			fmt.Printf("  Show Complete: %t\n", cfg.Notifications.ShowComplete)
			fmt.Printf("  Show Failed:   %t\n", cfg.Notifications.ShowFailed)
			fmt.Println()

			fmt.Printf("Configuration file: %s\n", configPath)
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				fmt.Println("  (file does not exist - using defaults)")
			}

			return nil
		},
	}

	return cmd
}

// newConfigSetCmd creates the 'config set' command.
func newConfigSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set one configuration value and save the file.

Keys use the section.key form from the config file:
  output_dir, input_dir, log_level
  destination.provider, destination.locator, destination.folder_path,
  destination.api_key
  proxy.mode, proxy.host, proxy.port, proxy.user, proxy.password,
  proxy.no_proxy, proxy.warmup, proxy.warmup_url
  notifications.enabled, notifications.show_complete,
  notifications.show_failed

Examples:
  mediasink config set output_dir ~/renders
  mediasink config set destination.provider s3
  mediasink config set notifications.enabled true`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolveConfigPath()
			if err != nil {
				return err
			}

			// Start from the file alone so environment overrides are not
			// baked into the saved values.
			cfg := config.New()
			if _, err := os.Stat(configPath); err == nil {
				cfg, err = config.Load(configPath)
				if err != nil {
					return err
				}
			}

			if err := setConfigValue(cfg, args[0], args[1]); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(cfg, configPath); err != nil {
				return err
			}

			fmt.Printf("✓ %s set, saved to %s\n", args[0], configPath)
			return nil
		},
	}

	return cmd
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolveConfigPath()
			if err != nil {
				return err
			}
			fmt.Println(configPath)
			return nil
		},
	}

	return cmd
}

// resolveConfigPath honors --config, falling back to the default path.
func resolveConfigPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	path, err := config.DefaultPath()
	if err != nil {
		return "", fmt.Errorf("failed to determine config path: %w", err)
	}
	return path, nil
}

// setConfigValue applies one section.key assignment to cfg.
func setConfigValue(cfg *config.Config, key, value string) error {
	parseBool := func() (bool, error) {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("%s expects true or false, got %q", key, value)
		}
		return b, nil
	}

	switch strings.ToLower(strings.TrimSpace(key)) {
	case "output_dir":
		cfg.OutputDir = value
	case "input_dir":
		cfg.InputDir = value
	case "log_level":
		cfg.LogLevel = value
	case "destination.provider":
		cfg.Destination.Provider = value
	case "destination.locator":
		cfg.Destination.Locator = value
	case "destination.folder_path":
		cfg.Destination.FolderPath = value
	case "destination.api_key":
		cfg.Destination.APIKey = value
	case "proxy.mode":
		cfg.Proxy.Mode = value
	case "proxy.host":
		cfg.Proxy.Host = value
	case "proxy.port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("proxy.port expects a number, got %q", value)
		}
		cfg.Proxy.Port = port
	case "proxy.user":
		cfg.Proxy.User = value
	case "proxy.password":
		cfg.Proxy.Password = value
	case "proxy.no_proxy":
		cfg.Proxy.NoProxy = value
	case "proxy.warmup":
		b, err := parseBool()
		if err != nil {
			return err
		}
		cfg.Proxy.Warmup = b
	case "proxy.warmup_url":
		cfg.Proxy.WarmupURL = value
	case "notifications.enabled":
		b, err := parseBool()
		if err != nil {
			return err
		}
		cfg.Notifications.Enabled = b
	case "notifications.show_complete":
		b, err := parseBool()
		if err != nil {
			return err
		}
		cfg.Notifications.ShowComplete = b
	case "notifications.show_failed":
		b, err := parseBool()
		if err != nil {
			return err
		}
		cfg.Notifications.ShowFailed = b
	default:
		return fmt.Errorf("unknown config key %q (see 'mediasink config set --help')", key)
	}

	return nil
}
