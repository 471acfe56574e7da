// Package cli provides the command-line interface for mediasink.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mediasink/mediasink/internal/config"
	"github.com/mediasink/mediasink/internal/logging"
	"github.com/mediasink/mediasink/internal/version"
)

var (
	// Global flags
	cfgFile      string
	verbose      bool
	debug        bool
	progressFlag string
	notifyOn     bool
	notifyOff    bool
	timing       bool

	// Global logger
	logger *logging.Logger

	// Session log file, open only under --debug
	logFile io.Closer

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mediasink",
		Short: "Save and load media across local disk and cloud storage",
		Long: `mediasink ` + version.Version + ` - Built: ` + version.BuildTime + `
Saves images, audio, video and workflow documents to local disk and/or a
cloud storage backend, and loads them back.

Supported backends:
  s3, s3-compatible, gcs, azure, b2, dropbox, gdrive, onedrive, ftp,
  supabase, uploadthing (run 'mediasink providers' for details)

Credentials:
  Pass --credential, point --credential-file at a file, set a default in
  the config file, or export MEDIASINK_API_KEY (or the provider-specific
  MEDIASINK_API_KEY_<PROVIDER> variant).`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize logger
			logger = logging.NewDefaultCLILogger()
			if verbose || debug {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
			// Debug runs also keep a rotating session log so provider
			// issues can be reported with full context after the fact.
			if debug {
				if err := config.EnsureLogDirectory(); err != nil {
					logger.Warn().Err(err).Msg("session log disabled")
				} else {
					logFile = logger.EnableFileOutput(filepath.Join(config.LogDirectory(), "mediasink.log"))
				}
			}
			// The cloud meter reads the variable, not the flag, so
			// instrumentation works the same from tests and scripts.
			if timing {
				os.Setenv("MEDIASINK_TIMING", "1")
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output and keep a rotating session log file")
	rootCmd.PersistentFlags().StringVar(&progressFlag, "progress", "auto", "Progress display: auto, plain or none")
	rootCmd.PersistentFlags().BoolVar(&notifyOn, "notify", false, "Send a desktop notification when the operation finishes")
	rootCmd.PersistentFlags().BoolVar(&notifyOff, "no-notify", false, "Suppress desktop notifications even when enabled in config")
	rootCmd.PersistentFlags().BoolVar(&timing, "timing", false, "Log transfer timing breakdowns")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	// Customize completion command description
	completionCmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Enable tab-completion for mediasink commands",
		Long: `Generate shell completion scripts to enable tab-completion for mediasink.

Tab-completion lets you press Tab to:
  • Auto-complete command names (e.g., "mediasink sa<Tab>" → "save")
  • Auto-complete flag names (e.g., "mediasink save image --<Tab>" → shows all flags)
  • See available subcommands

QUICK START:

  macOS with zsh (default on modern Macs):
    mkdir -p ~/.zsh/completions
    mediasink completion zsh > ~/.zsh/completions/_mediasink
    # Then add to ~/.zshrc: fpath=(~/.zsh/completions $fpath)
    # Restart terminal

  Linux with bash:
    mediasink completion bash | sudo tee /etc/bash_completion.d/mediasink
    # Restart terminal

For detailed instructions, use: mediasink completion [shell] --help`,
	}
	rootCmd.AddCommand(completionCmd)

	// Add subcommands for each shell
	completionCmd.AddCommand(&cobra.Command{
		Use:   "bash",
		Short: "Generate bash completion script",
		Long: `Generate the autocompletion script for bash.

SETUP INSTRUCTIONS:

macOS:
  1. Install bash-completion (if not already installed):
       brew install bash-completion@2

  2. Generate completion script:
       mediasink completion bash > $(brew --prefix)/etc/bash_completion.d/mediasink

  3. Restart your terminal

Linux:
  1. Install bash-completion (if not already installed):
       # Ubuntu/Debian:
       sudo apt-get install bash-completion
       # RHEL/CentOS:
       sudo yum install bash-completion

  2. Generate completion script:
       mediasink completion bash | sudo tee /etc/bash_completion.d/mediasink

  3. Restart your terminal

QUICK TEST (temporary, current session only):
  source <(mediasink completion bash)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenBashCompletion(cmd.OutOrStdout())
		},
	})

	completionCmd.AddCommand(&cobra.Command{
		Use:   "zsh",
		Short: "Generate zsh completion script",
		Long: `Generate the autocompletion script for zsh.

SETUP INSTRUCTIONS:

macOS (modern Macs use zsh by default):
  1. Create completions directory:
       mkdir -p ~/.zsh/completions

  2. Generate completion script:
       mediasink completion zsh > ~/.zsh/completions/_mediasink

  3. Add to ~/.zshrc (if not already there):
       fpath=(~/.zsh/completions $fpath)
       autoload -Uz compinit && compinit

  4. Restart your terminal (or run: source ~/.zshrc)

Linux:
  1. Generate completion script:
       mediasink completion zsh > "${fpath[1]}/_mediasink"

  2. Restart your terminal

QUICK TEST (temporary, current session only):
  source <(mediasink completion zsh)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenZshCompletion(cmd.OutOrStdout())
		},
	})

	completionCmd.AddCommand(&cobra.Command{
		Use:   "fish",
		Short: "Generate fish completion script",
		Long: `Generate the autocompletion script for fish.

SETUP INSTRUCTIONS:

  1. Generate completion script:
       mediasink completion fish > ~/.config/fish/completions/mediasink.fish

  2. Restart your terminal

QUICK TEST (temporary, current session only):
  mediasink completion fish | source`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
		},
	})

	completionCmd.AddCommand(&cobra.Command{
		Use:   "powershell",
		Short: "Generate PowerShell completion script",
		Long: `Generate the autocompletion script for PowerShell.

SETUP INSTRUCTIONS (Windows):

  1. Find your PowerShell profile location:
       $PROFILE

  2. Generate completion script:
       mediasink completion powershell >> $PROFILE

  3. Restart PowerShell

QUICK TEST (temporary, current session only):
  mediasink completion powershell | Out-String | Invoke-Expression`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenPowerShellCompletion(cmd.OutOrStdout())
		},
	})

	// Disable default completion command (we're adding our own above)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	// Create a context that can be cancelled by signals
	rootContext, cancelFunc = context.WithCancel(context.Background())

	// Set up signal handling for graceful cancellation
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Loop so repeated Ctrl+C presses don't panic on a closed channel;
	// when the channel is closed sig is nil and the loop exits.
	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	// Clean up signal handler
	signal.Stop(sigChan)
	close(sigChan)

	if logFile != nil {
		logFile.Close()
	}

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newSaveCmd())
	rootCmd.AddCommand(newLoadCmd())
	rootCmd.AddCommand(newInputsCmd())
	rootCmd.AddCommand(newProvidersCmd())
	rootCmd.AddCommand(newConfigCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
// This context will be cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		// Fallback to background context if called before Execute()
		return context.Background()
	}
	return rootContext
}
