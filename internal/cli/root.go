// Package cli provides the command-line interface for mfatfm.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"github.com/mfat/mfatfm/internal/config"
	"github.com/mfat/mfatfm/internal/gui"
	"github.com/mfat/mfatfm/internal/logging"
	"github.com/mfat/mfatfm/internal/version"
)

var (
	// Global flags
	cfgFile  string
	flagHost string
	flagPort int
	flagUser string
	flagKey  string
	verbose  bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command. Without a subcommand it opens
// the GUI; subcommands drive the same operation queue headlessly.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mfatfm",
		Short: "Two-pane SFTP file manager",
		Long: `mfatfm ` + version.Version + ` - Built: ` + version.BuildTime + `
Two-pane SFTP file manager.

GUI Mode (default):
  Browse local and remote files side by side, with background
  transfers that never block the interface.

CLI Mode (subcommands):
  ls, get, put, rm, mkdir and mv run single operations against the
  same transfer queue without opening a window.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			mode := "gui"
			if cmd.HasParent() {
				mode = "cli"
			}
			logger = logging.NewLogger(mode)
			if verbose {
				logging.SetGlobalLevel(-1) // zerolog.DebugLevel
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			gui.RunWindow(app.New(), cfg, logger)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&flagHost, "host", "H", "", "SSH host (overrides config)")
	rootCmd.PersistentFlags().IntVarP(&flagPort, "port", "p", 0, "SSH port (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "", "SSH user (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&flagKey, "key", "i", "", "Private key file (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	rootCmd.AddCommand(newLsCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newPutCmd())
	rootCmd.AddCommand(newRmCmd())
	rootCmd.AddCommand(newMkdirCmd())
	rootCmd.AddCommand(newMvCmd())

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived %v, cancelling...\n", sig)
				cancelFunc()
			}
		}
	}()

	err := NewRootCmd().Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// GetContext returns the global CLI context. It is cancelled when the
// user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

// loadConfig loads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		var err error
		path, err = config.Path()
		if err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if flagHost != "" {
		cfg.Host = flagHost
	}
	if flagPort > 0 {
		cfg.Port = flagPort
	}
	if flagUser != "" {
		cfg.User = flagUser
	}
	if flagKey != "" {
		cfg.KeyFile = flagKey
	}
	return cfg, nil
}
