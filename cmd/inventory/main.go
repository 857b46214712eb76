// Command inventory manages the hardware inventory from the terminal. Without
// a subcommand it opens the interactive UI; the subcommands cover scripting.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hardware-inventory/internal/config"
	"hardware-inventory/internal/inventory"
	"hardware-inventory/internal/logging"
	"hardware-inventory/internal/tui"
)

var version = "dev" // set by the linker

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

// app is the state shared by all subcommands.
type app struct {
	configFile string
	driver     string
	dataDir    string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Track hardware grouped by name, brand and model.",
		Long: `inventory keeps a list of hardware items grouped by name, brand and
model. Items of one group share a monthly cost; serial numbers are unique.

Running without a subcommand launches the interactive terminal UI.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			// the UI owns the terminal
			if a.cfg.LogOutput == "stderr" || a.cfg.LogOutput == "stdout" {
				a.logger = zap.NewNop()
			}
			return a.withStore(cmd.Context(), func(s *inventory.Store) error {
				return tui.Run(cmd.Context(), s, tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout()))
			})
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "YAML config file (default $CONFIG_FILE)")
	flags.StringVar(&a.driver, "driver", "", "storage driver: memory, file, sqlite, postgres, redis, s3 (default $STORAGE_DRIVER or file)")
	flags.StringVar(&a.dataDir, "data", "", "data directory for the file driver (default $FILE_ROOT or ./data)")

	cmd.AddCommand(
		newListCmd(a),
		newSearchCmd(a),
		newAddCmd(a),
		newEditCmd(a),
		newDeleteCmd(a),
		newExportCmd(a),
		newImportCmd(a),
	)
	return cmd
}

// setup loads the configuration, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	path := a.configFile
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("driver") {
		cfg.StorageDriver = a.driver
	}
	if cmd.Flags().Changed("data") {
		cfg.FileRoot = a.dataDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogConfig())
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger
	return nil
}

// withStore opens the inventory, runs fn and closes the store, waiting for
// the last write to reach the backend.
func (a *app) withStore(ctx context.Context, fn func(*inventory.Store) error) error {
	store, err := inventory.Open(ctx, a.cfg.KVConfig(),
		inventory.WithLogger(a.logger.Named("inventory")),
		inventory.WithKey(a.cfg.StorageKey),
		inventory.WithPersistTimeout(a.cfg.PersistTimeout),
	)
	if err != nil {
		return err
	}

	runErr := fn(store)

	closeCtx, cancel := context.WithTimeout(context.Background(), a.cfg.PersistTimeout+time.Second)
	defer cancel()
	return errors.Join(runErr, store.Close(closeCtx))
}
