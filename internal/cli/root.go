// Package cli implements the qadesk command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/qadesk/internal/config"
	"github.com/mesh-intelligence/qadesk/internal/logging"
	"github.com/mesh-intelligence/qadesk/internal/paths"
	"github.com/mesh-intelligence/qadesk/internal/sqlite"
	"github.com/mesh-intelligence/qadesk/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
}

// app is the state shared by subcommands once PersistentPreRunE has run.
type app struct {
	flags  rootFlags
	dirs   paths.Dirs
	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCmd creates the top-level "qadesk" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "qadesk",
		Short: "QA collaboration server for test cases, bugs and tasks",
		Long: "qadesk tracks test cases, bugs and tasks per project, keeps their links\n" +
			"consistent and enforces role-based permissions.",
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: .qadesk-db)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newExportCmd(a))
	root.AddCommand(newImportCmd(a))
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		if errors.Is(err, types.ErrPersistence) {
			os.Exit(exitSysError)
		}
		os.Exit(exitUserError)
	}
	os.Exit(exitSuccess)
}

// load resolves directories, reads config.yaml and builds the logger.
// version needs none of it.
func (a *app) load(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := config.Load(configDir)
	if err != nil {
		return err
	}
	cfg, err := config.Decode(v)
	if err != nil {
		return err
	}
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	cfg.DataDir = dataDir

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.dirs = paths.Dirs{Config: configDir, Data: dataDir}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// attach opens the configured store. The caller must Detach it.
func (a *app) attach() (*sqlite.Backend, error) {
	backend := sqlite.NewBackend()
	if err := backend.Attach(a.cfg.Store()); err != nil {
		return nil, fmt.Errorf("attach store: %w", err)
	}
	return backend, nil
}
