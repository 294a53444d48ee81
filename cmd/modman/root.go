package main

import (
	"fmt"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fmreloaded/modman/internal/version"
	"github.com/fmreloaded/modman/pkg/backup"
	"github.com/fmreloaded/modman/pkg/config"
	"github.com/fmreloaded/modman/pkg/engine"
	"github.com/fmreloaded/modman/pkg/fileops"
	"github.com/fmreloaded/modman/pkg/logging"
	"github.com/fmreloaded/modman/pkg/restore"
	"github.com/fmreloaded/modman/pkg/store"
)

var (
	verbosity  int
	configPath string
	dataDir    string
)

// app bundles the wired collaborators every command needs. Built lazily so
// flag overrides are honored.
type app struct {
	cfg     *config.Store
	mods    *store.Store
	backups *backup.Store
	points  *restore.Manager
	ops     *fileops.Ops
	engine  *engine.Engine
}

func newApp() (*app, error) {
	if configPath == "" {
		configPath = filepath.Join(xdg.ConfigHome, "modman", "config.json")
	}
	if dataDir == "" {
		dataDir = filepath.Join(xdg.DataHome, "modman")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	mods, err := store.New(filepath.Join(dataDir, "mods"))
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		mods:    mods,
		backups: backup.New(filepath.Join(dataDir, "backups")),
		points:  restore.New(filepath.Join(dataDir, "restore-points")),
		ops:     fileops.NewOps(filepath.Join(dataDir, "audit.log")),
	}
	a.engine = engine.New(cfg, mods, a.backups, a.points, a.ops, nil)
	return a, nil
}

// NewRootCmd builds the modman command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "modman",
		Short: "A file-safe mod manager for Football Manager 26",
		Long: `modman installs, orders and removes game mods while guaranteeing that
every file operation stays inside the directories it is allowed to touch.
Originals are backed up before being overwritten, and every batch apply
takes a restore point you can roll back to.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/modman/config.json)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory for the mod store, backups and restore points")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newApplyCmd())
	rootCmd.AddCommand(newEnableCmd())
	rootCmd.AddCommand(newDisableCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newRemoveCmd())
	rootCmd.AddCommand(newConflictsCmd())
	rootCmd.AddCommand(newOrderCmd())
	rootCmd.AddCommand(newTargetCmd())
	rootCmd.AddCommand(newRollbackCmd())
	rootCmd.AddCommand(newRestorePointsCmd())
	rootCmd.AddCommand(newCleanCmd())
	rootCmd.AddCommand(newExtractCmd())

	return rootCmd
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print version information for modman`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("modman version %s\n", version.Version)
		fmt.Printf("  commit: %s\n", version.Commit)
		fmt.Printf("  built:  %s\n", version.Date)
	},
}
