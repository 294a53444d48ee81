package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fmreloaded/modman/pkg/conflicts"
	"github.com/fmreloaded/modman/pkg/fileops"
	"github.com/fmreloaded/modman/pkg/routing"
)

func newApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Apply the enabled mods to the game in load order",
		Long: `Reconciles the game's files with the enabled-mod set: mods that were
applied last run but are no longer enabled are removed first, then every
enabled mod is installed in load order. Later mods overwrite earlier ones.
A restore point is taken before anything is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			res, err := a.engine.Apply()
			if err != nil {
				return err
			}
			for _, name := range res.Disabled {
				fmt.Printf("disabled %s\n", name)
			}
			for _, name := range res.Applied {
				fmt.Printf("applied  %s\n", name)
			}
			if res.RestorePoint != "" {
				fmt.Printf("restore point: %s\n", res.RestorePoint)
			}
			if res.ModErrors > 0 {
				fmt.Printf("%d mod(s) failed; see the log for details\n", res.ModErrors)
			}
			return nil
		},
	}
}

func newEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <mod>",
		Short: "Enable a mod and install its files now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			name := args[0]
			res, err := a.engine.Enable(name)
			if err != nil {
				return err
			}

			enabled := a.cfg.EnabledMods()
			if !contains(enabled, name) {
				if err := a.cfg.SetEnabledMods(append(enabled, name)); err != nil {
					return err
				}
			}
			fmt.Printf("%s: wrote %d, backed up %d, skipped %d, errors %d\n",
				name, res.Wrote, res.BackedUp, res.Skipped, res.Errors)
			return nil
		},
	}
}

func newDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <mod>",
		Short: "Disable a mod and remove its files, restoring backups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			name := args[0]
			res, err := a.engine.Disable(name)
			if err != nil {
				return err
			}

			if err := a.cfg.SetEnabledMods(remove(a.cfg.EnabledMods(), name)); err != nil {
				return err
			}
			fmt.Printf("%s: removed %d, restored %d, no backup %d, absent %d, errors %d\n",
				name, res.Removed, res.Restored, res.NoBackup, res.Absent, res.Errors)
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List mods in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			names, err := a.mods.List()
			if err != nil {
				return err
			}
			enabled := a.cfg.EnabledMods()
			for _, name := range names {
				marker := " "
				if contains(enabled, name) {
					marker = "*"
				}
				m, err := a.mods.Manifest(name)
				if err != nil {
					fmt.Printf("%s %s (broken manifest: %v)\n", marker, name, err)
					continue
				}
				fmt.Printf("%s %s  [%s] %s\n", marker, name, m.Type, m.Version)
			}
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "import <folder>",
		Short: "Import a mod folder into the store",
		Long: `Copies a mod folder (which must contain a manifest.json) into the local
mod store. An existing mod with the same name is replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			imported, err := a.mods.Import(args[0], name)
			if err != nil {
				return err
			}
			fmt.Printf("imported %s\n", imported)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "store the mod under this name instead of the manifest name")
	return cmd
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <mod>",
		Short: "Remove a mod from the store",
		Long: `Disables the mod first so its files are reconciled on disk, then deletes
its folder from the store.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			name := args[0]
			if contains(a.cfg.EnabledMods(), name) {
				if _, err := a.engine.Disable(name); err != nil {
					return err
				}
				if err := a.cfg.SetEnabledMods(remove(a.cfg.EnabledMods(), name)); err != nil {
					return err
				}
			}
			if err := a.mods.Remove(name); err != nil {
				return err
			}
			fmt.Printf("removed %s\n", name)
			return nil
		},
	}
}

func newConflictsCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Show mods that write the same target files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			names := a.cfg.EnabledMods()
			if all {
				names = nil
			}
			found, _, err := conflicts.Find(a.mods, names, a.cfg.LoadOrder())
			if err != nil {
				return err
			}
			if len(found) == 0 {
				fmt.Println("no conflicts")
				return nil
			}
			for _, c := range found {
				fmt.Printf("%s\n", c.TargetSubpath)
				for _, m := range c.Mods {
					marker := " "
					if m == c.Winner {
						marker = ">"
					}
					fmt.Printf("  %s %s\n", marker, m)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "check every mod in the store, not just enabled ones")
	return cmd
}

func newOrderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "order [mod...]",
		Short: "Show or set the global load order",
		Long: `With no arguments, prints the load order. With arguments, replaces it:
mods listed later overwrite mods listed earlier on conflicting files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				for i, name := range a.cfg.LoadOrder() {
					fmt.Printf("%2d. %s\n", i+1, name)
				}
				return nil
			}
			return a.cfg.SetLoadOrder(args)
		},
	}
}

func newTargetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "target [path]",
		Short: "Show or set the game's install target directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				t := a.cfg.TargetPath()
				if t == "" {
					fmt.Println("no target configured")
				} else {
					fmt.Println(t)
				}
				return nil
			}
			return a.cfg.SetTargetPath(args[0])
		},
	}
}

func newRollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback [restore-point]",
		Short: "Roll the game's files back to a restore point",
		Long: `Copies every file captured in the restore point back into the game.
Defaults to the most recent restore point.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			var id string
			if len(args) == 1 {
				id = args[0]
			} else {
				ids, err := a.points.List()
				if err != nil {
					return err
				}
				if len(ids) == 0 {
					return fmt.Errorf("no restore points exist")
				}
				id = ids[0]
			}
			if err := a.engine.Rollback(id); err != nil {
				return err
			}
			fmt.Printf("rolled back to %s\n", id)
			return nil
		},
	}
}

func newRestorePointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore-points",
		Short: "List restore points, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			ids, err := a.points.List()
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
}

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean <file>",
		Short: "Delete a regenerable game file (caches, editor data)",
		Long: `Deletes a file inside the game directory, but only if it matches the
whitelist of regenerable file types. Critical game files are refused and
the attempt lands in the audit log either way.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			target := a.cfg.TargetPath()
			if target == "" {
				return fmt.Errorf("no install target configured")
			}
			gameRoot := routing.GameRootFromTarget(target)

			ok, reason := a.ops.CanDeleteGameFile(args[0], gameRoot)
			if !ok {
				return fmt.Errorf("refusing to delete %s: %s", args[0], reason)
			}
			deleted, err := a.ops.SafeDeleteWithBoundaryCheck(args[0], gameRoot, false, false)
			if err != nil {
				return err
			}
			if !deleted {
				fmt.Printf("%s does not exist\n", args[0])
				return nil
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		},
	}
}

func newExtractCmd() *cobra.Command {
	var maxSize int64
	cmd := &cobra.Command{
		Use:   "extract <archive> <dest>",
		Short: "Safely extract a mod archive",
		Long: `Extracts a .zip, .tar, .tar.gz or .tar.xz archive into the destination
directory. Member paths are validated against traversal and the declared
total size is capped, so a hostile archive extracts nothing at all.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := fileops.SafeExtractArchive(args[0], args[1], maxSize); err != nil {
				return err
			}
			fmt.Printf("extracted %s to %s\n", args[0], args[1])
			return nil
		},
	}
	cmd.Flags().Int64Var(&maxSize, "max-size", fileops.DefaultMaxArchiveSize, "maximum total uncompressed size in bytes")
	return cmd
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func remove(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}
