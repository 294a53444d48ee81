// Package engine orchestrates applying and un-applying mods against the
// configured target tree: diffing against the previously-applied set,
// snapshotting before a batch, and enabling mods in load order under
// last-write-wins.
package engine

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fmreloaded/modman/pkg/backup"
	"github.com/fmreloaded/modman/pkg/config"
	"github.com/fmreloaded/modman/pkg/errors"
	"github.com/fmreloaded/modman/pkg/fileops"
	"github.com/fmreloaded/modman/pkg/logging"
	"github.com/fmreloaded/modman/pkg/manifest"
	"github.com/fmreloaded/modman/pkg/pathguard"
	"github.com/fmreloaded/modman/pkg/restore"
	"github.com/fmreloaded/modman/pkg/routing"
	"github.com/fmreloaded/modman/pkg/store"
)

// ModResult aggregates per-file outcomes for one mod's enable or disable.
// Individual file failures are counted, not fatal.
type ModResult struct {
	Wrote    int
	BackedUp int
	Skipped  int
	Removed  int
	Restored int
	NoBackup int
	Absent   int
	Errors   int
}

// ApplyResult describes one batch apply run.
type ApplyResult struct {
	Disabled     []string
	Applied      []string
	RestorePoint string
	// ModErrors counts mods that failed wholesale during the batch; their
	// failures are logged, not fatal.
	ModErrors int
}

// Engine applies the enabled-mod set to the target tree. Not safe for
// concurrent use against the same target root; an internal mutex serializes
// calls on one Engine (single-writer discipline).
type Engine struct {
	mu sync.Mutex

	cfg      *config.Store
	mods     *store.Store
	backups  *backup.Store
	points   *restore.Manager
	ops      *fileops.Ops
	resolve  routing.InstallBaseFunc
	platform string
	logger   zerolog.Logger
}

// New wires an Engine over its collaborators. A nil installBase falls back
// to the default type router built over the configured target path.
func New(cfg *config.Store, mods *store.Store, backups *backup.Store, points *restore.Manager, ops *fileops.Ops, installBase routing.InstallBaseFunc) *Engine {
	e := &Engine{
		cfg:      cfg,
		mods:     mods,
		backups:  backups,
		points:   points,
		ops:      ops,
		resolve:  installBase,
		platform: manifest.PlatformTag(),
		logger:   logging.GetLogger("engine"),
	}
	if e.resolve == nil {
		e.resolve = func(modType, modName string) (string, error) {
			return routing.NewRouter(cfg.TargetPath()).InstallBase(modType, modName)
		}
	}
	return e
}

// SetPlatform overrides the runtime platform tag used for manifest entry
// filtering. Intended for tests and cross-platform tooling.
func (e *Engine) SetPlatform(tag string) {
	e.platform = tag
}

// target returns the configured target root, requiring it to exist.
func (e *Engine) target() (string, error) {
	t := e.cfg.TargetPath()
	if t == "" {
		return "", errors.New(errors.ErrNoTarget, "no install target configured")
	}
	if info, err := os.Stat(t); err != nil || !info.IsDir() {
		return "", errors.Newf(errors.ErrNoTarget, "install target does not exist: %s", t)
	}
	return t, nil
}

// Apply reconciles the target tree with the enabled-mod set:
//
//  1. mods applied last run but no longer enabled are disabled first
//  2. the enabled set is ordered by load order (unordered mods last)
//  3. an empty ordered set persists an empty applied state and returns
//  4. otherwise a restore point is taken over every currently-materialized
//     target path, then each mod is enabled in order; later mods overwrite
//     earlier ones, which is what makes last-write-wins hold
//  5. the applied state is persisted even when individual mods logged errors,
//     so the next run's diff stays accurate
func (e *Engine) Apply() (*ApplyResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer logging.LogOperationStart(e.logger, "apply")()

	if _, err := e.target(); err != nil {
		return nil, err
	}

	res := &ApplyResult{}
	enabled := e.cfg.EnabledMods()
	enabledSet := toSet(enabled)

	// Disable mods that fell out of the enabled set since the last run.
	for _, name := range e.cfg.LastAppliedMods() {
		if enabledSet[name] {
			continue
		}
		if _, err := e.disable(name); err != nil {
			if errors.IsErrorCode(err, errors.ErrManifestMissing) || errors.IsErrorCode(err, errors.ErrModNotFound) {
				e.logger.Info().Str("mod", name).Msg("mod folder already gone, skipping disable")
			} else {
				e.logger.Warn().Err(err).Str("mod", name).Msg("failed disabling removed mod")
				res.ModErrors++
			}
			continue
		}
		res.Disabled = append(res.Disabled, name)
	}

	ordered := orderMods(enabled, e.cfg.LoadOrder())
	if len(ordered) == 0 {
		if err := e.cfg.SetLastAppliedMods(nil); err != nil {
			return nil, err
		}
		e.logger.Info().Msg("no enabled mods to apply")
		return res, nil
	}

	// Snapshot every currently-materialized file any enabled mod touches.
	rp, err := e.snapshot(ordered)
	if err != nil {
		return nil, err
	}
	res.RestorePoint = rp

	for _, name := range ordered {
		if _, err := e.enable(name); err != nil {
			e.logger.Warn().Err(err).Str("mod", name).Msg("failed enabling mod")
			res.ModErrors++
			continue
		}
		res.Applied = append(res.Applied, name)
	}

	if err := e.cfg.SetLastAppliedMods(ordered); err != nil {
		return nil, err
	}
	e.logger.Info().
		Int("applied", len(res.Applied)).
		Int("disabled", len(res.Disabled)).
		Str("restorePoint", rp).
		Msg("apply complete (last-write-wins)")
	return res, nil
}

// snapshot creates a restore point covering the target paths of the given
// mods, scoped to files that currently exist.
func (e *Engine) snapshot(names []string) (string, error) {
	index, manifests, err := e.mods.BuildIndex(names)
	if err != nil {
		return "", err
	}
	target, err := e.target()
	if err != nil {
		return "", err
	}

	// Each mod type may route to a different base, so resolve per owner.
	// Only paths landing inside the target root are snapshotted; user-dir
	// content is additive and recoverable from the mod store itself.
	seen := make(map[string]struct{})
	var rels []string
	for rel, owners := range index {
		for _, owner := range owners {
			base, err := e.resolve(manifests[owner].Type, owner)
			if err != nil {
				continue
			}
			abs, err := pathguard.ResolveTarget(base, rel)
			if err != nil {
				continue
			}
			if !pathguard.Contains(target, abs) {
				continue
			}
			relToTarget, err := filepath.Rel(target, abs)
			if err != nil {
				continue
			}
			if _, dup := seen[relToTarget]; !dup {
				seen[relToTarget] = struct{}{}
				rels = append(rels, relToTarget)
			}
		}
	}
	return e.points.Create(target, rels)
}

// Enable installs a single mod's files, backing up any target that already
// exists. One file's failure is counted and does not abort the rest.
func (e *Engine) Enable(name string) (*ModResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enable(name)
}

func (e *Engine) enable(name string) (*ModResult, error) {
	m, err := e.mods.Manifest(name)
	if err != nil {
		return nil, err
	}
	if len(m.Files) == 0 {
		return nil, errors.Newf(errors.ErrManifestInvalid, "manifest for %s has no 'files' entries", name)
	}

	base, err := e.resolve(m.Type, name)
	if err != nil {
		return nil, err
	}
	modDir, err := e.mods.ModDir(name)
	if err != nil {
		return nil, err
	}

	log := e.logger.With().Str("mod", name).Logger()
	log.Info().Str("base", base).Int("files", len(m.Files)).Str("platform", e.platform).Msg("enabling mod")

	res := &ModResult{}
	for _, entry := range m.Files {
		if !entry.AppliesTo(e.platform) {
			log.Debug().Str("source", entry.Source).Str("entryPlatform", entry.Platform).Msg("skipped: platform mismatch")
			res.Skipped++
			continue
		}
		if entry.Source == "" || entry.TargetSubpath == "" {
			log.Warn().Interface("entry", entry).Msg("entry missing source or target_subpath")
			res.Errors++
			continue
		}

		src := filepath.Join(modDir, filepath.FromSlash(entry.Source))
		if _, err := os.Stat(src); err != nil {
			log.Warn().Str("source", src).Msg("source not found")
			res.Errors++
			continue
		}

		// A manifest path that escapes its base is adversarial input and
		// aborts the whole mod, unlike ordinary per-file failures.
		tgt, err := pathguard.ResolveTarget(base, entry.TargetSubpath)
		if err != nil {
			return res, err
		}

		if _, err := os.Stat(tgt); err == nil {
			// A target that already holds this entry's bytes was written by a
			// previous run; backing it up again would shadow the original in
			// the backup store. One backup per first overwrite.
			if same, err := fileops.SameContent(src, tgt); err == nil && same {
				log.Debug().Str("target", entry.TargetSubpath).Msg("target already current")
				res.Skipped++
				continue
			}
			b, err := e.backups.Backup(tgt)
			if err != nil {
				log.Warn().Err(err).Str("target", tgt).Msg("backup failed, not overwriting")
				res.Errors++
				continue
			}
			log.Info().Str("target", entry.TargetSubpath).Str("backup", filepath.Base(b)).Msg("backed up")
			res.BackedUp++
		}

		if err := fileops.SafeCopy(src, tgt, fileops.CopyOptions{AllowedRoot: base}); err != nil {
			log.Warn().Err(err).Str("source", entry.Source).Str("target", entry.TargetSubpath).Msg("copy failed")
			res.Errors++
			continue
		}
		log.Info().Str("source", entry.Source).Str("target", entry.TargetSubpath).Msg("wrote")
		res.Wrote++
	}

	log.Info().
		Int("wrote", res.Wrote).Int("backedUp", res.BackedUp).
		Int("skipped", res.Skipped).Int("errors", res.Errors).
		Msg("enable done")
	return res, nil
}

// Disable removes a mod's files from the target tree, restoring the latest
// backup for each where one exists.
func (e *Engine) Disable(name string) (*ModResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.disable(name)
}

func (e *Engine) disable(name string) (*ModResult, error) {
	m, err := e.mods.Manifest(name)
	if err != nil {
		return nil, err
	}

	res := &ModResult{}
	if len(m.Files) == 0 {
		e.logger.Info().Str("mod", name).Msg("manifest has no files to disable")
		return res, nil
	}

	base, err := e.resolve(m.Type, name)
	if err != nil {
		return nil, err
	}

	log := e.logger.With().Str("mod", name).Logger()
	log.Info().Str("base", base).Msg("disabling mod")

	for _, entry := range m.Files {
		if entry.TargetSubpath == "" {
			log.Warn().Interface("entry", entry).Msg("entry missing target_subpath")
			res.Errors++
			continue
		}

		tgt, err := pathguard.ResolveTarget(base, entry.TargetSubpath)
		if err != nil {
			e.ops.Audit().Record(fileops.EventDeleteValidation, entry.TargetSubpath, false, err.Error())
			return res, err
		}

		if _, err := os.Lstat(tgt); os.IsNotExist(err) {
			res.Absent++
			continue
		}

		if _, err := e.ops.SafeDeleteWithBoundaryCheck(tgt, base, false, false); err != nil {
			if errors.IsSecurity(err) && !errors.IsErrorCode(err, errors.ErrSymlinkRefused) {
				return res, err
			}
			log.Warn().Err(err).Str("target", entry.TargetSubpath).Msg("delete failed")
			res.Errors++
			continue
		}
		log.Info().Str("target", entry.TargetSubpath).Msg("removed")
		res.Removed++

		restored, err := e.backups.Restore(filepath.Base(tgt), tgt)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("target", entry.TargetSubpath).Msg("restore failed")
			res.Errors++
		case restored:
			log.Info().Str("target", entry.TargetSubpath).Msg("restored from backup")
			res.Restored++
		default:
			log.Info().Str("target", entry.TargetSubpath).Msg("no backup, left removed")
			res.NoBackup++
		}
	}

	log.Info().
		Int("removed", res.Removed).Int("restored", res.Restored).
		Int("noBackup", res.NoBackup).Int("absent", res.Absent).Int("errors", res.Errors).
		Msg("disable done")
	return res, nil
}

// Rollback restores the target tree from the named restore point.
func (e *Engine) Rollback(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	target, err := e.target()
	if err != nil {
		return err
	}
	return e.points.Rollback(id, target)
}

// orderMods returns the enabled mods with explicitly ordered ones first
// (preserving their relative order), then the rest in enabled-set order.
func orderMods(enabled, loadOrder []string) []string {
	enabledSet := toSet(enabled)
	var out []string
	for _, m := range loadOrder {
		if enabledSet[m] {
			out = append(out, m)
		}
	}
	ordered := toSet(loadOrder)
	for _, m := range enabled {
		if !ordered[m] {
			out = append(out, m)
		}
	}
	return out
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
