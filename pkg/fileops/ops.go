package fileops

import (
	"path/filepath"
	"sync"

	"github.com/fmreloaded/modman/pkg/errors"
	"github.com/fmreloaded/modman/pkg/logging"
	"github.com/rs/zerolog"
)

// Ops bundles the stateful pieces of the file-safety layer: the audit log and
// the whitelist of roots where deletion is explicitly allowed.
type Ops struct {
	audit  *AuditLog
	logger zerolog.Logger

	mu        sync.Mutex
	safeRoots map[string]struct{}
}

// NewOps creates an Ops writing audit events to auditLogPath. Pass an empty
// path to disable auditing (tests mostly do).
func NewOps(auditLogPath string) *Ops {
	return &Ops{
		audit:     NewAuditLog(auditLogPath),
		logger:    logging.GetLogger("fileops"),
		safeRoots: make(map[string]struct{}),
	}
}

// Audit exposes the audit log for collaborators that record their own events.
func (o *Ops) Audit() *AuditLog {
	return o.audit
}

// RegisterSafeDeletionRoot adds a directory to the whitelist of roots where
// deletions are allowed. Protected system directories are refused.
func (o *Ops) RegisterSafeDeletionRoot(path string) error {
	resolved, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrInvalidInput, "cannot resolve %s", path)
	}
	if r, err := filepath.EvalSymlinks(resolved); err == nil {
		resolved = r
	}

	if IsProtectedSystemDirectory(resolved) {
		return errors.Newf(errors.ErrProtectedDir,
			"cannot register system directory as safe deletion root: %s", resolved)
	}

	o.mu.Lock()
	o.safeRoots[resolved] = struct{}{}
	o.mu.Unlock()

	o.logger.Debug().Str("root", resolved).Msg("registered safe deletion root")
	return nil
}

// IsSafeDeletionPath reports whether path lies within any registered safe
// deletion root.
func (o *Ops) IsSafeDeletionPath(path string) bool {
	resolved, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if r, err := filepath.EvalSymlinks(filepath.Dir(resolved)); err == nil {
		resolved = filepath.Join(r, filepath.Base(resolved))
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	for root := range o.safeRoots {
		if isWithin(root, resolved) {
			return true
		}
	}
	return false
}

// SafeDeletionRoots returns a copy of the registered whitelist.
func (o *Ops) SafeDeletionRoots() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	roots := make([]string, 0, len(o.safeRoots))
	for root := range o.safeRoots {
		roots = append(roots, root)
	}
	return roots
}
