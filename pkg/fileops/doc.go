// Package fileops provides security-hardened filesystem primitives: symlink
// aware copy and delete, boundary-checked deletion with an append-only audit
// trail, a default-deny gate for deletions inside a game tree, and two-pass
// archive extraction with bomb and traversal detection.
//
// Free functions (SafeCopy, SafeDelete, SafeExtractArchive) carry no state.
// Operations that need the audit log or the registered safe-deletion roots
// hang off an Ops value so callers never depend on package globals.
package fileops
