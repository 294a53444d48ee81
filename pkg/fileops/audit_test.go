// Test Type: Unit Test
// Description: Tests for the append-only security audit log

package fileops_test

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/fmreloaded/modman/pkg/fileops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLog_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "security", "audit.log")
	log := fileops.NewAuditLog(path)

	log.Record(fileops.EventDeleteBlocked, "/game/fm26.exe", false, "critical file")
	log.Record(fileops.EventDeleteSuccess, "/game/english.ltc", true, "deleted")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)

	// [<timestamp>] <EVENT> | <STATUS> | <path> | <reason>
	lineRe := regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2}T[0-9:+\-Z.]+\] [A-Z_]+ \| (SUCCESS|BLOCKED) \| .+ \| .*$`)
	for _, line := range lines {
		assert.Regexp(t, lineRe, line)
	}
	assert.Contains(t, lines[0], "BLOCKED")
	assert.Contains(t, lines[1], "SUCCESS")
}

func TestAuditLog_AppendOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	log := fileops.NewAuditLog(path)

	log.Record(fileops.EventDeleteAttempt, "/a", false, "first")

	// A second log handle appends, never truncates
	log2 := fileops.NewAuditLog(path)
	log2.Record(fileops.EventDeleteAttempt, "/b", false, "second")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "first")
	assert.Contains(t, string(data), "second")
}

func TestAuditLog_FailuresSwallowed(t *testing.T) {
	// Unwritable location: logging must not panic or error out
	log := fileops.NewAuditLog("/proc/definitely/not/writable/audit.log")
	log.Record(fileops.EventDeleteAttempt, "/a", false, "ignored")

	// Disabled log is a no-op
	var nilLog *fileops.AuditLog
	nilLog.Record(fileops.EventDeleteAttempt, "/a", false, "ignored")
	fileops.NewAuditLog("").Record(fileops.EventDeleteAttempt, "/a", false, "ignored")
}
