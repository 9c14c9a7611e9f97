package oplog

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmarsh/jjcore/internal/model"
)

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) Printf(format string, v ...any) {
	r.lines = append(r.lines, fmt.Sprintf(format, v...))
}

func opID(b byte) model.OperationID {
	buf := make([]byte, 20)
	buf[19] = b
	return model.OperationID(buf)
}

func TestOrReturnsProvidedLoggerWhenNonNil(t *testing.T) {
	rec := &recordingLogger{}
	assert.Same(t, rec, Or(rec))
}

func TestOrFallsBackToDefaultLoggerWhenNil(t *testing.T) {
	l := Or(nil)
	require.NotNil(t, l)
	// log.Default() satisfies the Logger interface; calling it must not panic.
	l.Printf("smoke test %d", 1)
}

func TestCommitPublishedLogsOpIDAndDescription(t *testing.T) {
	rec := &recordingLogger{}
	CommitPublished(rec, opID(1), "add file", []model.OperationID{opID(2)})
	require.Len(t, rec.lines, 1)
	assert.Contains(t, rec.lines[0], opID(1).Hex())
	assert.Contains(t, rec.lines[0], "add file")
}

func TestOpHeadsMergedLogsEveryHeadAndTarget(t *testing.T) {
	rec := &recordingLogger{}
	heads := []model.OperationID{opID(1), opID(2), opID(3)}
	OpHeadsMerged(rec, opID(9), heads)
	require.Len(t, rec.lines, 1)
	assert.Contains(t, rec.lines[0], opID(9).Hex())
	for _, h := range heads {
		assert.Contains(t, rec.lines[0], h.Hex())
	}
}

func TestCommitPublishedIsNilSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		CommitPublished(nil, opID(1), "desc", nil)
	})
}
