package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/dexter/internal/domain"
)

func TestRunCapturesOutputAndExitCode(t *testing.T) {
	r := NewProcessRunner(0)
	res, err := r.Run(context.Background(), domain.ProcessSpec{
		Argv: []string{"/bin/sh", "-c", "echo out; echo err 1>&2; exit 3"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.False(t, res.OutputTruncated)
	assert.False(t, res.EndedAt.Before(res.StartedAt))
}

func TestRunUsesWorkingDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), nil, 0o644))

	res, err := NewProcessRunner(0).Run(context.Background(), domain.ProcessSpec{
		Argv:       []string{"ls"},
		WorkingDir: dir,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Stdout, "marker.txt")
}

func TestRunTruncatesWithMarker(t *testing.T) {
	res, err := NewProcessRunner(0).Run(context.Background(), domain.ProcessSpec{
		Argv:      []string{"/bin/sh", "-c", "printf '%0100d' 0"},
		MaxOutput: 10,
	})
	require.NoError(t, err)
	assert.True(t, res.OutputTruncated)
	assert.True(t, strings.HasPrefix(res.Stdout, "0000000000\n"))
	assert.Contains(t, res.Stdout, "[... truncated 90 bytes ...]")
}

func TestRunReportsSpawnFailure(t *testing.T) {
	_, err := NewProcessRunner(0).Run(context.Background(), domain.ProcessSpec{
		Argv: []string{"/definitely/not/a/binary"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSpawn))

	_, err = NewProcessRunner(0).Run(context.Background(), domain.ProcessSpec{})
	assert.True(t, errors.Is(err, domain.ErrSpawn))
}

func TestRunDoesNotSpawnAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	_, err := NewProcessRunner(0).Run(ctx, domain.ProcessSpec{
		Argv:       []string{"touch", "created"},
		WorkingDir: dir,
	})
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "created"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestBoundedBuffer(t *testing.T) {
	b := newBoundedBuffer(4)
	n, err := b.Write([]byte("ab"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, _ = b.Write([]byte("cdef"))
	assert.Equal(t, 4, n)
	_, _ = b.Write([]byte("gh"))

	assert.True(t, b.Truncated())
	assert.Equal(t, "abcd\n[... truncated 4 bytes ...]", b.String())
}

func TestBoundedBufferMarksInvalidUTF8(t *testing.T) {
	b := newBoundedBuffer(16)
	_, _ = b.Write([]byte("ok\xff\xfeend"))
	assert.Equal(t, "ok�end", b.String())
}
