//go:build unix

package executor

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/dexter/internal/domain"
)

func TestDetachStartsOwnProcessGroup(t *testing.T) {
	cmd := exec.Command("true")
	detach(cmd)
	require.NotNil(t, cmd.SysProcAttr)
	assert.True(t, cmd.SysProcAttr.Setpgid)

	// the detached child still runs and reports normally
	res, err := NewProcessRunner(0).Run(context.Background(), domain.ProcessSpec{
		Argv: []string{"/bin/sh", "-c", "echo grouped"},
	})
	require.NoError(t, err)
	assert.Equal(t, "grouped\n", res.Stdout)
}
