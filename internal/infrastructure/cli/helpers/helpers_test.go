package helpers

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/dexter/internal/domain"
)

func TestCalculateTop(t *testing.T) {
	freq := map[string]int{"f2": 4, "ffmpeg": 2, "pandoc": 2, "qpdf": 1}

	top := CalculateTop(freq, 3)
	assert.Equal(t, []Statistic{{"f2", 4}, {"ffmpeg", 2}, {"pandoc", 2}}, top)
	assert.Len(t, CalculateTop(freq, 0), 4)
}

func TestCalculateSuccessRate(t *testing.T) {
	assert.Equal(t, 0.0, CalculateSuccessRate(0, 0))
	assert.InDelta(t, 75.0, CalculateSuccessRate(3, 4), 0.001)
}

func TestDeriveUndoHints(t *testing.T) {
	records := []domain.ExecutionRecord{
		{PluginID: "f2", Command: "f2 -f a -r b -x", State: domain.StateSucceeded},
		{PluginID: "f2", Command: "f2 -f c -r d -x", State: domain.StateSucceeded},
		{PluginID: "fileops", Command: "rm -- old.txt", State: domain.StateFailed},
		{PluginID: "jdupes", Command: "jdupes -r -d -N .", State: domain.StateCancelled},
	}
	hints := DeriveUndoHints(records)
	require.Len(t, hints, 2)
	assert.Contains(t, hints[0], "Removed files")
	assert.Contains(t, hints[1], "f2 -u")
}

func TestTraverseNestedMap(t *testing.T) {
	cfg := domain.Config{
		Preferences: domain.Preferences{MaxClarifyRounds: 2},
		Providers:   []domain.Provider{{ID: "ollama", Kind: domain.ProviderKindLocal}},
	}
	m, err := ConfigToMap(cfg)
	require.NoError(t, err)

	value, ok := TraverseNestedMap(m, []string{"preferences", "max_clarify_rounds"})
	require.True(t, ok)
	assert.Equal(t, 2, value)

	value, ok = TraverseNestedMap(m, []string{"providers", "0", "id"})
	require.True(t, ok)
	assert.Equal(t, "ollama", value)

	_, ok = TraverseNestedMap(m, []string{"providers", "3", "id"})
	assert.False(t, ok)
	_, ok = TraverseNestedMap(m, []string{"preferences", "default_model"})
	assert.False(t, ok)
}

func TestPromptForYesNo(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, PromptForYesNo(&out, bufio.NewReader(strings.NewReader("\n")), "Continue?", true))
	assert.Contains(t, out.String(), "[Y/n]")
	assert.False(t, PromptForConfirmation(&out, bufio.NewReader(strings.NewReader("nope\n")), "Delete?"))
	assert.Equal(t, "fallback", PromptForString(&out, bufio.NewReader(strings.NewReader("")), "Name", "fallback"))
}
