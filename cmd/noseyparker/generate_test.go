package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunGenerateShellCompletions(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		var buf bytes.Buffer
		cmd := &cobra.Command{}
		cmd.SetOut(&buf)

		err := runGenerateShellCompletions(cmd, []string{shell})
		require.NoError(t, err, "shell %s", shell)
		assert.NotEmpty(t, buf.String(), "shell %s", shell)
	}
}

func TestRunGenerateShellCompletions_Unsupported(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	err := runGenerateShellCompletions(cmd, []string{"nope"})
	assert.Error(t, err)
}

func TestRunGenerateManpages(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "noseyparker-manpages-test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	generateOutDir = tmpDir
	err = runGenerateManpages(cmd, []string{})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(tmpDir, "noseyparker.1"))
}

func TestRunGenerateJSONSchema(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	err := runGenerateJSONSchema(cmd, []string{})
	require.NoError(t, err)

	var schema map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &schema))
	assert.Equal(t, "object", schema["type"])
}
