//go:build cgo

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/noseyparker/noseyparker/pkg/store"
	"github.com/noseyparker/noseyparker/pkg/types"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSummarize_Empty(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "noseyparker-summarize-test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "datastore.db")
	s, err := store.New(store.Config{Path: dbPath})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	summarizeDatastore = dbPath
	summarizeFormat = "human"

	err = runSummarize(cmd, []string{})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No matches found")
}

func TestRunSummarize_WithMatches(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "noseyparker-summarize-test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "datastore.db")
	s, err := store.New(store.Config{Path: dbPath})
	require.NoError(t, err)

	blobID := types.ComputeBlobID([]byte("some content"))
	require.NoError(t, s.AddBlob(blobID, 12))

	match := &types.Match{
		BlobID:       blobID,
		RuleID:       "np.test.1",
		StructuralID: "struct-1",
		Location: types.Location{
			Offset: types.OffsetSpan{Start: 0, End: 6},
		},
		Snippet: types.Snippet{Matching: []byte("secret")},
		Groups:  [][]byte{[]byte("secret")},
	}
	require.NoError(t, s.AddMatch(match))
	require.NoError(t, s.Close())

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	summarizeDatastore = dbPath
	summarizeFormat = "human"

	err = runSummarize(cmd, []string{})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "np.test.1")
	assert.Contains(t, buf.String(), "TOTAL")
}

func TestRunSummarize_JSON(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "noseyparker-summarize-test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "datastore.db")
	s, err := store.New(store.Config{Path: dbPath})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	summarizeDatastore = dbPath
	summarizeFormat = "json"

	err = runSummarize(cmd, []string{})
	require.NoError(t, err)
	assert.True(t, buf.String() == "null\n" || buf.String()[0] == '[')
}
