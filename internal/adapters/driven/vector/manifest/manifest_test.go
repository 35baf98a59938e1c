package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "partition")
	m := domain.Manifest{
		VectorStoreType: "chromem",
		EmbeddingModel:  "text-embedding-3-small",
		LoaderName:      "pdf",
		SourceFile:      "report.pdf",
		LastIndexed:     "2025-03-14T09:26:53Z",
	}

	require.NoError(t, Write(dir, m))

	got, err := Read(dir)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestWriteCreatesPartitionDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "partition")

	require.NoError(t, Write(dir, domain.Manifest{EmbeddingModel: "m"}))

	_, err := os.Stat(filepath.Join(dir, domain.ManifestFilename))
	assert.NoError(t, err)
}

func TestReadMissingManifest(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent"))
	assert.ErrorIs(t, err, domain.ErrMissingManifest)
}

func TestReadCorruptManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.ManifestFilename), []byte("{broken"), 0o644))

	_, err := Read(dir)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrMissingManifest)
}
