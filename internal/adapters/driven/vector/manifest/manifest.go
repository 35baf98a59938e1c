// Package manifest reads and writes index partition manifests. The manifest
// pins the embedding model a partition was built with and records its
// provenance; query-time model selection always defers to it.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
)

// Write persists the manifest into the partition directory.
func Write(dir string, m domain.Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create partition dir: %w", err)
	}
	path := filepath.Join(dir, domain.ManifestFilename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Read loads the manifest from the partition directory. A missing file maps
// to domain.ErrMissingManifest so callers can decide on degraded-mode
// behaviour.
func Read(dir string) (domain.Manifest, error) {
	path := filepath.Join(dir, domain.ManifestFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Manifest{}, fmt.Errorf("partition %s: %w", dir, domain.ErrMissingManifest)
		}
		return domain.Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var m domain.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return domain.Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}
