// Package hf synchronises the local artifacts directory from a Hugging Face
// dataset repository. Only files missing locally are downloaded; existing
// partitions are never overwritten.
package hf

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
	"github.com/greenplate-labs/greenplate/internal/logger"
)

// Default configuration values.
const (
	DefaultBaseURL  = "https://huggingface.co"
	DefaultRevision = "main"
	DefaultTimeout  = 5 * time.Minute
)

// Config holds configuration for the artifact syncer.
type Config struct {
	// Repo is the dataset repository, e.g. "acme/greenplate-artifacts" (required).
	Repo string

	// Revision is the git revision to sync from (default: main).
	Revision string

	// Dir is the local artifacts directory (required).
	Dir string

	// Token authenticates against private repositories (optional).
	Token string

	// BaseURL overrides the hub endpoint, mainly for tests.
	BaseURL string

	// Timeout bounds a single file download (default: 5m).
	Timeout time.Duration
}

// Syncer downloads missing artifact files from the dataset repository.
type Syncer struct {
	cfg        Config
	httpClient *http.Client
}

// NewSyncer creates a syncer from the config.
func NewSyncer(cfg Config) (*Syncer, error) {
	if cfg.Repo == "" || cfg.Dir == "" {
		return nil, fmt.Errorf("%w: dataset repo and artifacts dir are required", domain.ErrInvalidConfig)
	}
	if cfg.Revision == "" {
		cfg.Revision = DefaultRevision
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Syncer{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}, nil
}

type treeEntry struct {
	Type string `json:"type"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Sync lists the repository tree and downloads every file not yet present
// locally. It returns the number of files downloaded.
func (s *Syncer) Sync(ctx context.Context) (int, error) {
	entries, err := s.listTree(ctx, "")
	if err != nil {
		return 0, err
	}

	downloaded := 0
	for _, entry := range entries {
		if entry.Type != "file" {
			continue
		}
		if strings.HasPrefix(filepath.Base(entry.Path), ".") {
			continue
		}

		local := filepath.Join(s.cfg.Dir, filepath.FromSlash(entry.Path))
		if _, err := os.Stat(local); err == nil {
			logger.Debug("Artifact %s already present, skipping", entry.Path)
			continue
		}

		if err := s.download(ctx, entry.Path, local); err != nil {
			return downloaded, err
		}
		downloaded++
	}

	logger.Info("Synced %d artifact files from %s@%s", downloaded, s.cfg.Repo, s.cfg.Revision)
	return downloaded, nil
}

// listTree walks the repository tree recursively via the hub API.
func (s *Syncer) listTree(ctx context.Context, path string) ([]treeEntry, error) {
	endpoint := fmt.Sprintf("%s/api/datasets/%s/tree/%s/%s?recursive=true",
		s.cfg.BaseURL, s.cfg.Repo, url.PathEscape(s.cfg.Revision), path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create tree request: %w", err)
	}
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list dataset tree: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("dataset %s@%s: %w", s.cfg.Repo, s.cfg.Revision, domain.ErrNotFound)
	default:
		return nil, fmt.Errorf("dataset tree endpoint returned %d", resp.StatusCode)
	}

	var entries []treeEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode dataset tree: %w", err)
	}
	return entries, nil
}

// download fetches one repository file into the local path, writing through
// a temp file so a partial download never looks like a synced artifact.
func (s *Syncer) download(ctx context.Context, repoPath, local string) error {
	endpoint := fmt.Sprintf("%s/datasets/%s/resolve/%s/%s",
		s.cfg.BaseURL, s.cfg.Repo, url.PathEscape(s.cfg.Revision), repoPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create download request: %w", err)
	}
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", repoPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: endpoint returned %d", repoPath, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(local), ".sync-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", repoPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", repoPath, err)
	}
	if err := os.Rename(tmp.Name(), local); err != nil {
		return fmt.Errorf("finalize %s: %w", repoPath, err)
	}

	logger.Debug("Downloaded artifact %s", repoPath)
	return nil
}

func (s *Syncer) authorize(req *http.Request) {
	if s.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	}
}
