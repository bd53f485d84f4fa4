package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/catapult/internal/domain/config"
	"github.com/trebuchet-org/catapult/internal/domain/models"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// ManifestWriterAdapter writes address manifests as JSON files
type ManifestWriterAdapter struct {
	root string
}

// NewManifestWriterAdapter creates a new manifest writer adapter
func NewManifestWriterAdapter(cfg *config.RuntimeConfig) *ManifestWriterAdapter {
	return &ManifestWriterAdapter{root: cfg.ProjectRoot}
}

type manifest struct {
	*models.DeploymentResult
	Contracts map[string]common.Address `json:"contracts"`
}

// WriteManifest writes the result to path, relative to the project root
func (w *ManifestWriterAdapter) WriteManifest(_ context.Context, path string, result *models.DeploymentResult) error {
	if !filepath.IsAbs(path) {
		path = filepath.Join(w.root, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	data, err := json.MarshalIndent(manifest{DeploymentResult: result, Contracts: result.Addresses()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

var _ usecase.ManifestWriter = (*ManifestWriterAdapter)(nil)
