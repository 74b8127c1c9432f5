// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

const exportLimit = 100000

// ExportYAML writes every run with its artifacts to dir/export.yaml and
// returns the path.
func (s *Store) ExportYAML(ctx context.Context) (string, error) {
	runs, err := s.exportRuns(ctx)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(runs)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	path := filepath.Join(s.dir, "export.yaml")
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes every run with its artifacts to dir/export.json and
// returns the path.
func (s *Store) ExportJSON(ctx context.Context) (string, error) {
	runs, err := s.exportRuns(ctx)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	path := filepath.Join(s.dir, "export.json")
	return path, os.WriteFile(path, data, 0o644)
}

func (s *Store) exportRuns(ctx context.Context) ([]RunRecord, error) {
	runs, err := s.Runs(ctx, exportLimit)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	for i := range runs {
		if runs[i].Artifacts, err = s.Artifacts(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}
