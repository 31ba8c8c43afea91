// Package loader reads workflow definition documents (YAML or JSON) from
// disk.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/soochol/stateflow/internal/stateflow"
)

// maxParallel bounds concurrent file reads in LoadDir.
const maxParallel = 8

// ParseFile decodes one definition document. The format is chosen by
// extension: .yaml and .yml are YAML, anything else is JSON.
func ParseFile(path string) (*stateflow.WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	wf, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return wf, nil
}

// Parse decodes a definition document whose format is given by ext
// (".yaml", ".yml" or ".json").
func Parse(data []byte, ext string) (*stateflow.WorkflowDefinition, error) {
	var wf stateflow.WorkflowDefinition
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &wf); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &wf); err != nil {
			return nil, err
		}
	}
	return &wf, nil
}

// IsDefinitionFile reports whether name has a supported extension.
func IsDefinitionFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// LoadDir parses every definition document directly inside dir, ordered by
// file name. Files that fail to parse are reported together, each error
// naming its path; the successfully parsed definitions are still returned.
func LoadDir(ctx context.Context, dir string) ([]*stateflow.WorkflowDefinition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read definitions dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if !e.IsDir() && IsDefinitionFile(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	defs := make([]*stateflow.WorkflowDefinition, len(paths))
	errs := make([]error, len(paths))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)

	for i, path := range paths {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			// Parse failures are collected per file, not returned, so one
			// bad document does not cancel the rest.
			defs[i], errs[i] = ParseFile(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*stateflow.WorkflowDefinition, 0, len(defs))
	for _, wf := range defs {
		if wf != nil {
			out = append(out, wf)
		}
	}
	return out, errors.Join(errs...)
}
