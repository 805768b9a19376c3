package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/infohyun/aramcrm-sub001/pkg/domain"
	"github.com/infohyun/aramcrm-sub001/pkg/ports"
)

// Format selects the on-disk encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var errInvalidID = errors.New("invalid workflow id")

// Store implements ports.WorkflowStore using the local filesystem.
// Each workflow is one file named <id>.json or <id>.yaml in BasePath.
type Store struct {
	BasePath string
	Format   Format
}

// New creates a new Store with the given base path and format.
// If basePath is empty, it defaults to ".aramcrm/workflows"; an unknown format falls back to JSON.
func New(basePath string, format Format) *Store {
	if basePath == "" {
		basePath = filepath.Join(".aramcrm", "workflows")
	}
	if format != FormatYAML {
		format = FormatJSON
	}
	return &Store{BasePath: basePath, Format: format}
}

func (s *Store) ext() string {
	return "." + string(s.Format)
}

func (s *Store) path(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: %q", errInvalidID, id)
	}
	return filepath.Join(s.BasePath, id+s.ext()), nil
}

func (s *Store) marshal(wf *domain.Workflow) ([]byte, error) {
	if s.Format == FormatYAML {
		return yaml.Marshal(wf)
	}
	return json.MarshalIndent(wf, "", "  ")
}

func (s *Store) unmarshal(data []byte) (*domain.Workflow, error) {
	var wf domain.Workflow
	var err error
	if s.Format == FormatYAML {
		err = yaml.Unmarshal(data, &wf)
	} else {
		err = json.Unmarshal(data, &wf)
	}
	if err != nil {
		return nil, err
	}
	return &wf, nil
}

// Save persists the workflow atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, wf *domain.Workflow) error {
	destPath, err := s.path(wf.ID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure workflow directory: %w", err)
	}

	data, err := s.marshal(wf)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow: %w", err)
	}

	// Same directory keeps the rename on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, ".tmp-"+wf.ID+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing workflow file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Load reads a workflow file.
func (s *Store) Load(ctx context.Context, id string) (*domain.Workflow, error) {
	filePath, err := s.path(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}

	wf, err := s.unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %q: %w", id, err)
	}
	return wf, nil
}

// Delete removes the workflow file.
func (s *Store) Delete(ctx context.Context, id string) error {
	filePath, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete workflow file: %w", err)
	}
	return nil
}

// List loads every workflow file in BasePath and applies opts.
func (s *Store) List(ctx context.Context, opts ports.ListOptions) ([]*domain.Workflow, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []*domain.Workflow{}, nil
		}
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	var all []*domain.Workflow
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != s.ext() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		wf, err := s.Load(ctx, strings.TrimSuffix(name, s.ext()))
		if err != nil {
			return nil, err
		}
		all = append(all, wf)
	}
	return opts.Apply(all), nil
}
