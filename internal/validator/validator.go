package validator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/infohyun/aramcrm-sub001/pkg/chain"
	"github.com/infohyun/aramcrm-sub001/pkg/domain"
)

// LoadFile reads a workflow document. Files ending in .yaml or .yml are
// decoded as YAML, everything else as JSON.
func LoadFile(path string) (*domain.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var wf domain.Workflow
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &wf)
	default:
		err = json.Unmarshal(data, &wf)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := checkLists(data, filepath.Ext(path)); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &wf, nil
}

// checkLists rejects JSON documents whose nodes or edges do not parse.
// Workflow decoding drops them silently, which would hide the mistake here.
func checkLists(data []byte, ext string) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return nil
	}
	var raw struct {
		Nodes json.RawMessage `json:"nodes"`
		Edges json.RawMessage `json:"edges"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if _, err := domain.DecodeNodes(raw.Nodes); err != nil {
		return fmt.Errorf("nodes: %w", err)
	}
	if _, err := domain.DecodeEdges(raw.Edges); err != nil {
		return fmt.Errorf("edges: %w", err)
	}
	return nil
}

// ValidateWorkflow checks the workflow metadata and that its nodes form a
// single linear chain. Every problem is listed in the returned error.
func ValidateWorkflow(wf *domain.Workflow) error {
	var errors []string

	if err := wf.ValidateMeta(); err != nil {
		errors = append(errors, err.Error())
	}
	errors = append(errors, chain.Issues(chain.Validate(wf.Nodes, wf.Edges))...)

	if len(errors) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(errors), strings.Join(errors, "\n- "))
	}

	return nil
}
