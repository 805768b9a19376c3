package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/infohyun/aramcrm-sub001/pkg/domain"
	"github.com/infohyun/aramcrm-sub001/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

// DefaultRedactPatterns match config keys that usually carry credentials.
var DefaultRedactPatterns = []string{`(?i)password`, `(?i)secret`, `(?i)token`, `(?i)api[_-]?key`}

type redactMiddleware struct {
	next     ports.WorkflowStore
	patterns []*regexp.Regexp
}

// NewRedactMiddleware creates a middleware that masks node config values whose
// keys match any of the patterns before they reach the store.
func NewRedactMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redact pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.WorkflowStore) ports.WorkflowStore {
		return &redactMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *redactMiddleware) Save(ctx context.Context, wf *domain.Workflow) error {
	// Clone so the caller's in-memory copy keeps its values.
	masked := wf.Clone()
	for i := range masked.Nodes {
		maskMap(masked.Nodes[i].Config, m.patterns)
	}
	return m.next.Save(ctx, masked)
}

func (m *redactMiddleware) Load(ctx context.Context, id string) (*domain.Workflow, error) {
	return m.next.Load(ctx, id)
}

func (m *redactMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *redactMiddleware) List(ctx context.Context, opts ports.ListOptions) ([]*domain.Workflow, error) {
	return m.next.List(ctx, opts)
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				masked = true
				break
			}
		}
		if sub, ok := v.(map[string]any); ok && !masked {
			maskMap(sub, patterns)
		}
	}
}
