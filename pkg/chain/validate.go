package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/infohyun/aramcrm-sub001/pkg/domain"
)

// ErrInvalidChain wraps every problem reported by Validate.
var ErrInvalidChain = errors.New("invalid chain")

var (
	ErrDuplicateID  = errors.New("duplicate id")
	ErrDanglingEdge = errors.New("edge references unknown node")
	ErrSelfLoop     = errors.New("edge connects a node to itself")
	ErrBranching    = errors.New("node has more than one outgoing edge")
	ErrMerging      = errors.New("node has more than one incoming edge")
	ErrCycle        = errors.New("chain contains a cycle")
	ErrDisconnected = errors.New("node is not reachable from the chain head")
)

// Issue is a single problem found by Validate. It matches both ErrInvalidChain
// and its Kind under errors.Is.
type Issue struct {
	Kind   error
	Detail string
	// NodeID is the offending node, empty for edge-level problems.
	NodeID string
}

func (i *Issue) Error() string { return i.Kind.Error() + ": " + i.Detail }

func (i *Issue) Unwrap() error { return i.Kind }

func (i *Issue) Is(target error) bool { return target == ErrInvalidChain }

func issue(kind error, nodeID, format string, args ...any) error {
	return &Issue{Kind: kind, NodeID: nodeID, Detail: fmt.Sprintf(format, args...)}
}

// Validate checks that nodes and edges form a single simple path. All problems
// are reported together; each one matches ErrInvalidChain and its own sentinel
// under errors.Is. An empty workflow is valid.
func Validate(nodes []domain.Node, edges []domain.Edge) error {
	var errs []error

	ids := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if ids[n.ID] {
			errs = append(errs, issue(ErrDuplicateID, n.ID, "node %q", n.ID))
		}
		ids[n.ID] = true
		if !n.Type.Valid() {
			errs = append(errs, issue(domain.ErrInvalidNodeType, n.ID, "node %q has type %q", n.ID, n.Type))
		}
		if strings.TrimSpace(n.Label) == "" {
			errs = append(errs, issue(domain.ErrEmptyLabel, n.ID, "node %q", n.ID))
		}
	}

	edgeIDs := make(map[string]bool, len(edges))
	out := make(map[string]int, len(edges))
	in := make(map[string]int, len(edges))
	for _, e := range edges {
		if edgeIDs[e.ID] {
			errs = append(errs, issue(ErrDuplicateID, "", "edge %q", e.ID))
		}
		edgeIDs[e.ID] = true
		if !ids[e.Source] || !ids[e.Target] {
			errs = append(errs, issue(ErrDanglingEdge, "", "edge %q (%s -> %s)", e.ID, e.Source, e.Target))
			continue
		}
		if e.Source == e.Target {
			errs = append(errs, issue(ErrSelfLoop, e.Source, "edge %q on %q", e.ID, e.Source))
			continue
		}
		out[e.Source]++
		in[e.Target]++
	}
	for _, n := range nodes {
		if out[n.ID] > 1 {
			errs = append(errs, issue(ErrBranching, n.ID, "node %q has %d", n.ID, out[n.ID]))
		}
		if in[n.ID] > 1 {
			errs = append(errs, issue(ErrMerging, n.ID, "node %q has %d", n.ID, in[n.ID]))
		}
	}

	if len(nodes) > 0 && len(errs) == 0 {
		errs = append(errs, walk(nodes, edges)...)
	}
	return errors.Join(errs...)
}

// walk runs only on structurally sound input (unique ids, degree <= 1).
func walk(nodes []domain.Node, edges []domain.Edge) []error {
	hasIncoming := make(map[string]bool, len(edges))
	next := make(map[string]string, len(edges))
	for _, e := range edges {
		hasIncoming[e.Target] = true
		next[e.Source] = e.Target
	}

	root := ""
	for _, n := range nodes {
		if !hasIncoming[n.ID] {
			root = n.ID
			break
		}
	}
	if root == "" {
		return []error{issue(ErrCycle, "", "every node has an incoming edge")}
	}

	reached := map[string]bool{}
	for cur := root; cur != ""; cur = next[cur] {
		if reached[cur] {
			return []error{issue(ErrCycle, cur, "node %q revisited", cur)}
		}
		reached[cur] = true
	}

	var errs []error
	for _, n := range nodes {
		if !reached[n.ID] {
			errs = append(errs, issue(ErrDisconnected, n.ID, "node %q", n.ID))
		}
	}
	return errs
}

// Issues flattens an error returned by Validate into display strings.
func Issues(err error) []string {
	if err == nil {
		return []string{}
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		out := []string{}
		for _, e := range joined.Unwrap() {
			out = append(out, Issues(e)...)
		}
		return out
	}
	return []string{err.Error()}
}

// ProblemNodes returns the ids of nodes named by a Validate error, without
// duplicates, in report order.
func ProblemNodes(err error) []string {
	var out []string
	seen := map[string]bool{}
	var visit func(error)
	visit = func(err error) {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				visit(e)
			}
			return
		}
		var is *Issue
		if errors.As(err, &is) && is.NodeID != "" && !seen[is.NodeID] {
			seen[is.NodeID] = true
			out = append(out, is.NodeID)
		}
	}
	if err != nil {
		visit(err)
	}
	return out
}
