package chain

import "github.com/infohyun/aramcrm-sub001/pkg/domain"

// Root returns the index of the chain head: the first node that is not the
// target of any edge, or the first node when every node has an incoming edge.
// It returns -1 for an empty list.
func Root(nodes []domain.Node, edges []domain.Edge) int {
	if len(nodes) == 0 {
		return -1
	}
	targets := make(map[string]bool, len(edges))
	for _, e := range edges {
		targets[e.Target] = true
	}
	for i, n := range nodes {
		if !targets[n.ID] {
			return i
		}
	}
	return 0
}

// Tail returns the index of the first node that is not the source of any edge,
// or -1 when there is none.
func Tail(nodes []domain.Node, edges []domain.Edge) int {
	sources := make(map[string]bool, len(edges))
	for _, e := range edges {
		sources[e.Source] = true
	}
	for i, n := range nodes {
		if !sources[n.ID] {
			return i
		}
	}
	return -1
}

// Linearize orders nodes for display. Starting at the root it follows the
// first outgoing edge of each node until a node has none or a node would be
// visited twice. Nodes the walk never reached are appended in their original
// order, so every input node appears exactly once.
func Linearize(nodes []domain.Node, edges []domain.Edge) []domain.Node {
	out := make([]domain.Node, 0, len(nodes))
	if len(nodes) == 0 {
		return out
	}

	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		if _, dup := index[n.ID]; !dup {
			index[n.ID] = i
		}
	}
	next := make(map[string]string, len(edges))
	for _, e := range edges {
		if _, ok := next[e.Source]; !ok {
			next[e.Source] = e.Target
		}
	}

	visited := make([]bool, len(nodes))
	cur := Root(nodes, edges)
	for {
		if visited[cur] {
			break
		}
		visited[cur] = true
		out = append(out, nodes[cur])

		target, ok := next[nodes[cur].ID]
		if !ok {
			break
		}
		idx, ok := index[target]
		if !ok {
			break
		}
		cur = idx
	}

	for i, n := range nodes {
		if !visited[i] {
			out = append(out, n)
		}
	}
	return out
}
