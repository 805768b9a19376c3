package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/infohyun/aramcrm-sub001/pkg/domain"
)

func n(id string) domain.Node {
	return domain.Node{ID: id, Type: domain.NodeAction, Label: id}
}

func e(src, dst string) domain.Edge {
	return domain.Edge{ID: src + "->" + dst, Source: src, Target: dst}
}

func ids(nodes []domain.Node) []string {
	out := make([]string, len(nodes))
	for i, nd := range nodes {
		out[i] = nd.ID
	}
	return out
}

func TestLinearize(t *testing.T) {
	tests := []struct {
		name  string
		nodes []domain.Node
		edges []domain.Edge
		want  []string
	}{
		{
			name: "empty",
			want: []string{},
		},
		{
			name:  "single node",
			nodes: []domain.Node{n("a")},
			want:  []string{"a"},
		},
		{
			name:  "path stored out of order",
			nodes: []domain.Node{n("c"), n("a"), n("b")},
			edges: []domain.Edge{e("b", "c"), e("a", "b")},
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "branching follows first edge",
			nodes: []domain.Node{n("a"), n("b"), n("c")},
			edges: []domain.Edge{e("a", "c"), e("a", "b")},
			want:  []string{"a", "c", "b"},
		},
		{
			name:  "full cycle falls back to first node",
			nodes: []domain.Node{n("b"), n("a")},
			edges: []domain.Edge{e("a", "b"), e("b", "a")},
			want:  []string{"b", "a"},
		},
		{
			name:  "cycle after root stops walk",
			nodes: []domain.Node{n("a"), n("b"), n("c")},
			edges: []domain.Edge{e("a", "b"), e("b", "c"), e("c", "b")},
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "orphans appended in original order",
			nodes: []domain.Node{n("x"), n("a"), n("y"), n("b")},
			edges: []domain.Edge{e("a", "b")},
			want:  []string{"x", "a", "y", "b"},
		},
		{
			name:  "dangling edge ends walk",
			nodes: []domain.Node{n("a"), n("b")},
			edges: []domain.Edge{e("a", "ghost"), e("ghost", "b")},
			want:  []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Linearize(tt.nodes, tt.edges)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestLinearize_Complete(t *testing.T) {
	nodes := []domain.Node{n("a"), n("b"), n("c"), n("d"), n("e")}
	shapes := [][]domain.Edge{
		nil,
		{e("a", "b"), e("b", "c"), e("c", "d"), e("d", "e")},
		{e("e", "a"), e("a", "e")},
		{e("a", "b"), e("a", "c"), e("c", "d"), e("d", "a")},
		{e("b", "a"), e("c", "a"), e("e", "a")},
	}
	for _, edges := range shapes {
		got := Linearize(nodes, edges)
		assert.ElementsMatch(t, ids(nodes), ids(got))
	}
}

func TestRootAndTail(t *testing.T) {
	nodes := []domain.Node{n("b"), n("a"), n("c")}
	edges := []domain.Edge{e("a", "b"), e("b", "c")}
	assert.Equal(t, 1, Root(nodes, edges))
	assert.Equal(t, 2, Tail(nodes, edges))
	assert.Equal(t, -1, Root(nil, nil))
	assert.Equal(t, -1, Tail(nil, nil))
}
