package graph

import (
	"fmt"
	"strings"

	"github.com/infohyun/aramcrm-sub001/pkg/chain"
	"github.com/infohyun/aramcrm-sub001/pkg/domain"
)

// GraphOverlay contains editor state to highlight on the graph.
type GraphOverlay struct {
	// Problems are node ids flagged by validation.
	Problems []string
	// Selected is the node currently focused in the editor.
	Selected string
}

// GenerateMermaid produces a Mermaid flowchart for a workflow.
// Nodes are emitted in chain order and shaped by type:
// - Trigger: ((Circle))
// - Condition: {Rhombus}
// - Approval: {{Hexagon}}
// - Delay: ([Stadium])
// - Notification: [/Parallelogram/]
// - Action: [Rectangle]
func GenerateMermaid(wf *domain.Workflow, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if wf == nil {
		return sb.String()
	}

	known := make(map[string]bool, len(wf.Nodes))
	for _, node := range chain.Linearize(wf.Nodes, wf.Edges) {
		known[node.ID] = true
		opener, closer := shape(node.Type)
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(node.ID), opener, escapeLabel(node.Label), closer)
	}

	for _, e := range wf.Edges {
		if !known[e.Source] || !known[e.Target] {
			continue
		}
		arrow := "-->"
		if e.Label != "" {
			arrow = fmt.Sprintf("-- \"%s\" -->", escapeLabel(e.Label))
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(e.Source), arrow, sanitizeMermaidID(e.Target))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast regardless of theme.
		sb.WriteString("    classDef problem fill:#ffebee,stroke:#c62828,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef selected fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.Problems {
			if !known[id] || seen[id] {
				continue
			}
			seen[id] = true
			fmt.Fprintf(&sb, "    class %s problem;\n", sanitizeMermaidID(id))
		}
		if overlay.Selected != "" && known[overlay.Selected] {
			fmt.Fprintf(&sb, "    class %s selected;\n", sanitizeMermaidID(overlay.Selected))
		}
	}

	return sb.String()
}

func shape(t domain.NodeType) (string, string) {
	switch t {
	case domain.NodeTrigger:
		return "((", "))"
	case domain.NodeCondition:
		return "{", "}"
	case domain.NodeApproval:
		return "{{", "}}"
	case domain.NodeDelay:
		return "([", "])"
	case domain.NodeNotification:
		return "[/", "/]"
	default:
		return "[", "]"
	}
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
