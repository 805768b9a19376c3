package tui

import (
	"fmt"
	"strings"

	"github.com/infohyun/aramcrm-sub001/pkg/chain"
	"github.com/infohyun/aramcrm-sub001/pkg/domain"
)

var typeIcons = map[domain.NodeType]string{
	domain.NodeTrigger:      "⚡",
	domain.NodeCondition:    "❓",
	domain.NodeAction:       "▶",
	domain.NodeNotification: "🔔",
	domain.NodeDelay:        "⏱",
	domain.NodeApproval:     "✅",
}

// ChainMarkdown renders a workflow as a markdown document: a header, its
// metadata and the steps in chain order. Validation issues are listed last.
func ChainMarkdown(wf *domain.Workflow) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", wf.Name)
	if wf.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", wf.Description)
	}

	status := "inactive"
	if wf.IsActive {
		status = "active"
	}
	fmt.Fprintf(&sb, "- **ID**: `%s`\n", wf.ID)
	fmt.Fprintf(&sb, "- **Trigger**: %s (`%s`)\n", wf.Trigger.Label(), wf.Trigger)
	fmt.Fprintf(&sb, "- **Status**: %s\n", status)
	fmt.Fprintf(&sb, "- **Runs**: %d", wf.RunCount)
	if wf.LastRunAt != nil {
		fmt.Fprintf(&sb, " (last %s)", wf.LastRunAt.Format("2006-01-02 15:04 MST"))
	}
	sb.WriteString("\n\n## Steps\n\n")

	nodes := chain.Linearize(wf.Nodes, wf.Edges)
	if len(nodes) == 0 {
		sb.WriteString("_No steps yet._\n")
	}
	for i, n := range nodes {
		fmt.Fprintf(&sb, "%d. %s **%s** _%s_ `%s`\n", i+1, typeIcons[n.Type], n.Label, n.Type, n.ID)
	}

	if issues := chain.Issues(chain.Validate(wf.Nodes, wf.Edges)); len(issues) > 0 {
		sb.WriteString("\n## Issues\n\n")
		for _, is := range issues {
			fmt.Fprintf(&sb, "- %s\n", is)
		}
	}
	return sb.String()
}

// ChainText is the plain rendering used when output is not a terminal.
func ChainText(wf *domain.Workflow) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s) trigger=%s active=%t runs=%d\n", wf.Name, wf.ID, wf.Trigger, wf.IsActive, wf.RunCount)
	for i, n := range chain.Linearize(wf.Nodes, wf.Edges) {
		fmt.Fprintf(&sb, "  %d. [%s] %s (%s)\n", i+1, n.Type, n.Label, n.ID)
	}
	for _, is := range chain.Issues(chain.Validate(wf.Nodes, wf.Edges)) {
		fmt.Fprintf(&sb, "  ! %s\n", is)
	}
	return sb.String()
}
