package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/infohyun/aramcrm-sub001/internal/presentation/graph"
	"github.com/infohyun/aramcrm-sub001/internal/presentation/tui"
	"github.com/infohyun/aramcrm-sub001/internal/validator"
	"github.com/infohyun/aramcrm-sub001/pkg/chain"
	"github.com/infohyun/aramcrm-sub001/pkg/domain"
	"github.com/infohyun/aramcrm-sub001/pkg/ports"
	"github.com/infohyun/aramcrm-sub001/pkg/workflow"
)

// PrintList writes workflows as an aligned table.
func PrintList(w io.Writer, list []*domain.Workflow) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTRIGGER\tACTIVE\tSTEPS\tRUNS")
	for _, wf := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%d\t%d\n", wf.ID, wf.Name, wf.Trigger, wf.IsActive, len(wf.Nodes), wf.RunCount)
	}
	return tw.Flush()
}

// ShowOptions controls how a workflow is printed.
type ShowOptions struct {
	JSON bool
	// Markdown renders through glamour; it is normally set only on a terminal.
	Markdown bool
	Width    int
}

// Show prints one workflow.
func Show(w io.Writer, wf *domain.Workflow, opts ShowOptions) error {
	switch {
	case opts.JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(workflow.NewChainView(wf))
	case opts.Markdown:
		render, err := tui.NewRenderer(opts.Width)
		if err != nil {
			return err
		}
		out, err := render(tui.ChainMarkdown(wf))
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	default:
		_, err := io.WriteString(w, tui.ChainText(wf))
		return err
	}
}

// StdoutShowOptions picks markdown rendering when stdout is a terminal.
func StdoutShowOptions(asJSON bool) ShowOptions {
	isTTY, width := tui.IsTerminal(os.Stdout)
	return ShowOptions{JSON: asJSON, Markdown: isTTY && !asJSON, Width: width}
}

// Graph writes the Mermaid flowchart of a workflow, highlighting problem nodes.
func Graph(ctx context.Context, svc *workflow.Service, id, selected string, w io.Writer) error {
	wf, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}
	overlay := &graph.GraphOverlay{
		Problems: chain.ProblemNodes(chain.Validate(wf.Nodes, wf.Edges)),
		Selected: selected,
	}
	_, err = io.WriteString(w, graph.GenerateMermaid(wf, overlay))
	return err
}

// ValidateFile checks a workflow document on disk.
func ValidateFile(path string, w io.Writer) error {
	wf, err := validator.LoadFile(path)
	if err != nil {
		return err
	}
	if err := validator.ValidateWorkflow(wf); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: valid chain of %d steps\n", path, len(wf.Nodes))
	return nil
}

// Import creates a workflow from a document on disk.
func Import(ctx context.Context, svc *workflow.Service, path string) (*domain.Workflow, error) {
	doc, err := validator.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return svc.Create(ctx, workflow.CreateInput{
		Name:        doc.Name,
		Description: doc.Description,
		Trigger:     doc.Trigger,
		IsActive:    doc.IsActive,
		Nodes:       doc.Nodes,
		Edges:       doc.Edges,
	})
}

// ListOptions converts CLI flag values into store filters.
func ListOptions(trigger, active string, limit int) (ports.ListOptions, error) {
	opts := ports.ListOptions{Limit: limit}
	if trigger != "" {
		t, err := domain.ParseTrigger(trigger)
		if err != nil {
			return opts, err
		}
		opts.Trigger = t
	}
	switch active {
	case "":
	case "true", "yes":
		v := true
		opts.Active = &v
	case "false", "no":
		v := false
		opts.Active = &v
	default:
		return opts, fmt.Errorf("invalid --active value %q (want true or false)", active)
	}
	return opts, nil
}
