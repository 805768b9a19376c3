/*
Package aramcrm is a workflow builder for CRM automations.

A workflow is a linear chain of steps that starts at a trigger node (a ticket
was created, an NPS response arrived, stock ran low) and continues through
conditions, actions, delays, approvals and notifications. Editing happens by
appending a step to the tail or removing a step, in which case its neighbours
are bridged so the chain never breaks.

# Architecture

The module follows a hexagonal layout:

  - pkg/domain: workflow, node, edge and trigger types plus change events.
  - pkg/chain: linearization, chain validation and the append/remove editor.
  - pkg/workflow: the service that loads, edits and saves workflows under a
    per-workflow lock and emits change hooks.
  - pkg/ports: the WorkflowStore and DistributedLocker contracts.
  - pkg/adapters: memory, redis and postgres stores, the HTTP API and the MCP server.
  - pkg/persistence/middleware: redaction and encryption of node configs at rest.
  - pkg/dsl: a fluent builder for constructing workflows in code.

# Usage

	svc := workflow.NewService(memory.NewStore())

	wf, err := svc.Create(ctx, workflow.CreateInput{
		Name:    "VIP escalation",
		Trigger: domain.TriggerTicketCreated,
	})
	if err != nil {
		log.Fatal(err)
	}

	wf, _, err = svc.AppendNode(ctx, wf.ID, domain.NodeCondition, "Customer is VIP")
	wf, _, err = svc.AppendNode(ctx, wf.ID, domain.NodeAction, "Assign senior agent")

	for _, n := range chain.Linearize(wf.Nodes, wf.Edges) {
		fmt.Println(n.Type, n.Label)
	}

The aramcrm command wires the same service to a configurable store and serves
it over HTTP (serve) or MCP (mcp).
*/
package aramcrm
