/*
Package domain contains the core models of the workflow builder.

It defines the entities that make up an automation: the Workflow aggregate, its
typed Nodes and the directed Edges that connect them. This package is kept pure
and free of I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Workflow: A named automation bound to a Trigger, holding nodes and edges.
  - Node: One step of the automation (trigger, condition, action, notification, delay, approval).
  - Edge: A directed connection from one node to the next.
  - ChangeEvent: Emitted after every successful mutation, carrying a WorkflowDiff.
*/
package domain
